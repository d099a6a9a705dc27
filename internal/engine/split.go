package engine

import "github.com/jgkw/bisim/internal/pool"

// noSlice marks the absence of a co-splitter: fourWaySplitB is also used
// by stabilisation (C6), which calls it with only a small splitter.
const noSlice = pool.NoHandle

// claimKind records which of the four cooperative coroutines has taken
// ownership of a state during four_way_splitB.
type claimKind int8

const (
	claimNone claimKind = iota
	claimReachAlw
	claimAvoidSml
	claimAvoidLrg
	claimNewBotSt
)

// coroutine is one of the three active searches four_way_splitB runs
// side by side: ReachAlw, AvoidSml, AvoidLrg. Each is a backward
// breadth-first search over block-inert predecessors, seeded from the
// block's states according to which splitter(s) they have a direct
// transition in; NewBotSt has no search of its own and is fed purely by
// claim conflicts.
type coroutine struct {
	kind    claimKind
	todo    []StateID
	claimed int32
	aborted bool
}

func (c *coroutine) finished() bool { return c.aborted || len(c.todo) == 0 }

// log2Floor returns floor(log2(n)) for n > 0, and 0 for n <= 0 (a
// just-created, not-yet-populated block has size 0 and no meaningful
// credit contribution).
func log2Floor(n int32) int32 {
	k := int32(0)
	for n > 1 {
		n >>= 1
		k++
	}
	return k
}

// splitResult partitions the members of a block into up to four new
// groups. Order within each group preserves the original bottom-then-
// nonbottom layout of the block being split.
type splitResult struct {
	reachAlw, avoidSml, avoidLrg, newBotSt []StateID
}

// fourWaySplitB is the cooperative four-way split described for C4: given
// a block and a "small" splitter slice (transitions reaching a freshly
// separated constellation) plus an optional "large" co-splitter slice
// (transitions still reaching the old constellation), it partitions the
// block's states into ReachAlw (reaches every given splitter), AvoidSml
// (cannot reach the small splitter), AvoidLrg (cannot reach the large
// splitter, only meaningful when one is given), and NewBotSt (states
// whose block-inert successors disagree about which of the above they
// belong to; these stay with the original block and likely gain new
// bottom states once it shrinks).
//
// The backward searches are seeded directly from every state (bottom or
// not) with a matching transition, mirroring the "small splitter already
// scanned, producing candidate lists of bottom and non-bottom states"
// setup; hitsLarge is computed eagerly too rather than swept lazily per
// candidate, trading the described laziness for a simpler and equally
// correct implementation (see DESIGN.md).
//
// The abort rule — stop growing whichever coroutine's claimed count
// first exceeds half of the block, and bulk-assign every state nobody
// else reaches to it once the others finish — is what keeps a single
// split to O(size of the two smaller results); it cannot fire twice in
// the same call, since claims are disjoint and the block has one half.
func (e *Engine) fourWaySplitB(bid BlockID, small pool.Handle, large pool.Handle) splitResult {
	b := &e.blocks[bid]
	members := append([]StateID(nil), e.stateInBlock[b.begin:b.end]...)
	bottomSet := map[StateID]bool{}
	for p := b.begin; p < b.bottomEnd; p++ {
		bottomSet[e.stateInBlock[p]] = true
	}

	// Only the marked sub-range of a splitter is read: for a fresh C5
	// splitter slice that's the whole thing (unmarked means no pending
	// suffix, so markedRange returns [start,end)); for a C6 splitter it
	// restricts the scan to exactly the transitions stabilizeBlock marked
	// as belonging to the block being stabilised, ignoring whatever else
	// the slice's region-mates contributed to the same slice.
	hitsSmall := map[StateID]bool{}
	if small != noSlice {
		lo, hi := e.markedRange(small)
		for p := lo; p < hi; p++ {
			hitsSmall[e.trans[e.blcTrans[p]].From] = true
		}
	}
	hitsLarge := map[StateID]bool{}
	haveLarge := large != noSlice
	if haveLarge {
		lo, hi := e.markedRange(large)
		for p := lo; p < hi; p++ {
			hitsLarge[e.trans[e.blcTrans[p]].From] = true
		}
	}

	claim := make(map[StateID]claimKind, len(members))
	ra := &coroutine{kind: claimReachAlw}
	as := &coroutine{kind: claimAvoidSml}
	al := &coroutine{kind: claimAvoidLrg}
	active := []*coroutine{ra, as}
	if haveLarge {
		active = append(active, al)
	}

	seed := func(s StateID, c *coroutine) {
		if claim[s] != claimNone {
			return
		}
		claim[s] = c.kind
		c.todo = append(c.todo, s)
		c.claimed++
	}

	for _, s := range members {
		hs, hl := hitsSmall[s], hitsLarge[s]
		switch {
		case !haveLarge:
			if hs {
				seed(s, ra)
			} else {
				seed(s, as)
			}
		case hs && hl:
			seed(s, ra)
		case hs && !hl:
			seed(s, al)
		case !hs && hl:
			seed(s, as)
		default:
			// neither: leave unclaimed, resolved by the leftover rule below.
		}
	}

	u := int32(len(members))
	claimOf := func(s StateID) claimKind {
		if k, ok := claim[s]; ok {
			return k
		}
		return claimNone
	}

	// Round-robin backward BFS: each step pops one state from one active,
	// unfinished coroutine and walks its block-inert predecessors.
	for progress := true; progress; {
		progress = false
		for _, c := range active {
			if c.finished() {
				continue
			}
			progress = true
			s := c.todo[len(c.todo)-1]
			c.todo = c.todo[:len(c.todo)-1]
			if claimOf(s) != c.kind {
				continue // reassigned to NewBotSt after being queued
			}
			lo, hi := e.inOffset[s], e.inOffset[s+1]
			for p := lo; p < hi; p++ {
				t := e.trans[e.inTrans[p]]
				if !e.isInert(t) || e.stateBlock[t.From] != bid {
					continue
				}
				pred := t.From
				switch claimOf(pred) {
				case claimNone:
					claim[pred] = c.kind
					c.todo = append(c.todo, pred)
					c.claimed++
				case c.kind:
					// already queued or processed for this coroutine.
				case claimNewBotSt:
					// already conflicted, stays.
				default:
					claim[pred] = claimNewBotSt
				}
			}
			if !c.aborted && 2*c.claimed > u {
				c.aborted = true
			}
		}
	}

	result := splitResult{}
	leftoverTo := claimNone
	for _, c := range active {
		if c.aborted {
			leftoverTo = c.kind
		}
	}
	if leftoverTo == claimNone {
		leftoverTo = claimAvoidSml
	}

	byKind := map[claimKind][]StateID{}
	for _, s := range members {
		k := claimOf(s)
		if k == claimNone {
			k = leftoverTo
		}
		byKind[k] = append(byKind[k], s)
	}

	order := func(states []StateID) []StateID {
		out := make([]StateID, 0, len(states))
		for _, s := range states {
			if bottomSet[s] {
				out = append(out, s)
			}
		}
		for _, s := range states {
			if !bottomSet[s] {
				out = append(out, s)
			}
		}
		return out
	}

	result.reachAlw = order(byKind[claimReachAlw])
	result.avoidSml = order(byKind[claimAvoidSml])
	result.avoidLrg = order(byKind[claimAvoidLrg])
	result.newBotSt = order(byKind[claimNewBotSt])
	return result
}

// applySplit materialises a splitResult: NewBotSt keeps bid's identity
// (it stays the original, now-shrunk block, which is what lets
// drainNewBottomStates find it again by id); ReachAlw, AvoidSml and
// AvoidLrg each become a fresh block when non-empty. It returns every
// block id that now holds some portion of the original members, for
// the caller to re-examine.
func (e *Engine) applySplit(bid BlockID, res splitResult) []BlockID {
	old := e.blocks[bid]
	groups := [4][]StateID{res.newBotSt, res.reachAlw, res.avoidSml, res.avoidLrg}

	var allMembers []StateID
	for _, g := range groups {
		allMembers = append(allMembers, g...)
	}
	oldInert := make(map[StateID]int32, len(allMembers))
	for _, s := range allMembers {
		oldInert[s] = e.inertOut[s]
	}

	starts := [4]int32{}
	ends := [4]int32{}
	pos := old.begin
	for i, g := range groups {
		starts[i] = pos
		for _, s := range g {
			e.stateInBlock[pos] = s
			e.statePos[s] = pos
			pos++
		}
		ends[i] = pos
	}

	ids := [4]BlockID{bid, NoBlock, NoBlock, NoBlock}
	for i := 1; i < 4; i++ {
		if len(groups[i]) == 0 {
			continue
		}
		ids[i] = BlockID(len(e.blocks))
		e.blocks = append(e.blocks, block{constellation: old.constellation, region: old.region, seqNum: -1})
		e.queuedNewBot = append(e.queuedNewBot, false)
		e.regns[old.region].blocks = append(e.regns[old.region].blocks, ids[i])
	}

	for i, g := range groups {
		if ids[i] == NoBlock {
			continue
		}
		for _, s := range g {
			e.stateBlock[s] = ids[i]
		}
		bl := &e.blocks[ids[i]]
		bl.begin, bl.end = starts[i], ends[i]
	}

	// Small-subblock credits (spec.md §4.4): every resulting sub-block
	// gets floor(log2(parent size)) - floor(log2(its own size)) added to
	// its credit. The size-abort rule in fourWaySplitB guarantees at most
	// one of ReachAlw/AvoidSml/AvoidLrg/NewBotSt exceeds half of the
	// parent, so at most one child receives a zero increment here; every
	// other child's credit strictly grows, which is what lets
	// stabilizeBlock (C6) spend it down safely.
	parentLog := log2Floor(old.size())
	for i := 0; i < 4; i++ {
		if ids[i] == NoBlock {
			continue
		}
		childSize := ends[i] - starts[i]
		if childSize == 0 {
			continue
		}
		e.blocks[ids[i]].smallCredit += parentLog - log2Floor(childSize)
	}

	for _, s := range allMembers {
		cnt := int32(0)
		lo, hi := e.outOffset[s], e.outOffset[s+1]
		for p := lo; p < hi; p++ {
			if e.isInert(e.trans[e.outSlot[p]]) {
				cnt++
			}
		}
		e.inertOut[s] = cnt
	}

	grown := int32(0)
	for i := 1; i < 4; i++ {
		if ids[i] != NoBlock {
			grown++
		}
	}
	e.consts[old.constellation].numBlocks += grown

	if e.stats != nil && len(allMembers) > 0 {
		e.stats.OnSplit(int(bid), int(allMembers[0]))
	}

	var changed []BlockID
	for i := range groups {
		if ids[i] == NoBlock {
			continue
		}
		e.partitionBottomFirst(&e.blocks[ids[i]])
		gainedBottom := false
		for _, s := range groups[i] {
			if oldInert[s] > 0 && e.inertOut[s] == 0 {
				gainedBottom = true
				break
			}
		}
		if gainedBottom && e.blocks[ids[i]].size() > 1 {
			e.flagNewBottom(ids[i])
		}
		changed = append(changed, ids[i])
	}
	return changed
}
