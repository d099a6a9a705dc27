package engine

import "github.com/jgkw/bisim/internal/pool"

// flagNewBottom enqueues bid for stabilisation, unless it is already queued.
func (e *Engine) flagNewBottom(bid BlockID) {
	if e.queuedNewBot[bid] {
		return
	}
	e.queuedNewBot[bid] = true
	e.newBotQueue = append(e.newBotQueue, bid)
}

// drainNewBottomStates repeatedly pops a flagged block and restores the
// bottom-state stability invariant for it (C6), until the queue is
// empty. Stabilising one block can flag others (its own split-off
// siblings, or blocks hit by a retargeted transition), which simply join
// the same queue.
func (e *Engine) drainNewBottomStates() {
	for len(e.newBotQueue) > 0 {
		bid := e.newBotQueue[0]
		e.newBotQueue = e.newBotQueue[1:]
		e.queuedNewBot[bid] = false
		if e.blocks[bid].size() == 0 {
			continue
		}
		e.stabilizeBlock(bid)
	}
}

// stabilizeBlock restores invariant 7 (every bottom state of a block
// either has, or lacks, a transition in any given BLC slice — never a
// mix) for bid and every block it splits into. For each block it visits
// it builds the set of BLC slices that might now be unstable once
// (buildStabiliseQueue), then drains that set, splitting every block a
// marked slice touches with the two-way form of four_way_splitB (small
// splitter only, no co-splitter). This keeps the cost of stabilising a
// block proportional to its own out-degree, not to repeatedly rescanning
// every bottom state's full transition list on every worklist pop.
func (e *Engine) stabilizeBlock(bid BlockID) {
	worklist := []BlockID{bid}
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if e.blocks[b].size() <= 1 {
			continue
		}
		queue := e.buildStabiliseQueue(b)
		for len(queue) > 0 {
			h := queue[0]
			queue = queue[1:]
			if e.sliceArena.Get(h).empty() {
				continue
			}
			for _, hb := range e.hitBlocksInRange(h) {
				if e.blocks[hb].size() <= 1 {
					continue
				}
				changed := e.applySplit(hb, e.fourWaySplitB(hb, h, noSlice))
				worklist = append(worklist, changed...)
			}
			e.stabiliseSlice(h)
		}
	}
}

// buildStabiliseQueue decides, per spec.md §4.6, which of the two
// make_region_simple-forcing situations (or the cheap already-simple
// case) applies to b, and returns the BLC slices that need re-checking:
//
//   - b has no small-subblock credit left and still has non-bottom
//     states ("large"): force make_region_simple(b) once — the one
//     expensive O(region size) operation this block will ever pay for —
//     then every slice of its now-private region is a candidate.
//   - b's region is already simple (it got there via the large path on
//     an earlier round, or was simple from the start): every slice in
//     the region is already entirely b's own, so the whole region can be
//     bulk-marked in O(#slices) without touching individual transitions.
//   - otherwise b is small and shares its region: spend one unit of
//     credit and walk b's own transitions directly, marking each into
//     its slice's unstable suffix so the later split only rescans b's
//     contribution, not its region-mates'.
//
// Every child of a split earns credit (see applySplit); the abort rule
// in fourWaySplitB guarantees at most one child of any split exceeds
// half its parent's size, so a block's credit is bounded below by the
// sum of per-split halvings along its ancestry — the same potential
// argument that bounds fourWaySplitB's own cost to O(log n) splits per
// state. A block takes the "shared region, spend credit" path while
// credit remains, and also when its credit is exhausted but it has no
// non-bottom states; once exhausted with non-bottom states present it is
// forced through make_region_simple exactly once and never shares a
// region again, so that expensive path is paid for at most once per block
// over the whole run.
func (e *Engine) buildStabiliseQueue(b BlockID) []pool.Handle {
	bl := &e.blocks[b]
	hasNonBottom := bl.end > bl.bottomEnd

	if bl.smallCredit <= 0 && hasNonBottom {
		e.makeRegionSimple(b)
		bl = &e.blocks[b]
		return e.markWholeRegion(bl.region, bl.constellation)
	}

	rgn := &e.regns[bl.region]
	if rgn.begin == bl.begin && rgn.end == bl.end {
		return e.markWholeRegion(bl.region, bl.constellation)
	}

	bl.smallCredit--
	return e.markOwnTransitions(b)
}

// markWholeRegion marks every non-constellation-inert slice of rgn fully
// unstable and returns them. Valid only when rgn is known to hold
// exactly one block's transitions (just made simple, or simple already),
// so no transition-level marking is needed: the slice's whole range
// already belongs to the block being stabilised.
func (e *Engine) markWholeRegion(rgn RegionID, own ConstID) []pool.Handle {
	var out []pool.Handle
	e.regns[rgn].slices.Each(func(h pool.Handle) {
		s := e.sliceArena.Get(h)
		if s.empty() || (s.label == e.silent && s.targetConst == own) {
			return
		}
		s.startMarked = s.start
		out = append(out, h)
	})
	return out
}

// markOwnTransitions walks b's own outgoing transitions (bottom and
// non-bottom) directly, marking every non-inert one into its slice's
// unstable suffix, and returns every slice whose marker newly opened as
// a result (a slice already unstable from an earlier, unrelated split is
// not reported twice).
func (e *Engine) markOwnTransitions(b BlockID) []pool.Handle {
	bl := &e.blocks[b]
	var out []pool.Handle
	touched := map[pool.Handle]bool{}
	for p := bl.begin; p < bl.end; p++ {
		s := e.stateInBlock[p]
		lo, hi := e.outOffset[s], e.outOffset[s+1]
		for q := lo; q < hi; q++ {
			t := e.outSlot[q]
			if e.isInert(e.trans[t]) {
				continue
			}
			h := e.transSlice[t]
			wasStable := e.sliceArena.Get(h).stable()
			e.markTransition(t)
			if wasStable && !touched[h] {
				touched[h] = true
				out = append(out, h)
			}
		}
	}
	return out
}

// hitBlocksInRange returns, in first-seen order, every block with at
// least one source state in h's currently marked sub-range.
func (e *Engine) hitBlocksInRange(h pool.Handle) []BlockID {
	lo, hi := e.markedRange(h)
	seen := map[BlockID]bool{}
	var out []BlockID
	for p := lo; p < hi; p++ {
		bid := e.stateBlock[e.trans[e.blcTrans[p]].From]
		if !seen[bid] {
			seen[bid] = true
			out = append(out, bid)
		}
	}
	return out
}
