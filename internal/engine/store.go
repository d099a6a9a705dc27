package engine

import (
	"sort"

	"github.com/jgkw/bisim/internal/pool"
	"github.com/pkg/errors"
)

// ErrInvalidInput is returned when the input LTS violates a precondition
// the engine relies on (an out-of-range initial state or transition
// endpoint).
var ErrInvalidInput = errors.New("engine: invalid input")

// ErrCapacityExceeded is returned when n or m is too large for the int32
// indices the engine uses throughout (see maxPackedCounter).
var ErrCapacityExceeded = errors.New("engine: state or transition count exceeds capacity")

// ErrOutOfMemory mirrors the arena-exhaustion category the original pool
// allocator can hit. Go's arenas grow by appending to a slice instead of
// from a fixed-size pool, so this engine has no call site that actually
// returns it; the sentinel exists so callers porting error-handling logic
// from the pool-allocator design have something to match against.
var ErrOutOfMemory = errors.New("engine: arena allocation failed")

// maxPackedCounter bounds n and m so every StateID/TransID/BlockID etc.
// (all int32) stays comfortably clear of overflow through the widest
// arithmetic the engine does on them (2*claimed comparisons in
// fourWaySplitB, CSR offset accumulation).
const maxPackedCounter = (1 << 31) - 16

// Engine owns every indexed array and the block/constellation/region
// trees built from them. It is constructed once per Refine call and
// mutated in place by split/refine/stabilise/quotient.
type Engine struct {
	trans      []Transition
	silent     Label
	branching  bool
	divergence bool
	initial    StateID

	n int32 // number of states
	m int32 // number of transitions

	stateBlock []BlockID
	statePos   []int32
	inertOut   []int32

	stateInBlock []StateID

	outOffset []int32 // CSR: outgoing transitions of state s are outSlot[outOffset[s]:outOffset[s+1]]
	outSlot   []TransID
	outPos    []int32 // inverse of outSlot: outPos[t] = position of t within outSlot
	sameSaC   []int32 // for position p in outSlot, the far end of p's (label,targetConst) group

	inOffset []int32
	inTrans  []TransID

	blcTrans   []TransID
	blcPos     []int32
	transSlice []pool.Handle

	sliceArena *pool.Arena[blcSlice]

	blocks []block
	consts []constellation
	regns  []region

	nonTrivConsts []ConstID
	newBotQueue   []BlockID
	queuedNewBot  []bool

	stats      StatsSink
	round      int
	nextSeqNum int32
}

// StatsSink receives coarse progress events; it is entirely optional and
// never consulted for correctness.
type StatsSink interface {
	OnRound(round int, numBlocks, numConstellations int)
	OnSplit(block, sample int)
}

// New builds the initial single-block, single-constellation partition
// from trans. silent identifies which Label is tau; if no label equals
// silent, every transition is treated as non-inert (strong bisimulation
// reduces to this case). initial is carried through unchanged so
// Quotient can report which class the initial state ended up in.
// branching selects branching vs strong bisimulation semantics in the
// stabilisation driver; divergence additionally requires inert
// self-loops to be preserved.
func New(numStates int, trans []Transition, silent Label, initial int, branching, divergence bool, stats StatsSink) (*Engine, error) {
	if numStates < 0 || numStates > maxPackedCounter {
		return nil, errors.Wrapf(ErrCapacityExceeded, "state count %d", numStates)
	}
	if len(trans) > maxPackedCounter {
		return nil, errors.Wrapf(ErrCapacityExceeded, "transition count %d", len(trans))
	}
	if initial < 0 || initial >= numStates {
		return nil, errors.Wrapf(ErrInvalidInput, "initial state %d out of range for %d states", initial, numStates)
	}
	for _, t := range trans {
		if t.From < 0 || int(t.From) >= numStates || t.To < 0 || int(t.To) >= numStates {
			return nil, errors.Wrapf(ErrInvalidInput, "transition %+v out of range for %d states", t, numStates)
		}
	}

	e := &Engine{
		trans:      append([]Transition(nil), trans...),
		silent:     silent,
		branching:  branching,
		divergence: divergence,
		initial:    StateID(initial),
		n:          int32(numStates),
		m:          int32(len(trans)),
		stats:      stats,
	}

	e.buildStateArrays()
	e.buildInitialPartition()
	e.buildCSR()
	e.buildBLC()
	return e, nil
}

func (e *Engine) isInert(t Transition) bool {
	return e.branching && t.Label == e.silent && e.stateBlock[t.From] == e.stateBlock[t.To]
}

func (e *Engine) buildStateArrays() {
	e.stateBlock = make([]BlockID, e.n)
	e.statePos = make([]int32, e.n)
	e.inertOut = make([]int32, e.n)
	e.stateInBlock = make([]StateID, e.n)
	for i := int32(0); i < e.n; i++ {
		e.stateInBlock[i] = StateID(i)
		e.statePos[i] = i
		e.stateBlock[i] = 0
	}
}

// buildCSR groups transitions by source (outOffset/outSlot) and by target
// (inOffset/inTrans), with silent transitions ordered first within each
// state's range so later group-boundary bookkeeping can assume it.
func (e *Engine) buildCSR() {
	n := e.n
	outCount := make([]int32, n+1)
	inCount := make([]int32, n+1)
	for _, t := range e.trans {
		outCount[t.From+1]++
		inCount[t.To+1]++
	}
	for i := int32(1); i <= n; i++ {
		outCount[i] += outCount[i-1]
		inCount[i] += inCount[i-1]
	}
	e.outOffset = outCount
	e.inOffset = inCount

	e.outSlot = make([]TransID, e.m)
	e.inTrans = make([]TransID, e.m)
	outCursor := append([]int32(nil), e.outOffset[:n]...)
	inCursor := append([]int32(nil), e.inOffset[:n]...)
	for i, t := range e.trans {
		tid := TransID(i)
		e.outSlot[outCursor[t.From]] = tid
		outCursor[t.From]++
		e.inTrans[inCursor[t.To]] = tid
		inCursor[t.To]++
	}

	// stable-partition each state's outgoing range so silent transitions
	// (by label, not yet by inertness: inertness needs stateBlock, which
	// at construction time is uniformly block 0 for every state, so
	// "silent" and "inert" coincide here) come first.
	for s := int32(0); s < n; s++ {
		lo, hi := e.outOffset[s], e.outOffset[s+1]
		stablePartitionBySilentFirst(e.outSlot[lo:hi], e.trans, e.silent)
		// Every target is still in constellation 0, so ordering the
		// non-silent part by label makes each (label, target constellation)
		// group one contiguous run for buildSameSaC.
		out := e.outSlot[lo:hi]
		sort.SliceStable(out, func(i, j int) bool {
			li, lj := e.trans[out[i]].Label, e.trans[out[j]].Label
			if (li == e.silent) != (lj == e.silent) {
				return li == e.silent
			}
			return li < lj
		})
	}
	for s := int32(0); s < n; s++ {
		lo, hi := e.inOffset[s], e.inOffset[s+1]
		stablePartitionBySilentFirst(e.inTrans[lo:hi], e.trans, e.silent)
	}

	e.outPos = make([]int32, e.m)
	for p, t := range e.outSlot {
		e.outPos[t] = int32(p)
	}
	e.buildSameSaC()
}

func stablePartitionBySilentFirst(slots []TransID, trans []Transition, silent Label) {
	out := make([]TransID, 0, len(slots))
	for _, t := range slots {
		if trans[t].Label == silent {
			out = append(out, t)
		}
	}
	for _, t := range slots {
		if trans[t].Label != silent {
			out = append(out, t)
		}
	}
	copy(slots, out)
}

// buildSameSaC groups each state's outgoing range by (label, target
// constellation) and records, for every slot, the position of the other
// end of its group: the group's first slot points at its last, every
// other slot points at the first. This mirrors the "same saC" chaining
// used to walk a state's outgoing slots one group at a time.
func (e *Engine) buildSameSaC() {
	e.sameSaC = make([]int32, e.m)
	n := e.n
	for s := int32(0); s < n; s++ {
		lo, hi := e.outOffset[s], e.outOffset[s+1]
		p := lo
		for p < hi {
			q := p
			for q < hi && e.sameGroup(e.outSlot[p], e.outSlot[q]) {
				q++
			}
			// [p,q) is one group.
			e.sameSaC[p] = q - 1
			for k := p + 1; k < q; k++ {
				e.sameSaC[k] = p
			}
			p = q
		}
	}
}

func (e *Engine) sameGroup(a, b TransID) bool {
	ta, tb := e.trans[a], e.trans[b]
	if ta.Label != tb.Label {
		return false
	}
	return e.targetConstellation(ta.To) == e.targetConstellation(tb.To)
}

func (e *Engine) targetConstellation(s StateID) ConstID {
	return e.blocks[e.stateBlock[s]].constellation
}

func (e *Engine) buildInitialPartition() {
	e.blocks = []block{{begin: 0, end: e.n, constellation: 0, region: 0, seqNum: -1}}
	e.consts = []constellation{{numBlocks: 1}}
	e.queuedNewBot = []bool{false}

	for _, t := range e.trans {
		if e.isInert(t) {
			e.inertOut[t.From]++
		}
	}
	e.partitionBottomFirst(&e.blocks[0])
}

// partitionBottomFirst stable-partitions b's state range so bottom states
// (inertOut == 0) occupy [b.begin,bottomEnd) and non-bottom states occupy
// [bottomEnd,b.end), keeping stateInBlock/statePos consistent.
func (e *Engine) partitionBottomFirst(b *block) {
	lo, hi := b.begin, b.end
	bottoms := make([]StateID, 0, hi-lo)
	rest := make([]StateID, 0, hi-lo)
	for p := lo; p < hi; p++ {
		s := e.stateInBlock[p]
		if e.inertOut[s] == 0 {
			bottoms = append(bottoms, s)
		} else {
			rest = append(rest, s)
		}
	}
	p := lo
	for _, s := range bottoms {
		e.stateInBlock[p] = s
		e.statePos[s] = p
		p++
	}
	b.bottomEnd = p
	for _, s := range rest {
		e.stateInBlock[p] = s
		e.statePos[s] = p
		p++
	}
}
