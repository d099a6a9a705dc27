// Package engine implements the partition-refinement core: the indexed
// state/transition arrays (C2), the lazy BLC slice index (C3), the
// four-way cooperative split (C4), the constellation refinement driver
// (C5), stabilisation under new bottom states (C6), and the quotient
// builder (C7). Everything here is addressed by index rather than by
// pointer, in the spirit of the teacher's indices-into-elements layout,
// generalised from a flat partition to the nested
// constellation/region/block/slice structure branching bisimulation needs.
package engine

import "github.com/jgkw/bisim/internal/pool"

// StateID identifies a state by its original position in the input LTS.
// States are created once and never destroyed.
type StateID int32

// BlockID, ConstID, RegionID address blocks, constellations and
// BLC-source regions inside their owning slices. -1 (NoX) means absent.
type (
	BlockID  int32
	ConstID  int32
	RegionID int32
)

const (
	NoBlock  BlockID  = -1
	NoConst  ConstID  = -1
	NoRegion RegionID = -1
)

// TransID addresses one transition in the immutable input transition list.
type TransID int32

// Label is an action label index; the engine compares it against the one
// designated silent (tau) label it is given.
type Label int32

// Transition is the source LTS's view of one edge.
type Transition struct {
	From  StateID
	Label Label
	To    StateID
}

// Per-state dynamic bookkeeping (block membership, position, inert
// out-degree) lives in Engine's own stateBlock/statePos/inertOut slices
// rather than a []state of
// structs: struct-of-arrays keeps each bulk pass (buildCSR, the backward
// BFS in fourWaySplitB) touching only the one or two fields it needs.

// block is a contiguous range [begin,end) of the state-in-block array,
// split internally into a bottom sub-range [begin,bottomEnd) and a
// non-bottom sub-range [bottomEnd,end).
type block struct {
	begin, end    int32
	bottomEnd     int32
	constellation ConstID
	region        RegionID
	seqNum        int32 // final quotient block number, -1 until assigned

	// smallCredit is the smallness credit from spec.md §4.4: every split
	// adds floor(log2(parent size)) - floor(log2(this block's size)) to
	// it. stabilizeBlock (C6) spends one unit of it whenever it walks a
	// block's own transitions directly instead of forcing
	// make_region_simple, and forces make_region_simple once the credit
	// hits zero — see stabilize.go for the amortised-cost argument.
	smallCredit int32
}

func (b *block) size() int32 { return b.end - b.begin }

// constellation tracks how many blocks currently belong to it. Unlike
// blocks and regions, a constellation's members are not required to form
// a contiguous run of stateInBlock positions: finding them means scanning
// the block table, which costs O(numBlocks) instead of O(1) but avoids
// having to physically relocate a block's state range every time it
// joins a freshly split-off constellation (see DESIGN.md).
type constellation struct {
	numBlocks int32
}

func (c *constellation) trivial() bool { return c.numBlocks <= 1 }

// region is a BLC-source region: a contiguous range of whole blocks that
// still share one BLC index, together with the list of BLC slices it owns
// (in the order they were created; stable and unstable slices are not
// kept apart in the list) and a lookup from (label,target
// constellation) to the owning slice, so split_on_new_constellation and
// make_region_simple don't need to scan the list.
type region struct {
	begin, end  int32
	slices      *pool.List[blcSlice]
	bySignature map[sliceSignature]pool.Handle

	// blocks lists the blocks currently assigned to this region, so
	// make_region_simple and the region-wide bulk-marking path in
	// stabilize.go can walk exactly the region's own blocks in
	// O(len(blocks)) rather than scanning every block in the partition.
	blocks []BlockID
}

type sliceSignature struct {
	label       Label
	targetConst ConstID
}

// blcSlice is a super-BLC set: a contiguous half-open range [start,end) of
// the global BLC-transition array whose members all share one label and
// one target constellation, and whose source states all lie in one
// region. startMarked==end means the slice is stable (no pending marker);
// otherwise [startMarked,end) is the marked (unstable) suffix.
type blcSlice struct {
	start, end            int32
	startMarked           int32
	label                 Label
	targetConst           ConstID
	region                RegionID
	startsInSmallSubblock bool
	refcount              int32 // pending refinement records referencing this slice; >0 defers deletion when emptied
	l                     pool.Links
}

func (s *blcSlice) Links() *pool.Links { return &s.l }
func (s *blcSlice) stable() bool       { return s.startMarked == s.end }
func (s *blcSlice) empty() bool        { return s.start == s.end }
