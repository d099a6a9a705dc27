package engine

import "github.com/jgkw/bisim/internal/pool"

// Refine runs constellation refinement (C5) to a fixpoint: repeatedly
// pick a non-trivial constellation, carve its smallest block off into a
// fresh constellation, retarget every transition now reaching that block
// (C3's split_on_new_constellation), run the four-way split on every
// block that was hit, and drain any new bottom states before continuing.
func (e *Engine) Refine() {
	e.nonTrivConsts = nil
	for cid := range e.consts {
		if !e.consts[cid].trivial() {
			e.nonTrivConsts = append(e.nonTrivConsts, ConstID(cid))
		}
	}

	for len(e.nonTrivConsts) > 0 {
		cid := e.nonTrivConsts[len(e.nonTrivConsts)-1]
		e.nonTrivConsts = e.nonTrivConsts[:len(e.nonTrivConsts)-1]
		if e.consts[cid].trivial() {
			continue // became trivial via an earlier pop in this batch
		}
		e.refineConstellation(cid)
		e.round++
		if e.stats != nil {
			e.stats.OnRound(e.round, len(e.blocks), len(e.consts))
		}
	}
}

// refineConstellation performs one constellation-splitting step: move the
// smallest block of cid into a new constellation and stabilise every
// block whose transitions now straddle the old/new constellation split.
func (e *Engine) refineConstellation(cid ConstID) {
	smallest := e.smallestBlockOf(cid)
	if smallest == NoBlock {
		return
	}

	newC := ConstID(len(e.consts))
	e.consts = append(e.consts, constellation{numBlocks: 1})
	e.consts[cid].numBlocks--
	e.blocks[smallest].constellation = newC

	if e.consts[cid].numBlocks > 0 {
		e.nonTrivConsts = append(e.nonTrivConsts, cid)
	}
	if !e.consts[newC].trivial() {
		e.nonTrivConsts = append(e.nonTrivConsts, newC)
	}

	b := e.blocks[smallest]
	moved := append([]StateID(nil), e.stateInBlock[b.begin:b.end]...)
	touched := e.splitOnNewConstellation(moved, newC)

	type pairKey struct {
		region RegionID
		label  Label
	}
	seen := map[pairKey]bool{}
	for hitBlock := range touched {
		rgn := e.blocks[hitBlock].region
		r := &e.regns[rgn]
		for sig, h := range r.bySignature {
			if sig.targetConst != newC {
				continue
			}
			k := pairKey{region: rgn, label: sig.label}
			if seen[k] {
				continue
			}
			seen[k] = true
			smallH := h
			largeH := noSlice
			if lh, ok := r.bySignature[sliceSignature{label: sig.label, targetConst: cid}]; ok {
				largeH = lh
			}
			e.splitBlocksInRegion(rgn, smallH, largeH)
		}
	}

	e.drainNewBottomStates()
}

// splitBlocksInRegion runs fourWaySplitB on every block currently
// assigned to rgn, using the same small/large splitter pair for each.
// rgn.blocks is read up front since applySplit can append newly created
// blocks to it as a side effect of splitting an earlier one in the same
// region; walking a snapshot keeps this one pass over exactly the blocks
// that existed when the round started, in O(len(rgn.blocks)) rather than
// a scan of every block in the partition.
func (e *Engine) splitBlocksInRegion(rgn RegionID, small, large pool.Handle) {
	blockIDs := append([]BlockID(nil), e.regns[rgn].blocks...)
	for _, bid := range blockIDs {
		if e.blocks[bid].size() == 0 {
			continue
		}
		e.applySplit(bid, e.fourWaySplitB(bid, small, large))
	}
}

// smallestBlockOf returns the smallest block currently in cid, breaking
// ties by index for determinism.
func (e *Engine) smallestBlockOf(cid ConstID) BlockID {
	best := NoBlock
	for i := range e.blocks {
		if e.blocks[i].constellation != cid {
			continue
		}
		if best == NoBlock || e.blocks[i].size() < e.blocks[best].size() {
			best = BlockID(i)
		}
	}
	return best
}
