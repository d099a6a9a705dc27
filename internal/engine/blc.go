package engine

import "github.com/jgkw/bisim/internal/pool"

// buildBLC groups every non-inert transition into its BLC slice: the
// slice keyed by (source region, label, target constellation). All
// states start in region 0, so at construction time there is exactly one
// region and each slice spans every source state sharing a (label,
// target constellation) pair.
func (e *Engine) buildBLC() {
	e.sliceArena = pool.NewArena[blcSlice](int(e.m)/4 + 8)
	e.regns = []region{{begin: 0, end: e.n, slices: pool.NewList(e.sliceArena), bySignature: map[sliceSignature]pool.Handle{}, blocks: []BlockID{0}}}

	type key struct {
		region RegionID
		sig    sliceSignature
	}
	groups := map[key][]TransID{}
	order := []key{}
	for i, t := range e.trans {
		if e.isInert(t) {
			continue
		}
		r := e.blocks[e.stateBlock[t.From]].region
		sig := sliceSignature{label: t.Label, targetConst: e.targetConstellation(t.To)}
		k := key{region: r, sig: sig}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], TransID(i))
	}

	e.blcTrans = make([]TransID, 0, e.m)
	e.blcPos = make([]int32, e.m)
	e.transSlice = make([]pool.Handle, e.m)
	for _, k := range order {
		ids := groups[k]
		start := int32(len(e.blcTrans))
		e.blcTrans = append(e.blcTrans, ids...)
		end := int32(len(e.blcTrans))
		for p := start; p < end; p++ {
			e.blcPos[e.blcTrans[p]] = p
		}
		h := e.sliceArena.Alloc(blcSlice{start: start, end: end, startMarked: end, label: k.sig.label, targetConst: k.sig.targetConst, region: k.region})
		for p := start; p < end; p++ {
			e.transSlice[e.blcTrans[p]] = h
		}
		rgn := &e.regns[k.region]
		rgn.slices.PushBack(h)
		rgn.bySignature[k.sig] = h
	}
}

// sliceFor returns the handle of rgn's slice for sig, creating a fresh
// empty slice (positioned at the current end of blcTrans) if none of its
// existing slices matches sig yet. This is the Go-idiomatic stand-in for split_on_new_constellation's
// lazily created destination slice: rather than scanning rgn's slice list
// for a (label,targetConst) match, the region keeps a map from signature
// to slice handle.
func (e *Engine) sliceFor(rgn RegionID, sig sliceSignature) pool.Handle {
	r := &e.regns[rgn]
	if h, ok := r.bySignature[sig]; ok {
		return h
	}
	end := int32(len(e.blcTrans))
	h := e.sliceArena.Alloc(blcSlice{start: end, end: end, startMarked: end, label: sig.label, targetConst: sig.targetConst, region: rgn})
	r.slices.PushBack(h)
	r.bySignature[sig] = h
	return h
}

// moveTransition relocates t from its current slice to the slice
// identified by (rgn,sig), preserving the invariant that blcTrans[start:end)
// for every slice is contiguous. It swaps t with the element currently at
// the boundary of its old slice so the move is O(1).
func (e *Engine) moveTransition(t TransID, rgn RegionID, sig sliceSignature) {
	oldH := e.transSlice[t]
	old := e.sliceArena.Get(oldH)
	pos := e.blcPos[t]

	last := old.end - 1
	e.swapBLC(pos, last)
	old.end = last
	if old.startMarked > old.end {
		old.startMarked = old.end
	}
	if old.empty() && old.refcount == 0 {
		e.freeSlice(oldH)
	}

	newH := e.sliceFor(rgn, sig)
	ns := e.sliceArena.Get(newH)
	dest := ns.end
	if dest != last {
		e.swapBLC(dest, last)
	}
	ns.end++
	e.transSlice[t] = newH
}

func (e *Engine) swapBLC(i, j int32) {
	if i == j {
		return
	}
	e.blcTrans[i], e.blcTrans[j] = e.blcTrans[j], e.blcTrans[i]
	e.blcPos[e.blcTrans[i]] = i
	e.blcPos[e.blcTrans[j]] = j
}

func (e *Engine) freeSlice(h pool.Handle) {
	s := e.sliceArena.Get(h)
	r := &e.regns[s.region]
	r.slices.Erase(h)
	if r.bySignature[sliceSignature{label: s.label, targetConst: s.targetConst}] == h {
		delete(r.bySignature, sliceSignature{label: s.label, targetConst: s.targetConst})
	}
	e.sliceArena.Free(h)
}

// splitOnNewConstellation retargets every transition whose target state
// now lies in newC (a freshly carved-out constellation) from its old
// slice into the slice keyed by the same (region,label) but newC. Called
// once per constellation split with every state of the moved block; it
// walks the incoming transitions of each of them.
func (e *Engine) splitOnNewConstellation(movedStates []StateID, newC ConstID) map[BlockID]bool {
	hitBlocks := map[BlockID]bool{}
	for _, s := range movedStates {
		lo, hi := e.inOffset[s], e.inOffset[s+1]
		for p := lo; p < hi; p++ {
			t := e.inTrans[p]
			tr := e.trans[t]
			if e.isInert(tr) {
				continue
			}
			srcBlock := e.stateBlock[tr.From]
			rgn := e.blocks[srcBlock].region
			e.moveTransition(t, rgn, sliceSignature{label: tr.Label, targetConst: newC})
			hitBlocks[srcBlock] = true
		}
	}
	return hitBlocks
}

// makeRegionSimple ensures b is the sole block of its region, splitting
// the region into up to three (before, b itself, after) when b currently
// shares it with other blocks. Every slice of the old region is
// repartitioned by the new region of its transitions' source states;
// every resulting sub-slice is conservatively marked fully unstable,
// since the grouping it now represents has never been stabilised.
//
// Only called from the large-subblock path of buildStabiliseQueue
// (stabilize.go); reassigning blocks to the before/middle/after
// regions costs O(len(old.blocks)), i.e. proportional to the number of
// blocks the old region actually held, not to the whole partition —
// old.blocks is the region's own membership list, maintained incrementally
// by applySplit and this function rather than discovered by scanning
// e.blocks.
//
// The old region's id is retired rather than reused: simpler to get
// right than juggling which of the up-to-three pieces inherits it, at
// the cost of a dead entry sitting in e.regns.
func (e *Engine) makeRegionSimple(bid BlockID) {
	b := e.blocks[bid]
	old := e.regns[b.region]
	if old.begin == b.begin && old.end == b.end {
		return // already simple
	}

	newRegion := func(begin, end int32) RegionID {
		id := RegionID(len(e.regns))
		e.regns = append(e.regns, region{begin: begin, end: end, slices: pool.NewList(e.sliceArena), bySignature: map[sliceSignature]pool.Handle{}})
		return id
	}

	beforeID, middleID, afterID := NoRegion, newRegion(b.begin, b.end), NoRegion
	if old.begin < b.begin {
		beforeID = newRegion(old.begin, b.begin)
	}
	if b.end < old.end {
		afterID = newRegion(b.end, old.end)
	}

	var beforeBlocks, afterBlocks []BlockID
	for _, id := range old.blocks {
		bl := &e.blocks[id]
		switch {
		case id == bid:
			bl.region = middleID
		case bl.begin < b.begin:
			bl.region = beforeID
			beforeBlocks = append(beforeBlocks, id)
		default:
			bl.region = afterID
			afterBlocks = append(afterBlocks, id)
		}
	}
	e.regns[middleID].blocks = []BlockID{bid}
	if beforeID != NoRegion {
		e.regns[beforeID].blocks = beforeBlocks
	}
	if afterID != NoRegion {
		e.regns[afterID].blocks = afterBlocks
	}

	var oldSlices []pool.Handle
	old.slices.Each(func(h pool.Handle) { oldSlices = append(oldSlices, h) })

	type bucketKey struct {
		rgn RegionID
		sig sliceSignature
	}
	order := []bucketKey{}
	buckets := map[bucketKey][]TransID{}
	for _, h := range oldSlices {
		s := e.sliceArena.Get(h)
		sig := sliceSignature{label: s.label, targetConst: s.targetConst}
		for p := s.start; p < s.end; p++ {
			t := e.blcTrans[p]
			dest := e.blocks[e.stateBlock[e.trans[t].From]].region
			k := bucketKey{rgn: dest, sig: sig}
			if _, ok := buckets[k]; !ok {
				order = append(order, k)
			}
			buckets[k] = append(buckets[k], t)
		}
		e.freeSlice(h)
	}

	for _, k := range order {
		ids := buckets[k]
		start := int32(len(e.blcTrans))
		e.blcTrans = append(e.blcTrans, ids...)
		end := int32(len(e.blcTrans))
		for p := start; p < end; p++ {
			e.blcPos[e.blcTrans[p]] = p
		}
		h := e.sliceArena.Alloc(blcSlice{start: start, end: end, startMarked: start, label: k.sig.label, targetConst: k.sig.targetConst, region: k.rgn})
		for _, t := range ids {
			e.transSlice[t] = h
		}
		r := &e.regns[k.rgn]
		r.slices.PushBack(h)
		r.bySignature[k.sig] = h
	}
}

// markedRange reports the sub-range of h that is currently marked
// unstable: [startMarked,end) if h has a pending marker, or its whole
// [start,end) if it doesn't (the common case for a freshly built C5
// splitter slice, which is unmarked and meant to be read in full).
func (e *Engine) markedRange(h pool.Handle) (int32, int32) {
	s := e.sliceArena.Get(h)
	lo := s.start
	if s.startMarked < s.end {
		lo = s.startMarked
	}
	return lo, s.end
}

// markTransition moves t into the marked (unstable) suffix of its
// owning slice, per mark_transition in spec.md §4.3: swap it with the
// slot immediately before the current marker and extend the marker to
// cover it, keeping the marked suffix contiguous.
func (e *Engine) markTransition(t TransID) {
	h := e.transSlice[t]
	s := e.sliceArena.Get(h)
	pos := e.blcPos[t]
	if pos >= s.startMarked {
		return // already marked
	}
	s.startMarked--
	e.swapBLC(pos, s.startMarked)
}

// stabiliseSlice clears h's marker once C6 has finished re-examining the
// marked suffix it collected.
func (e *Engine) stabiliseSlice(h pool.Handle) {
	s := e.sliceArena.Get(h)
	s.startMarked = s.end
}
