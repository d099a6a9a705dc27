package engine

// NumBlocks returns the number of equivalence classes after Refine has
// run to a fixpoint.
func (e *Engine) NumBlocks() int {
	n := 0
	for i := range e.blocks {
		if e.blocks[i].size() > 0 {
			n++
		}
	}
	return n
}

// ClassOf returns the stable, zero-based equivalence class number of s,
// assigning numbers lazily on first use (so callers that only need a
// same-class check never pay for a full quotient build).
func (e *Engine) ClassOf(s StateID) int {
	bid := e.stateBlock[s]
	bl := &e.blocks[bid]
	if bl.seqNum < 0 {
		bl.seqNum = e.nextSeqNum
		e.nextSeqNum++
	}
	return int(bl.seqNum)
}

// QuotientTransition is one representative edge of the quotient LTS.
type QuotientTransition struct {
	From  int
	Label Label
	To    int
}

// Quotient builds the reduced LTS: one representative state per block,
// transitions deduplicated by (fromClass, label, toClass). An inert
// transition (necessarily a within-block tau, once the partition is
// stable) is dropped unless divergence preservation is on, in which case
// it is kept as a single representative self-loop per diverging block —
// keeping it regardless of whether the underlying transition is a literal
// self-loop is what lets a multi-state inert cycle (0 -tau-> 1 -tau-> 0,
// with no state looping to itself) still register as divergent: every
// such transition collapses to the same deduplicated
// QuotientTransition{class, tau, class} once From/To are mapped to
// classes.
func (e *Engine) Quotient() (numClasses int, transitions []QuotientTransition, initial int) {
	for i := range e.blocks {
		if e.blocks[i].size() > 0 {
			e.ClassOf(e.stateInBlock[e.blocks[i].begin])
		}
	}
	numClasses = int(e.nextSeqNum)

	seen := map[QuotientTransition]bool{}
	for _, t := range e.trans {
		if e.isInert(t) && !e.divergence {
			continue
		}
		from, to := e.ClassOf(t.From), e.ClassOf(t.To)
		qt := QuotientTransition{From: from, Label: t.Label, To: to}
		if seen[qt] {
			continue
		}
		seen[qt] = true
		transitions = append(transitions, qt)
	}
	return numClasses, transitions, e.ClassOf(e.initial)
}
