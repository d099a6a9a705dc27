package bisim

import "github.com/jgkw/bisim/internal/engine"

// Partition is the computed bisimulation partition of an LTS. It is
// immutable once returned by New: query it with NumEquivalenceClasses,
// ClassOf and InSameClass, or materialise the reduced LTS with Finalise.
type Partition struct {
	eng *engine.Engine
	src LTS // retained only so Finalise can read per-state labels, if any
}

// New computes the bisimulation partition of l according to opts. The
// zero-value Options (no With* calls) selects strong bisimulation.
func New(l LTS, opts ...Option) (*Partition, error) {
	o := buildOptions(opts)

	src := l.Transitions()
	trans := make([]engine.Transition, len(src))
	for i, t := range src {
		trans[i] = engine.Transition{From: engine.StateID(t.From), Label: t.Label, To: engine.StateID(t.To)}
	}

	var sink engine.StatsSink
	if o.stats != nil {
		sink = o.stats
	}

	eng, err := engine.New(l.NumStates(), trans, l.SilentLabel(), l.Initial(), o.branching, o.divergence, sink)
	if err != nil {
		return nil, wrap(err, "bisim.New")
	}
	eng.Refine()
	return &Partition{eng: eng, src: l}, nil
}

// NumEquivalenceClasses returns the number of blocks in the coarsest
// partition found.
func (p *Partition) NumEquivalenceClasses() int {
	return p.eng.NumBlocks()
}

// ClassOf returns state s's zero-based equivalence class number.
func (p *Partition) ClassOf(s int) int {
	return p.eng.ClassOf(engine.StateID(s))
}

// InSameClass reports whether a and b are bisimulation-equivalent.
func (p *Partition) InSameClass(a, b int) bool {
	return p.ClassOf(a) == p.ClassOf(b)
}

// Finalise builds the reduced (quotient) LTS and, if dst implements
// MutableLTS, installs it via SetQuotient (and SetStateLabels, for a
// LabeledMutableLTS, when the LTS originally passed to New had labels).
// It always returns the quotient's state count, transitions and mapped
// initial state, so callers that only want to read the result don't need
// a MutableLTS at all; dst may be nil for that case.
func (p *Partition) Finalise(dst LTS) (numStates int, transitions []Transition, initial int) {
	n, qts, init := p.eng.Quotient()
	out := make([]Transition, len(qts))
	for i, qt := range qts {
		out[i] = Transition{From: qt.From, Label: qt.Label, To: qt.To}
	}

	if labeled, ok := p.src.(LabeledLTS); ok {
		if lm, ok := dst.(LabeledMutableLTS); ok {
			lm.SetStateLabels(p.concatLabels(labeled, n))
		}
	}
	if m, ok := dst.(MutableLTS); ok {
		m.SetQuotient(n, out, init)
	}
	return n, out, init
}

// concatLabels builds, for each of n classes, the comma-joined distinct
// labels of every source state folded into it, in first-seen order.
func (p *Partition) concatLabels(l LabeledLTS, n int) []string {
	labels := make([]string, n)
	seen := make([]map[string]bool, n)
	for s := 0; s < l.NumStates(); s++ {
		lbl := l.StateLabel(s)
		if lbl == "" {
			continue
		}
		c := p.ClassOf(s)
		if seen[c] == nil {
			seen[c] = map[string]bool{}
		}
		if seen[c][lbl] {
			continue
		}
		seen[c][lbl] = true
		if labels[c] == "" {
			labels[c] = lbl
		} else {
			labels[c] += "," + lbl
		}
	}
	return labels
}
