// Package bisim computes the coarsest (divergence-preserving) branching
// or strong bisimulation partition of a labelled transition system in
// O(m log n) time, following the constellation/BLC-slice refinement
// scheme worked out by Groote, Jansen, Keiren and Wijs.
package bisim

import "github.com/jgkw/bisim/internal/engine"

// Label identifies an action. Labels are opaque to the engine except for
// one designated silent (tau) action.
type Label = engine.Label

// Transition is one edge of the input LTS.
type Transition struct {
	From  int
	Label Label
	To    int
}

// LTS is the read-only view of a transition system Partition needs: a
// state count, the full transition relation, the silent label, and which
// state is initial. Implementations are free to store states/transitions
// however suits them; New only calls these methods once, up front.
type LTS interface {
	NumStates() int
	Transitions() []Transition
	SilentLabel() Label
	Initial() int
}

// LabeledLTS is an LTS whose states carry human-readable names. When the
// LTS passed to New also implements this, Finalise concatenates the
// labels of every state folded into a class (comma-joined, each distinct
// label kept once, in first-seen order) and passes them on to a
// LabeledMutableLTS destination.
type LabeledLTS interface {
	LTS
	StateLabel(state int) string
}

// MutableLTS additionally exposes the ability to rebuild a reduced LTS,
// letting callers round-trip through Finalise without hand-assembling a
// QuotientTransition slice themselves.
type MutableLTS interface {
	LTS
	SetQuotient(numStates int, transitions []Transition, initial int)
}

// LabeledMutableLTS additionally accepts the concatenated per-class state
// labels Finalise derives when the source LTS is a LabeledLTS. labels[i]
// corresponds to class i and is "" if no source state in that class had a
// label.
type LabeledMutableLTS interface {
	MutableLTS
	SetStateLabels(labels []string)
}
