package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tau Label = 0
	a   Label = 1
	b   Label = 2
	c   Label = 3
)

func classesOf(e *Engine, n int) map[int][]StateID {
	out := map[int][]StateID{}
	for s := 0; s < n; s++ {
		c := e.ClassOf(StateID(s))
		out[c] = append(out[c], StateID(s))
	}
	return out
}

func TestNewRejectsOutOfRangeTransition(t *testing.T) {
	_, err := New(2, []Transition{{From: 0, Label: a, To: 5}}, tau, 0, false, false, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewRejectsExcessiveStateCount(t *testing.T) {
	_, err := New(maxPackedCounter+1, nil, tau, 0, false, false, nil)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestNewRejectsOutOfRangeInitialState(t *testing.T) {
	_, err := New(2, nil, tau, 5, false, false, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStrongBisimulationTwoStateLoop(t *testing.T) {
	e, err := New(2, []Transition{
		{From: 0, Label: a, To: 1},
		{From: 1, Label: a, To: 0},
	}, tau, 0, false, false, nil)
	require.NoError(t, err)
	e.Refine()
	assert.Equal(t, 1, e.NumBlocks())
}

func TestStrongBisimulationDistinguishesBranches(t *testing.T) {
	e, err := New(4, []Transition{
		{From: 0, Label: a, To: 1},
		{From: 0, Label: a, To: 2},
		{From: 1, Label: b, To: 3},
		{From: 2, Label: c, To: 3},
	}, tau, 0, false, false, nil)
	require.NoError(t, err)
	e.Refine()
	assert.Equal(t, 4, e.NumBlocks())
}

func TestBranchingTauAbsorption(t *testing.T) {
	e, err := New(3, []Transition{
		{From: 0, Label: tau, To: 1},
		{From: 1, Label: a, To: 2},
	}, tau, 0, true, false, nil)
	require.NoError(t, err)
	e.Refine()
	assert.Equal(t, 2, e.NumBlocks())
	assert.Equal(t, e.ClassOf(0), e.ClassOf(1))
	assert.NotEqual(t, e.ClassOf(0), e.ClassOf(2))
}

func TestDivergencePreservation(t *testing.T) {
	trans := []Transition{
		{From: 0, Label: tau, To: 0},
		{From: 1, Label: tau, To: 1},
		{From: 0, Label: a, To: 1},
	}
	withDiv, err := New(2, trans, tau, 0, true, true, nil)
	require.NoError(t, err)
	withDiv.Refine()
	assert.Equal(t, 2, withDiv.NumBlocks())

	noDiv, err := New(2, trans, tau, 0, true, false, nil)
	require.NoError(t, err)
	noDiv.Refine()
	assert.Equal(t, 1, noDiv.NumBlocks())
}

func TestDeepSilentChainCollapses(t *testing.T) {
	const n = 30
	trans := make([]Transition, 0, n-1)
	for i := 0; i < n-1; i++ {
		trans = append(trans, Transition{From: StateID(i), Label: tau, To: StateID(i + 1)})
	}
	e, err := New(n, trans, tau, 0, true, false, nil)
	require.NoError(t, err)
	e.Refine()
	assert.Equal(t, 1, e.NumBlocks())
}

func TestTauStarsDistinguishedUnderBranching(t *testing.T) {
	e, err := New(6, []Transition{
		{From: 0, Label: tau, To: 1},
		{From: 0, Label: tau, To: 2},
		{From: 1, Label: a, To: 3},
		{From: 2, Label: b, To: 3},
		{From: 4, Label: tau, To: 5},
		{From: 5, Label: a, To: 3},
		{From: 5, Label: b, To: 3},
	}, tau, 0, true, false, nil)
	require.NoError(t, err)
	e.Refine()
	assert.NotEqual(t, e.ClassOf(0), e.ClassOf(4))
}

// A block can diverge via a cycle with no single-state self-loop; the
// quotient must still surface that as a tau self-loop on the class.
func TestQuotientPreservesMultiStateDivergentCycle(t *testing.T) {
	e, err := New(3, []Transition{
		{From: 0, Label: tau, To: 1},
		{From: 1, Label: tau, To: 0},
		{From: 0, Label: a, To: 2},
	}, tau, 0, true, true, nil)
	require.NoError(t, err)
	e.Refine()
	assert.Equal(t, e.ClassOf(0), e.ClassOf(1))

	_, qts, _ := e.Quotient()
	c := e.ClassOf(0)
	found := false
	for _, qt := range qts {
		if qt.Label == tau && qt.From == c && qt.To == c {
			found = true
		}
	}
	assert.True(t, found, "expected a tau self-loop on the diverging class in the quotient")
}

func TestQuotientDropsInertSelfLoopsWithoutDivergence(t *testing.T) {
	e, err := New(3, []Transition{
		{From: 0, Label: tau, To: 1},
		{From: 1, Label: a, To: 2},
	}, tau, 0, true, false, nil)
	require.NoError(t, err)
	e.Refine()
	n, qts, _ := e.Quotient()
	assert.Equal(t, 2, n)
	for _, qt := range qts {
		if qt.Label == tau {
			assert.NotEqual(t, qt.From, qt.To)
		}
	}
}

func TestQuotientMapsInitialState(t *testing.T) {
	e, err := New(3, []Transition{
		{From: 0, Label: tau, To: 1},
		{From: 1, Label: a, To: 2},
	}, tau, 1, true, false, nil)
	require.NoError(t, err)
	e.Refine()
	_, _, initial := e.Quotient()
	assert.Equal(t, e.ClassOf(1), initial)
}

func TestStatsSinkReceivesEvents(t *testing.T) {
	sink := &recordingStats{}
	e, err := New(4, []Transition{
		{From: 0, Label: a, To: 1},
		{From: 0, Label: a, To: 2},
		{From: 1, Label: b, To: 3},
		{From: 2, Label: c, To: 3},
	}, tau, 0, false, false, sink)
	require.NoError(t, err)
	e.Refine()
	assert.NotZero(t, sink.rounds)
	assert.NotZero(t, sink.splits)
}

type recordingStats struct {
	rounds, splits int
}

func (r *recordingStats) OnRound(round, numBlocks, numConstellations int) { r.rounds++ }
func (r *recordingStats) OnSplit(block, sample int)                      { r.splits++ }
