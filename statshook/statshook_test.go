package statshook_test

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jgkw/bisim/statshook"
	"github.com/stretchr/testify/assert"
)

func TestZapLogsRoundsAndSplits(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sink := statshook.NewZap(zap.New(core))

	sink.OnRound(1, 3, 2)
	sink.OnSplit(0, 5)

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Equal(t, "refinement round", entries[0].Message)
	assert.Equal(t, "block split", entries[1].Message)
}

func TestZapNilLoggerDoesNotPanic(t *testing.T) {
	sink := statshook.NewZap(nil)
	assert.NotPanics(t, func() {
		sink.OnRound(0, 1, 1)
		sink.OnSplit(0, 0)
	})
}
