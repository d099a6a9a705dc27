// Package statshook provides a bisim.StatsSink backed by zap, for callers
// who want refinement progress in their existing structured logs instead
// of wiring their own sink.
package statshook

import "go.uber.org/zap"

// Zap logs each round and split at debug level under the given logger.
// It satisfies bisim.StatsSink purely structurally; this package does not
// import bisim to keep the dependency direction one-way.
type Zap struct {
	log *zap.Logger
}

// NewZap wraps log. A nil log is replaced with zap.NewNop(), so callers
// can pass a possibly-absent logger without a nil check of their own.
func NewZap(log *zap.Logger) *Zap {
	if log == nil {
		log = zap.NewNop()
	}
	return &Zap{log: log}
}

func (z *Zap) OnRound(round, numBlocks, numConstellations int) {
	z.log.Debug("refinement round",
		zap.Int("round", round),
		zap.Int("blocks", numBlocks),
		zap.Int("constellations", numConstellations),
	)
}

func (z *Zap) OnSplit(block, sample int) {
	z.log.Debug("block split",
		zap.Int("block", block),
		zap.Int("sample_state", sample),
	)
}
