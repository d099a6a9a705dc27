package bisim

// Options configures a Partition run. The zero value selects strong
// bisimulation with no statistics hook; use the With* functions to
// build up non-default behaviour, following the functional-options
// idiom rather than a builder or a sprawling constructor.
type Options struct {
	branching  bool
	divergence bool
	stats      StatsSink
}

// Option mutates an Options value.
type Option func(*Options)

// WithBranching selects branching bisimulation: silent (tau)
// transitions between states of the same block are treated as inert and
// do not by themselves distinguish states.
func WithBranching() Option {
	return func(o *Options) { o.branching = true }
}

// WithDivergencePreservation additionally requires that states able to
// diverge (loop forever on inert transitions without ever stabilising)
// are only equated with other diverging states. It implies
// WithBranching.
func WithDivergencePreservation() Option {
	return func(o *Options) {
		o.branching = true
		o.divergence = true
	}
}

// WithStats installs a StatsSink that receives coarse, best-effort
// progress events. It is never consulted for correctness and may be
// called from New concurrently with nothing else, so implementations
// need not be goroutine-safe beyond that.
func WithStats(s StatsSink) Option {
	return func(o *Options) { o.stats = s }
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
