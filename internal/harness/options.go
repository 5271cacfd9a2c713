package harness

import (
	"io"
	"log/slog"

	"github.com/roach88/rtfm/internal/engine"
	"github.com/roach88/rtfm/internal/sym"
)

// DefaultMaxCycles bounds a single path or scenario run.
const DefaultMaxCycles = 1_000_000

// Option configures exploration, replay, measurement and scenario runs.
type Option func(*options)

type options struct {
	solver       sym.Solver
	maxDecisions int
	maxCycles    int64
	logger       *slog.Logger
	observers    []engine.Observer
}

func newOptions(opts []Option) *options {
	o := &options{
		solver:       sym.Interval{},
		maxDecisions: sym.DefaultMaxDecisions,
		maxCycles:    DefaultMaxCycles,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithSolver replaces the interval solver.
func WithSolver(s sym.Solver) Option {
	return func(o *options) { o.solver = s }
}

// WithMaxDecisions bounds the branch decisions of one path.
func WithMaxDecisions(n int) Option {
	return func(o *options) { o.maxDecisions = n }
}

// WithMaxCycles bounds the cycles of one run.
func WithMaxCycles(n int64) Option {
	return func(o *options) { o.maxCycles = n }
}

// WithLogger sets the harness logger. Engines created by the harness log
// to it too. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver adds a trace observer to scenario runs.
func WithObserver(obs engine.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}
