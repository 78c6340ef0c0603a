package sched

import "github.com/jmbatrina/go-rsdl/sched/obslog"

// config holds the compile-time constants of spec.md §6 (L, N, Q_P,
// Q_L, default_home), resolved once at construction. Go has no
// preprocessor constants scoped to a single build the way the
// originating C implementation does, so this module resolves a
// functional-options struct at construction instead, the same shape
// as eventloop.LoopOption / resolveLoopOptions; see DESIGN.md's
// options.go entry.
type config struct {
	levels         int
	capacity       int
	processQuantum int
	levelQuantum   int
	defaultHome    int
	logger         *obslog.Logger
}

// Option configures a ReadyTable constructed via New.
type Option func(*config)

// WithLevels sets L, the number of priority levels. Must be ≥ 1.
func WithLevels(levels int) Option {
	return func(c *config) { c.levels = levels }
}

// WithCapacity sets N, the maximum number of concurrently live
// processes (and the fixed size of every level queue). Must be ≥ 1.
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// WithProcessQuantum sets Q_P, the per-process tick budget. Must be ≥ 1.
func WithProcessQuantum(q int) Option {
	return func(c *config) { c.processQuantum = q }
}

// WithLevelQuantum sets Q_L, the per-level tick budget. Must be ≥ 1.
// Typically Q_L ≥ Q_P.
func WithLevelQuantum(q int) Option {
	return func(c *config) { c.levelQuantum = q }
}

// WithDefaultHome sets default_home, the starting level used by plain
// fork() (as opposed to priofork). Must be in [0, L).
func WithDefaultHome(level int) Option {
	return func(c *config) { c.defaultHome = level }
}

// WithLogger overrides the structured logger. Defaults to a logger
// writing to os.Stderr via obslog.New.
func WithLogger(l *obslog.Logger) Option {
	return func(c *config) { c.logger = l }
}

func resolveConfig(opts []Option) config {
	c := config{
		levels:         4,
		capacity:       64,
		processQuantum: 5,
		levelQuantum:   30,
		defaultHome:    0,
	}
	for _, o := range opts {
		if o != nil {
			o(&c)
		}
	}
	if c.logger == nil {
		c.logger = obslog.New()
	}
	return c
}
