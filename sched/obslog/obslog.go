// Package obslog provides the scheduler core's structured logging: a
// logiface.Logger wired to a concrete backend (stumpy, for
// dependency-free JSON output), with a go-catrate limiter suppressing
// repeats of the same diagnostic category so a misbehaving workload
// cannot flood the log.
package obslog

import (
	"io"
	"os"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the scheduler's structured logger. It embeds the generic
// logiface logger so callers get the full Builder/Context surface
// (Info, Warning, Err, Str, Int, ...), plus Throttled, which filters
// repeated warning-class diagnostics.
type Logger struct {
	*logiface.Logger[*stumpy.Event]
	limiter *catrate.Limiter
}

// Option configures New.
type Option func(*config)

type config struct {
	writer io.Writer
}

// WithWriter overrides the destination of log output. Defaults to
// os.Stderr, matching stumpy's own default.
func WithWriter(w io.Writer) Option {
	return func(c *config) { c.writer = w }
}

// New constructs a Logger. The rate limiter caps repeated warnings in
// the same category to 5 per second and 50 per minute, which is enough
// to see a burst without drowning in it.
func New(opts ...Option) *Logger {
	var c config
	for _, o := range opts {
		o(&c)
	}
	if c.writer == nil {
		c.writer = os.Stderr
	}

	l := stumpy.L.New(
		stumpy.L.WithStumpy(),
		stumpy.L.WithWriter(logiface.WriterFunc[*stumpy.Event](func(e *stumpy.Event) error {
			_, err := c.writer.Write(append(e.Bytes(), '\n'))
			return err
		})),
	)

	return &Logger{
		Logger: l,
		limiter: catrate.NewLimiter(map[time.Duration]int{
			time.Second: 5,
			time.Minute: 50,
		}),
	}
}

// Throttled reports whether a diagnostic in the given category should
// be emitted right now. Categories are short strings like
// "oversubscription-retry" or "spurious-wakeup"; the limiter tracks
// each independently.
func (l *Logger) Throttled(category string) bool {
	_, allow := l.limiter.Allow(category)
	return allow
}

// Discard is a Logger that drops everything, for tests that don't want
// log noise on stderr.
func Discard() *Logger {
	return New(WithWriter(io.Discard))
}
