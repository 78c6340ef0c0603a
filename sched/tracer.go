package sched

import (
	"fmt"
	"strings"
	"sync"
)

// Tracer implements schedlog(n), spec.md §6's only externally
// observable core diagnostic. original_source/proc.c arms this as a
// pair of package-scope globals (schedlog_active, schedlog_lasttick)
// checked once per tick from the scheduler loop itself, not from the
// syscall that armed it; this port keeps that placement (see
// SPEC_FULL.md §C): EnableTrace only arms a countdown, and emission
// happens from ReadyTable.Tick, which is the one place ticks are
// credited in this implementation.
type Tracer struct {
	mu        sync.Mutex
	remaining int
	sink      func(line string)
}

// EnableTrace arms the tracer for the next n ticks. n <= 0 disables it.
func (t *Tracer) EnableTrace(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n < 0 {
		n = 0
	}
	t.remaining = n
}

// SetSink overrides where rendered trace lines go; nil restores the
// default (the ReadyTable's logger, at Info level).
func (t *Tracer) SetSink(sink func(line string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sink = sink
}

func (t *Tracer) armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.remaining <= 0 {
		return false
	}
	t.remaining--
	return true
}

// maybeEmit renders one trace line per level across both staircases,
// in the format spec.md §6 specifies:
//
//	T|<set>|<level>(<level_ticks>)[,[pid]name:state(ticks_left)]*
//
// Callers must hold the Ready Table lock.
func (rt *ReadyTable) maybeEmit() {
	if !rt.tracer.armed() {
		return
	}
	for _, pair := range []struct {
		name string
		sc   *Staircase
	}{
		{"active", rt.active},
		{"expired", rt.expired},
	} {
		for _, q := range pair.sc.levels {
			var b strings.Builder
			fmt.Fprintf(&b, "T|%s|%d(%d)", pair.name, q.Index(), q.LevelTicks())
			for _, p := range q.Snapshot() {
				fmt.Fprintf(&b, ",[%d]%s:%s(%d)", p.Pid, p.Name, p.State, p.TicksLeft())
			}
			line := b.String()
			rt.tracer.mu.Lock()
			sink := rt.tracer.sink
			rt.tracer.mu.Unlock()
			if sink != nil {
				sink(line)
			} else {
				rt.log.Info().Str("trace", line).Log("schedlog")
			}
		}
	}
}

// EnableTrace exposes Tracer.EnableTrace on the table, matching the
// schedlog(n) syscall surface of spec.md §6.
func (rt *ReadyTable) EnableTrace(n int) { rt.tracer.EnableTrace(n) }
