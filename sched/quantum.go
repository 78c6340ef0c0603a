package sched

// accountant implements the tick-accounting rules of spec.md §4.3. It
// holds no state of its own beyond the two configured constants Q_P
// and Q_L: the counters they bound (ticks_left and level_ticks) live
// on the PCB and LevelQueue respectively, and the accountant only ever
// decrements them.
type accountant struct {
	processQuantum int
	levelQuantum   int
}

// tick credits one clock tick to pcb, which must currently be drawn
// from queue. It decrements both counters (clamped at zero) and
// reports whether either reached zero, i.e. whether the caller should
// request preemption by arranging a return to the dispatcher. No other
// counter is touched here; queue-to-queue movement is the Demotion
// Policy's job, applied later under the Ready Table lock.
func (a accountant) tick(pcb *PCB, queue *LevelQueue) (preempt bool) {
	procExhausted := pcb.decTick()
	levelExhausted := queue.decLevelTicks()
	return procExhausted || levelExhausted
}

// Tick credits one clock tick to pcb (currently drawn from queue) and
// reports whether the caller should preempt. It also gives the
// schedlog tracer a chance to emit, matching the tick-driven placement
// described in SPEC_FULL.md §C. Callers must hold the Ready Table
// lock, consistent with the timer trap running with the lock held
// across the context switch (spec.md §5).
func (rt *ReadyTable) Tick(pcb *PCB, queue *LevelQueue) (preempt bool) {
	preempt = rt.acc.tick(pcb, queue)
	rt.maybeEmit()
	return preempt
}
