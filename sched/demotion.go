package sched

// Demote applies the Demotion & Rotation Policy of spec.md §4.4 at the
// one point it is ever invoked: when pcb has just yielded control back
// to the dispatcher, having been drawn from source, a level in the
// active staircase. Callers must hold the Ready Table lock; source
// must be rt.active.levels[level] at the time of the call (the
// dispatcher must apply this before any intervening rotation).
func (rt *ReadyTable) Demote(pcb *PCB, source *LevelQueue, level int) {
	if !source.HasTicks() {
		rt.demoteCaseA(pcb, source, level)
		return
	}
	rt.demoteCaseB(pcb, source, level)
}

// demoteCaseA handles level-budget exhaustion: every process currently
// on source is migrated out, refreshed to Q_P, with pcb migrated last
// so that if other migrants land in the same destination queue, pcb
// trails them in FIFO order (spec.md §4.4, Case A).
func (rt *ReadyTable) demoteCaseA(pcb *PCB, source *LevelQueue, level int) {
	members := source.Snapshot()

	migrate := func(r *PCB) {
		if r.State == StateZombie {
			// already removed itself during exit
			return
		}
		source.Unqueue(r, Try)
		r.SetTicksLeft(rt.cfg.processQuantum)
		dest := rt.FindAvailableQueue(level+1, r.HomeLevel)
		dest.Enqueue(r)
	}

	for _, r := range members {
		if r == pcb {
			continue
		}
		migrate(r)
	}
	migrate(pcb)
}

// demoteCaseB handles the ordinary case: only pcb moves. If it
// exhausted its personal quantum, the search starts one level down and
// ticks_left is refreshed; otherwise it starts at the same level
// (voluntary yield, or blocked with budget remaining). A sleeping or
// zombie pcb is left exactly where it is (sleeping remains queued in
// place so wakeup restores it; zombie already removed itself).
func (rt *ReadyTable) demoteCaseB(pcb *PCB, source *LevelQueue, level int) {
	if pcb.State != StateRunnable {
		return
	}

	nk := level
	if pcb.TicksLeft() == 0 {
		nk = level + 1
		pcb.SetTicksLeft(rt.cfg.processQuantum)
	}

	source.Unqueue(pcb, Strict)
	dest := rt.FindAvailableQueue(nk, pcb.HomeLevel)
	if !dest.ownedBy(rt.active) {
		pcb.SetTicksLeft(rt.cfg.processQuantum)
	}
	dest.Enqueue(pcb)
}

// ownedBy reports whether q belongs to sc, by scanning sc's levels for
// a pointer match. This stands in for the original's address-range
// comparison against the active staircase pointer (spec.md §3).
func (q *LevelQueue) ownedBy(sc *Staircase) bool {
	for _, lv := range sc.levels {
		if lv == q {
			return true
		}
	}
	return false
}

// Rotate implements the active↔expired rotation of spec.md §4.4. It is
// invoked by the dispatcher when a full selection scan finds no
// runnable process with budget. After swapping the staircase pointers,
// every process parked in the (now) expired staircase — which a moment
// ago was the active staircase that just ran dry — is re-homed into
// the new active staircase at its home level, and the now-expired
// queues are reset to Q_L, ready to receive the next round's
// demotions. Callers must hold the Ready Table lock.
func (rt *ReadyTable) Rotate() {
	rt.SwapSets()

	for _, q := range rt.expired.levels {
		for _, p := range q.Snapshot() {
			q.Unqueue(p, Strict)
			p.SetTicksLeft(rt.cfg.processQuantum)
			dest := rt.FindAvailableQueue(p.HomeLevel, p.HomeLevel)
			dest.Enqueue(p)
		}
		q.SetLevelTicks(rt.cfg.levelQuantum)
	}
}
