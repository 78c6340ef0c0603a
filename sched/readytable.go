package sched

import (
	"sync"

	"github.com/jmbatrina/go-rsdl/sched/obslog"
	"github.com/jmbatrina/go-rsdl/sched/schederr"
)

// Staircase is an ordered array of L level queues, per spec.md §3.
// Membership in the active vs. expired staircase is determined solely
// by comparing a queue's owner against ReadyTable.active; the original
// C implementation does this via pointer/address-range comparison,
// which this port keeps as a direct pointer-identity comparison
// (LevelQueue.ownedBy), since Go gives us that for free without needing to
// reason about array-bounds arithmetic.
type Staircase struct {
	levels []*LevelQueue
}

func (s *Staircase) level(i int) *LevelQueue { return s.levels[i] }

// ReadyTable is the global, lock-protected table of all process
// control blocks plus the two staircases, per spec.md §4.1.
type ReadyTable struct {
	mu sync.Mutex

	cfg config
	acc accountant
	log *obslog.Logger

	pcbs    []*PCB
	nextPid int

	sets          [2]Staircase
	active        *Staircase
	expired       *Staircase
	tracer        Tracer
}

// New constructs a ReadyTable initialized per spec.md §9: all PCBs
// unused, both staircases empty, both level_ticks = Q_L, active and
// expired set.
func New(opts ...Option) *ReadyTable {
	cfg := resolveConfig(opts)
	if cfg.levels < 1 || cfg.capacity < 1 || cfg.processQuantum < 1 || cfg.levelQuantum < 1 {
		schederr.Halt("sched.New", "invalid configuration", cfg)
	}
	if cfg.defaultHome < 0 || cfg.defaultHome >= cfg.levels {
		schederr.Halt("sched.New", "default_home out of [0, L)", cfg)
	}

	rt := &ReadyTable{
		cfg: cfg,
		acc: accountant{processQuantum: cfg.processQuantum, levelQuantum: cfg.levelQuantum},
		log: cfg.logger,
	}
	rt.pcbs = make([]*PCB, cfg.capacity)
	for i := range rt.pcbs {
		rt.pcbs[i] = &PCB{State: StateUnused}
	}
	for s := 0; s < 2; s++ {
		rt.sets[s].levels = make([]*LevelQueue, cfg.levels)
		for lvl := 0; lvl < cfg.levels; lvl++ {
			rt.sets[s].levels[lvl] = newLevelQueue(lvl, cfg.capacity, cfg.levelQuantum)
		}
	}
	rt.active = &rt.sets[0]
	rt.expired = &rt.sets[1]
	return rt
}

// Config accessors, read-only.
func (rt *ReadyTable) Levels() int         { return rt.cfg.levels }
func (rt *ReadyTable) Capacity() int       { return rt.cfg.capacity }
func (rt *ReadyTable) ProcessQuantum() int { return rt.cfg.processQuantum }
func (rt *ReadyTable) LevelQuantum() int   { return rt.cfg.levelQuantum }
func (rt *ReadyTable) DefaultHome() int    { return rt.cfg.defaultHome }
func (rt *ReadyTable) Logger() *obslog.Logger { return rt.log }

// Lock and Unlock expose the Ready Table's coarse lock directly, so
// that Lifecycle Glue (in package kernel) can hold it across the
// context-switch primitive, per spec.md §5.
func (rt *ReadyTable) Lock()   { rt.mu.Lock() }
func (rt *ReadyTable) Unlock() { rt.mu.Unlock() }

// Allocate scans the PCB pool for an unused slot. Callers must hold
// the Ready Table lock. On success the slot transitions to embryo,
// is assigned the next pid, and has ticks_left set to Q_P; it is not
// enqueued (spec.md §4.1).
func (rt *ReadyTable) Allocate() (*PCB, error) {
	for _, p := range rt.pcbs {
		if p.State == StateUnused {
			rt.nextPid++
			p.Pid = rt.nextPid
			p.State = StateEmbryo
			p.Parent = nil
			p.Name = ""
			p.Killed = false
			p.WaitChan = nil
			p.HomeLevel = 0
			p.queue = nil
			p.Payload = nil
			p.SetTicksLeft(rt.cfg.processQuantum)
			return p, nil
		}
	}
	return nil, &schederr.ExhaustionError{Op: "Allocate", Resource: "PCB slot"}
}

// PCBs returns the full backing pool, for callers (wait(), exit()'s
// orphan reparenting) that must scan all processes regardless of
// queue membership. Callers must hold the Ready Table lock.
func (rt *ReadyTable) PCBs() []*PCB { return rt.pcbs }

// Active returns the currently active staircase.
func (rt *ReadyTable) Active() *Staircase { return rt.active }

// Expired returns the currently expired staircase.
func (rt *ReadyTable) Expired() *Staircase { return rt.expired }

// SwapSets atomically exchanges the active and expired staircase
// pointers, per spec.md §4.1. Callers must hold the Ready Table lock.
func (rt *ReadyTable) SwapSets() {
	rt.active, rt.expired = rt.expired, rt.active
}

// FindAvailableQueue implements spec.md §4.1's two-argument search:
// the first level ≥ startActive in the active staircase with spare
// level budget and room, falling back to the first level ≥
// fallbackExpired in the expired staircase with room. If both
// searches fail, this is a fatal over-subscription per spec.md §7.
// Callers must hold the Ready Table lock.
func (rt *ReadyTable) FindAvailableQueue(startActive, fallbackExpired int) *LevelQueue {
	for lvl := startActive; lvl < len(rt.active.levels); lvl++ {
		q := rt.active.levels[lvl]
		if q.HasTicks() && q.NumProc() < q.Capacity() {
			return q
		}
	}
	for lvl := fallbackExpired; lvl < len(rt.expired.levels); lvl++ {
		q := rt.expired.levels[lvl]
		if q.NumProc() < q.Capacity() {
			return q
		}
	}
	schederr.Halt("FindAvailableQueue", "ready structure oversubscribed", struct {
		StartActive     int
		FallbackExpired int
		Table           *ReadyTable
	}{startActive, fallbackExpired, rt})
	panic("unreachable")
}

// Select implements the dispatcher's selection scan of spec.md §4.4:
// scan active-staircase levels in index order, skipping exhausted
// levels, and within each level return the first runnable PCB with
// budget remaining. Callers must hold the Ready Table lock.
func (rt *ReadyTable) Select() (pcb *PCB, queue *LevelQueue, ok bool) {
	for _, q := range rt.active.levels {
		if !q.HasTicks() {
			continue
		}
		for _, cand := range q.Snapshot() {
			if cand.State == StateRunnable && cand.TicksLeft() > 0 {
				return cand, q, true
			}
		}
	}
	return nil, nil, false
}

// HasRunnable reports whether any PCB anywhere in the active staircase
// is runnable with budget remaining, ignoring exhausted levels. It is
// Select's ok result; the dispatcher calls Select directly.
func (rt *ReadyTable) HasRunnable() bool {
	_, _, ok := rt.Select()
	return ok
}
