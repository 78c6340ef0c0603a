package sched

import (
	"sync/atomic"
)

// PCB is a process control block. Fields that the Ready Table lock
// protects are documented as such; ticksLeft is the one exception: it
// is stored atomically, so it can be read or written without that lock.
//
// PCB intentionally carries no address-space, trap-frame, file-table or
// kernel-stack fields: those are the out-of-scope collaborators named
// in spec.md §1/§6. Payload is where a caller (the kernel package)
// stashes its own handles to that state; the scheduler core never
// inspects it.
type PCB struct {
	// Pid is zero only for the sentinel "none" PCB; real PCBs are
	// assigned a positive, monotonically increasing pid on allocate.
	Pid int
	// Name is a short textual label, for diagnostics and schedlog.
	Name string

	// Parent is a non-owning back-reference, valid only while the
	// owning ReadyTable's lock is held (see spec.md §9, "Cyclic
	// parent/child references").
	Parent *PCB

	// Killed is set by kill() and observed at the next trap-return
	// check; it is otherwise inert here.
	Killed bool

	// WaitChan is set when the process goes to sleep and cleared by the
	// process itself once it runs again after being woken.
	WaitChan any

	// ExitStatus is the value passed to exit(), valid once State ==
	// StateZombie.
	ExitStatus int

	// HomeLevel is the level this PCB lands on when promoted from the
	// expired staircase back to active (spec.md §3, §4.4).
	HomeLevel int

	// State is read/written exclusively under the owning ReadyTable's
	// lock.
	State State

	// queue is the level queue this PCB currently occupies, or nil if
	// State.Queued() is false. Guarded by the ReadyTable lock.
	queue *LevelQueue

	// ticksLeft is the remaining personal quantum, in [0, Q_P]. It is
	// decremented by the Quantum Accountant (ReadyTable.Tick, called
	// with the Ready Table lock held) and read/refreshed by the
	// Demotion Policy (spec.md §4.4); atomic access also keeps reads
	// made without the lock race-free, without a dedicated PCB mutex.
	ticksLeft atomic.Int32

	// Payload is opaque to the scheduler core. The kernel package uses
	// it to hold the address space handle, trap frame, kernel stack,
	// saved context and open-file/cwd references named as external
	// collaborators in spec.md §6.
	Payload any
}

// TicksLeft returns the current personal-quantum counter.
func (p *PCB) TicksLeft() int { return int(p.ticksLeft.Load()) }

// SetTicksLeft refreshes the personal-quantum counter, e.g. to Q_P on
// refresh per spec.md §4.4.
func (p *PCB) SetTicksLeft(v int) { p.ticksLeft.Store(int32(v)) }

// decTick decrements ticksLeft by one, clamped at zero, and reports
// whether it reached zero. Used only by the Quantum Accountant.
func (p *PCB) decTick() (exhausted bool) {
	for {
		cur := p.ticksLeft.Load()
		if cur <= 0 {
			return true
		}
		next := cur - 1
		if p.ticksLeft.CompareAndSwap(cur, next) {
			return next == 0
		}
	}
}

// Queue returns the level queue this PCB currently occupies, or nil.
// Callers must hold the owning ReadyTable's lock.
func (p *PCB) Queue() *LevelQueue { return p.queue }
