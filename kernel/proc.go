package kernel

import (
	"context"

	"github.com/jmbatrina/go-rsdl/sched"
)

// Proc is the kernel-side handle for a process: it pairs a
// *sched.PCB — the scheduler core's view — with the collaborator
// handles spec.md §6 names as out of scope (address space, file table,
// cwd, kernel stack, trap frame), and with the two channels that
// implement the context-switch primitive as a structured, cooperative
// hand-off between this process's goroutine and whichever CPU
// goroutine is running its Dispatcher Loop (spec.md §9, "Context
// switch as a coroutine").
type Proc struct {
	pcb *sched.PCB
	sys *System

	addrSpace AddressSpace
	files     FileTable
	cwd       CWD
	kstack    KernelStack
	trap      *TrapFrame
	workload  Workload

	resume chan struct{}
	yield  chan struct{}

	// currentQueue is set by the dispatcher immediately before each
	// resume, under the Ready Table lock; the happens-before edge of
	// the channel send/receive makes reading it afterwards, without a
	// lock, race-free.
	currentQueue *sched.LevelQueue
}

// PCB exposes the underlying process control block, for callers that
// need scheduler-level state (pid, name, state) without a kernel-level
// operation.
func (p *Proc) PCB() *sched.PCB { return p.pcb }

// Pid returns this process's id.
func (p *Proc) Pid() int { return p.pcb.Pid }

// Name returns this process's textual name.
func (p *Proc) Name() string { return p.pcb.Name }

// run is the body of the goroutine spawned for this process at
// creation time. It blocks waiting to be dispatched, runs the
// workload to completion (falling through to an implicit Exit if the
// workload returns on its own, matching a userland program falling off
// the end of main), and then the goroutine itself terminates.
func (p *Proc) run(ctx context.Context) {
	<-p.resume
	p.sys.firstReturn(p)

	if p.workload != nil {
		p.workload(ctx, p)
	}
	p.Exit(0)
}

// switchOut is the kernel-side half of the context-switch primitive:
// it is called with the Ready Table lock held, having just finished
// mutating pcb state, and blocks until the dispatcher resumes this
// process again. It is never called for a process that is exiting —
// Exit has its own one-way variant, since exit never resumes.
func (p *Proc) switchOut() {
	p.yield <- struct{}{}
	<-p.resume
	p.sys.rt.Unlock()
}

// Tick credits one clock tick to this process, per spec.md §4.3. If
// either the personal or the level quantum is exhausted, this
// arranges a return to the dispatcher exactly as a real timer trap
// would, blocking until this process is dispatched again.
func (p *Proc) Tick(ctx context.Context) {
	p.sys.rt.Lock()
	if p.sys.rt.Tick(p.pcb, p.currentQueue) {
		p.pcb.State = sched.StateRunnable
		p.switchOut()
	} else {
		p.sys.rt.Unlock()
	}
	p.CheckKilled()
	p.checkContext(ctx)
}

// Yield voluntarily gives up the CPU with whatever quantum remains,
// per spec.md §4.6's yield().
func (p *Proc) Yield() {
	p.sys.rt.Lock()
	p.pcb.State = sched.StateRunnable
	p.switchOut()
}

// Sleep implements spec.md §4.6's sleep(chan, user_lock): it acquires
// the Ready Table lock before releasing user_lock (unless user_lock is
// nil, e.g. the caller already holds no lock of its own), records
// chan, transitions to sleeping, and yields. On wake it clears chan
// and reacquires user_lock.
func (p *Proc) Sleep(chanID any, userLock Locker) {
	p.sys.rt.Lock()
	if userLock != nil {
		userLock.Unlock()
	}
	p.pcb.WaitChan = chanID
	p.pcb.State = sched.StateSleeping
	p.switchOut()
	p.pcb.WaitChan = nil
	if userLock != nil {
		userLock.Lock()
	}
}

// Locker is the minimal interface Sleep needs from a caller-supplied
// lock, satisfied by *sync.Mutex among others.
type Locker interface {
	Lock()
	Unlock()
}

// CheckKilled implements the trap-return half of spec.md §4.6's
// kill(): a killed process acts on the flag at its next return to
// user space. This simulation's "trap return" is every call back into
// Workload code after Tick, so that is where the check lives.
func (p *Proc) CheckKilled() {
	p.sys.rt.Lock()
	killed := p.pcb.Killed
	p.sys.rt.Unlock()
	if killed {
		p.Exit(1)
	}
}

// checkContext treats a canceled ctx the same as a pending kill: a
// workload that threads ctx through Tick gets torn down when the
// surrounding Machine stops, instead of blocking its CPU forever.
func (p *Proc) checkContext(ctx context.Context) {
	if ctx.Err() != nil {
		p.Exit(1)
	}
}

// Exit implements spec.md §4.6's exit(): closes file handles, releases
// cwd, wakes a parent blocked in wait, reparents surviving children to
// init, removes itself from its level queue, transitions to zombie,
// and never returns to its caller (the goroutine this runs on
// terminates after the final hand-off to the dispatcher).
func (p *Proc) Exit(status int) {
	p.sys.exit(p, status)
	p.yield <- struct{}{}
	// This goroutine is done; control has been handed back to the
	// dispatcher for the last time, and Exit never returns to the
	// caller in a live process, so block forever rather than letting
	// p.run's deferred logic (if any) race with reap.
	select {}
}
