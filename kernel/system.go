package kernel

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/jmbatrina/go-rsdl/sched"
	"github.com/jmbatrina/go-rsdl/sched/schederr"
)

// System wires a Ready Table to the out-of-scope collaborators of
// spec.md §6 and owns the table of live Procs, indexed by pid. It is
// the thing every lifecycle operation (fork, exit, wait, kill, wakeup)
// is a method of, mirroring how the original keeps them as free
// functions closing over one global ptable — here made an explicit,
// testable receiver instead of package-level state.
type System struct {
	rt      *sched.ReadyTable
	asm     AddressSpaceManager
	ksAlloc KernelStackAllocator

	// admission gates PCB pool slots one-for-one with rt's configured
	// capacity, so a flood of concurrent CreateProcess callers fails
	// fast on TryAcquire instead of piling into rt.Allocate's linear
	// scan only to find every slot already taken.
	admission *semaphore.Weighted

	mu       sync.Mutex // protects procs and initProc below; distinct from rt's lock
	procs    map[int]*Proc
	initProc *Proc

	fsInitOnce sync.Once
}

// SystemOption configures a System at construction time.
type SystemOption func(*System)

// WithAddressSpaceManager overrides the default in-memory
// AddressSpaceManager.
func WithAddressSpaceManager(m AddressSpaceManager) SystemOption {
	return func(s *System) { s.asm = m }
}

// WithKernelStackAllocator overrides the default in-memory
// KernelStackAllocator.
func WithKernelStackAllocator(a KernelStackAllocator) SystemOption {
	return func(s *System) { s.ksAlloc = a }
}

// NewSystem builds a System around rt, a Ready Table configured per
// spec.md §4.1's parameters. rt must not be shared with another
// System.
func NewSystem(rt *sched.ReadyTable, opts ...SystemOption) *System {
	s := &System{
		rt:        rt,
		admission: semaphore.NewWeighted(int64(rt.Capacity())),
		procs:     make(map[int]*Proc),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.asm == nil {
		s.asm = NewAddressSpaceManager()
	}
	if s.ksAlloc == nil {
		s.ksAlloc = NewKernelStackAllocator()
	}
	return s
}

// ReadyTable exposes the underlying scheduler core, for callers that
// need to drive ticks or inspect state directly (tests, tracing).
func (s *System) ReadyTable() *sched.ReadyTable { return s.rt }

// Boot creates pid 1 ("init") running workload, at the default home
// level, and records it as the reparenting target for orphaned
// processes, matching spec.md §4.6's userinit.
func (s *System) Boot(ctx context.Context, name string, workload Workload) (*Proc, error) {
	p, err := s.CreateProcess(ctx, name, nil, s.rt.DefaultHome(), workload)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.initProc = p
	s.mu.Unlock()
	return p, nil
}

// CreateProcess implements the common core of fork() and priofork(),
// spec.md §4.6: it allocates a PCB, clones or creates collaborator
// handles, spawns the process's goroutine, and enqueues it for
// dispatch. A nil parent marks pid 1.
func (s *System) CreateProcess(ctx context.Context, name string, parent *Proc, homeLevel int, workload Workload) (*Proc, error) {
	if !s.admission.TryAcquire(1) {
		return nil, &schederr.ExhaustionError{Op: "CreateProcess", Resource: "PCB pool slot"}
	}

	s.rt.Lock()
	defer s.rt.Unlock()

	pcb, err := s.rt.Allocate()
	if err != nil {
		s.admission.Release(1)
		return nil, err
	}
	pcb.Name = name
	pcb.HomeLevel = homeLevel

	kstack, err := s.ksAlloc.Allocate()
	if err != nil {
		pcb.State = sched.StateUnused
		s.admission.Release(1)
		return nil, err
	}

	var addrSpace AddressSpace
	var files FileTable
	var cwd CWD
	if parent == nil {
		addrSpace = s.asm.LoadInitialImage()
		files = NewFileTable()
		cwd = NewCWD("/")
	} else {
		pcb.Parent = parent.pcb
		addrSpace, err = s.asm.CloneUserSpace(parent.addrSpace)
		if err != nil {
			kstack.Free()
			pcb.State = sched.StateUnused
			s.admission.Release(1)
			return nil, err
		}
		files = parent.files.Dup()
		cwd = parent.cwd.Dup()
	}

	pcb.State = sched.StateRunnable
	pcb.Payload = nil

	proc := &Proc{
		pcb:       pcb,
		sys:       s,
		addrSpace: addrSpace,
		files:     files,
		cwd:       cwd,
		kstack:    kstack,
		trap:      &TrapFrame{ReturnValue: 0},
		workload:  workload,
		resume:    make(chan struct{}),
		yield:     make(chan struct{}),
	}
	pcb.Payload = proc

	s.mu.Lock()
	s.procs[pcb.Pid] = proc
	s.mu.Unlock()

	queue := s.rt.FindAvailableQueue(homeLevel, homeLevel)
	queue.Enqueue(pcb)

	go proc.run(ctx)

	return proc, nil
}

// firstReturn implements spec.md §4.6's first_return: the very first
// time a process is dispatched, it releases the Ready Table lock its
// dispatcher acquired to select it (rather than the lock release
// living at the tail of sleep/yield, since there is no prior call to
// return from), then performs any one-time boot work.
func (s *System) firstReturn(p *Proc) {
	s.rt.Unlock()
	s.fsInitOnce.Do(func() {
		// One-time filesystem bring-up would happen here; the
		// simulated collaborators need none.
	})
}

// exit implements the non-resuming half of spec.md §4.6's exit():
// releasing collaborator handles, waking a parent blocked in Wait,
// reparenting surviving children to init (waking init if any such
// child is already a zombie, per spec.md §4.6 and end-to-end Scenario
// 6 of §8 — otherwise init can stay asleep forever despite owning a
// reapable zombie), and leaving pcb as a zombie for the parent to
// reap. Called with no locks held; it acquires the Ready Table lock
// for the state mutation and queue surgery and deliberately leaves it
// held on return — Proc.Exit sends its final yield with the lock
// still held, matching every other switchOut, and the dispatcher
// releases it once it sees the zombie state and skips Demote.
func (s *System) exit(p *Proc, status int) {
	p.files.CloseAll()
	p.cwd.Release()
	s.asm.FreeUserSpace(p.addrSpace)

	s.rt.Lock()
	p.pcb.ExitStatus = status
	p.pcb.State = sched.StateZombie
	if q := p.pcb.Queue(); q != nil {
		q.Unqueue(p.pcb, sched.Try)
	}

	s.mu.Lock()
	initPCB := s.initProcLocked()
	orphanedZombie := false
	for _, child := range s.procs {
		if child.pcb.Parent == p.pcb {
			child.pcb.Parent = initPCB
			if child.pcb.State == sched.StateZombie {
				orphanedZombie = true
			}
		}
	}
	s.mu.Unlock()

	if orphanedZombie && initPCB != nil {
		s.wakeupLocked(initPCB)
	}

	if p.pcb.Parent != nil {
		if parent, ok := p.sys.procByPCB(p.pcb.Parent); ok {
			s.wakeupLocked(parent.pcb)
		}
	}
}

// initProcLocked returns pid 1's PCB, for reparenting. Must be called
// with s.mu held.
func (s *System) initProcLocked() *PCB {
	if s.initProc == nil {
		return nil
	}
	return s.initProc.pcb
}

func (s *System) procByPCB(pcb *PCB) (*Proc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proc, ok := s.procs[pcb.Pid]
	return proc, ok
}

// PCB is a local alias kept for readability inside this package; the
// type itself lives in sched.
type PCB = sched.PCB

// Wakeup implements spec.md §4.6's wakeup(chan): every process
// sleeping on chan is made runnable again, left in place in the level
// queue it occupied while sleeping. Callers must not hold the Ready
// Table lock.
func (s *System) Wakeup(chanID any) {
	s.rt.Lock()
	defer s.rt.Unlock()
	for _, pcb := range s.rt.PCBs() {
		if pcb.State == sched.StateSleeping && pcb.WaitChan == chanID {
			s.wakeupLocked(pcb)
		}
	}
}

// wakeupLocked transitions a single sleeping pcb to runnable in
// place, leaving it in whatever queue it already occupies (spec.md
// §4.4's note that sleeping processes are left queued where they are).
// Callers must hold the Ready Table lock.
func (s *System) wakeupLocked(pcb *PCB) {
	if pcb.State != sched.StateSleeping {
		return
	}
	pcb.State = sched.StateRunnable
}

// Kill implements spec.md §4.6's kill(pid): it sets the killed flag
// and, if the target is sleeping, wakes it so it observes the flag
// promptly rather than sleeping forever. It never forcibly unwinds a
// running process.
func (s *System) Kill(pid int) error {
	s.rt.Lock()
	defer s.rt.Unlock()
	for _, pcb := range s.rt.PCBs() {
		if pcb.Pid == pid && pcb.State != sched.StateUnused {
			pcb.Killed = true
			if pcb.State == sched.StateSleeping {
				s.wakeupLocked(pcb)
			}
			return nil
		}
	}
	return &schederr.UserError{Op: "Kill", Message: fmt.Sprintf("no such pid %d", pid)}
}

// Wait implements spec.md §4.6's wait(): it blocks the calling process
// until one of its children becomes a zombie, reaps it (frees its
// kernel stack and PCB slot), and returns its pid and exit status. If
// the caller has no children at all, it returns immediately with an
// error, matching the original's -1 return.
func (s *System) Wait(caller *Proc) (pid int, status int, err error) {
	s.rt.Lock()
	for {
		anyChildren := false
		for _, pcb := range s.rt.PCBs() {
			if pcb.Parent != caller.pcb {
				continue
			}
			anyChildren = true
			if pcb.State == sched.StateZombie {
				reapedPid, reapedStatus := pcb.Pid, pcb.ExitStatus
				s.reapLocked(pcb)
				s.rt.Unlock()
				return reapedPid, reapedStatus, nil
			}
		}
		if !anyChildren {
			s.rt.Unlock()
			return 0, 0, &schederr.UserError{Op: "Wait", Message: "no children"}
		}
		caller.pcb.WaitChan = caller.pcb
		caller.pcb.State = sched.StateSleeping
		caller.switchOut()
		caller.pcb.WaitChan = nil
		s.rt.Lock()
	}
}

// reapLocked frees a zombie's kernel resources and returns its PCB
// slot to the free pool. Callers must hold the Ready Table lock.
func (s *System) reapLocked(pcb *PCB) {
	s.mu.Lock()
	if proc, ok := s.procs[pcb.Pid]; ok {
		proc.kstack.Free()
		delete(s.procs, pcb.Pid)
	}
	s.mu.Unlock()
	pcb.State = sched.StateUnused
	s.admission.Release(1)
}
