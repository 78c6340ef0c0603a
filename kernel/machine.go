package kernel

import (
	"context"
	"sync"
	"time"

	"github.com/jmbatrina/go-rsdl/sched"
)

// CPU is a single simulated processor: a goroutine running the
// Dispatcher Loop of spec.md §4.5, plus a lock-protected pointer to
// whichever Proc it is currently running, answering spec.md §5's "am I
// the process I think I am" query.
type CPU struct {
	id int

	mu      sync.Mutex
	current *Proc
}

// ID is this CPU's index within its Machine, in [0, NCPU).
func (c *CPU) ID() int { return c.id }

// Current returns the Proc this CPU is currently dispatching, or nil
// if it is idle (between a rotation and the next selection).
func (c *CPU) Current() *Proc {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *CPU) setCurrent(p *Proc) {
	c.mu.Lock()
	c.current = p
	c.mu.Unlock()
}

// idleBackoff bounds how long a CPU sleeps between rotations that find
// nothing runnable, so an idle Machine does not spin its host CPUs at
// 100%. It has no bearing on simulated scheduler ticks, which are
// driven entirely by explicit Proc.Tick calls from workloads.
const idleBackoff = time.Millisecond

// Machine owns the fixed set of simulated CPUs that run a System's
// Dispatcher Loop, per spec.md §4.5 and §5. Each CPU is an independent
// goroutine; all of them contend for the same System's Ready Table
// lock, exactly as spec.md §5 describes multiple real CPUs doing.
type Machine struct {
	sys  *System
	cpus []*CPU

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewMachine builds a Machine with ncpu simulated processors around
// sys. Start must be called before any process created on sys can
// actually run.
func NewMachine(sys *System, ncpu int) *Machine {
	if ncpu < 1 {
		ncpu = 1
	}
	cpus := make([]*CPU, ncpu)
	for i := range cpus {
		cpus[i] = &CPU{id: i}
	}
	return &Machine{sys: sys, cpus: cpus}
}

// CPUs returns the Machine's simulated processors.
func (m *Machine) CPUs() []*CPU { return m.cpus }

// Start launches one Dispatcher Loop goroutine per CPU. It returns
// immediately; the loops run until ctx is done or Stop is called.
func (m *Machine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	for _, cpu := range m.cpus {
		cpu := cpu
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.dispatcherLoop(ctx, cpu)
		}()
	}
}

// Stop signals every Dispatcher Loop to exit and waits for them to
// finish. A Machine that has been stopped must not be started again;
// build a new one instead.
func (m *Machine) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// dispatcherLoop is spec.md §4.5's algorithm, verbatim:
//
//  1. Acquire the Ready Table lock.
//  2. Run the selection scan (sched.ReadyTable.Select).
//  3. If a candidate is found, mark it running and perform a context
//     switch; on return, apply the Demotion Policy (§4.4) to whichever
//     level it was drawn from.
//  4. If no candidate is found, perform the active/expired rotation
//     (§4.4).
//  5. Release the Ready Table lock.
//
// This repeats until ctx is canceled.
func (m *Machine) dispatcherLoop(ctx context.Context, cpu *CPU) {
	for {
		if ctx.Err() != nil {
			return
		}

		m.sys.rt.Lock()
		pcb, queue, ok := m.sys.rt.Select()
		if !ok {
			m.sys.rt.Rotate()
			m.sys.rt.Unlock()
			select {
			case <-ctx.Done():
				return
			case <-time.After(idleBackoff):
			}
			continue
		}

		pcb.State = sched.StateRunning
		proc, _ := pcb.Payload.(*Proc)
		proc.currentQueue = queue
		cpu.setCurrent(proc)

		// Hand off, still holding the Ready Table lock: the process
		// goroutine releases it on the other side of this channel
		// send, at first_return or at the tail of its own
		// sleep/yield/tick call, and reacquires it before signaling
		// back on yield (see proc.go's switchOut).
		proc.resume <- struct{}{}
		<-proc.yield

		cpu.setCurrent(nil)
		// The lock is held again at this point: either the process
		// never released it (it went straight from running to
		// exiting without an intervening switchOut, impossible by
		// construction) or it reacquired it in switchOut/exit before
		// signaling yield.
		if pcb.State != sched.StateZombie {
			m.sys.rt.Demote(pcb, queue, queue.Index())
		}
		m.sys.rt.Unlock()
	}
}
