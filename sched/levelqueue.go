package sched

import (
	"sync"

	"github.com/jmbatrina/go-rsdl/sched/schederr"
)

// UnqueueMode selects the failure behavior of LevelQueue.Unqueue when
// the target PCB is not present, per spec.md §4.2.
type UnqueueMode int

const (
	// Strict halts on a miss: the caller believes the PCB must be
	// present.
	Strict UnqueueMode = iota
	// Try returns notFound on a miss, for callers probing membership
	// (e.g. exit() removing itself from the queue its PCB records).
	Try
)

// LevelQueue is a bounded FIFO of PCB references for a single priority
// level, per spec.md §4.2. Capacity is fixed at construction to the
// process table size N, so that, per spec.md §9, find_available_queue
// can in principle always succeed while total process count ≤ N.
type LevelQueue struct {
	mu sync.Mutex

	index    int
	elements []*PCB
	numproc  int

	// levelTicks is the collective budget this level may consume while
	// in the active staircase, per spec.md §3 invariant I4.
	levelTicks int
}

func newLevelQueue(index, capacity, qL int) *LevelQueue {
	return &LevelQueue{
		index:      index,
		elements:   make([]*PCB, capacity),
		levelTicks: qL,
	}
}

// Index is this queue's level number within its staircase.
func (q *LevelQueue) Index() int { return q.index }

// NumProc returns the current occupancy.
func (q *LevelQueue) NumProc() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.numproc
}

// Capacity returns the fixed capacity N.
func (q *LevelQueue) Capacity() int {
	return len(q.elements)
}

// HasTicks reports whether this level still has collective budget.
func (q *LevelQueue) HasTicks() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.levelTicks > 0
}

// LevelTicks returns the current collective tick budget.
func (q *LevelQueue) LevelTicks() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.levelTicks
}

// SetLevelTicks refreshes the collective tick budget, e.g. to Q_L on
// rotation.
func (q *LevelQueue) SetLevelTicks(v int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.levelTicks = v
}

// decLevelTicks decrements the collective budget by one, clamped at
// zero, and reports whether it reached zero. Used only by the Quantum
// Accountant (spec.md §4.3).
func (q *LevelQueue) decLevelTicks() (exhausted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.levelTicks > 0 {
		q.levelTicks--
	}
	return q.levelTicks == 0
}

// Enqueue appends pcb at the tail. It is fatal for the queue to be
// full or for pcb to be nil, per spec.md §4.2 and §7.
func (q *LevelQueue) Enqueue(pcb *PCB) {
	if pcb == nil {
		schederr.Halt("LevelQueue.Enqueue", "nil pcb", q)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.numproc >= len(q.elements) {
		schederr.Halt("LevelQueue.Enqueue", "queue full", q)
	}
	q.elements[q.numproc] = pcb
	q.numproc++
	pcb.queue = q
}

// notFoundSentinel is returned by Unqueue in Try mode on a miss.
var notFoundSentinel = -1

// Unqueue searches linearly for pcb, and on a hit shifts succeeding
// elements toward the head, preserving the FIFO order of survivors,
// and returns the pre-removal index. On a miss, Strict halts and Try
// returns notFoundSentinel.
func (q *LevelQueue) Unqueue(pcb *PCB, mode UnqueueMode) int {
	if pcb == nil {
		schederr.Halt("LevelQueue.Unqueue", "nil pcb", q)
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := -1
	for i := 0; i < q.numproc; i++ {
		if q.elements[i] == pcb {
			idx = i
			break
		}
	}
	if idx < 0 {
		if mode == Strict {
			schederr.Halt("LevelQueue.Unqueue", "pcb not present", struct {
				Queue *LevelQueue
				PCB   *PCB
			}{q, pcb})
		}
		return notFoundSentinel
	}

	for i := idx; i < q.numproc-1; i++ {
		q.elements[i] = q.elements[i+1]
	}
	q.elements[q.numproc-1] = nil
	q.numproc--
	pcb.queue = nil
	return idx
}

// PeekHead returns the first element, or nil if the queue is empty.
func (q *LevelQueue) PeekHead() *PCB {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.numproc == 0 {
		return nil
	}
	return q.elements[0]
}

// Snapshot returns a copy of the current FIFO contents, in order. Used
// by the Demotion Policy's mass-demotion case, which must observe a
// consistent view before individually re-homing each member.
func (q *LevelQueue) Snapshot() []*PCB {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*PCB, q.numproc)
	copy(out, q.elements[:q.numproc])
	return out
}
