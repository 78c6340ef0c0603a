package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmbatrina/go-rsdl/sched/obslog"
)

func newTestTable(t *testing.T, opts ...Option) *ReadyTable {
	t.Helper()
	base := []Option{WithLogger(obslog.Discard())}
	return New(append(base, opts...)...)
}

func TestNew_HaltsOnInvalidConfig(t *testing.T) {
	assert.Panics(t, func() { New(WithLevels(0)) })
	assert.Panics(t, func() { New(WithCapacity(0)) })
	assert.Panics(t, func() { New(WithProcessQuantum(0)) })
	assert.Panics(t, func() { New(WithLevelQuantum(0)) })
	assert.Panics(t, func() { New(WithDefaultHome(-1)) })
	assert.Panics(t, func() { New(WithLevels(2), WithDefaultHome(2)) })
}

func TestReadyTable_Allocate_AssignsMonotonicPidsAndResets(t *testing.T) {
	rt := newTestTable(t, WithCapacity(2))
	rt.Lock()
	defer rt.Unlock()

	a, err := rt.Allocate()
	require.NoError(t, err)
	assert.Equal(t, 1, a.Pid)
	assert.Equal(t, StateEmbryo, a.State)

	b, err := rt.Allocate()
	require.NoError(t, err)
	assert.Equal(t, 2, b.Pid)

	_, err = rt.Allocate()
	assert.Error(t, err)
}

func TestReadyTable_FindAvailableQueue_PrefersActiveThenExpired(t *testing.T) {
	rt := newTestTable(t, WithLevels(2), WithCapacity(4), WithLevelQuantum(3))
	rt.Lock()
	defer rt.Unlock()

	q := rt.FindAvailableQueue(0, 0)
	assert.Same(t, rt.Active().level(0), q)

	rt.Active().level(0).SetLevelTicks(0)
	q = rt.FindAvailableQueue(0, 0)
	assert.Same(t, rt.Active().level(1), q)
}

func TestReadyTable_FindAvailableQueue_FallsBackToExpired(t *testing.T) {
	rt := newTestTable(t, WithLevels(1), WithCapacity(4))
	rt.Lock()
	defer rt.Unlock()

	rt.Active().level(0).SetLevelTicks(0)
	q := rt.FindAvailableQueue(0, 0)
	assert.Same(t, rt.Expired().level(0), q)
}

func TestReadyTable_FindAvailableQueue_HaltsWhenOversubscribed(t *testing.T) {
	rt := newTestTable(t, WithLevels(1), WithCapacity(1))
	rt.Lock()
	defer rt.Unlock()

	rt.Active().level(0).Enqueue(&PCB{Pid: 1})
	rt.Expired().level(0).Enqueue(&PCB{Pid: 2})
	assert.Panics(t, func() { rt.FindAvailableQueue(0, 0) })
}

func TestReadyTable_Select_SkipsNonRunnableAndScansNextLevel(t *testing.T) {
	rt := newTestTable(t, WithLevels(2), WithCapacity(4), WithProcessQuantum(5))
	rt.Lock()
	defer rt.Unlock()

	sleeping, err := rt.Allocate()
	require.NoError(t, err)
	sleeping.State = StateSleeping
	rt.Active().level(0).Enqueue(sleeping)

	runnable, err := rt.Allocate()
	require.NoError(t, err)
	runnable.State = StateRunnable
	rt.Active().level(1).Enqueue(runnable)

	pcb, q, ok := rt.Select()
	require.True(t, ok)
	assert.Same(t, runnable, pcb)
	assert.Same(t, rt.Active().level(1), q)
}

func TestReadyTable_Select_SkipsLevelWithoutTicks(t *testing.T) {
	rt := newTestTable(t, WithLevels(2), WithCapacity(4), WithProcessQuantum(5))
	rt.Lock()
	defer rt.Unlock()

	pcb, err := rt.Allocate()
	require.NoError(t, err)
	pcb.State = StateRunnable
	rt.Active().level(0).Enqueue(pcb)
	rt.Active().level(0).SetLevelTicks(0)

	_, _, ok := rt.Select()
	assert.False(t, ok)
}
