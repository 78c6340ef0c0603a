package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelQueue_EnqueueUnqueue_PreservesFIFOOrder(t *testing.T) {
	q := newLevelQueue(0, 4, 10)
	a, b, c := &PCB{Pid: 1}, &PCB{Pid: 2}, &PCB{Pid: 3}
	q.Enqueue(a)
	q.Enqueue(b)
	q.Enqueue(c)
	require.Equal(t, 3, q.NumProc())

	idx := q.Unqueue(b, Strict)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 2, q.NumProc())

	assert.Same(t, a, q.PeekHead())
	assert.Equal(t, []*PCB{a, c}, q.Snapshot())
	assert.Nil(t, b.Queue())
	assert.Same(t, q, a.Queue())
}

func TestLevelQueue_Unqueue_TryModeReturnsSentinelOnMiss(t *testing.T) {
	q := newLevelQueue(0, 4, 10)
	foreign := &PCB{Pid: 99}
	assert.Equal(t, notFoundSentinel, q.Unqueue(foreign, Try))
}

func TestLevelQueue_Unqueue_StrictModeHaltsOnMiss(t *testing.T) {
	q := newLevelQueue(0, 4, 10)
	foreign := &PCB{Pid: 99}
	assert.Panics(t, func() { q.Unqueue(foreign, Strict) })
}

func TestLevelQueue_Enqueue_HaltsWhenFull(t *testing.T) {
	q := newLevelQueue(0, 1, 10)
	q.Enqueue(&PCB{Pid: 1})
	assert.Panics(t, func() { q.Enqueue(&PCB{Pid: 2}) })
}

func TestLevelQueue_Enqueue_HaltsOnNil(t *testing.T) {
	q := newLevelQueue(0, 1, 10)
	assert.Panics(t, func() { q.Enqueue(nil) })
}

func TestLevelQueue_DecLevelTicks_ClampsAtZero(t *testing.T) {
	q := newLevelQueue(0, 1, 1)
	assert.True(t, q.HasTicks())
	assert.True(t, q.decLevelTicks())
	assert.False(t, q.HasTicks())
	assert.True(t, q.decLevelTicks())
	assert.Equal(t, 0, q.LevelTicks())
}
