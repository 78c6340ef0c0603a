package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmbatrina/go-rsdl/sched/obslog"
)

func newDemotionTable(t *testing.T, levels, capacity, qp, ql int) *ReadyTable {
	t.Helper()
	return New(
		WithLogger(obslog.Discard()),
		WithLevels(levels),
		WithCapacity(capacity),
		WithProcessQuantum(qp),
		WithLevelQuantum(ql),
	)
}

// TestDemote_CaseB_VoluntaryYieldStaysAtSameLevel covers spec.md §4.4's
// Case B when the process still has personal budget: it returns to the
// tail of the same level.
func TestDemote_CaseB_VoluntaryYieldStaysAtSameLevel(t *testing.T) {
	rt := newDemotionTable(t, 3, 8, 5, 30)
	rt.Lock()
	defer rt.Unlock()

	p, err := rt.Allocate()
	require.NoError(t, err)
	p.State = StateRunnable
	p.SetTicksLeft(3)
	q := rt.Active().level(1)
	q.Enqueue(p)

	rt.Demote(p, q, 1)

	assert.Same(t, q, p.Queue())
	assert.Equal(t, 3, p.TicksLeft())
}

// TestDemote_CaseB_PersonalQuantumExhaustedDropsOneLevel covers the
// refresh-and-drop branch of Case B.
func TestDemote_CaseB_PersonalQuantumExhaustedDropsOneLevel(t *testing.T) {
	rt := newDemotionTable(t, 3, 8, 5, 30)
	rt.Lock()
	defer rt.Unlock()

	p, err := rt.Allocate()
	require.NoError(t, err)
	p.State = StateRunnable
	p.SetTicksLeft(0)
	q := rt.Active().level(0)
	q.Enqueue(p)

	rt.Demote(p, q, 0)

	assert.Same(t, rt.Active().level(1), p.Queue())
	assert.Equal(t, 5, p.TicksLeft())
}

// TestDemote_CaseB_SleepingProcessLeftInPlace covers the early-return
// branch: a process that blocked mid-slice is not moved.
func TestDemote_CaseB_SleepingProcessLeftInPlace(t *testing.T) {
	rt := newDemotionTable(t, 2, 8, 5, 30)
	rt.Lock()
	defer rt.Unlock()

	p, err := rt.Allocate()
	require.NoError(t, err)
	p.State = StateSleeping
	p.SetTicksLeft(2)
	q := rt.Active().level(0)
	q.Enqueue(p)

	rt.Demote(p, q, 0)

	assert.Same(t, q, p.Queue())
	assert.Equal(t, StateSleeping, p.State)
}

// TestDemote_CaseA_MigratesEveryoneWithPCBLast covers level-budget
// exhaustion: the whole level empties out, refreshed to Q_P, the
// triggering pcb trailing the rest in FIFO order.
func TestDemote_CaseA_MigratesEveryoneWithPCBLast(t *testing.T) {
	rt := newDemotionTable(t, 3, 8, 5, 30)
	rt.Lock()
	defer rt.Unlock()

	q := rt.Active().level(0)
	var members []*PCB
	for i := 0; i < 3; i++ {
		p, err := rt.Allocate()
		require.NoError(t, err)
		p.State = StateRunnable
		p.SetTicksLeft(1)
		p.HomeLevel = 0
		q.Enqueue(p)
		members = append(members, p)
	}
	q.SetLevelTicks(0)
	trigger := members[1]

	rt.Demote(trigger, q, 0)

	assert.Equal(t, 0, q.NumProc())
	dest := rt.Active().level(1)
	assert.Equal(t, 3, dest.NumProc())
	snapshot := dest.Snapshot()
	assert.Same(t, trigger, snapshot[len(snapshot)-1])
	for _, p := range snapshot {
		assert.Equal(t, 5, p.TicksLeft())
	}
}

// TestDemote_CaseA_SkipsAlreadyExitedZombies covers exit() racing a
// level-wide demotion: a zombie member still present in the source
// queue is skipped, not migrated, while the live member moves down.
func TestDemote_CaseA_SkipsAlreadyExitedZombies(t *testing.T) {
	rt := newDemotionTable(t, 2, 8, 5, 30)
	rt.Lock()
	defer rt.Unlock()

	q := rt.Active().level(0)
	zombie, err := rt.Allocate()
	require.NoError(t, err)
	zombie.State = StateZombie
	q.Enqueue(zombie)

	survivor, err := rt.Allocate()
	require.NoError(t, err)
	survivor.State = StateRunnable
	survivor.SetTicksLeft(1)
	q.Enqueue(survivor)
	q.SetLevelTicks(0)

	assert.NotPanics(t, func() { rt.Demote(survivor, q, 0) })
	assert.Same(t, q, zombie.Queue())
	assert.Same(t, rt.Active().level(1), survivor.Queue())
}

// TestRotate_RehomesExpiredMembersAndResetsBudgets covers spec.md
// §4.4's rotation: the staircase that was active (now expired by the
// swap) drains into the new active staircase at each member's home
// level, and is itself reset to Q_L.
func TestRotate_RehomesExpiredMembersAndResetsBudgets(t *testing.T) {
	rt := newDemotionTable(t, 3, 8, 5, 7)
	rt.Lock()
	defer rt.Unlock()

	oldActive := rt.Active()
	oldExpired := rt.Expired()

	p, err := rt.Allocate()
	require.NoError(t, err)
	p.State = StateRunnable
	p.HomeLevel = 2
	p.SetTicksLeft(0)
	oldActive.level(2).Enqueue(p)
	oldActive.level(2).SetLevelTicks(0)

	rt.Rotate()

	assert.Same(t, oldExpired, rt.Active())
	assert.Same(t, oldActive, rt.Expired())
	assert.Equal(t, rt.Active().level(2), p.Queue())
	assert.Equal(t, 5, p.TicksLeft())
	assert.Equal(t, 7, rt.Expired().level(2).LevelTicks())
}

// TestRotate_RehomesSleeperWithoutChangingState covers a sleeping
// member: it is still physically present in the queue being drained,
// so it is re-homed into the new active staircase like any other
// member, and its state stays sleeping.
func TestRotate_RehomesSleeperWithoutChangingState(t *testing.T) {
	rt := newDemotionTable(t, 2, 8, 5, 7)
	rt.Lock()
	defer rt.Unlock()

	oldActive := rt.Active()
	sleeper, err := rt.Allocate()
	require.NoError(t, err)
	sleeper.State = StateSleeping
	sleeper.HomeLevel = 0
	oldActive.level(0).Enqueue(sleeper)

	rt.Rotate()

	assert.Equal(t, StateSleeping, sleeper.State)
	assert.Same(t, rt.Active().level(0), sleeper.Queue())
}
