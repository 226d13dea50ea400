package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zedbingo/bingo-engine/models"
)

func newActiveGame(t *testing.T, games *memGameRepo, roomID uint) *models.Game {
	t.Helper()
	g := &models.Game{
		RoomID:        roomID,
		Status:        models.StatusActive,
		CalledNumbers: models.IntsJSON([]int{}),
	}
	require.NoError(t, games.Create(context.Background(), g))
	return g
}

func TestScheduler_ExhaustsPoolWithoutDuplicates(t *testing.T) {
	f := newTestFixture()
	g := newActiveGame(t, f.games, 1)

	done := make(chan bool, 1)
	err := f.scheduler.Start(g.ID, 1, time.Millisecond, func(_ uint, exhausted bool) {
		done <- exhausted
	})
	require.NoError(t, err)

	select {
	case exhausted := <-done:
		assert.True(t, exhausted)
	case <-time.After(10 * time.Second):
		t.Fatal("scheduler did not exhaust the pool in time")
	}

	stored, err := f.games.GetByID(context.Background(), g.ID)
	require.NoError(t, err)
	called := stored.CalledList()
	assert.Len(t, called, 75)

	seen := make(map[int]bool, len(called))
	for _, n := range called {
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 75)
		assert.False(t, seen[n], "number %d called twice", n)
		seen[n] = true
	}
	assert.False(t, f.scheduler.Running(g.ID))
}

func TestScheduler_DuplicateStartRejected(t *testing.T) {
	f := newTestFixture()
	g := newActiveGame(t, f.games, 1)

	require.NoError(t, f.scheduler.Start(g.ID, 1, time.Hour, nil))
	err := f.scheduler.Start(g.ID, 1, time.Hour, nil)
	assert.ErrorIs(t, err, ErrSchedulerAlreadyRunning)

	f.scheduler.Stop(g.ID)
}

func TestScheduler_StopCancelsLoop(t *testing.T) {
	f := newTestFixture()
	g := newActiveGame(t, f.games, 1)

	called := make(chan bool, 1)
	require.NoError(t, f.scheduler.Start(g.ID, 1, time.Hour, func(uint, bool) {
		called <- true
	}))
	require.True(t, f.scheduler.Running(g.ID))

	f.scheduler.Stop(g.ID)

	assert.Eventually(t, func() bool {
		return !f.scheduler.Running(g.ID)
	}, time.Second, 5*time.Millisecond)

	select {
	case <-called:
		t.Fatal("onDone fired for a cancelled loop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScheduler_StopsWhenGameLeavesActive(t *testing.T) {
	f := newTestFixture()
	g := newActiveGame(t, f.games, 1)

	done := make(chan bool, 1)
	require.NoError(t, f.scheduler.Start(g.ID, 1, 2*time.Millisecond, func(_ uint, exhausted bool) {
		done <- exhausted
	}))

	// Simulate the arbiter deciding the game mid-draw.
	_, err := f.games.SetWinnerIfActive(context.Background(), g.ID, 42, models.IntsJSON(nil), "row-0")
	require.NoError(t, err)

	select {
	case exhausted := <-done:
		assert.False(t, exhausted)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler kept running after terminal transition")
	}
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	f := newTestFixture()

	// Unknown game, already-stopped game: both are no-ops.
	f.scheduler.Stop(12345)
	f.scheduler.Stop(12345)
	assert.False(t, f.scheduler.Running(12345))
}

func TestEngine_StopCallingOnFinishedGame(t *testing.T) {
	f := newTestFixture()
	g := &models.Game{RoomID: 1, Status: models.StatusFinished}
	require.NoError(t, f.games.Create(context.Background(), g))

	// Safe on a game whose scheduler never ran and never will.
	f.engine.StopCalling(g.ID)

	stored, err := f.games.GetByID(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, stored.Status)
	assert.False(t, f.scheduler.Running(g.ID))
}
