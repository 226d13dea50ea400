package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zedbingo/bingo-engine/models"
)

func TestRecoverStalledGames_ForceFinishesOrphans(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	// A game left active by a crashed instance: no scheduler, no room
	// state behind it.
	stalled := &models.Game{RoomID: 1, Status: models.StatusActive}
	require.NoError(t, f.games.Create(ctx, stalled))

	// Same for a countdown that lost its timer.
	orphanCountdown := &models.Game{RoomID: 2, Status: models.StatusCountdown}
	require.NoError(t, f.games.Create(ctx, orphanCountdown))

	require.NoError(t, f.engine.RecoverStalledGames(ctx))

	for _, id := range []uint{stalled.ID, orphanCountdown.ID} {
		g, err := f.games.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusFinished, g.Status)
		assert.Nil(t, g.WinnerID)
		assert.NotNil(t, g.EndedAt)
	}
	assert.Equal(t, 2, f.hub.count("game_finished"))
}

func TestRecoverStalledGames_SkipsLiveGames(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	// Active game with a live draw loop on this instance.
	drawing := &models.Game{RoomID: 1, Status: models.StatusActive}
	require.NoError(t, f.games.Create(ctx, drawing))
	require.NoError(t, f.scheduler.Start(drawing.ID, 1, time.Hour, nil))
	defer f.scheduler.Stop(drawing.ID)

	// Countdown owned by this instance's room state: its deadline
	// timer is still armed.
	room := f.addRoom(models.Room{Stake: 10, MinPlayers: 2, CountdownSec: 3600, CallIntervalSec: 3600})
	a := f.addUser(models.User{TelegramID: 1, CashBalance: 100})
	b := f.addUser(models.User{TelegramID: 2, CashBalance: 100})
	res, err := f.engine.Join(ctx, room.ID, UserRef{UserID: a.ID})
	require.NoError(t, err)
	_, err = f.engine.Join(ctx, room.ID, UserRef{UserID: b.ID})
	require.NoError(t, err)

	require.NoError(t, f.engine.RecoverStalledGames(ctx))

	g, _ := f.games.GetByID(ctx, drawing.ID)
	assert.Equal(t, models.StatusActive, g.Status, "a game with a running draw loop is not stalled")

	g, _ = f.games.GetByID(ctx, res.GameID)
	assert.Equal(t, models.StatusCountdown, g.Status, "a countdown this instance still times is not stalled")
	assert.Equal(t, 0, f.hub.count("game_finished"))
}

func TestRecoverStalledGames_IgnoresFinishedAndWaiting(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	done := &models.Game{RoomID: 1, Status: models.StatusFinished}
	require.NoError(t, f.games.Create(ctx, done))
	open := &models.Game{RoomID: 2, Status: models.StatusWaiting}
	require.NoError(t, f.games.Create(ctx, open))

	require.NoError(t, f.engine.RecoverStalledGames(ctx))

	g, _ := f.games.GetByID(ctx, done.ID)
	assert.Equal(t, models.StatusFinished, g.Status)
	g, _ = f.games.GetByID(ctx, open.ID)
	assert.Equal(t, models.StatusWaiting, g.Status)
	assert.Equal(t, 0, f.hub.count("game_finished"))
}
