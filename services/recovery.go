package services

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/zedbingo/bingo-engine/utils/logger"
)

// RecoverStalledGames force-finishes games left in countdown or active
// with no live timer behind them. Run once at boot (a restart loses
// every in-memory timer) and periodically as an out-of-band safety net
// for games whose owning instance became unreachable.
func (e *Engine) RecoverStalledGames(ctx context.Context) error {
	games, err := e.games.ListUnfinished(ctx)
	if err != nil {
		return err
	}
	for _, g := range games {
		if e.scheduler.Running(g.ID) {
			continue
		}
		if rs := e.stateForGame(g.ID); rs != nil {
			// Known to this instance: a countdown timer may still be
			// armed, leave it alone.
			continue
		}
		ok, err := e.games.ForceFinish(ctx, g.ID)
		if err != nil {
			logger.Errorf("recovery: force-finish of game %d failed: %v", g.ID, err)
			continue
		}
		if ok {
			logger.Infof("recovery: game %d force-finished (was %s)", g.ID, g.Status)
			e.hub.Broadcast(g.RoomID, "game_finished", map[string]any{
				"game_id": g.ID,
				"winner":  nil,
				"reason":  "recovered",
			})
		}
	}
	return nil
}

// StartRecoveryCron schedules the periodic sweep. The returned cron is
// stopped on graceful shutdown.
func (e *Engine) StartRecoveryCron(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := e.RecoverStalledGames(context.Background()); err != nil {
			logger.Errorf("recovery sweep failed: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
