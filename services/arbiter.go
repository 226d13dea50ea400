package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/zedbingo/bingo-engine/game"
	"github.com/zedbingo/bingo-engine/models"
	"github.com/zedbingo/bingo-engine/utils/logger"
)

// ClaimResult is returned for every claim, won or lost. When the game
// was already decided it carries the true winner's identity, card and
// pattern so the caller can render the result without a follow-up
// query.
type ClaimResult struct {
	Won            bool         `json:"won"`
	GameID         uint         `json:"game_id"`
	WinnerID       uint         `json:"winner_id,omitempty"`
	WinnerName     string       `json:"winner_name,omitempty"`
	WinningCard    *game.Grid   `json:"winning_card,omitempty"`
	WinningPattern game.Pattern `json:"winning_pattern,omitempty"`
	NetPrize       float64      `json:"net_prize,omitempty"`
}

// Claim arbitrates a win claim. The stored card and marking are the
// authoritative inputs; the client's local win determination is never
// trusted. The decisive step is the conditional winner write: of any
// number of concurrent valid claims exactly one wins, and the rest get
// ErrAlreadyFinished together with the actual winner.
func (e *Engine) Claim(ctx context.Context, gameID uint, ref UserRef) (*ClaimResult, error) {
	user, err := e.ResolveUser(ctx, ref)
	if err != nil {
		return nil, err
	}

	g, err := e.games.GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGameNotFound
	}

	switch g.Status {
	case models.StatusFinished:
		return e.lostResult(ctx, g), ErrAlreadyFinished
	case models.StatusActive:
		// proceed
	default:
		return nil, ErrGameNotActive
	}

	rs := e.stateForGame(gameID)
	if rs == nil {
		// State already torn down: a concurrent claim may have just
		// decided the game.
		return e.decidedOrNotFound(ctx, gameID)
	}
	rs.mu.Lock()
	_, isPlayer := rs.players[user.ID]
	roomID := rs.room.ID
	commission := rs.room.CommissionRate
	rs.mu.Unlock()
	if !isPlayer {
		if res, err := e.decidedOrNotFound(ctx, gameID); errors.Is(err, ErrAlreadyFinished) {
			return res, err
		}
		return nil, ErrNotParticipant
	}

	card, err := e.cards.GetByGameAndUser(ctx, gameID, user.ID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrNotParticipant
	}
	grid, err := card.GridValue()
	if err != nil {
		return nil, err
	}
	marks, err := card.MarksValue()
	if err != nil {
		return nil, err
	}

	winning, pattern := game.IsWinningMarking(grid, marks, g.CalledList())
	if !winning {
		logger.Infof("game %d: claim by user %d rejected, card not winning", gameID, user.ID)
		return nil, ErrInvalidClaim
	}

	// Membership is re-checked under the room lock and the lock is
	// held across the conditional write, so a Leave that lands after
	// the earlier check cannot let a departed player win the race.
	rs.mu.Lock()
	if _, still := rs.players[user.ID]; !still {
		rs.mu.Unlock()
		if res, err := e.decidedOrNotFound(ctx, gameID); errors.Is(err, ErrAlreadyFinished) {
			return res, err
		}
		return nil, ErrNotParticipant
	}
	ok, err := e.games.SetWinnerIfActive(ctx, gameID, user.ID, card.Grid, string(pattern))
	rs.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		// Another claim won the race; report the real outcome.
		decided, err := e.games.GetByID(ctx, gameID)
		if err != nil {
			return nil, err
		}
		if decided == nil {
			return nil, ErrGameNotFound
		}
		return e.lostResult(ctx, decided), ErrAlreadyFinished
	}

	// Winner path: stop the draw loop in the same step that committed
	// the terminal write, then settle the prize.
	e.scheduler.Stop(gameID)

	net, err := e.wallet.CreditPrize(ctx, gameID, user.ID, g.PrizePool, commission)
	if err != nil {
		logger.Errorf("game %d: prize credit for winner %d failed: %v", gameID, user.ID, err)
	}

	e.hub.Broadcast(roomID, "game_finished", map[string]any{
		"game_id":         gameID,
		"winner_id":       user.ID,
		"winner_name":     user.Name,
		"winning_card":    grid,
		"winning_pattern": pattern,
		"net_prize":       net,
	})

	rs.mu.Lock()
	e.clearGameLocked(rs)
	rs.mu.Unlock()

	logger.Infof("game %d: user %d won with %s, prize %.2f", gameID, user.ID, pattern, net)
	return &ClaimResult{
		Won:            true,
		GameID:         gameID,
		WinnerID:       user.ID,
		WinnerName:     user.Name,
		WinningCard:    &grid,
		WinningPattern: pattern,
		NetPrize:       net,
	}, nil
}

// decidedOrNotFound distinguishes a game that finished under the
// caller from one that never existed.
func (e *Engine) decidedOrNotFound(ctx context.Context, gameID uint) (*ClaimResult, error) {
	g, err := e.games.GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGameNotFound
	}
	if g.Status == models.StatusFinished {
		return e.lostResult(ctx, g), ErrAlreadyFinished
	}
	return nil, ErrGameNotFound
}

// lostResult assembles the loss outcome from a decided game row.
func (e *Engine) lostResult(ctx context.Context, g *models.Game) *ClaimResult {
	res := &ClaimResult{GameID: g.ID}
	if g.WinnerID == nil {
		return res
	}
	res.WinnerID = *g.WinnerID
	res.WinningPattern = game.Pattern(g.WinningPattern)
	if len(g.WinningCard) > 0 {
		var grid game.Grid
		if err := json.Unmarshal(g.WinningCard, &grid); err == nil {
			res.WinningCard = &grid
		}
	}
	if winner, err := e.users.GetByID(ctx, *g.WinnerID); err == nil && winner != nil {
		res.WinnerName = winner.Name
	}
	return res
}
