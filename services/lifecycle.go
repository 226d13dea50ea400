package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zedbingo/bingo-engine/game"
	"github.com/zedbingo/bingo-engine/models"
	"github.com/zedbingo/bingo-engine/utils/logger"
)

// Fallbacks for rooms configured without explicit timings.
const (
	DefaultCountdownSec    = 60
	DefaultCallIntervalSec = 3
	DefaultMinPlayers      = 2
)

// Engine drives every room's game lifecycle: roster admission,
// countdown, activation with stake settlement and card dealing, the
// draw phase, and the finish. All cross-request coordination for one
// room goes through that room's state mutex; all terminal transitions
// additionally go through conditional writes in the game repository.
type Engine struct {
	games GameRepository
	users UserRepository
	cards CardRepository
	rooms RoomRepository

	wallet    *WalletService
	scheduler *Scheduler
	hub       Broadcaster

	mu     sync.Mutex
	states map[uint]*roomState // keyed by room id
	byGame map[uint]uint       // game id -> room id
}

// roomState is the in-memory side of one room's open game.
type roomState struct {
	mu   sync.Mutex
	room models.Room

	gameID     uint
	players    map[uint]*participant
	spectators map[uint]bool

	countdownCancel chan struct{}
}

type participant struct {
	user      userRecord
	preferred models.BalanceSource
	charged   bool
	source    models.BalanceSource
	cardID    uint
}

func NewEngine(games GameRepository, users UserRepository, cards CardRepository, rooms RoomRepository, wallet *WalletService, scheduler *Scheduler, hub Broadcaster) *Engine {
	return &Engine{
		games:     games,
		users:     users,
		cards:     cards,
		rooms:     rooms,
		wallet:    wallet,
		scheduler: scheduler,
		hub:       hub,
		states:    make(map[uint]*roomState),
		byGame:    make(map[uint]uint),
	}
}

func (e *Engine) stateForRoom(room *models.Room) *roomState {
	e.mu.Lock()
	defer e.mu.Unlock()
	rs, ok := e.states[room.ID]
	if !ok {
		rs = &roomState{
			room:       *room,
			players:    make(map[uint]*participant),
			spectators: make(map[uint]bool),
		}
		e.states[room.ID] = rs
	}
	return rs
}

// CurrentGameID reports the room's open game, zero when none. Socket
// messages that omit a game id resolve through this at receive time,
// so a round rollover never leaves a subscriber acting on the
// finished game.
func (e *Engine) CurrentGameID(roomID uint) uint {
	e.mu.Lock()
	rs := e.states[roomID]
	e.mu.Unlock()
	if rs == nil {
		return 0
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.gameID
}

func (e *Engine) stateForGame(gameID uint) *roomState {
	e.mu.Lock()
	defer e.mu.Unlock()
	roomID, ok := e.byGame[gameID]
	if !ok {
		return nil
	}
	return e.states[roomID]
}

// JoinResult tells the caller what happened to their join request.
type JoinResult struct {
	GameID uint   `json:"game_id"`
	Action string `json:"action"` // join | spectate | already_joined_active
}

const (
	ActionJoin                = "join"
	ActionSpectate            = "spectate"
	ActionAlreadyJoinedActive = "already_joined_active"
)

// Join admits a player to the room's open game, creating one if none
// exists. While the game is waiting or in countdown the join is a
// roster add (idempotent for an existing participant). Once active,
// an existing participant is reattached as a player (a page refresh
// must not demote them to observer) and anyone else becomes a
// spectator.
func (e *Engine) Join(ctx context.Context, roomID uint, ref UserRef) (*JoinResult, error) {
	room, err := e.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	user, err := e.ResolveUser(ctx, ref)
	if err != nil {
		return nil, err
	}

	rs := e.stateForRoom(room)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	g, err := e.openGameLocked(ctx, rs)
	if err != nil {
		return nil, err
	}

	switch g.Status {
	case models.StatusWaiting, models.StatusCountdown:
		if _, ok := rs.players[user.ID]; ok {
			return &JoinResult{GameID: g.ID, Action: ActionJoin}, nil
		}
		if len(rs.players) >= rs.maxPlayers() {
			return nil, ErrRoomFull
		}
		rs.players[user.ID] = &participant{user: *user}
		if err := e.saveRosterLocked(ctx, rs, g.ID); err != nil {
			delete(rs.players, user.ID)
			return nil, err
		}
		logger.Infof("room %d: user %d joined game %d (%d/%d)", rs.room.ID, user.ID, g.ID, len(rs.players), rs.minPlayers())
		e.hub.Broadcast(rs.room.ID, "roster_updated", e.rosterPayloadLocked(rs, g.ID))

		if g.Status == models.StatusWaiting && len(rs.players) >= rs.minPlayers() {
			e.startCountdownLocked(ctx, rs, g.ID)
		}
		return &JoinResult{GameID: g.ID, Action: ActionJoin}, nil

	case models.StatusActive:
		if _, ok := rs.players[user.ID]; ok {
			return &JoinResult{GameID: g.ID, Action: ActionAlreadyJoinedActive}, nil
		}
		rs.spectators[user.ID] = true
		return &JoinResult{GameID: g.ID, Action: ActionSpectate}, nil
	}

	return nil, ErrJoinClosed
}

// openGameLocked returns the room's open game, creating a fresh
// waiting game when the previous one finished or none exists yet.
func (e *Engine) openGameLocked(ctx context.Context, rs *roomState) (*models.Game, error) {
	if rs.gameID != 0 {
		g, err := e.games.GetByID(ctx, rs.gameID)
		if err != nil {
			return nil, err
		}
		if g != nil && g.Status != models.StatusFinished {
			return g, nil
		}
		e.clearGameLocked(rs)
	}

	round, err := e.games.LastRoundNumber(ctx, rs.room.ID)
	if err != nil {
		return nil, err
	}
	g := &models.Game{
		UUID:          uuid.NewString(),
		RoomID:        rs.room.ID,
		RoundNumber:   round + 1,
		Status:        models.StatusWaiting,
		CalledNumbers: models.IntsJSON([]int{}),
		Players:       models.UintsJSON(nil),
		Bots:          models.UintsJSON(nil),
	}
	if err := e.games.Create(ctx, g); err != nil {
		return nil, err
	}
	rs.gameID = g.ID
	rs.players = make(map[uint]*participant)
	rs.spectators = make(map[uint]bool)

	e.mu.Lock()
	e.byGame[g.ID] = rs.room.ID
	e.mu.Unlock()

	logger.Infof("room %d: opened game %d (round %d)", rs.room.ID, g.ID, g.RoundNumber)
	return g, nil
}

func (e *Engine) clearGameLocked(rs *roomState) {
	if rs.gameID != 0 {
		e.mu.Lock()
		delete(e.byGame, rs.gameID)
		e.mu.Unlock()
	}
	rs.gameID = 0
	rs.players = make(map[uint]*participant)
	rs.spectators = make(map[uint]bool)
	rs.countdownCancel = nil
}

func (e *Engine) saveRosterLocked(ctx context.Context, rs *roomState, gameID uint) error {
	ids := make([]uint, 0, len(rs.players))
	for id := range rs.players {
		ids = append(ids, id)
	}
	pool := rs.room.Stake * float64(len(ids))
	return e.games.SaveRoster(ctx, gameID, models.UintsJSON(ids), models.UintsJSON(nil), pool)
}

// ConfirmJoin records the client's stake-source choice for the pending
// debit. When the game is already active and this participant has not
// been charged (a late rejoin), the debit runs immediately; the server
// validates sufficiency regardless of the hint.
func (e *Engine) ConfirmJoin(ctx context.Context, gameID uint, ref UserRef, stakeSource models.BalanceSource) error {
	user, err := e.ResolveUser(ctx, ref)
	if err != nil {
		return err
	}
	rs := e.stateForGame(gameID)
	if rs == nil {
		return ErrGameNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	p, ok := rs.players[user.ID]
	if !ok {
		return ErrNotParticipant
	}
	p.preferred = stakeSource

	g, err := e.games.GetByID(ctx, gameID)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrGameNotFound
	}
	if g.Status == models.StatusActive && !p.charged {
		source, err := e.wallet.DebitStake(ctx, gameID, user.ID, rs.room.Stake, p.preferred)
		if err != nil {
			return err
		}
		p.charged = true
		p.source = source
	}
	return nil
}

// Leave removes a player from the roster. During countdown a drop
// below the minimum cancels the countdown; leaving an active game
// forfeits the stake and only removes win eligibility.
func (e *Engine) Leave(ctx context.Context, gameID uint, ref UserRef) error {
	user, err := e.ResolveUser(ctx, ref)
	if err != nil {
		return err
	}
	rs := e.stateForGame(gameID)
	if rs == nil {
		return ErrGameNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.spectators[user.ID] {
		delete(rs.spectators, user.ID)
		return nil
	}
	if _, ok := rs.players[user.ID]; !ok {
		return nil
	}

	g, err := e.games.GetByID(ctx, gameID)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrGameNotFound
	}

	switch g.Status {
	case models.StatusWaiting:
		delete(rs.players, user.ID)
		if err := e.saveRosterLocked(ctx, rs, gameID); err != nil {
			return err
		}
	case models.StatusCountdown:
		delete(rs.players, user.ID)
		if err := e.saveRosterLocked(ctx, rs, gameID); err != nil {
			return err
		}
		if len(rs.players) < rs.minPlayers() {
			if ok, err := e.games.CancelCountdown(ctx, gameID); err != nil {
				return err
			} else if ok {
				rs.cancelCountdownLocked()
				logger.Infof("room %d: countdown cancelled for game %d, roster below minimum", rs.room.ID, gameID)
				e.hub.Broadcast(rs.room.ID, "countdown_cancelled", map[string]any{"game_id": gameID})
			}
		}
	case models.StatusActive:
		// Stake stays in the pool; the player just loses win
		// eligibility for this round.
		delete(rs.players, user.ID)
		logger.Infof("room %d: user %d left active game %d, stake forfeited", rs.room.ID, user.ID, gameID)
	default:
		return nil
	}

	e.hub.Broadcast(rs.room.ID, "roster_updated", e.rosterPayloadLocked(rs, gameID))
	return nil
}

// Spectate attaches an observer to a running game. Observers never
// hold cards, never affect the pool and cannot claim.
func (e *Engine) Spectate(ctx context.Context, gameID uint, ref UserRef) error {
	user, err := e.ResolveUser(ctx, ref)
	if err != nil {
		return err
	}
	rs := e.stateForGame(gameID)
	if rs == nil {
		return ErrGameNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, ok := rs.players[user.ID]; ok {
		return nil
	}
	rs.spectators[user.ID] = true
	return nil
}

// startCountdownLocked flips waiting -> countdown and arms the
// deadline timer.
func (e *Engine) startCountdownLocked(ctx context.Context, rs *roomState, gameID uint) {
	countdown := time.Duration(rs.countdownSec()) * time.Second
	deadline := time.Now().Add(countdown)

	ok, err := e.games.StartCountdown(ctx, gameID, deadline)
	if err != nil {
		logger.Errorf("room %d: countdown start failed for game %d: %v", rs.room.ID, gameID, err)
		return
	}
	if !ok {
		return
	}

	cancel := make(chan struct{})
	rs.countdownCancel = cancel
	logger.Infof("room %d: countdown started for game %d, deadline %s", rs.room.ID, gameID, deadline.Format(time.RFC3339))
	e.hub.Broadcast(rs.room.ID, "countdown_started", map[string]any{
		"game_id":  gameID,
		"deadline": deadline,
	})

	go func() {
		select {
		case <-cancel:
			return
		case <-time.After(time.Until(deadline)):
			e.activate(gameID)
		}
	}()
}

func (rs *roomState) cancelCountdownLocked() {
	if rs.countdownCancel != nil {
		close(rs.countdownCancel)
		rs.countdownCancel = nil
	}
}

// activate performs countdown -> active: charge every participant's
// stake (removing anyone whose wallet cannot cover it), deal cards,
// lock in the pool and start the draw loop.
func (e *Engine) activate(gameID uint) {
	ctx := context.Background()
	rs := e.stateForGame(gameID)
	if rs == nil {
		return
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	g, err := e.games.GetByID(ctx, gameID)
	if err != nil || g == nil || g.Status != models.StatusCountdown {
		return
	}
	if len(rs.players) < rs.minPlayers() {
		if ok, _ := e.games.CancelCountdown(ctx, gameID); ok {
			rs.cancelCountdownLocked()
			e.hub.Broadcast(rs.room.ID, "countdown_cancelled", map[string]any{"game_id": gameID})
		}
		return
	}

	stake := rs.room.Stake
	for id, p := range rs.players {
		if p.charged {
			continue
		}
		source, err := e.wallet.DebitStake(ctx, gameID, id, stake, p.preferred)
		if err != nil {
			// Not charged: drop from the roster instead of blocking
			// the transition.
			delete(rs.players, id)
			logger.Infof("room %d: user %d removed from game %d: %v", rs.room.ID, id, gameID, err)
			e.hub.Broadcast(rs.room.ID, "player_removed", map[string]any{
				"game_id": gameID,
				"user_id": id,
				"reason":  "insufficient_balance",
			})
			continue
		}
		p.charged = true
		p.source = source
	}

	if len(rs.players) == 0 {
		if ok, _ := e.games.CancelCountdown(ctx, gameID); ok {
			rs.cancelCountdownLocked()
			e.hub.Broadcast(rs.room.ID, "countdown_cancelled", map[string]any{"game_id": gameID})
		}
		return
	}

	// Deal a card per charged participant. A participant who ends up
	// charged but cardless could never claim, so a failed deal either
	// reuses a card left by an earlier attempt or refunds and removes
	// the player.
	cardGrids := make(map[uint]game.Grid, len(rs.players))
	for id, p := range rs.players {
		grid := game.GenerateCard()
		card := &models.Card{
			GameID: gameID,
			UserID: id,
			Grid:   models.GridJSON(grid),
			Marks:  models.MarksJSON(game.NewMarks()),
		}
		if err := e.cards.Create(ctx, card); err != nil {
			existing, gerr := e.cards.GetByGameAndUser(ctx, gameID, id)
			if gerr == nil && existing != nil {
				p.cardID = existing.ID
				if eg, perr := existing.GridValue(); perr == nil {
					cardGrids[id] = eg
				}
				continue
			}
			logger.Errorf("room %d: dealing card to user %d failed: %v", rs.room.ID, id, err)
			if _, rerr := e.users.Credit(ctx, id, p.source, stake); rerr != nil {
				logger.Errorf("room %d: stake refund for user %d failed: %v", rs.room.ID, id, rerr)
			}
			delete(rs.players, id)
			e.hub.Broadcast(rs.room.ID, "player_removed", map[string]any{
				"game_id": gameID,
				"user_id": id,
				"reason":  "deal_failed",
			})
			continue
		}
		p.cardID = card.ID
		cardGrids[id] = grid
	}

	if len(rs.players) == 0 {
		if ok, _ := e.games.CancelCountdown(ctx, gameID); ok {
			rs.cancelCountdownLocked()
			e.hub.Broadcast(rs.room.ID, "countdown_cancelled", map[string]any{"game_id": gameID})
		}
		return
	}

	ids := make([]uint, 0, len(rs.players))
	for id := range rs.players {
		ids = append(ids, id)
	}
	pool := stake * float64(len(ids))

	ok, err := e.games.Activate(ctx, gameID, time.Now(), pool, models.UintsJSON(ids))
	if err != nil {
		logger.Errorf("room %d: activate failed for game %d: %v", rs.room.ID, gameID, err)
		return
	}
	if !ok {
		return
	}
	rs.countdownCancel = nil

	logger.Infof("room %d: game %d active with %d players, pool %.2f", rs.room.ID, gameID, len(ids), pool)
	e.hub.Broadcast(rs.room.ID, "game_started", map[string]any{
		"game_id":    gameID,
		"players":    ids,
		"prize_pool": pool,
		"cards":      cardGrids,
	})

	interval := time.Duration(rs.callIntervalSec()) * time.Second
	if err := e.scheduler.Start(gameID, rs.room.ID, interval, e.onSchedulerDone); err != nil {
		logger.Errorf("room %d: scheduler start rejected for game %d: %v", rs.room.ID, gameID, err)
	}
}

// onSchedulerDone handles draw-loop termination. Pool exhaustion ends
// the game with no winner; any other stop was already handled by
// whoever caused it.
func (e *Engine) onSchedulerDone(gameID uint, exhausted bool) {
	if !exhausted {
		return
	}
	ctx := context.Background()
	ok, err := e.games.FinishNoWinner(ctx, gameID)
	if err != nil {
		logger.Errorf("game %d: finish after exhaustion failed: %v", gameID, err)
		return
	}
	if !ok {
		return
	}
	rs := e.stateForGame(gameID)
	if rs != nil {
		rs.mu.Lock()
		roomID := rs.room.ID
		e.clearGameLocked(rs)
		rs.mu.Unlock()
		e.hub.Broadcast(roomID, "game_finished", map[string]any{
			"game_id": gameID,
			"winner":  nil,
			"reason":  "pool_exhausted",
		})
	}
	logger.Infof("game %d: pool exhausted, finished with no winner", gameID)
}

// StopCalling is the idempotent external stop for a game's draw loop.
// Unknown or already-stopped games are a no-op, not an error.
func (e *Engine) StopCalling(gameID uint) {
	e.scheduler.Stop(gameID)
}

// Mark records a player acknowledging a called number on their own
// card. Cells are never unmarked.
func (e *Engine) Mark(ctx context.Context, gameID uint, ref UserRef, number int) error {
	user, err := e.ResolveUser(ctx, ref)
	if err != nil {
		return err
	}
	rs := e.stateForGame(gameID)
	if rs == nil {
		return ErrGameNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, ok := rs.players[user.ID]; !ok {
		return ErrNotParticipant
	}

	card, err := e.cards.GetByGameAndUser(ctx, gameID, user.ID)
	if err != nil {
		return err
	}
	if card == nil {
		return ErrNotParticipant
	}
	grid, err := card.GridValue()
	if err != nil {
		return err
	}
	row, col, found := grid.Contains(number)
	if !found {
		return nil
	}
	marks, err := card.MarksValue()
	if err != nil {
		return err
	}
	if marks[row][col] {
		return nil
	}
	marks[row][col] = true
	return e.cards.UpdateMarks(ctx, card.ID, models.MarksJSON(marks))
}

func (rs *roomState) minPlayers() int {
	if rs.room.MinPlayers > 0 {
		return rs.room.MinPlayers
	}
	return DefaultMinPlayers
}

func (rs *roomState) maxPlayers() int {
	if rs.room.MaxPlayers > 0 {
		return rs.room.MaxPlayers
	}
	return 100
}

func (rs *roomState) countdownSec() int {
	if rs.room.CountdownSec > 0 {
		return rs.room.CountdownSec
	}
	return DefaultCountdownSec
}

func (rs *roomState) callIntervalSec() int {
	if rs.room.CallIntervalSec > 0 {
		return rs.room.CallIntervalSec
	}
	return DefaultCallIntervalSec
}

func (e *Engine) rosterPayloadLocked(rs *roomState, gameID uint) map[string]any {
	ids := make([]uint, 0, len(rs.players))
	names := make(map[uint]string, len(rs.players))
	for id, p := range rs.players {
		ids = append(ids, id)
		names[id] = p.user.Name
	}
	return map[string]any{
		"game_id":    gameID,
		"players":    ids,
		"names":      names,
		"prize_pool": rs.room.Stake * float64(len(ids)),
	}
}
