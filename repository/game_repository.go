package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/zedbingo/bingo-engine/models"
)

// GameRepository persists games. Every state-changing write is guarded
// on the previously observed status (a conditional UPDATE), so two
// actors racing a terminal transition cannot both win: the loser sees
// zero rows affected.
type GameRepository struct {
	db *gorm.DB
}

func NewGameRepository(db *gorm.DB) *GameRepository {
	return &GameRepository{db: db}
}

func (r *GameRepository) Create(ctx context.Context, g *models.Game) error {
	return r.db.WithContext(ctx).Create(g).Error
}

// GetByID returns (nil, nil) when the game does not exist.
func (r *GameRepository) GetByID(ctx context.Context, id uint) (*models.Game, error) {
	var g models.Game
	if err := r.db.WithContext(ctx).First(&g, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

// List returns recent games, newest first.
func (r *GameRepository) List(ctx context.Context, limit int) ([]models.Game, error) {
	var games []models.Game
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&games).Error
	return games, err
}

// LastRoundNumber returns the highest round number played in a room,
// zero if the room never played.
func (r *GameRepository) LastRoundNumber(ctx context.Context, roomID uint) (int, error) {
	var g models.Game
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("round_number DESC").
		First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return g.RoundNumber, nil
}

// SaveRoster updates the membership and the running prize pool while
// the game has not locked in (waiting or countdown).
func (r *GameRepository) SaveRoster(ctx context.Context, id uint, players, bots datatypes.JSON, pool float64) error {
	return r.db.WithContext(ctx).Model(&models.Game{}).
		Where("id = ? AND status IN ?", id, []string{models.StatusWaiting, models.StatusCountdown}).
		Updates(map[string]any{"players": players, "bots": bots, "prize_pool": pool}).Error
}

func (r *GameRepository) StartCountdown(ctx context.Context, id uint, deadline time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Game{}).
		Where("id = ? AND status = ?", id, models.StatusWaiting).
		Updates(map[string]any{
			"status":             models.StatusCountdown,
			"countdown_deadline": deadline,
		})
	return res.RowsAffected > 0, res.Error
}

// CancelCountdown reverts countdown to waiting and clears the deadline.
func (r *GameRepository) CancelCountdown(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Game{}).
		Where("id = ? AND status = ?", id, models.StatusCountdown).
		Updates(map[string]any{
			"status":             models.StatusWaiting,
			"countdown_deadline": nil,
		})
	return res.RowsAffected > 0, res.Error
}

// Activate locks the game in: countdown -> active, with the final
// charged roster and pool.
func (r *GameRepository) Activate(ctx context.Context, id uint, startedAt time.Time, pool float64, players datatypes.JSON) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Game{}).
		Where("id = ? AND status = ?", id, models.StatusCountdown).
		Updates(map[string]any{
			"status":             models.StatusActive,
			"started_at":         startedAt,
			"prize_pool":         pool,
			"players":            players,
			"countdown_deadline": nil,
		})
	return res.RowsAffected > 0, res.Error
}

// AppendCalledNumbers writes the new draw history, only while the game
// is still active. The scheduler is the single writer of this column;
// the status guard stops it from appending past a terminal transition.
func (r *GameRepository) AppendCalledNumbers(ctx context.Context, id uint, numbers datatypes.JSON) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Game{}).
		Where("id = ? AND status = ?", id, models.StatusActive).
		Update("called_numbers", numbers)
	return res.RowsAffected > 0, res.Error
}

// SetWinnerIfActive is the win-race compare-and-swap: it flips the game
// to finished and records the winner in a single conditional UPDATE.
// When two claims race, the database serializes them and exactly one
// sees RowsAffected == 1.
func (r *GameRepository) SetWinnerIfActive(ctx context.Context, id, winnerID uint, card datatypes.JSON, pattern string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Game{}).
		Where("id = ? AND status = ?", id, models.StatusActive).
		Updates(map[string]any{
			"status":          models.StatusFinished,
			"winner_id":       winnerID,
			"winning_card":    card,
			"winning_pattern": pattern,
			"ended_at":        time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

// FinishNoWinner ends an active game whose pool was exhausted.
func (r *GameRepository) FinishNoWinner(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Game{}).
		Where("id = ? AND status = ?", id, models.StatusActive).
		Updates(map[string]any{
			"status":   models.StatusFinished,
			"ended_at": time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

// ForceFinish terminates a stalled game found by the recovery sweep,
// whatever non-terminal state it was left in.
func (r *GameRepository) ForceFinish(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Game{}).
		Where("id = ? AND status IN ?", id, []string{models.StatusCountdown, models.StatusActive}).
		Updates(map[string]any{
			"status":             models.StatusFinished,
			"ended_at":           time.Now(),
			"countdown_deadline": nil,
		})
	return res.RowsAffected > 0, res.Error
}

// ListUnfinished returns games still in countdown or active, for the
// recovery sweep.
func (r *GameRepository) ListUnfinished(ctx context.Context) ([]models.Game, error) {
	var games []models.Game
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{models.StatusCountdown, models.StatusActive}).
		Find(&games).Error
	return games, err
}
