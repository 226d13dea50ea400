package services

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/zedbingo/bingo-engine/models"
)

// Persistence interfaces consumed by the engine. The gorm-backed
// implementations live in the repository package; tests swap in
// in-memory fakes.

type GameRepository interface {
	Create(ctx context.Context, g *models.Game) error
	GetByID(ctx context.Context, id uint) (*models.Game, error)
	List(ctx context.Context, limit int) ([]models.Game, error)
	LastRoundNumber(ctx context.Context, roomID uint) (int, error)
	SaveRoster(ctx context.Context, id uint, players, bots datatypes.JSON, pool float64) error
	StartCountdown(ctx context.Context, id uint, deadline time.Time) (bool, error)
	CancelCountdown(ctx context.Context, id uint) (bool, error)
	Activate(ctx context.Context, id uint, startedAt time.Time, pool float64, players datatypes.JSON) (bool, error)
	AppendCalledNumbers(ctx context.Context, id uint, numbers datatypes.JSON) (bool, error)
	SetWinnerIfActive(ctx context.Context, id, winnerID uint, card datatypes.JSON, pattern string) (bool, error)
	FinishNoWinner(ctx context.Context, id uint) (bool, error)
	ForceFinish(ctx context.Context, id uint) (bool, error)
	ListUnfinished(ctx context.Context) ([]models.Game, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	GetByName(ctx context.Context, name string) (*models.User, error)
	DebitIfSufficient(ctx context.Context, id uint, source models.BalanceSource, amount float64) (bool, error)
	Credit(ctx context.Context, id uint, source models.BalanceSource, amount float64) (float64, error)
}

type CardRepository interface {
	Create(ctx context.Context, c *models.Card) error
	GetByGameAndUser(ctx context.Context, gameID, userID uint) (*models.Card, error)
	UpdateMarks(ctx context.Context, id uint, marks datatypes.JSON) error
}

type TransactionRepository interface {
	Record(ctx context.Context, tx *models.Transaction) (bool, error)
	FindSettlement(ctx context.Context, gameID, userID uint, typ models.TransactionType) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.Transaction, error)
}

type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	GetByID(ctx context.Context, id uint) (*models.Room, error)
	List(ctx context.Context) ([]models.Room, error)
}

// Broadcaster fans a state delta out to every subscriber of a room.
// Delivery is at-most-once best-effort; clients reconcile via the
// snapshot they get on connect.
type Broadcaster interface {
	Broadcast(roomID uint, event string, payload any)
}
