package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zedbingo/bingo-engine/models"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Record inserts a ledger row. A settlement row (stake debit or prize
// credit) that collides with the unique (game, user, type) index is
// dropped; created reports whether this call inserted the row.
func (r *TransactionRepository) Record(ctx context.Context, tx *models.Transaction) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(tx)
	return res.RowsAffected > 0, res.Error
}

// FindSettlement looks up an existing settlement row for a game, user
// and type. Returns (nil, nil) when none exists.
func (r *TransactionRepository) FindSettlement(ctx context.Context, gameID, userID uint, typ models.TransactionType) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).
		Where("game_id = ? AND user_id = ? AND type = ?", gameID, userID, typ).
		First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}
