package repository

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/zedbingo/bingo-engine/models"
)

type CardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) *CardRepository {
	return &CardRepository{db: db}
}

func (r *CardRepository) Create(ctx context.Context, c *models.Card) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CardRepository) GetByGameAndUser(ctx context.Context, gameID, userID uint) (*models.Card, error) {
	var c models.Card
	err := r.db.WithContext(ctx).
		Where("game_id = ? AND user_id = ?", gameID, userID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CardRepository) UpdateMarks(ctx context.Context, id uint, marks datatypes.JSON) error {
	return r.db.WithContext(ctx).Model(&models.Card{}).
		Where("id = ?", id).
		Update("marks", marks).Error
}
