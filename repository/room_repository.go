package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/zedbingo/bingo-engine/models"
)

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *RoomRepository) GetByID(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (r *RoomRepository) List(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.WithContext(ctx).Order("stake ASC").Find(&rooms).Error
	return rooms, err
}

// SeedDefaults creates one room per configured stake when the table is
// empty, so a fresh deployment has playable rooms.
func (r *RoomRepository) SeedDefaults(ctx context.Context, stakes []float64, minPlayers, countdownSec, callIntervalSec int, commissionRate float64) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Room{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, stake := range stakes {
		room := models.Room{
			Name:            fmt.Sprintf("Stake %.0f", stake),
			Stake:           stake,
			MinPlayers:      minPlayers,
			MaxPlayers:      100,
			CommissionRate:  commissionRate,
			CallIntervalSec: callIntervalSec,
			CountdownSec:    countdownSec,
		}
		if err := r.db.WithContext(ctx).Create(&room).Error; err != nil {
			return err
		}
	}
	return nil
}
