package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/zedbingo/bingo-engine/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByName(ctx context.Context, name string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func balanceColumn(source models.BalanceSource) string {
	if source == models.SourceBonus {
		return "bonus_balance"
	}
	return "cash_balance"
}

// DebitIfSufficient subtracts amount from the given sub-balance only if
// it covers the amount. The sufficiency check rides in the UPDATE's
// WHERE clause, so concurrent debits cannot overdraw.
func (r *UserRepository) DebitIfSufficient(ctx context.Context, id uint, source models.BalanceSource, amount float64) (bool, error) {
	col := balanceColumn(source)
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND "+col+" >= ?", id, amount).
		Update(col, gorm.Expr(col+" - ?", amount))
	return res.RowsAffected > 0, res.Error
}

// Credit adds amount to the given sub-balance and returns the new
// value of that sub-balance.
func (r *UserRepository) Credit(ctx context.Context, id uint, source models.BalanceSource, amount float64) (float64, error) {
	col := balanceColumn(source)
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update(col, gorm.Expr(col+" + ?", amount)).Error
	if err != nil {
		return 0, err
	}
	u, err := r.GetByID(ctx, id)
	if err != nil || u == nil {
		return 0, err
	}
	if source == models.SourceBonus {
		return u.BonusBalance, nil
	}
	return u.CashBalance, nil
}
