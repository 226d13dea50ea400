package models

import "time"

// BalanceSource names which wallet sub-balance funded a movement.
type BalanceSource string

const (
	SourceCash  BalanceSource = "cash"
	SourceBonus BalanceSource = "bonus"
)

type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TelegramID    int64     `gorm:"uniqueIndex" json:"telegram_id"`
	Name          string    `gorm:"index" json:"name"`
	Phone         string    `json:"phone"`
	CashBalance   float64   `json:"cash_balance"`
	BonusBalance  float64   `json:"bonus_balance"`
	LockedBalance float64   `json:"locked_balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Balance is the total spendable amount across sub-balances.
func (u *User) Balance() float64 {
	return u.CashBalance + u.BonusBalance
}
