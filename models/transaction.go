package models

import "time"

type TransactionType string

const (
	StakeDebit          TransactionType = "stake_debit"
	PrizeCredit         TransactionType = "prize_credit"
	DepositTransaction  TransactionType = "deposit"
	WithdrawTransaction TransactionType = "withdraw"
)

// Transaction is the wallet ledger. The unique index over
// (game_id, user_id, type) is what makes stake debits and prize
// credits at-most-once per game and player; deposits and withdrawals
// carry a NULL game_id and are exempt.
type Transaction struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       uint            `gorm:"uniqueIndex:idx_tx_settlement" json:"user_id"`
	GameID       *uint           `gorm:"uniqueIndex:idx_tx_settlement" json:"game_id,omitempty"`
	Type         TransactionType `gorm:"uniqueIndex:idx_tx_settlement" json:"type"`
	Amount       float64         `json:"amount"`
	Source       BalanceSource   `json:"source"`
	BalanceAfter float64         `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}
