package models

import "time"

// Room is a configured stake bucket that hosts successive games. Its
// configuration is read-only for the engine once a game starts.
type Room struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `json:"name"`
	Stake           float64   `gorm:"index" json:"stake"`
	MinPlayers      int       `json:"min_players"`
	MaxPlayers      int       `json:"max_players"`
	CommissionRate  float64   `json:"commission_rate"`
	CallIntervalSec int       `json:"call_interval_sec"`
	CountdownSec    int       `json:"countdown_sec"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
