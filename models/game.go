package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Game statuses. A game is created waiting, counts down once enough
// players joined, runs active while numbers are called and ends
// finished. Finished is terminal; the next round gets a new row.
const (
	StatusWaiting   = "waiting"
	StatusCountdown = "countdown"
	StatusActive    = "active"
	StatusFinished  = "finished"
)

type Game struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UUID        string `gorm:"uniqueIndex" json:"uuid"`
	RoomID      uint   `gorm:"index" json:"room_id"`
	RoundNumber int    `json:"round_number"`
	Status      string `gorm:"index" json:"status"`

	// CalledNumbers is the ordered, duplicate-free draw history,
	// stored as a JSON array. Append-only while active.
	CalledNumbers datatypes.JSON `json:"called_numbers"`

	// Players and Bots hold the roster as JSON arrays of user IDs.
	Players datatypes.JSON `json:"players"`
	Bots    datatypes.JSON `json:"bots"`

	PrizePool float64 `json:"prize_pool"`

	// Winner fields are set together, at most once, by the arbiter.
	WinnerID       *uint          `json:"winner_id,omitempty"`
	WinningCard    datatypes.JSON `json:"winning_card,omitempty"`
	WinningPattern string         `json:"winning_pattern,omitempty"`

	CountdownDeadline *time.Time `json:"countdown_deadline,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CalledList decodes the draw history. A nil or empty column decodes
// to an empty list.
func (g *Game) CalledList() []int {
	return decodeInts(g.CalledNumbers)
}

// PlayerIDs decodes the human roster.
func (g *Game) PlayerIDs() []uint {
	raw := decodeInts(g.Players)
	out := make([]uint, len(raw))
	for i, v := range raw {
		out[i] = uint(v)
	}
	return out
}

func decodeInts(j datatypes.JSON) []int {
	if len(j) == 0 {
		return nil
	}
	var out []int
	if err := json.Unmarshal(j, &out); err != nil {
		return nil
	}
	return out
}

// IntsJSON encodes an int slice for a JSON column.
func IntsJSON(v []int) datatypes.JSON {
	b, _ := json.Marshal(v)
	return datatypes.JSON(b)
}

// UintsJSON encodes a roster for a JSON column.
func UintsJSON(v []uint) datatypes.JSON {
	if v == nil {
		v = []uint{}
	}
	b, _ := json.Marshal(v)
	return datatypes.JSON(b)
}
