package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/zedbingo/bingo-engine/game"
)

// Card is owned by exactly one (game, player) pair. The grid is dealt
// at game start and immutable; marks are the player's overlay and only
// ever gain cells.
type Card struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	GameID    uint           `gorm:"uniqueIndex:idx_cards_game_user" json:"game_id"`
	UserID    uint           `gorm:"uniqueIndex:idx_cards_game_user" json:"user_id"`
	Grid      datatypes.JSON `json:"grid"`
	Marks     datatypes.JSON `json:"marks"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (c *Card) GridValue() (game.Grid, error) {
	var g game.Grid
	err := json.Unmarshal(c.Grid, &g)
	return g, err
}

func (c *Card) MarksValue() (game.Marks, error) {
	var m game.Marks
	if len(c.Marks) == 0 {
		return game.NewMarks(), nil
	}
	err := json.Unmarshal(c.Marks, &m)
	return m, err
}

func GridJSON(g game.Grid) datatypes.JSON {
	b, _ := json.Marshal(g)
	return datatypes.JSON(b)
}

func MarksJSON(m game.Marks) datatypes.JSON {
	b, _ := json.Marshal(m)
	return datatypes.JSON(b)
}
