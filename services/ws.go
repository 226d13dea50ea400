package services

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/zedbingo/bingo-engine/models"
	"github.com/zedbingo/bingo-engine/utils/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Snapshot is the full room state sent to a subscriber on connect, so
// dropped deltas can be reconciled.
type Snapshot struct {
	RoomID         uint     `json:"room_id"`
	GameID         uint     `json:"game_id"`
	Status         string   `json:"status"`
	CalledNumbers  []int    `json:"called_numbers"`
	Players        []uint   `json:"players"`
	PrizePool      float64  `json:"prize_pool"`
	WinnerID       *uint    `json:"winner_id,omitempty"`
	WinningPattern string   `json:"winning_pattern,omitempty"`
	Deadline       *string  `json:"countdown_deadline,omitempty"`
}

// HandleWebSocket upgrades a room subscription. The user is identified
// by any of the equivalent keys via the usual resolution.
func (e *Engine) HandleWebSocket(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID64, err := strconv.ParseUint(c.Param("room_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
			return
		}
		roomID := uint(roomID64)

		room, err := e.rooms.GetByID(c.Request.Context(), roomID)
		if err != nil || room == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}

		ref := UserRef{}
		if v := c.Query("user_id"); v != "" {
			id, _ := strconv.ParseUint(v, 10, 64)
			ref.UserID = uint(id)
		}
		if v := c.Query("telegram_id"); v != "" {
			ref.TelegramID, _ = strconv.ParseInt(v, 10, 64)
		}
		ref.Name = c.Query("name")

		user, err := e.ResolveUser(c.Request.Context(), ref)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("ws: upgrade failed: %v", err)
			return
		}

		client := &Client{
			userID: user.ID,
			roomID: roomID,
			conn:   conn,
			hub:    hub,
			engine: e,
			send:   make(chan []byte, 32),
		}

		snap := e.snapshot(roomID)
		hub.register(roomID, client)
		go client.writePump()
		go client.readPump()

		if snap != nil {
			hub.send(roomID, user.ID, "snapshot", snap)
		}
		logger.Infof("ws: user %d subscribed to room %d", user.ID, roomID)
	}
}

// snapshot builds the reconciliation state for a room's open game.
func (e *Engine) snapshot(roomID uint) *Snapshot {
	e.mu.Lock()
	rs := e.states[roomID]
	e.mu.Unlock()
	if rs == nil {
		return &Snapshot{RoomID: roomID, Status: models.StatusWaiting}
	}

	rs.mu.Lock()
	gameID := rs.gameID
	rs.mu.Unlock()
	if gameID == 0 {
		return &Snapshot{RoomID: roomID, Status: models.StatusWaiting}
	}

	g, err := e.games.GetByID(context.Background(), gameID)
	if err != nil || g == nil {
		return &Snapshot{RoomID: roomID, Status: models.StatusWaiting}
	}

	snap := &Snapshot{
		RoomID:         roomID,
		GameID:         g.ID,
		Status:         g.Status,
		CalledNumbers:  g.CalledList(),
		Players:        g.PlayerIDs(),
		PrizePool:      g.PrizePool,
		WinnerID:       g.WinnerID,
		WinningPattern: g.WinningPattern,
	}
	if g.CountdownDeadline != nil {
		s := g.CountdownDeadline.Format("2006-01-02T15:04:05Z07:00")
		snap.Deadline = &s
	}
	return snap
}
