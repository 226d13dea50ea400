package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/zedbingo/bingo-engine/utils/logger"
)

// Client is one websocket subscriber attached to a room.
type Client struct {
	userID uint
	roomID uint
	conn   *websocket.Conn
	hub    *Hub
	engine *Engine
	send   chan []byte
	once   sync.Once
}

func (c *Client) Close() {
	c.once.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

type clientMessage struct {
	Action string `json:"action"`
	GameID uint   `json:"game_id"`
	Number int    `json:"number"`
}

// readPump handles inbound player actions. Marking and claiming are
// also reachable over HTTP; the socket path exists so a player in the
// heat of a round does not pay a request round-trip.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c.roomID, c)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debugf("client %d: disconnected", c.userID)
			} else {
				logger.Debugf("client %d: read error: %v", c.userID, err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Debugf("client %d: invalid message: %v", c.userID, err)
			continue
		}

		ctx := context.Background()
		ref := UserRef{UserID: c.userID}
		gameID := msg.GameID
		if gameID == 0 {
			gameID = c.engine.CurrentGameID(c.roomID)
		}

		switch msg.Action {
		case "mark":
			if err := c.engine.Mark(ctx, gameID, ref, msg.Number); err != nil {
				logger.Debugf("client %d: mark %d failed: %v", c.userID, msg.Number, err)
			}
		case "claim":
			result, err := c.engine.Claim(ctx, gameID, ref)
			switch {
			case err == nil:
				// Winner outcome reaches everyone via the broadcast.
			case errors.Is(err, ErrAlreadyFinished):
				c.hub.send(c.roomID, c.userID, "claim_lost", result)
			default:
				c.hub.send(c.roomID, c.userID, "claim_rejected", map[string]any{
					"game_id": gameID,
					"error":   err.Error(),
				})
			}
		case "leave":
			if err := c.engine.Leave(ctx, gameID, ref); err != nil {
				logger.Debugf("client %d: leave failed: %v", c.userID, err)
			}
		default:
			logger.Debugf("client %d: unknown action %q", c.userID, msg.Action)
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			logger.Debugf("client %d: write error: %v", c.userID, err)
			return
		}
	}
}
