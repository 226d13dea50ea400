package services

import (
	"encoding/json"
	"sync"

	"github.com/zedbingo/bingo-engine/utils/logger"
)

// Event is the envelope every broadcast message travels in.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Hub fans state deltas out to room subscribers. Sends never block:
// a subscriber with a full buffer drops the message and reconciles
// from the next snapshot.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uint]map[*Client]bool)}
}

func (h *Hub) register(roomID uint, c *Client) {
	h.mu.Lock()
	clients, ok := h.rooms[roomID]
	if !ok {
		clients = make(map[*Client]bool)
		h.rooms[roomID] = clients
	}
	clients[c] = true
	h.mu.Unlock()
	logger.Debugf("hub: client %d subscribed to room %d", c.userID, roomID)
}

func (h *Hub) unregister(roomID uint, c *Client) {
	h.mu.Lock()
	if clients, ok := h.rooms[roomID]; ok {
		if clients[c] {
			delete(clients, c)
			c.Close()
		}
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()
}

// Broadcast marshals the event once and hands it to every subscriber
// of the room.
func (h *Hub) Broadcast(roomID uint, event string, payload any) {
	b, err := json.Marshal(Event{Type: event, Payload: payload})
	if err != nil {
		logger.Errorf("hub: marshal %s failed: %v", event, err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		func(c *Client) {
			// A client can close concurrently with the fan-out;
			// sending on its closed channel is recovered here.
			defer func() {
				if r := recover(); r != nil {
					logger.Debugf("hub: send to user %d recovered: %v", c.userID, r)
				}
			}()
			select {
			case c.send <- b:
			default:
				logger.Debugf("hub: dropping %s for user %d in room %d", event, c.userID, roomID)
			}
		}(c)
	}
}

// send delivers a payload to a single subscriber, best-effort.
func (h *Hub) send(roomID, userID uint, event string, payload any) {
	b, err := json.Marshal(Event{Type: event, Payload: payload})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		if c.userID != userID {
			continue
		}
		select {
		case c.send <- b:
		default:
		}
	}
}
