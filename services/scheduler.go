package services

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/zedbingo/bingo-engine/game"
	"github.com/zedbingo/bingo-engine/models"
	"github.com/zedbingo/bingo-engine/utils/logger"
)

// Scheduler owns one draw loop per live game, keyed by game id in an
// explicit registry so any handle can be cancelled out-of-band. At most
// one loop runs per game; a second Start for the same id is rejected.
type Scheduler struct {
	mu      sync.Mutex
	running map[uint]chan struct{}

	games GameRepository
	hub   Broadcaster
}

func NewScheduler(games GameRepository, hub Broadcaster) *Scheduler {
	return &Scheduler{
		running: make(map[uint]chan struct{}),
		games:   games,
		hub:     hub,
	}
}

// NumberCalled is the per-draw broadcast payload.
type NumberCalled struct {
	GameID uint  `json:"game_id"`
	Number int   `json:"number"`
	Called []int `json:"called"`
}

// Start launches the draw loop for an active game. onDone fires once
// when the loop ends; exhausted is true when all 75 numbers were
// called without a winner.
func (s *Scheduler) Start(gameID, roomID uint, interval time.Duration, onDone func(gameID uint, exhausted bool)) error {
	s.mu.Lock()
	if _, ok := s.running[gameID]; ok {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	cancel := make(chan struct{})
	s.running[gameID] = cancel
	s.mu.Unlock()

	logger.Infof("scheduler: started for game %d (interval %s)", gameID, interval)
	go s.run(gameID, roomID, interval, cancel, onDone)
	return nil
}

func (s *Scheduler) run(gameID, roomID uint, interval time.Duration, cancel chan struct{}, onDone func(uint, bool)) {
	defer s.remove(gameID)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			logger.Infof("scheduler: game %d draw loop cancelled", gameID)
			return
		case <-ticker.C:
			done, exhausted := s.tick(gameID, roomID)
			if done {
				if onDone != nil {
					onDone(gameID, exhausted)
				}
				return
			}
		}
	}
}

// tick draws one previously-unseen number and persists it behind the
// active-status guard. A failed persistence attempt skips the tick and
// leaves state unchanged; a guard miss means the game went terminal
// under us and the loop stops.
func (s *Scheduler) tick(gameID, roomID uint) (done, exhausted bool) {
	ctx := context.Background()

	g, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		logger.Errorf("scheduler: game %d read failed: %v", gameID, err)
		return false, false
	}
	if g == nil || g.Status != models.StatusActive {
		return true, false
	}

	called := g.CalledList()
	if len(called) >= game.MaxNumber {
		return true, true
	}

	seen := make(map[int]bool, len(called))
	for _, n := range called {
		seen[n] = true
	}
	remaining := make([]int, 0, game.MaxNumber-len(called))
	for n := 1; n <= game.MaxNumber; n++ {
		if !seen[n] {
			remaining = append(remaining, n)
		}
	}

	n := remaining[rand.Intn(len(remaining))]
	called = append(called, n)

	ok, err := s.games.AppendCalledNumbers(ctx, gameID, models.IntsJSON(called))
	if err != nil {
		logger.Errorf("scheduler: game %d persist failed: %v", gameID, err)
		return false, false
	}
	if !ok {
		return true, false
	}

	s.hub.Broadcast(roomID, "number_called", NumberCalled{
		GameID: gameID,
		Number: n,
		Called: called,
	})

	if len(called) >= game.MaxNumber {
		return true, true
	}
	return false, false
}

// Stop cancels the draw loop for a game. Safe to call for a game that
// was never started, already stopped, or does not exist.
func (s *Scheduler) Stop(gameID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.running[gameID]; ok {
		close(cancel)
		delete(s.running, gameID)
	}
}

// Running reports whether a draw loop is registered for the game.
func (s *Scheduler) Running(gameID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[gameID]
	return ok
}

// Drain cancels every live draw loop; called on graceful shutdown.
func (s *Scheduler) Drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cancel := range s.running {
		close(cancel)
		delete(s.running, id)
	}
}

func (s *Scheduler) remove(gameID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, gameID)
}
