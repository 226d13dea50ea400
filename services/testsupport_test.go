package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/zedbingo/bingo-engine/models"
)

// In-memory repository fakes. They reproduce the conditional-write
// semantics of the gorm implementations (status guards, sufficiency
// guards, the unique settlement index) under a mutex, which is what
// the concurrency tests rely on.

type memGameRepo struct {
	mu    sync.Mutex
	seq   uint
	games map[uint]*models.Game
}

func newMemGameRepo() *memGameRepo {
	return &memGameRepo{games: make(map[uint]*models.Game)}
}

func (r *memGameRepo) Create(_ context.Context, g *models.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	g.ID = r.seq
	cp := *g
	r.games[g.ID] = &cp
	return nil
}

func (r *memGameRepo) GetByID(_ context.Context, id uint) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (r *memGameRepo) List(_ context.Context, limit int) ([]models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Game
	for id := r.seq; id >= 1 && len(out) < limit; id-- {
		if g, ok := r.games[id]; ok {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (r *memGameRepo) LastRoundNumber(_ context.Context, roomID uint) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	last := 0
	for _, g := range r.games {
		if g.RoomID == roomID && g.RoundNumber > last {
			last = g.RoundNumber
		}
	}
	return last, nil
}

func (r *memGameRepo) SaveRoster(_ context.Context, id uint, players, bots datatypes.JSON, pool float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok || (g.Status != models.StatusWaiting && g.Status != models.StatusCountdown) {
		return nil
	}
	g.Players = players
	g.Bots = bots
	g.PrizePool = pool
	return nil
}

func (r *memGameRepo) StartCountdown(_ context.Context, id uint, deadline time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok || g.Status != models.StatusWaiting {
		return false, nil
	}
	g.Status = models.StatusCountdown
	g.CountdownDeadline = &deadline
	return true, nil
}

func (r *memGameRepo) CancelCountdown(_ context.Context, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok || g.Status != models.StatusCountdown {
		return false, nil
	}
	g.Status = models.StatusWaiting
	g.CountdownDeadline = nil
	return true, nil
}

func (r *memGameRepo) Activate(_ context.Context, id uint, startedAt time.Time, pool float64, players datatypes.JSON) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok || g.Status != models.StatusCountdown {
		return false, nil
	}
	g.Status = models.StatusActive
	g.StartedAt = &startedAt
	g.PrizePool = pool
	g.Players = players
	g.CountdownDeadline = nil
	return true, nil
}

func (r *memGameRepo) AppendCalledNumbers(_ context.Context, id uint, numbers datatypes.JSON) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok || g.Status != models.StatusActive {
		return false, nil
	}
	g.CalledNumbers = numbers
	return true, nil
}

func (r *memGameRepo) SetWinnerIfActive(_ context.Context, id, winnerID uint, card datatypes.JSON, pattern string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok || g.Status != models.StatusActive {
		return false, nil
	}
	now := time.Now()
	g.Status = models.StatusFinished
	g.WinnerID = &winnerID
	g.WinningCard = card
	g.WinningPattern = pattern
	g.EndedAt = &now
	return true, nil
}

func (r *memGameRepo) FinishNoWinner(_ context.Context, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok || g.Status != models.StatusActive {
		return false, nil
	}
	now := time.Now()
	g.Status = models.StatusFinished
	g.EndedAt = &now
	return true, nil
}

func (r *memGameRepo) ForceFinish(_ context.Context, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok || (g.Status != models.StatusCountdown && g.Status != models.StatusActive) {
		return false, nil
	}
	now := time.Now()
	g.Status = models.StatusFinished
	g.EndedAt = &now
	g.CountdownDeadline = nil
	return true, nil
}

func (r *memGameRepo) ListUnfinished(_ context.Context) ([]models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Game
	for _, g := range r.games {
		if g.Status == models.StatusCountdown || g.Status == models.StatusActive {
			out = append(out, *g)
		}
	}
	return out, nil
}

type memUserRepo struct {
	mu    sync.Mutex
	seq   uint
	users map[uint]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uint]*models.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == 0 {
		r.seq++
		u.ID = r.seq
	} else if u.ID > r.seq {
		r.seq = u.ID
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByTelegramID(_ context.Context, tid int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.TelegramID == tid {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetByName(_ context.Context, name string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Name == name {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) DebitIfSufficient(_ context.Context, id uint, source models.BalanceSource, amount float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return false, nil
	}
	if source == models.SourceBonus {
		if u.BonusBalance < amount {
			return false, nil
		}
		u.BonusBalance -= amount
		return true, nil
	}
	if u.CashBalance < amount {
		return false, nil
	}
	u.CashBalance -= amount
	return true, nil
}

func (r *memUserRepo) Credit(_ context.Context, id uint, source models.BalanceSource, amount float64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return 0, nil
	}
	if source == models.SourceBonus {
		u.BonusBalance += amount
		return u.BonusBalance, nil
	}
	u.CashBalance += amount
	return u.CashBalance, nil
}

type memCardRepo struct {
	mu    sync.Mutex
	seq   uint
	cards map[uint]*models.Card

	// failCreate simulates insert failures per user id.
	failCreate map[uint]bool
}

func newMemCardRepo() *memCardRepo {
	return &memCardRepo{
		cards:      make(map[uint]*models.Card),
		failCreate: make(map[uint]bool),
	}
}

func (r *memCardRepo) Create(_ context.Context, c *models.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate[c.UserID] {
		return errors.New("insert failed")
	}
	for _, other := range r.cards {
		if other.GameID == c.GameID && other.UserID == c.UserID {
			return errors.New("duplicate key")
		}
	}
	r.seq++
	c.ID = r.seq
	cp := *c
	r.cards[c.ID] = &cp
	return nil
}

func (r *memCardRepo) GetByGameAndUser(_ context.Context, gameID, userID uint) (*models.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cards {
		if c.GameID == gameID && c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memCardRepo) UpdateMarks(_ context.Context, id uint, marks datatypes.JSON) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.cards[id]; ok {
		c.Marks = marks
	}
	return nil
}

type settlementKey struct {
	gameID uint
	userID uint
	typ    models.TransactionType
}

type memTxRepo struct {
	mu          sync.Mutex
	seq         uint
	txs         []models.Transaction
	settlements map[settlementKey]uint // key -> tx id
}

func newMemTxRepo() *memTxRepo {
	return &memTxRepo{settlements: make(map[settlementKey]uint)}
}

func (r *memTxRepo) Record(_ context.Context, tx *models.Transaction) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx.GameID != nil {
		key := settlementKey{gameID: *tx.GameID, userID: tx.UserID, typ: tx.Type}
		if _, exists := r.settlements[key]; exists {
			return false, nil
		}
		r.seq++
		tx.ID = r.seq
		r.settlements[key] = tx.ID
	} else {
		r.seq++
		tx.ID = r.seq
	}
	r.txs = append(r.txs, *tx)
	return true, nil
}

func (r *memTxRepo) FindSettlement(_ context.Context, gameID, userID uint, typ models.TransactionType) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.settlements[settlementKey{gameID: gameID, userID: userID, typ: typ}]
	if !ok {
		return nil, nil
	}
	for i := range r.txs {
		if r.txs[i].ID == id {
			cp := r.txs[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memTxRepo) ListByUser(_ context.Context, userID uint, limit int) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Transaction
	for i := len(r.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if r.txs[i].UserID == userID {
			out = append(out, r.txs[i])
		}
	}
	return out, nil
}

type memRoomRepo struct {
	mu    sync.Mutex
	seq   uint
	rooms map[uint]*models.Room
}

func newMemRoomRepo() *memRoomRepo {
	return &memRoomRepo{rooms: make(map[uint]*models.Room)}
}

func (r *memRoomRepo) Create(_ context.Context, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room.ID == 0 {
		r.seq++
		room.ID = r.seq
	}
	cp := *room
	r.rooms[room.ID] = &cp
	return nil
}

func (r *memRoomRepo) GetByID(_ context.Context, id uint) (*models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, nil
	}
	cp := *room
	return &cp, nil
}

func (r *memRoomRepo) List(_ context.Context) ([]models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Room
	for _, room := range r.rooms {
		out = append(out, *room)
	}
	return out, nil
}

// recordingHub captures broadcasts for assertions.
type recordingHub struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	RoomID  uint
	Event   string
	Payload any
}

func (h *recordingHub) Broadcast(roomID uint, event string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, recordedEvent{RoomID: roomID, Event: event, Payload: payload})
}

func (h *recordingHub) count(event string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

// testFixture wires an engine over the fakes.
type testFixture struct {
	engine    *Engine
	games     *memGameRepo
	users     *memUserRepo
	cards     *memCardRepo
	rooms     *memRoomRepo
	txs       *memTxRepo
	wallet    *WalletService
	scheduler *Scheduler
	hub       *recordingHub
}

func newTestFixture() *testFixture {
	f := &testFixture{
		games: newMemGameRepo(),
		users: newMemUserRepo(),
		cards: newMemCardRepo(),
		rooms: newMemRoomRepo(),
		txs:   newMemTxRepo(),
		hub:   &recordingHub{},
	}
	f.wallet = NewWalletService(f.users, f.txs)
	f.scheduler = NewScheduler(f.games, f.hub)
	f.engine = NewEngine(f.games, f.users, f.cards, f.rooms, f.wallet, f.scheduler, f.hub)
	return f
}

func (f *testFixture) addRoom(room models.Room) *models.Room {
	_ = f.rooms.Create(context.Background(), &room)
	return &room
}

func (f *testFixture) addUser(u models.User) *models.User {
	_ = f.users.Create(context.Background(), &u)
	return &u
}
