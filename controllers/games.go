package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zedbingo/bingo-engine/game"
	"github.com/zedbingo/bingo-engine/models"
	"github.com/zedbingo/bingo-engine/services"
)

// API holds the handler dependencies; one instance is wired in main
// and shared by the route table.
type API struct {
	Engine *services.Engine
	Games  services.GameRepository
	Users  services.UserRepository
	Txs    services.TransactionRepository
	Rooms  services.RoomRepository
}

func New(engine *services.Engine, games services.GameRepository, users services.UserRepository, txs services.TransactionRepository, rooms services.RoomRepository) *API {
	return &API{Engine: engine, Games: games, Users: users, Txs: txs, Rooms: rooms}
}

func paramUint(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(v), true
}

// ListGames returns recent games, newest first.
func (a *API) ListGames(c *gin.Context) {
	games, err := a.Games.List(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	c.JSON(http.StatusOK, games)
}

// GetGame returns a single game by id.
func (a *API) GetGame(c *gin.Context) {
	gameID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	g, err := a.Games.GetByID(c.Request.Context(), gameID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}
	c.JSON(http.StatusOK, g)
}

// ListRooms returns the configured stake rooms.
func (a *API) ListRooms(c *gin.Context) {
	rooms, err := a.Rooms.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	c.JSON(http.StatusOK, rooms)
}

// JoinRoom routes a user into the room's open game.
func (a *API) JoinRoom(c *gin.Context) {
	roomID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var ref services.UserRef
	if err := c.ShouldBindJSON(&ref); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := a.Engine.Join(c.Request.Context(), roomID, ref)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, services.ErrRoomFull):
			c.JSON(http.StatusConflict, gin.H{"error": "room is full"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "join failed"})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

type confirmJoinRequest struct {
	services.UserRef
	StakeSource models.BalanceSource `json:"stake_source"`
}

// ConfirmJoin records the stake-source choice and, for a game already
// active, performs the debit; sufficiency is re-validated server-side.
func (a *API) ConfirmJoin(c *gin.Context) {
	gameID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req confirmJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := a.Engine.ConfirmJoin(c.Request.Context(), gameID, req.UserRef, req.StakeSource)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGameNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, services.ErrNotParticipant):
			c.JSON(http.StatusConflict, gin.H{"error": "not a participant"})
		case errors.Is(err, services.ErrInsufficientBalance):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient balance"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "confirm failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"confirmed": true})
}

// LeaveGame removes a player; an already-debited stake is forfeited.
func (a *API) LeaveGame(c *gin.Context) {
	gameID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var ref services.UserRef
	if err := c.ShouldBindJSON(&ref); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := a.Engine.Leave(c.Request.Context(), gameID, ref); err != nil {
		switch {
		case errors.Is(err, services.ErrGameNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "leave failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"left": true})
}

type claimRequest struct {
	services.UserRef
	// Card and marking ride along for clients that validate locally;
	// arbitration uses the server-held copies.
	Card  *game.Grid  `json:"card,omitempty"`
	Marks *game.Marks `json:"marks,omitempty"`
}

// Claim submits a win claim. A lost race is not an error: the response
// carries the true winner so the client renders the loss screen
// directly.
func (a *API) Claim(c *gin.Context) {
	gameID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := a.Engine.Claim(c.Request.Context(), gameID, req.UserRef)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
	case errors.Is(err, services.ErrAlreadyFinished):
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"error":   "already_finished",
			"result":  result,
		})
	case errors.Is(err, services.ErrGameNotActive):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "game_not_active"})
	case errors.Is(err, services.ErrInvalidClaim):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": "invalid_claim"})
	case errors.Is(err, services.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "not_participant"})
	case errors.Is(err, services.ErrGameNotFound), errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "not_found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "claim failed"})
	}
}

// StopCalling halts a game's draw loop. Idempotent: already-stopped or
// unknown games succeed with no state change.
func (a *API) StopCalling(c *gin.Context) {
	gameID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	a.Engine.StopCalling(gameID)
	c.JSON(http.StatusOK, gin.H{"stopped": true})
}

type markRequest struct {
	services.UserRef
	Number int `json:"number" binding:"required"`
}

// Mark acknowledges a called number on the player's own card.
func (a *API) Mark(c *gin.Context) {
	gameID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.Engine.Mark(c.Request.Context(), gameID, req.UserRef, req.Number); err != nil {
		switch {
		case errors.Is(err, services.ErrGameNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		case errors.Is(err, services.ErrNotParticipant):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "mark failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": true})
}

// Spectate attaches an observer to a running game.
func (a *API) Spectate(c *gin.Context) {
	gameID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var ref services.UserRef
	if err := c.ShouldBindJSON(&ref); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.Engine.Spectate(c.Request.Context(), gameID, ref); err != nil {
		switch {
		case errors.Is(err, services.ErrGameNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "spectate failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"spectating": true})
}
