package services

import "errors"

// Engine error taxonomy. The recoverable ones (ErrAlreadyFinished,
// ErrInsufficientBalance, ErrSchedulerAlreadyRunning) are absorbed into
// well-formed alternate outcomes by their callers rather than surfaced
// as failures.
var (
	ErrGameNotActive           = errors.New("game is not active")
	ErrInvalidClaim            = errors.New("claim is not a winning card")
	ErrAlreadyFinished         = errors.New("game already finished")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrSchedulerAlreadyRunning = errors.New("scheduler already running for game")
	ErrRoomNotFound            = errors.New("room not found")
	ErrGameNotFound            = errors.New("game not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrRoomFull                = errors.New("room is full")
	ErrNotParticipant          = errors.New("user is not a participant")
	ErrJoinClosed              = errors.New("game no longer accepts joins")
)
