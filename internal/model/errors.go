package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrNameTaken      = errors.New("display name is taken")

	// Lobby errors
	ErrLobbyNotFound  = errors.New("lobby not found")
	ErrLobbyNameTaken = errors.New("lobby name is taken")
	ErrLobbyFull      = errors.New("lobby is full")
	ErrAlreadyInLobby = errors.New("player is already in a lobby")
	ErrNotInLobby     = errors.New("player is not in a lobby")

	// Match errors
	ErrNotInGame         = errors.New("no game in progress")
	ErrMoveAlreadyMade   = errors.New("move already submitted this round")
	ErrInvalidMove       = errors.New("invalid move")
	ErrRematchNotAllowed = errors.New("rematch not allowed now")
	ErrOpponentMissing   = errors.New("lobby has no opponent")

	// Liveness errors
	ErrNotDisconnected = errors.New("player has no pending disconnect record")
)
