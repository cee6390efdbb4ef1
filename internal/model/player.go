package model

import "time"

// PlayerID uniquely identifies a player for the lifetime of the process
type PlayerID int

// Move is one of the three choices a player can submit in a round
type Move string

const (
	MoveNone     Move = ""
	MoveRock     Move = "R"
	MovePaper    Move = "P"
	MoveScissors Move = "S"
)

// ParseMove converts a single-character wire code into a Move
func ParseMove(s string) (Move, bool) {
	switch s {
	case "R":
		return MoveRock, true
	case "P":
		return MovePaper, true
	case "S":
		return MoveScissors, true
	default:
		return MoveNone, false
	}
}

// String returns the wire code for the move, or "-" for no move
func (m Move) String() string {
	if m == MoveNone {
		return "-"
	}
	return string(m)
}

// Player represents a logged-in participant
type Player struct {
	ID          PlayerID
	DisplayName string
	Lobby       *LobbyID // nil when not in a lobby
	CreatedAt   time.Time
}

// InLobby reports whether the player currently occupies a lobby
func (p *Player) InLobby() bool {
	return p.Lobby != nil
}
