package model

import "time"

// LobbyID uniquely identifies a lobby for the lifetime of the process
type LobbyID int

// LobbyPhase represents the current state of a lobby
type LobbyPhase string

const (
	LobbyWaitingForOpponent LobbyPhase = "waiting_for_opponent"
	LobbyInGame             LobbyPhase = "in_game"
	LobbyAfterMatch         LobbyPhase = "after_match"
)

// MaxLobbyMembers is the hard cap on lobby occupancy
const MaxLobbyMembers = 2

// Seat holds the per-member contest state for one side of a lobby
type Seat struct {
	Player       PlayerID
	Move         Move // submitted choice for the in-progress round
	Wins         int
	WantsRematch bool
}

// Lobby pairs up to two players for one best-of-three contest
type Lobby struct {
	ID           LobbyID
	Name         string
	Phase        LobbyPhase
	Seats        []Seat // ordered, 0..2 entries
	RoundsPlayed int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SeatIndex returns the seat index of the given player, or -1
func (l *Lobby) SeatIndex(id PlayerID) int {
	for i := range l.Seats {
		if l.Seats[i].Player == id {
			return i
		}
	}
	return -1
}

// Seat returns the seat occupied by the given player, or nil
func (l *Lobby) Seat(id PlayerID) *Seat {
	if i := l.SeatIndex(id); i >= 0 {
		return &l.Seats[i]
	}
	return nil
}

// Opponent returns the other member's id, if a second member exists
func (l *Lobby) Opponent(id PlayerID) (PlayerID, bool) {
	for i := range l.Seats {
		if l.Seats[i].Player != id {
			return l.Seats[i].Player, true
		}
	}
	return 0, false
}

// IsFull reports whether the lobby has reached its member cap
func (l *Lobby) IsFull() bool {
	return len(l.Seats) >= MaxLobbyMembers
}

// ResetContest clears choices, counters and rematch intents for a fresh match
func (l *Lobby) ResetContest() {
	for i := range l.Seats {
		l.Seats[i].Move = MoveNone
		l.Seats[i].Wins = 0
		l.Seats[i].WantsRematch = false
	}
	l.RoundsPlayed = 0
}
