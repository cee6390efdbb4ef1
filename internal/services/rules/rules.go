// Package rules holds the pure contest arithmetic: which of two choices
// takes a round, and when a best-of-three match is over.
package rules

import "github.com/MrEll3n/ups-server/internal/model"

const (
	// WinsToTake is the seat-win count that ends the match early
	WinsToTake = 2
	// MaxRounds caps a match regardless of the score
	MaxRounds = 3
)

// RoundOutcome designates the winning seat of one round
type RoundOutcome int

const (
	RoundDraw RoundOutcome = iota
	RoundFirstWins
	RoundSecondWins
)

// beats maps each move to the move it defeats: R > S > P > R
var beats = map[model.Move]model.Move{
	model.MoveRock:     model.MoveScissors,
	model.MoveScissors: model.MovePaper,
	model.MovePaper:    model.MoveRock,
}

// ResolveRound maps the two seats' choices to a round outcome
func ResolveRound(first, second model.Move) RoundOutcome {
	if first == second {
		return RoundDraw
	}
	if beats[first] == second {
		return RoundFirstWins
	}
	return RoundSecondWins
}

// Verdict is the match-end decision derived from accumulated round wins
type Verdict struct {
	Ended bool
	// WinnerSeat is 0 or 1 when a seat took the match, -1 on a draw.
	// Meaningful only when Ended is true.
	WinnerSeat int
}

// EvaluateMatch decides whether the match is over: a seat reaching
// WinsToTake ends it immediately, otherwise it ends after MaxRounds with
// the higher tally winning (equal tallies draw).
func EvaluateMatch(firstWins, secondWins, roundsPlayed int) Verdict {
	if firstWins >= WinsToTake {
		return Verdict{Ended: true, WinnerSeat: 0}
	}
	if secondWins >= WinsToTake {
		return Verdict{Ended: true, WinnerSeat: 1}
	}
	if roundsPlayed >= MaxRounds {
		switch {
		case firstWins > secondWins:
			return Verdict{Ended: true, WinnerSeat: 0}
		case secondWins > firstWins:
			return Verdict{Ended: true, WinnerSeat: 1}
		default:
			return Verdict{Ended: true, WinnerSeat: -1}
		}
	}
	return Verdict{}
}
