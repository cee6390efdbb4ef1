package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrEll3n/ups-server/internal/model"
)

func TestResolveRound(t *testing.T) {
	tests := []struct {
		name     string
		first    model.Move
		second   model.Move
		expected RoundOutcome
	}{
		{"rock blunts scissors", model.MoveRock, model.MoveScissors, RoundFirstWins},
		{"scissors cut paper", model.MoveScissors, model.MovePaper, RoundFirstWins},
		{"paper wraps rock", model.MovePaper, model.MoveRock, RoundFirstWins},
		{"scissors lose to rock", model.MoveScissors, model.MoveRock, RoundSecondWins},
		{"paper loses to scissors", model.MovePaper, model.MoveScissors, RoundSecondWins},
		{"rock loses to paper", model.MoveRock, model.MovePaper, RoundSecondWins},
		{"equal rock draws", model.MoveRock, model.MoveRock, RoundDraw},
		{"equal paper draws", model.MovePaper, model.MovePaper, RoundDraw},
		{"equal scissors draws", model.MoveScissors, model.MoveScissors, RoundDraw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveRound(tt.first, tt.second))
		})
	}
}

// Swapping the submission order must swap the designated seat, never the
// identity of the winning choice.
func TestResolveRoundSeatSymmetry(t *testing.T) {
	moves := []model.Move{model.MoveRock, model.MovePaper, model.MoveScissors}
	for _, a := range moves {
		for _, b := range moves {
			forward := ResolveRound(a, b)
			backward := ResolveRound(b, a)
			switch forward {
			case RoundDraw:
				assert.Equal(t, RoundDraw, backward)
			case RoundFirstWins:
				assert.Equal(t, RoundSecondWins, backward)
			case RoundSecondWins:
				assert.Equal(t, RoundFirstWins, backward)
			}
		}
	}
}

func TestEvaluateMatch(t *testing.T) {
	tests := []struct {
		name         string
		firstWins    int
		secondWins   int
		roundsPlayed int
		ended        bool
		winnerSeat   int
	}{
		{"fresh match", 0, 0, 0, false, 0},
		{"one win each side open", 1, 1, 2, false, 0},
		{"first takes two straight", 2, 0, 2, true, 0},
		{"second takes two straight", 0, 2, 2, true, 1},
		{"first takes deciding round", 2, 1, 3, true, 0},
		{"one win after draws still open", 1, 0, 2, false, 0},
		{"three rounds first ahead", 1, 0, 3, true, 0},
		{"three rounds second ahead", 0, 1, 3, true, 1},
		{"three rounds level is a draw", 1, 1, 3, true, -1},
		{"three all-draw rounds", 0, 0, 3, true, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := EvaluateMatch(tt.firstWins, tt.secondWins, tt.roundsPlayed)
			assert.Equal(t, tt.ended, v.Ended)
			if tt.ended {
				assert.Equal(t, tt.winnerSeat, v.WinnerSeat)
			}
		})
	}
}

// Both seats holding two wins is unreachable: the match ends the moment
// the first seat gets there.
func TestEvaluateMatchEndsBeforeDoubleTwo(t *testing.T) {
	for rounds := 0; rounds <= MaxRounds; rounds++ {
		for w1 := 0; w1 <= rounds; w1++ {
			w2 := rounds - w1
			v := EvaluateMatch(w1, w2, rounds)
			if w1 >= WinsToTake || w2 >= WinsToTake || rounds >= MaxRounds {
				assert.True(t, v.Ended, "w1=%d w2=%d rounds=%d", w1, w2, rounds)
			} else {
				assert.False(t, v.Ended, "w1=%d w2=%d rounds=%d", w1, w2, rounds)
			}
		}
	}
}
