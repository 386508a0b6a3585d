package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func evalState(roster []string, scores, mistakes map[string]int, pointsToWin, maxMistakes int) State {
	s := NewState(roster)
	s.Status = StatusInGame
	s.Settings = Settings{PointsToWin: pointsToWin, MaxMistakes: maxMistakes}
	for k, v := range scores {
		s.Scores[k] = v
	}
	for k, v := range mistakes {
		s.Mistakes[k] = v
	}
	return s
}

func TestEvaluateEnd_WinnerByPoints(t *testing.T) {
	s := evalState([]string{"A", "B"}, map[string]int{"A": 5, "B": 3}, nil, 5, 3)

	end := EvaluateEnd(s)
	assert.True(t, end.Over)
	assert.Equal(t, "A", end.Winner)
	assert.Equal(t, EndPointsReached, end.Reason)
}

func TestEvaluateEnd_NotOver(t *testing.T) {
	s := evalState([]string{"A", "B"}, map[string]int{"A": 4, "B": 3}, map[string]int{"A": 2}, 5, 3)
	assert.False(t, EvaluateEnd(s).Over)
}

func TestEvaluateEnd_AllEliminatedHighestScoreWins(t *testing.T) {
	s := evalState(
		[]string{"A", "B", "C"},
		map[string]int{"A": 1, "B": 4, "C": 2},
		map[string]int{"A": 3, "B": 3, "C": 3},
		5, 3,
	)

	end := EvaluateEnd(s)
	assert.True(t, end.Over)
	assert.Equal(t, EndAllEliminated, end.Reason)
	assert.Equal(t, "B", end.Winner)
}

func TestEvaluateEnd_AllEliminatedTieBreaksByRosterOrder(t *testing.T) {
	s := evalState(
		[]string{"First", "Second"},
		map[string]int{"First": 2, "Second": 2},
		map[string]int{"First": 3, "Second": 3},
		5, 3,
	)

	end := EvaluateEnd(s)
	assert.True(t, end.Over)
	assert.Equal(t, "First", end.Winner)
}

func TestEvaluateEnd_EmptyRoster(t *testing.T) {
	s := evalState(nil, nil, nil, 5, 3)
	assert.False(t, EvaluateEnd(s).Over)
}

func TestHighestScore_EmptyRosterHasNoWinner(t *testing.T) {
	s := evalState(nil, nil, nil, 5, 3)
	assert.Equal(t, "", highestScore(s))
}
