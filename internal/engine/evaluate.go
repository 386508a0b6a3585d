package engine

// EndReason says why a game ended.
type EndReason string

const (
	EndPointsReached  EndReason = "points"
	EndAllEliminated  EndReason = "eliminated"
	EndQueueExhausted EndReason = "exhausted"
)

// EndResult is the outcome of a game-end check. Winner is empty when the
// roster was empty at the time of evaluation.
type EndResult struct {
	Over   bool
	Winner string
	Reason EndReason
}

// EvaluateEnd decides whether the session has reached a terminal state. It is
// called immediately after every scoring mutation, so win-by-points ties
// resolve to whoever reached the threshold first. If every remaining roster
// member is disqualified, the highest current score wins, with ties broken by
// roster order (first registered wins).
func EvaluateEnd(s State) EndResult {
	for _, name := range s.Roster {
		if s.Scores[name] >= s.Settings.PointsToWin {
			return EndResult{Over: true, Winner: name, Reason: EndPointsReached}
		}
	}

	if len(s.Roster) == 0 {
		return EndResult{}
	}

	allOut := true
	for _, name := range s.Roster {
		if s.Mistakes[name] < s.Settings.MaxMistakes {
			allOut = false
			break
		}
	}
	if allOut {
		return EndResult{Over: true, Winner: highestScore(s), Reason: EndAllEliminated}
	}

	return EndResult{}
}

// highestScore returns the roster member with the highest score, ties broken
// by roster order. Empty roster yields "".
func highestScore(s State) string {
	winner := ""
	best := -1
	for _, name := range s.Roster {
		if s.Scores[name] > best {
			winner = name
			best = s.Scores[name]
		}
	}
	return winner
}
