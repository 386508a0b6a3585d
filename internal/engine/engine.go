// Package engine holds the authoritative quiz session state machine. State is
// a value; Apply is the single mutation point and returns the events the
// command produced alongside the next state. The caller (one lobby goroutine)
// serializes Apply calls, which is what makes first-buzz-wins hold.
package engine

import (
	"errors"
	"slices"

	"github.com/kai9kono/Kuiz/internal/grader"
)

var ErrNotInGame = errors.New("no game in progress")
var ErrNoRound = errors.New("no active round")
var ErrRoundPaused = errors.New("round is paused for a buzz")
var ErrBuzzTaken = errors.New("another participant holds the buzz")
var ErrAlreadyAttempted = errors.New("already attempted this question")
var ErrDisqualified = errors.New("participant is disqualified")
var ErrNotBuzzHolder = errors.New("participant does not hold the buzz")
var ErrUnknownParticipant = errors.New("unknown participant")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrGameInProgress = errors.New("game already in progress")

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusInGame   Status = "ingame"
	StatusFinished Status = "finished"
)

// Question is immutable once drawn into a session; the question bank owns it.
type Question struct {
	ID     int
	Text   string
	Answer string
	Author string
}

// Settings are fixed for the lifetime of one game.
type Settings struct {
	PointsToWin  int
	MaxMistakes  int
	NumQuestions int
}

const (
	DefaultPointsToWin  = 5
	DefaultMaxMistakes  = 3
	DefaultNumQuestions = 10
)

func DefaultSettings() Settings {
	return Settings{
		PointsToWin:  DefaultPointsToWin,
		MaxMistakes:  DefaultMaxMistakes,
		NumQuestions: DefaultNumQuestions,
	}
}

// Round is the live question: how much of its text is revealed, who holds the
// buzz, and who has burned their single attempt.
type Round struct {
	Question        Question
	RevealedLength  int
	BuzzQueue       []string
	Attempted       map[string]bool
	Paused          bool
	FastReveal      bool
	CorrectAnswered bool
	LastCorrect     string
	// GraceActive is set once the text is fully revealed; buzzing stays
	// legal during the grace window until the round is declared complete.
	GraceActive bool
}

// TextLength counts runes, not bytes. Question text is routinely Japanese.
func (r *Round) TextLength() int {
	return len([]rune(r.Question.Text))
}

// RevealedText returns the prefix of the question text revealed so far.
func (r *Round) RevealedText() string {
	runes := []rune(r.Question.Text)
	if r.RevealedLength >= len(runes) {
		return r.Question.Text
	}
	return string(runes[:r.RevealedLength])
}

// State is the full per-lobby game state. Maps are shared between successive
// states returned by Apply; only the single lobby goroutine may touch them.
type State struct {
	Status    Status
	Roster    []string // join order, drives tiebreaks
	Scores    map[string]int
	Mistakes  map[string]int
	Settings  Settings
	Queue     []Question
	QueuePos  int // number of rounds started so far
	Total     int // queue length at game start
	Round     *Round
	SessionID int
}

func NewState(roster []string) State {
	return State{
		Status:   StatusWaiting,
		Roster:   append([]string(nil), roster...),
		Scores:   map[string]int{},
		Mistakes: map[string]int{},
		Settings: DefaultSettings(),
	}
}

// Disqualified reports whether name has used up its mistake allowance.
func (s State) Disqualified(name string) bool {
	return s.Mistakes[name] >= s.Settings.MaxMistakes
}

// BuzzHolder returns the participant currently holding the buzz, if any.
func (s State) BuzzHolder() (string, bool) {
	if s.Round == nil || len(s.Round.BuzzQueue) == 0 {
		return "", false
	}
	return s.Round.BuzzQueue[0], true
}

type CommandType string

const (
	CmdStartGame       CommandType = "StartGame"
	CmdStartRound      CommandType = "StartRound"
	CmdBuzz            CommandType = "Buzz"
	CmdSubmitAnswer    CommandType = "SubmitAnswer"
	CmdBuzzTimeout     CommandType = "BuzzTimeout"
	CmdAdvanceReveal   CommandType = "AdvanceReveal"
	CmdGraceExpired    CommandType = "GraceExpired"
	CmdParticipantLeft CommandType = "ParticipantLeft"
)

type Command struct {
	Type     CommandType
	Player   string
	Text     string
	Settings Settings
	Queue    []Question
}

type EventType string

const (
	EvtGameStarted    EventType = "GameStarted"
	EvtRoundStarted   EventType = "RoundStarted"
	EvtBuzzAccepted   EventType = "BuzzAccepted"
	EvtAnswerGraded   EventType = "AnswerGraded"
	EvtDisqualified   EventType = "Disqualified"
	EvtRevealAdvanced EventType = "RevealAdvanced"
	EvtRevealComplete EventType = "RevealComplete"
	EvtRoundComplete  EventType = "RoundComplete"
	EvtGameEnded      EventType = "GameEnded"
)

type Event struct {
	Type    EventType
	Player  string
	Correct bool
	Length  int
	Winner  string
	Reason  EndReason
}

// Apply runs one command against the state and returns the resulting events
// plus the next state. Rejections come back as sentinel errors with the state
// unchanged; timer-driven commands (reveal ticks, timeouts, grace expiry) are
// idempotent and never error so stale fires can be dropped silently.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdStartGame:
		return applyStartGame(s, cmd)
	case CmdStartRound:
		return applyStartRound(s)
	case CmdBuzz:
		return applyBuzz(s, cmd.Player)
	case CmdSubmitAnswer:
		return applySubmitAnswer(s, cmd.Player, cmd.Text)
	case CmdBuzzTimeout:
		return applyBuzzTimeout(s, cmd.Player)
	case CmdAdvanceReveal:
		return applyAdvanceReveal(s)
	case CmdGraceExpired:
		return applyGraceExpired(s)
	case CmdParticipantLeft:
		return applyParticipantLeft(s, cmd.Player)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func applyStartGame(s State, cmd Command) ([]Event, State, error) {
	if s.Status == StatusInGame {
		return nil, s, ErrGameInProgress
	}

	newState := s
	newState.Settings = cmd.Settings
	newState.Queue = cmd.Queue
	newState.QueuePos = 0
	newState.Total = len(cmd.Queue)
	newState.Round = nil
	newState.Status = StatusInGame
	newState.SessionID = s.SessionID + 1
	newState.Scores = make(map[string]int, len(s.Roster))
	newState.Mistakes = make(map[string]int, len(s.Roster))
	for _, name := range s.Roster {
		newState.Scores[name] = 0
		newState.Mistakes[name] = 0
	}

	return []Event{{Type: EvtGameStarted}}, newState, nil
}

func applyStartRound(s State) ([]Event, State, error) {
	if s.Status != StatusInGame {
		return nil, s, ErrNotInGame
	}

	newState := s
	if len(s.Queue) == 0 {
		// Queue exhausted without a points winner: highest score takes it.
		winner := highestScore(s)
		newState.Round = nil
		newState.Status = StatusFinished
		return []Event{{Type: EvtGameEnded, Winner: winner, Reason: EndQueueExhausted}}, newState, nil
	}

	q := s.Queue[0]
	newState.Queue = s.Queue[1:]
	newState.QueuePos = s.QueuePos + 1
	newState.Round = &Round{
		Question:  q,
		Attempted: make(map[string]bool),
	}

	return []Event{{Type: EvtRoundStarted}}, newState, nil
}

func applyBuzz(s State, name string) ([]Event, State, error) {
	if s.Status != StatusInGame {
		return nil, s, ErrNotInGame
	}
	r := s.Round
	if r == nil {
		return nil, s, ErrNoRound
	}
	if !slices.Contains(s.Roster, name) {
		return nil, s, ErrUnknownParticipant
	}
	if r.Paused {
		return nil, s, ErrRoundPaused
	}
	if len(r.BuzzQueue) > 0 {
		return nil, s, ErrBuzzTaken
	}
	if r.Attempted[name] {
		return nil, s, ErrAlreadyAttempted
	}
	if s.Disqualified(name) {
		return nil, s, ErrDisqualified
	}
	if r.CorrectAnswered {
		// Round is already decided; only the fast reveal is still running.
		return nil, s, ErrNoRound
	}

	newState := s
	nr := *r
	nr.BuzzQueue = append(append([]string(nil), r.BuzzQueue...), name)
	nr.Attempted[name] = true
	nr.Paused = true
	newState.Round = &nr

	return []Event{{Type: EvtBuzzAccepted, Player: name}}, newState, nil
}

func applySubmitAnswer(s State, name, text string) ([]Event, State, error) {
	if s.Status != StatusInGame {
		return nil, s, ErrNotInGame
	}
	r := s.Round
	if r == nil {
		return nil, s, ErrNoRound
	}
	if len(r.BuzzQueue) == 0 || r.BuzzQueue[0] != name {
		return nil, s, ErrNotBuzzHolder
	}

	correct := grader.Grade(r.Question.Answer, text)
	return gradeOutcome(s, name, correct)
}

// applyBuzzTimeout treats an expired answer window as an incorrect answer
// with no submission. Idempotent: if the buzz has already been resolved the
// stale timeout is a no-op.
func applyBuzzTimeout(s State, name string) ([]Event, State, error) {
	r := s.Round
	if s.Status != StatusInGame || r == nil {
		return nil, s, nil
	}
	if len(r.BuzzQueue) == 0 || r.BuzzQueue[0] != name || !r.Paused {
		return nil, s, nil
	}

	return gradeOutcome(s, name, false)
}

// gradeOutcome applies the scoring bookkeeping shared by answers and
// timeouts, then consults the end evaluator.
func gradeOutcome(s State, name string, correct bool) ([]Event, State, error) {
	newState := s
	nr := *s.Round
	nr.BuzzQueue = nil
	nr.Paused = false

	events := []Event{{Type: EvtAnswerGraded, Player: name, Correct: correct}}

	if correct {
		newState.Scores[name]++
		nr.CorrectAnswered = true
		nr.LastCorrect = name
		nr.FastReveal = true
	} else {
		newState.Mistakes[name]++
		if newState.Mistakes[name] >= s.Settings.MaxMistakes {
			events = append(events, Event{Type: EvtDisqualified, Player: name})
		}
	}
	newState.Round = &nr

	if end := EvaluateEnd(newState); end.Over {
		newState.Status = StatusFinished
		newState.Round = nil
		events = append(events, Event{Type: EvtGameEnded, Winner: end.Winner, Reason: end.Reason})
	}

	return events, newState, nil
}

func applyAdvanceReveal(s State) ([]Event, State, error) {
	r := s.Round
	if s.Status != StatusInGame || r == nil {
		return nil, s, nil
	}
	if r.Paused || r.GraceActive {
		return nil, s, nil
	}

	newState := s
	nr := *r
	nr.RevealedLength++
	events := []Event{{Type: EvtRevealAdvanced, Length: nr.RevealedLength}}

	if nr.RevealedLength >= nr.TextLength() {
		nr.RevealedLength = nr.TextLength()
		nr.GraceActive = true
		events = append(events, Event{Type: EvtRevealComplete})
	}

	newState.Round = &nr
	return events, newState, nil
}

// applyGraceExpired ends the round once the post-reveal grace window has run
// out, unless an answer is still being graded (the caller re-arms and retries
// while the round is paused).
func applyGraceExpired(s State) ([]Event, State, error) {
	r := s.Round
	if s.Status != StatusInGame || r == nil || !r.GraceActive {
		return nil, s, nil
	}
	if r.Paused {
		return nil, s, nil
	}

	newState := s
	newState.Round = nil
	return []Event{{Type: EvtRoundComplete}}, newState, nil
}

// applyParticipantLeft removes a participant from the active rotation.
// Historical scores stay for the result screen; decisions already made are
// not revisited. If the leaver held the buzz, the round resumes.
func applyParticipantLeft(s State, name string) ([]Event, State, error) {
	if !slices.Contains(s.Roster, name) {
		return nil, s, ErrUnknownParticipant
	}

	newState := s
	newState.Roster = slices.DeleteFunc(append([]string(nil), s.Roster...), func(n string) bool { return n == name })

	var events []Event
	if r := s.Round; r != nil && len(r.BuzzQueue) > 0 && r.BuzzQueue[0] == name {
		nr := *r
		nr.BuzzQueue = nil
		nr.Paused = false
		newState.Round = &nr
	}

	if s.Status == StatusInGame && len(newState.Roster) > 0 {
		if end := EvaluateEnd(newState); end.Over {
			newState.Status = StatusFinished
			newState.Round = nil
			events = append(events, Event{Type: EvtGameEnded, Winner: end.Winner, Reason: end.Reason})
		}
	}

	return events, newState, nil
}
