// Package lobby runs one goroutine per lobby that owns the game state
// outright. Every input (client commands, reveal ticks, timeout callbacks)
// funnels through the inbox channel, so exactly one state mutation is in
// flight at a time and the first buzz to reach the inbox wins.
package lobby

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kai9kono/Kuiz/internal/engine"
	"github.com/kai9kono/Kuiz/internal/history"
	"github.com/kai9kono/Kuiz/internal/questions"
	"github.com/kai9kono/Kuiz/pkg/types"
)

// Capacity is the maximum roster size of a lobby, host included.
const Capacity = 4

type Msg interface{ isLobbyMsg() }

// Join registers a connection under a participant name. If the name is
// already on the roster without a live connection (the host after creating
// the lobby over HTTP, before attaching), the connection is bound to it.
type Join struct {
	ClientID string
	Name     string
	Outbox   chan types.ServerMessage
	Reply    chan JoinResult
}

func (Join) isLobbyMsg() {}

type JoinResult struct {
	OK     bool
	Reason string
}

// Leave reports a departed connection. Name is the participant the
// connection was bound to; transport failures arrive through the same path.
type Leave struct {
	ClientID string
	Name     string
}

func (Leave) isLobbyMsg() {}

// FromClient carries a client-issued engine command. The lobby overrides
// Cmd.Player with the name the connection joined under.
type FromClient struct {
	ClientID string
	Cmd      engine.Command
}

func (FromClient) isLobbyMsg() {}

// StateSync asks for a snapshot pushed to one client only.
type StateSync struct{ ClientID string }

func (StateSync) isLobbyMsg() {}

// GetState reflects internal state without data races; used by tests and the
// HTTP pull endpoint.
type GetState struct{ Reply chan View }

func (GetState) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

// Timer-driven messages. Each carries the round generation it was armed for;
// fires from a previous round are dropped.
type tickMsg struct {
	gen   int
	reply chan tickReply
}

func (tickMsg) isLobbyMsg() {}

type tickReply struct {
	stale  bool
	done   bool
	paused bool
	fast   bool
}

type graceMsg struct{ gen int }

func (graceMsg) isLobbyMsg() {}

type answerTimeoutMsg struct {
	gen  int
	name string
}

func (answerTimeoutMsg) isLobbyMsg() {}

type nextRoundMsg struct{ gen int }

func (nextRoundMsg) isLobbyMsg() {}

type View struct {
	Version    int
	NumClients int
	State      engine.State
	Snapshot   *types.Snapshot
}

type client struct {
	name   string
	outbox chan types.ServerMessage
}

type Lobby struct {
	code    string
	host    string
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]*client

	// roundGen invalidates in-flight timers whenever the round changes.
	roundGen      int
	current       engine.Question
	answerTimer   *time.Timer
	graceDeadline time.Time
	lastBroadcast int

	cfg     Config
	log     *zap.Logger
	bank    questions.Bank
	history history.Recorder
	onClose func(code string)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewLobby starts the lobby goroutine with the host already on the roster.
func NewLobby(parent context.Context, code, hostName string, cfg Config, bank questions.Bank, rec history.Recorder, log *zap.Logger, onClose func(code string)) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		code:    code,
		host:    hostName,
		inbox:   make(chan Msg, 64),
		state:   engine.NewState([]string{hostName}),
		clients: make(map[string]*client),
		cfg:     cfg,
		log:     log.With(zap.String("lobby", code)),
		bank:    bank,
		history: rec,
		onClose: onClose,
		ctx:     ctx,
		cancel:  cancel,
	}

	go l.loop()
	return l
}

// Inbox is the single serialization point for this lobby.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) Code() string { return l.code }

// Done is closed once the lobby has shut down; senders should select on it
// so they never block on the inbox of a dead lobby.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.handleJoin(msg)
			case Leave:
				if l.handleLeave(msg.ClientID, msg.Name) {
					return
				}
			case FromClient:
				l.handleCommand(msg)
			case StateSync:
				if c := l.clients[msg.ClientID]; c != nil {
					l.sendTo(c, types.ServerMessage{Type: types.MsgStateChanged, State: l.snapshot()})
				}
			case GetState:
				msg.Reply <- View{Version: l.version, NumClients: len(l.clients), State: l.state, Snapshot: l.snapshot()}
			case tickMsg:
				msg.reply <- l.handleTick(msg.gen)
			case graceMsg:
				l.handleGrace(msg.gen)
			case answerTimeoutMsg:
				l.handleAnswerTimeout(msg)
			case nextRoundMsg:
				if msg.gen == l.roundGen && l.state.Status == engine.StatusInGame {
					l.startRound()
				}
			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) handleJoin(msg Join) {
	bound := false
	for _, c := range l.clients {
		if c.name == msg.Name {
			bound = true
			break
		}
	}

	onRoster := false
	for _, n := range l.state.Roster {
		if n == msg.Name {
			onRoster = true
			break
		}
	}

	switch {
	case bound:
		msg.Reply <- JoinResult{Reason: "name already taken"}
		return
	case onRoster:
		// Rebind: roster entry without a live connection.
	case l.state.Status == engine.StatusInGame:
		msg.Reply <- JoinResult{Reason: "game already in progress"}
		return
	case len(l.state.Roster) >= l.cfg.Capacity:
		msg.Reply <- JoinResult{Reason: "lobby is full"}
		return
	default:
		l.state.Roster = append(l.state.Roster, msg.Name)
	}

	l.clients[msg.ClientID] = &client{name: msg.Name, outbox: msg.Outbox}
	msg.Reply <- JoinResult{OK: true}
	l.log.Info("participant joined", zap.String("name", msg.Name))
	l.broadcast(types.ServerMessage{Type: types.MsgLobbyState, State: l.snapshot()})
}

// handleLeave returns true when the lobby tore itself down.
func (l *Lobby) handleLeave(clientID, name string) bool {
	if c := l.clients[clientID]; c != nil {
		name = c.name
		delete(l.clients, clientID)
	}

	events, newState, err := engine.Apply(l.state, engine.Command{Type: engine.CmdParticipantLeft, Player: name})
	if err == nil {
		l.state = newState
		l.log.Info("participant left", zap.String("name", name))
	}

	if name == l.host || len(l.state.Roster) == 0 {
		l.log.Info("lobby closing", zap.Bool("host_left", name == l.host))
		l.shutdown()
		return true
	}

	l.handleEvents(events)
	l.broadcast(types.ServerMessage{Type: types.MsgLobbyState, State: l.snapshot()})
	return false
}

func (l *Lobby) handleCommand(msg FromClient) {
	c := l.clients[msg.ClientID]
	if c == nil {
		return
	}
	cmd := msg.Cmd
	cmd.Player = c.name

	if cmd.Type == engine.CmdStartGame {
		l.handleStartGame(c, cmd)
		return
	}

	events, newState, err := engine.Apply(l.state, cmd)
	if err != nil {
		l.sendTo(c, types.ServerMessage{Type: types.MsgError, Error: err.Error()})
		return
	}
	l.state = newState
	l.handleEvents(events)
}

func (l *Lobby) handleStartGame(c *client, cmd engine.Command) {
	if c.name != l.host {
		l.sendTo(c, types.ServerMessage{Type: types.MsgError, Error: "only the host can start the game"})
		return
	}

	ctx, cancel := context.WithTimeout(l.ctx, 5*time.Second)
	queue, err := l.bank.FetchRandom(ctx, cmd.Settings.NumQuestions)
	cancel()
	if err != nil {
		l.log.Error("question draw failed", zap.Error(err))
		l.sendTo(c, types.ServerMessage{Type: types.MsgError, Error: "failed to load questions"})
		return
	}
	cmd.Queue = queue

	events, newState, err := engine.Apply(l.state, cmd)
	if err != nil {
		l.sendTo(c, types.ServerMessage{Type: types.MsgError, Error: err.Error()})
		return
	}
	l.state = newState
	l.handleEvents(events)
	l.startRound()
}

// startRound dequeues the next question, cancels the previous round's timers
// via the generation bump, and kicks off a fresh reveal loop.
func (l *Lobby) startRound() {
	l.roundGen++
	l.stopAnswerTimer()

	events, newState, err := engine.Apply(l.state, engine.Command{Type: engine.CmdStartRound})
	if err != nil {
		l.log.Error("start round failed", zap.Error(err))
		return
	}
	l.state = newState
	l.lastBroadcast = 0

	if r := l.state.Round; r != nil {
		l.current = r.Question
		l.recordPlayed(r.Question)
		l.broadcast(types.ServerMessage{Type: types.MsgRoundStarted, State: l.snapshot()})
		go l.runReveal(l.roundGen)
	}
	l.handleEvents(events)
}

// finishRound broadcasts the canonical answer and schedules the next round.
func (l *Lobby) finishRound() {
	l.roundGen++
	l.stopAnswerTimer()

	l.broadcast(types.ServerMessage{
		Type:   types.MsgRoundEnded,
		Answer: l.current.Answer,
		State:  l.snapshot(),
	})

	gen := l.roundGen
	time.AfterFunc(l.cfg.AnswerRevealDelay, func() {
		select {
		case l.inbox <- nextRoundMsg{gen: gen}:
		case <-l.ctx.Done():
		}
	})
}

func (l *Lobby) handleEvents(events []engine.Event) {
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtGameStarted:
			l.broadcast(types.ServerMessage{Type: types.MsgStateChanged, State: l.snapshot()})

		case engine.EvtBuzzAccepted:
			l.armAnswerTimer(ev.Player)
			l.broadcast(types.ServerMessage{Type: types.MsgBuzzAccepted, Player: ev.Player, State: l.snapshot()})

		case engine.EvtAnswerGraded:
			l.stopAnswerTimer()
			l.broadcast(types.ServerMessage{Type: types.MsgAnswerGraded, Player: ev.Player, Correct: ev.Correct, State: l.snapshot()})
			if ev.Correct {
				if r := l.state.Round; r != nil && r.GraceActive {
					// Correct during the grace window: no text left to
					// fast-reveal, close out the round now.
					l.finishRound()
				}
			}

		case engine.EvtDisqualified:
			l.log.Info("participant disqualified", zap.String("name", ev.Player))

		case engine.EvtRevealComplete:
			if r := l.state.Round; r != nil && r.CorrectAnswered {
				l.finishRound()
			} else {
				l.armGraceTimer()
			}

		case engine.EvtRoundComplete:
			l.finishRound()

		case engine.EvtGameEnded:
			l.roundGen++
			l.stopAnswerTimer()
			l.log.Info("game ended", zap.String("winner", ev.Winner), zap.String("reason", string(ev.Reason)))
			l.broadcast(types.ServerMessage{
				Type:   types.MsgGameEnded,
				Winner: ev.Winner,
				Reason: string(ev.Reason),
				State:  l.snapshot(),
			})
		}
	}
}

// handleTick applies one reveal step and tells the scheduler how to pace the
// next one. Broadcasts are coalesced: every BroadcastEvery characters, plus a
// final one when the text completes.
func (l *Lobby) handleTick(gen int) tickReply {
	if gen != l.roundGen {
		return tickReply{stale: true}
	}
	r := l.state.Round
	if r == nil || l.state.Status != engine.StatusInGame {
		return tickReply{done: true}
	}
	if r.Paused {
		return tickReply{paused: true}
	}

	events, newState, _ := engine.Apply(l.state, engine.Command{Type: engine.CmdAdvanceReveal})
	l.state = newState

	complete := false
	for _, ev := range events {
		if ev.Type == engine.EvtRevealComplete {
			complete = true
		}
	}

	if r := l.state.Round; r != nil {
		if complete || r.RevealedLength-l.lastBroadcast >= l.cfg.BroadcastEvery {
			l.broadcast(types.ServerMessage{Type: types.MsgStateChanged, State: l.snapshot()})
			l.lastBroadcast = r.RevealedLength
		}
	}

	l.handleEvents(events)

	fast := l.state.Round != nil && l.state.Round.FastReveal
	return tickReply{done: complete, fast: fast}
}

func (l *Lobby) armAnswerTimer(name string) {
	l.stopAnswerTimer()
	gen := l.roundGen
	l.answerTimer = time.AfterFunc(l.cfg.AnswerWindow, func() {
		select {
		case l.inbox <- answerTimeoutMsg{gen: gen, name: name}:
		case <-l.ctx.Done():
		}
	})
}

func (l *Lobby) stopAnswerTimer() {
	if l.answerTimer != nil {
		l.answerTimer.Stop()
		l.answerTimer = nil
	}
}

func (l *Lobby) handleAnswerTimeout(msg answerTimeoutMsg) {
	if msg.gen != l.roundGen {
		return
	}
	events, newState, _ := engine.Apply(l.state, engine.Command{Type: engine.CmdBuzzTimeout, Player: msg.name})
	l.state = newState
	l.handleEvents(events)
}

func (l *Lobby) armGraceTimer() {
	l.graceDeadline = time.Now().Add(l.cfg.GraceWindow + l.cfg.AnswerWaitCeiling)
	l.armGraceAfter(l.cfg.GraceWindow)
}

func (l *Lobby) armGraceAfter(d time.Duration) {
	gen := l.roundGen
	time.AfterFunc(d, func() {
		select {
		case l.inbox <- graceMsg{gen: gen}:
		case <-l.ctx.Done():
		}
	})
}

// handleGrace ends the round after the grace window, re-checking while an
// answer is still in flight, bounded by the wait ceiling.
func (l *Lobby) handleGrace(gen int) {
	if gen != l.roundGen {
		return
	}

	events, newState, _ := engine.Apply(l.state, engine.Command{Type: engine.CmdGraceExpired})
	l.state = newState
	if len(events) > 0 {
		l.handleEvents(events)
		return
	}

	r := l.state.Round
	if r == nil || l.state.Status != engine.StatusInGame {
		return
	}
	if time.Now().Before(l.graceDeadline) {
		l.armGraceAfter(l.cfg.PausePoll)
		return
	}
	// Ceiling reached with a buzz still unresolved; stop waiting and close
	// the round without grading it.
	l.log.Warn("grace ceiling reached, closing round")
	l.finishRound()
}

func (l *Lobby) recordPlayed(q engine.Question) {
	if l.history == nil {
		return
	}
	entry := history.Entry{
		LobbyCode:  l.code,
		SessionID:  l.state.SessionID,
		QuestionID: q.ID,
		Text:       q.Text,
		Answer:     q.Answer,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := l.history.Record(ctx, entry); err != nil {
			l.log.Warn("history record failed", zap.Error(err))
		}
	}()
}

func (l *Lobby) snapshot() *types.Snapshot {
	s := l.state
	snap := &types.Snapshot{
		Code:      l.code,
		Host:      l.host,
		Status:    string(s.Status),
		SessionID: s.SessionID,
	}
	for _, name := range s.Roster {
		snap.Participants = append(snap.Participants, types.ParticipantView{
			Name:         name,
			Score:        s.Scores[name],
			Mistakes:     s.Mistakes[name],
			Disqualified: s.Status == engine.StatusInGame && s.Disqualified(name),
		})
	}
	if r := s.Round; r != nil {
		snap.QuestionNumber = s.QueuePos
		snap.TotalQuestions = s.Total
		snap.RevealedText = r.RevealedText()
		snap.RevealedLength = r.RevealedLength
		snap.TextLength = r.TextLength()
		snap.Paused = r.Paused
		if holder, ok := s.BuzzHolder(); ok {
			snap.BuzzHolder = holder
		}
	}
	return snap
}

func (l *Lobby) sendTo(c *client, msg types.ServerMessage) {
	select {
	case c.outbox <- msg:
	default:
		// Slow client; drop it. The transport notices the closed channel
		// and reports the disconnect through Leave.
		l.dropClient(c)
	}
}

func (l *Lobby) broadcast(msg types.ServerMessage) {
	l.version++
	msg.Version = l.version
	for _, c := range l.clients {
		select {
		case c.outbox <- msg:
		default:
			l.dropClient(c)
		}
	}
}

func (l *Lobby) dropClient(target *client) {
	for id, c := range l.clients {
		if c == target {
			close(c.outbox)
			delete(l.clients, id)
			return
		}
	}
}

func (l *Lobby) shutdown() {
	for id, c := range l.clients {
		close(c.outbox)
		delete(l.clients, id)
	}
	l.stopAnswerTimer()
	l.cancel()
	if l.onClose != nil {
		l.onClose(l.code)
	}
}
