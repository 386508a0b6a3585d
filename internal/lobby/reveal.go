package lobby

import "time"

// Timing constants for the reveal clock. These are game-balance values from
// the original ruleset; they are overridable through Config but should not be
// re-derived.
const (
	DefaultRevealInterval     = 60 * time.Millisecond
	DefaultFastRevealInterval = 15 * time.Millisecond
	DefaultPausePoll          = 100 * time.Millisecond
	DefaultAnswerWindow       = 10 * time.Second
	DefaultGraceWindow        = 5 * time.Second
	DefaultAnswerWaitCeiling  = 15 * time.Second
	DefaultPreDisplay         = 2 * time.Second
	DefaultAnswerRevealDelay  = 3 * time.Second
	DefaultBroadcastEvery     = 3
)

type Config struct {
	// RevealInterval paces the character reveal; FastRevealInterval takes
	// over after a correct answer to finish showing the remaining text.
	RevealInterval     time.Duration
	FastRevealInterval time.Duration
	// PausePoll bounds how long a resume can lag after a buzz resolves.
	PausePoll time.Duration
	// AnswerWindow is how long a buzz holder has before the buzz is graded
	// as a mistake with no submission.
	AnswerWindow time.Duration
	// GraceWindow keeps buzzing open after the full text is revealed;
	// AnswerWaitCeiling bounds the extra wait for a last-second answer.
	GraceWindow       time.Duration
	AnswerWaitCeiling time.Duration
	// PreDisplay delays the first character so clients can show a
	// question-number banner.
	PreDisplay        time.Duration
	AnswerRevealDelay time.Duration
	// BroadcastEvery coalesces reveal broadcasts to one per N characters.
	BroadcastEvery int
	Capacity       int
}

func DefaultConfig() Config {
	return Config{
		RevealInterval:     DefaultRevealInterval,
		FastRevealInterval: DefaultFastRevealInterval,
		PausePoll:          DefaultPausePoll,
		AnswerWindow:       DefaultAnswerWindow,
		GraceWindow:        DefaultGraceWindow,
		AnswerWaitCeiling:  DefaultAnswerWaitCeiling,
		PreDisplay:         DefaultPreDisplay,
		AnswerRevealDelay:  DefaultAnswerRevealDelay,
		BroadcastEvery:     DefaultBroadcastEvery,
		Capacity:           Capacity,
	}
}

// runReveal is the cooperative reveal clock for one round. It never touches
// state itself: each step is a tick message into the lobby inbox, and the
// reply tells it whether to pace normally, poll while paused, or stop. A
// generation mismatch on the lobby side kills stale clocks, so a new round or
// shutdown cancels this loop within one interval.
func (l *Lobby) runReveal(gen int) {
	if !l.sleep(l.cfg.PreDisplay) {
		return
	}

	for {
		reply := make(chan tickReply, 1)
		select {
		case l.inbox <- tickMsg{gen: gen, reply: reply}:
		case <-l.ctx.Done():
			return
		}

		var r tickReply
		select {
		case r = <-reply:
		case <-l.ctx.Done():
			return
		}

		if r.stale || r.done {
			return
		}

		interval := l.cfg.RevealInterval
		switch {
		case r.paused:
			interval = l.cfg.PausePoll
		case r.fast:
			interval = l.cfg.FastRevealInterval
		}
		if !l.sleep(interval) {
			return
		}
	}
}

func (l *Lobby) sleep(d time.Duration) bool {
	if d <= 0 {
		return l.ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-l.ctx.Done():
		return false
	}
}
