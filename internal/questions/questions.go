// Package questions provides the question bank the game draws from. The bank
// is an external collaborator as far as the session engine is concerned; the
// Postgres store mirrors the original schema, and the memory bank backs tests
// and DB-less deployments.
package questions

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"github.com/kai9kono/Kuiz/internal/engine"
)

var ErrEmptyBank = errors.New("question bank is empty")

type Bank interface {
	FetchAll(ctx context.Context) ([]engine.Question, error)
	// FetchRandom draws up to n distinct questions in shuffled order.
	FetchRandom(ctx context.Context, n int) ([]engine.Question, error)
}

// MemoryBank is a fixed in-memory Bank.
type MemoryBank struct {
	mu        sync.Mutex
	questions []engine.Question
}

func NewMemoryBank(qs []engine.Question) *MemoryBank {
	return &MemoryBank{questions: append([]engine.Question(nil), qs...)}
}

func (b *MemoryBank) FetchAll(ctx context.Context) ([]engine.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]engine.Question(nil), b.questions...), nil
}

func (b *MemoryBank) FetchRandom(ctx context.Context, n int) ([]engine.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.questions) == 0 {
		return nil, ErrEmptyBank
	}
	return drawRandom(b.questions, n), nil
}

// drawRandom shuffles a copy and takes the first min(n, len) entries, i.e. a
// draw without replacement.
func drawRandom(qs []engine.Question, n int) []engine.Question {
	shuffled := append([]engine.Question(nil), qs...)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}
