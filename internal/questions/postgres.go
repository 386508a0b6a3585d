package questions

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kai9kono/Kuiz/internal/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS questions (
	id SERIAL PRIMARY KEY,
	text TEXT NOT NULL,
	answer TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT ''
)`

// PostgresBank reads questions from the questions table.
type PostgresBank struct {
	pool *pgxpool.Pool
}

// NewPostgresBank connects, ensures the schema exists and returns the bank.
func NewPostgresBank(ctx context.Context, dsn string) (*PostgresBank, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect question bank: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure questions table: %w", err)
	}
	return &PostgresBank{pool: pool}, nil
}

func (b *PostgresBank) Close() {
	b.pool.Close()
}

func (b *PostgresBank) FetchAll(ctx context.Context) ([]engine.Question, error) {
	rows, err := b.pool.Query(ctx, `SELECT id, text, answer, author FROM questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	defer rows.Close()

	var qs []engine.Question
	for rows.Next() {
		var q engine.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Answer, &q.Author); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		qs = append(qs, q)
	}
	return qs, rows.Err()
}

func (b *PostgresBank) FetchRandom(ctx context.Context, n int) ([]engine.Question, error) {
	qs, err := b.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, ErrEmptyBank
	}
	return drawRandom(qs, n), nil
}
