// Package history is the optional played-question log. Writes are
// best-effort: a failed insert is logged by the caller and never affects the
// game.
package history

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Entry records one question having been played in one session.
type Entry struct {
	ID         uint   `gorm:"primaryKey"`
	LobbyCode  string `gorm:"size:6;index"`
	SessionID  int
	QuestionID int
	Text       string
	Answer     string
	PlayedAt   time.Time `gorm:"autoCreateTime"`
}

func (Entry) TableName() string { return "question_history" }

type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// GormRecorder persists entries to Postgres.
type GormRecorder struct {
	db *gorm.DB
}

func NewGormRecorder(dsn string) (*GormRecorder, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate question_history: %w", err)
	}
	return &GormRecorder{db: db}, nil
}

func (r *GormRecorder) Record(ctx context.Context, e Entry) error {
	return r.db.WithContext(ctx).Create(&e).Error
}

// NopRecorder drops entries; used when no database is configured.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Entry) error { return nil }
