// Package session keeps calculator states across requests. Each session owns
// one engine.State plus the tape of keys that produced it.
package session

import (
	"context"
	"errors"
	"time"

	"go-chi-calculator/internal/engine"
)

// ErrNotFound is returned when no session has the requested id.
var ErrNotFound = errors.New("session not found")

// Session is one calculator and its key history.
type Session struct {
	ID        string       `json:"id"`
	State     engine.State `json:"state"`
	Tape      []string     `json:"tape"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.State = s.State.Clone()
	c.Tape = append([]string(nil), s.Tape...)
	return &c
}

// Store persists sessions. Implementations must be safe for concurrent use.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int, error)
	Close() error
}
