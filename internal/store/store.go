// Package store provides the keyed session container behind the game engine.
package store

import (
	"context"
	"time"

	"github.com/career-sequence-game/internal/domain"
)

// SessionStore is a keyed container for live sessions. Update is an atomic
// read-modify-write on a single key: two concurrent updates to the same
// session never both apply against the same pre-update state. Operations on
// different keys do not block one another.
//
// Implementations return domain.ErrSessionNotFound for missing keys.
type SessionStore interface {
	// Insert stores a new session.
	Insert(ctx context.Context, session *domain.Session) error

	// Get returns a snapshot of the session.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Update applies fn to the session atomically. If fn returns an error
	// the session is left unchanged and the error is returned unwrapped.
	// On success the updated snapshot is returned.
	Update(ctx context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error)

	// Delete removes the session. Deleting a missing session returns
	// domain.ErrSessionNotFound.
	Delete(ctx context.Context, id string) error

	// Exists reports whether the session is present and unexpired.
	Exists(ctx context.Context, id string) (bool, error)

	// Sweep deletes every session idle longer than ttl and returns how
	// many were removed. A failure on one entry must not abort the rest.
	Sweep(ctx context.Context, ttl time.Duration) (int, error)

	// Close releases any backing resources.
	Close() error
}
