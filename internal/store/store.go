// Package store provides session persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/amajai/contentloop-ai/internal/domain"
)

var (
	// ErrNotFound is returned when a session ID is unknown to the repository.
	ErrNotFound = errors.New("session not found")
	// ErrAlreadyExists is returned when creating a session whose ID is taken.
	ErrAlreadyExists = errors.New("session already exists")
)

// Repository defines the interface for persisting revision sessions.
// Implementations must be safe for concurrent use and must never hand out
// references to their internal records.
type Repository interface {
	// Create inserts a new session.
	Create(ctx context.Context, session *domain.Session) error

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Update replaces an existing session. It returns ErrNotFound if the
	// session was removed in the meantime and never re-creates it.
	Update(ctx context.Context, session *domain.Session) error

	// Delete removes a session.
	Delete(ctx context.Context, id string) error

	// DeleteInactiveBefore removes every session whose last activity (or
	// creation time) is strictly before cutoff and returns the removed IDs.
	DeleteInactiveBefore(ctx context.Context, cutoff time.Time) ([]string, error)

	// Counts returns the number of stored sessions and how many of them are
	// inactive since before cutoff. It does not mutate.
	Counts(ctx context.Context, cutoff time.Time) (total int, inactive int, err error)

	// Ping verifies backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend  string
	DBPath   string
	RedisURL string
}

// New opens the repository selected by opts.Backend.
func New(ctx context.Context, opts Options) (Repository, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendSQLite:
		s, err := NewSQLite(opts.DBPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendRedis:
		s, err := NewRedisFromURL(ctx, opts.RedisURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.New("unknown store backend: " + opts.Backend)
	}
}

func inactive(s *domain.Session, cutoff time.Time) bool {
	return s.ActivityAt().Before(cutoff)
}
