package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amajai/contentloop-ai/internal/domain"
	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps sessions in process memory. Entries never expire on
// their own; eviction is left to the sweeper.
type MemoryStore struct {
	mu    sync.Mutex // serializes compound read-modify-delete operations
	cache *cache.Cache
}

// NewMemoryStore creates an empty in-memory repository.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

// Create inserts a new session.
func (s *MemoryStore) Create(_ context.Context, session *domain.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cache.Add(session.ID, session.Clone(), cache.NoExpiration); err != nil {
		return fmt.Errorf("create session %s: %w", session.ID, ErrAlreadyExists)
	}
	return nil
}

// Get retrieves a session by ID.
func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Session, error) {
	x, found := s.cache.Get(id)
	if !found {
		return nil, ErrNotFound
	}
	return x.(*domain.Session).Clone(), nil
}

// Update replaces an existing session.
func (s *MemoryStore) Update(_ context.Context, session *domain.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cache.Replace(session.ID, session.Clone(), cache.NoExpiration); err != nil {
		return ErrNotFound
	}
	return nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.cache.Get(id); !found {
		return ErrNotFound
	}
	s.cache.Delete(id)
	return nil
}

// DeleteInactiveBefore removes sessions idle since before cutoff.
func (s *MemoryStore) DeleteInactiveBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for id, item := range s.cache.Items() {
		if inactive(item.Object.(*domain.Session), cutoff) {
			s.cache.Delete(id)
			removed = append(removed, id)
		}
	}
	return removed, nil
}

// Counts returns total and inactive session counts.
func (s *MemoryStore) Counts(_ context.Context, cutoff time.Time) (int, int, error) {
	items := s.cache.Items()
	expired := 0
	for _, item := range items {
		if inactive(item.Object.(*domain.Session), cutoff) {
			expired++
		}
	}
	return len(items), expired, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close drops all sessions.
func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}
