// Package session maps session IDs to suspended revision workflows and owns
// their lifecycle: creation, resumption, lookup, deletion and eviction.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amajai/contentloop-ai/internal/domain"
	"github.com/amajai/contentloop-ai/internal/store"
	"github.com/amajai/contentloop-ai/internal/telemetry"
	"github.com/amajai/contentloop-ai/internal/transcript"
	"github.com/amajai/contentloop-ai/internal/workflow"
)

// ErrNotFound is returned for unknown session IDs. It matches store.ErrNotFound.
var ErrNotFound = fmt.Errorf("session: %w", store.ErrNotFound)

// Stats is a read-only snapshot of the store.
type Stats struct {
	Total   int
	Expired int
	Healthy int
}

// RemoveCallback runs after a session is deleted or swept.
type RemoveCallback func(sessionID string)

// Service is the session store. It is safe for concurrent use.
type Service struct {
	repo    store.Repository
	machine *workflow.Machine
	timeout time.Duration

	now   func() time.Time
	newID func() string

	metrics *telemetry.Metrics
	log     transcript.Logger

	// locks serializes feedback per session.
	locks sync.Map // map[string]*sync.Mutex

	cbMu     sync.RWMutex
	onRemove []RemoveCallback
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides UUID allocation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithMetrics records counters on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTranscript records drafts and feedback on l.
func WithTranscript(l transcript.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a session store over repo.
func NewService(repo store.Repository, machine *workflow.Machine, timeout time.Duration, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		machine: machine,
		timeout: timeout,
		now:     time.Now,
		newID:   uuid.NewString,
		log:     transcript.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timeout returns the inactivity TTL.
func (s *Service) Timeout() time.Duration { return s.timeout }

// OnRemove registers a callback for deleted and swept sessions.
func (s *Service) OnRemove(cb RemoveCallback) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onRemove = append(s.onRemove, cb)
}

// Create starts a new revision loop and persists it parked at the feedback
// gate. Nothing is stored if the first generation fails.
func (s *Service) Create(ctx context.Context, topic string, length domain.ContentLength, style string) (*domain.Session, error) {
	id := s.newID()

	started := time.Now()
	out, err := s.machine.Start(ctx, workflow.Params{Topic: topic, Length: length, Style: style})
	s.metrics.ObserveGeneration(time.Since(started))
	if err != nil {
		s.metrics.GenerationFailed("start")
		slog.Error("Failed to start session", "session_id", id, "error", err)
		return nil, err
	}

	now := s.now()
	session := &domain.Session{
		ID:           id,
		Topic:        topic,
		Length:       length,
		Style:        style,
		Feedback:     out.Feedback,
		Draft:        out.Draft,
		Status:       out.Status,
		CreatedAt:    now,
		LastActivity: now,
		Continuation: out.Continuation,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	s.metrics.SessionCreated()
	s.log.Log(transcript.Event{
		SessionID: id,
		Type:      transcript.EventDraft,
		Iteration: out.Continuation.Iteration,
		Content:   out.Draft,
		Meta:      map[string]any{"topic": topic, "content_length": string(length), "writing_style": style},
	})
	slog.Info("Session started", "session_id", id, "content_length", length)
	return session, nil
}

// SubmitFeedback resumes the session's workflow at the gate. A completed
// session is returned unchanged. The new state is committed in a single
// update; if the session disappeared during generation, ErrNotFound is
// returned and nothing is written.
func (s *Service) SubmitFeedback(ctx context.Context, id, feedback string) (*domain.Session, error) {
	// Unknown IDs never get a lock entry.
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, mapErr(err)
	}

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.locks.CompareAndDelete(id, mu)
		}
		return nil, mapErr(err)
	}
	if current.Status == domain.StatusCompleted {
		s.metrics.Feedback(telemetry.OutcomeNoop)
		return current, nil
	}

	started := time.Now()
	out, err := s.machine.Resume(ctx, current.Continuation, feedback)
	if !workflow.IsDone(feedback) {
		s.metrics.ObserveGeneration(time.Since(started))
	}
	if err != nil {
		var genErr *workflow.GenerationError
		if errors.As(err, &genErr) {
			s.metrics.GenerationFailed(genErr.Op)
		}
		slog.Error("Failed to process feedback", "session_id", id, "error", err)
		return nil, err
	}

	next := current.Clone()
	next.Feedback = out.Feedback
	next.Draft = out.Draft
	next.Status = out.Status
	next.Continuation = out.Continuation
	next.LastActivity = s.now()

	if err := s.repo.Update(ctx, next); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.Info("Session removed during generation, discarding result", "session_id", id)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("commit session: %w", err)
	}

	s.log.Log(transcript.Event{SessionID: id, Type: transcript.EventFeedback, Content: feedback})
	if next.Status == domain.StatusCompleted {
		s.metrics.Feedback(telemetry.OutcomeCompleted)
		s.log.Log(transcript.Event{SessionID: id, Type: transcript.EventCompleted, Content: next.Draft})
		slog.Info("Session completed", "session_id", id, "feedback_count", len(next.Feedback))
	} else {
		s.metrics.Feedback(telemetry.OutcomeRevised)
		s.log.Log(transcript.Event{
			SessionID: id,
			Type:      transcript.EventDraft,
			Iteration: next.Continuation.Iteration,
			Content:   next.Draft,
		})
	}
	return next, nil
}

// Get returns the session.
func (s *Service) Get(ctx context.Context, id string) (*domain.Session, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return session, nil
}

// Delete removes the session. It does not wait for an in-flight feedback call.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapErr(err)
	}
	s.metrics.SessionsRemoved(1)
	s.log.Log(transcript.Event{SessionID: id, Type: transcript.EventDeleted})
	s.removed(id)
	slog.Info("Session deleted", "session_id", id)
	return nil
}

// SweepExpired removes every session idle for strictly longer than timeout
// at now and returns how many were removed.
func (s *Service) SweepExpired(ctx context.Context, now time.Time, timeout time.Duration) (int, error) {
	ids, err := s.repo.DeleteInactiveBefore(ctx, now.Add(-timeout))
	if err != nil {
		return 0, fmt.Errorf("sweep expired sessions: %w", err)
	}

	s.metrics.SessionsSwept(len(ids))
	s.metrics.SessionsRemoved(len(ids))
	for _, id := range ids {
		s.log.Log(transcript.Event{SessionID: id, Type: transcript.EventSwept})
		s.removed(id)
	}
	if len(ids) > 0 {
		slog.Info("Swept expired sessions", "count", len(ids), "timeout", timeout)
	}
	return len(ids), nil
}

// Sweep runs SweepExpired with the service clock and timeout.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	return s.SweepExpired(ctx, s.now(), s.timeout)
}

// Stats counts sessions without mutating anything.
func (s *Service) Stats(ctx context.Context, now time.Time, timeout time.Duration) (Stats, error) {
	total, expired, err := s.repo.Counts(ctx, now.Add(-timeout))
	if err != nil {
		return Stats{}, fmt.Errorf("session stats: %w", err)
	}
	return Stats{Total: total, Expired: expired, Healthy: total - expired}, nil
}

// CurrentStats runs Stats with the service clock and timeout.
func (s *Service) CurrentStats(ctx context.Context) (Stats, error) {
	return s.Stats(ctx, s.now(), s.timeout)
}

// Ping checks the backing repository.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) lockFor(id string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *Service) removed(id string) {
	s.locks.Delete(id)

	s.cbMu.RLock()
	callbacks := append([]RemoveCallback(nil), s.onRemove...)
	s.cbMu.RUnlock()

	for _, cb := range callbacks {
		cb(id)
	}
}

func mapErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
