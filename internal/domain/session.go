// Package domain contains core domain types for ContentLoop.
package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Status is the externally visible state of a revision session.
type Status string

const (
	// StatusWaitingFeedback means a draft is out for review and the workflow is parked.
	StatusWaitingFeedback Status = "waiting_feedback"
	// StatusCompleted means the user finalized the draft.
	StatusCompleted Status = "completed"
)

// Phase marks where a suspended workflow will resume.
type Phase string

const (
	// PhaseAwaitingFeedback is the only phase a persisted continuation can hold.
	PhaseAwaitingFeedback Phase = "awaiting_feedback"
)

// ContentLength is the requested size of a post.
type ContentLength string

const (
	LengthShort  ContentLength = "short"
	LengthMedium ContentLength = "medium"
	LengthLong   ContentLength = "long"
)

// ParseContentLength validates a length preference. An empty value means medium.
func ParseContentLength(s string) (ContentLength, error) {
	switch ContentLength(s) {
	case "":
		return LengthMedium, nil
	case LengthShort, LengthMedium, LengthLong:
		return ContentLength(s), nil
	default:
		return "", fmt.Errorf("invalid content length %q", s)
	}
}

// Continuation is the resumption token of a workflow parked at the feedback gate.
// It carries everything needed to re-enter the state machine.
type Continuation struct {
	Phase     Phase         `json:"phase"`
	Iteration int           `json:"iteration"`
	Topic     string        `json:"topic"`
	Length    ContentLength `json:"length"`
	Style     string        `json:"style"`
	Feedback  []string      `json:"feedback"`
	LastDraft string        `json:"last_draft"`
}

// Clone returns a deep copy.
func (c *Continuation) Clone() *Continuation {
	if c == nil {
		return nil
	}
	out := *c
	out.Feedback = slices.Clone(c.Feedback)
	return &out
}

// Session is one user's revision conversation.
type Session struct {
	ID           string        `json:"session_id"`
	Topic        string        `json:"topic"`
	Length       ContentLength `json:"content_length"`
	Style        string        `json:"writing_style"`
	Feedback     []string      `json:"feedback_history"`
	Draft        string        `json:"generated_post"`
	Status       Status        `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
	Continuation *Continuation `json:"continuation,omitempty"`
}

// ErrInvalidSession is returned when a session breaks the status/token invariant.
var ErrInvalidSession = errors.New("invalid session")

// Validate checks that status and resumption token agree.
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidSession)
	}
	switch s.Status {
	case StatusWaitingFeedback:
		if s.Continuation == nil {
			return fmt.Errorf("%w: %s waiting for feedback without continuation", ErrInvalidSession, s.ID)
		}
	case StatusCompleted:
		if s.Continuation != nil {
			return fmt.Errorf("%w: %s completed but still holds a continuation", ErrInvalidSession, s.ID)
		}
	default:
		return fmt.Errorf("%w: %s has unknown status %q", ErrInvalidSession, s.ID, s.Status)
	}
	return nil
}

// Clone returns a deep copy so callers never share state with the repository.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Feedback = slices.Clone(s.Feedback)
	out.Continuation = s.Continuation.Clone()
	return &out
}

// ActivityAt returns the last activity time, falling back to creation time.
func (s *Session) ActivityAt() time.Time {
	if s.LastActivity.IsZero() {
		return s.CreatedAt
	}
	return s.LastActivity
}

// IsExpired reports whether the session has been idle for longer than timeout.
func (s *Session) IsExpired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.ActivityAt()) > timeout
}
