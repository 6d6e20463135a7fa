package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/amajai/contentloop-ai/internal/domain"
)

// State is a node of the revision loop.
type State string

const (
	StateGenerating       State = "generating"
	StateAwaitingFeedback State = "awaiting_feedback"
	StateFinalizing       State = "finalizing"
	StateTerminated       State = "terminated"
)

// DoneMarker ends the loop when sent as feedback. The comparison is
// case-insensitive and does not trim whitespace.
const DoneMarker = "done"

// IsDone reports whether feedback terminates the loop.
func IsDone(feedback string) bool {
	return strings.EqualFold(feedback, DoneMarker)
}

// Drafter produces one draft. *Generator implements it.
type Drafter interface {
	Generate(ctx context.Context, topic string, length domain.ContentLength, style string, latestFeedback *string) (string, error)
}

// Params seeds a new revision loop.
type Params struct {
	Topic  string
	Length domain.ContentLength
	Style  string
}

// Outcome is the result of driving the machine until it parks or terminates.
type Outcome struct {
	State        State
	Status       domain.Status
	Draft        string
	Feedback     []string
	Continuation *domain.Continuation
}

// ErrNotSuspended is returned when resuming a continuation that is not parked at the gate.
var ErrNotSuspended = errors.New("workflow is not awaiting feedback")

// GenerationError wraps a failed draft generation.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: generation failed: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Machine sequences generation and the feedback gate. It holds no per-session
// state; every call works on its own copy of the continuation.
type Machine struct {
	drafter Drafter
	gate    Gate
}

// NewMachine creates a state machine around a drafter.
func NewMachine(d Drafter) *Machine {
	return &Machine{drafter: d}
}

// Start runs the first generation and parks at the gate.
func (m *Machine) Start(ctx context.Context, p Params) (Outcome, error) {
	cont := &domain.Continuation{
		Topic:  p.Topic,
		Length: p.Length,
		Style:  p.Style,
	}
	return m.generate(ctx, "start", cont)
}

// Resume re-enters the machine at the gate with feedback. The input
// continuation is never modified.
func (m *Machine) Resume(ctx context.Context, cont *domain.Continuation, feedback string) (Outcome, error) {
	if cont == nil || cont.Phase != domain.PhaseAwaitingFeedback {
		return Outcome{}, ErrNotSuspended
	}

	next := m.gate.Receive(cont, feedback)

	if IsDone(feedback) {
		slog.Debug("Revision loop finalized", "iterations", next.Iteration, "feedback_count", len(next.Feedback))
		return Outcome{
			State:    StateTerminated,
			Status:   domain.StatusCompleted,
			Draft:    next.LastDraft,
			Feedback: next.Feedback,
		}, nil
	}

	return m.generate(ctx, "resume", next)
}

func (m *Machine) generate(ctx context.Context, op string, cont *domain.Continuation) (Outcome, error) {
	var latest *string
	if n := len(cont.Feedback); n > 0 {
		latest = &cont.Feedback[n-1]
	}

	draft, err := m.drafter.Generate(ctx, cont.Topic, cont.Length, cont.Style, latest)
	if err != nil {
		return Outcome{}, &GenerationError{Op: op, Err: err}
	}

	cont.LastDraft = draft
	cont.Iteration++
	parked := m.gate.Suspend(cont)

	return Outcome{
		State:        StateAwaitingFeedback,
		Status:       domain.StatusWaitingFeedback,
		Draft:        parked.Draft,
		Feedback:     append([]string{}, parked.Continuation.Feedback...),
		Continuation: parked.Continuation,
	}, nil
}
