package workflow

import "github.com/amajai/contentloop-ai/internal/domain"

// FeedbackPrompt is shown alongside every parked draft.
const FeedbackPrompt = "Provide feedback or type 'done' to finish"

// Suspension is what the gate hands back to the caller when the workflow parks.
type Suspension struct {
	Continuation *domain.Continuation
	Draft        string
	Prompt       string
}

// Gate is the feedback suspension point. Parking never blocks: the
// continuation is returned to the caller, which persists it and later
// resumes with Receive.
type Gate struct{}

// Suspend parks the workflow at the gate.
func (Gate) Suspend(cont *domain.Continuation) Suspension {
	parked := cont.Clone()
	parked.Phase = domain.PhaseAwaitingFeedback
	return Suspension{
		Continuation: parked,
		Draft:        parked.LastDraft,
		Prompt:       FeedbackPrompt,
	}
}

// Receive resumes a parked continuation with human feedback. The raw text is
// appended to history, including the terminal marker.
func (Gate) Receive(cont *domain.Continuation, feedback string) *domain.Continuation {
	next := cont.Clone()
	next.Feedback = append(next.Feedback, feedback)
	return next
}
