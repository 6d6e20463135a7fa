package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amajai/contentloop-ai/internal/domain"
	"github.com/amajai/contentloop-ai/internal/llm"
)

func newTestMachine(responses ...llm.MockResponse) (*Machine, *llm.Mock) {
	mock := llm.NewMock(responses...)
	return NewMachine(NewGenerator(mock)), mock
}

func TestStartParksAtGate(t *testing.T) {
	m, mock := newTestMachine(llm.MockResponse{Content: "draft one"})

	out, err := m.Start(context.Background(), Params{Topic: "AI in healthcare", Length: domain.LengthShort})
	require.NoError(t, err)

	assert.Equal(t, StateAwaitingFeedback, out.State)
	assert.Equal(t, domain.StatusWaitingFeedback, out.Status)
	assert.Equal(t, "draft one", out.Draft)
	assert.NotNil(t, out.Feedback)
	assert.Empty(t, out.Feedback)
	require.NotNil(t, out.Continuation)
	assert.Equal(t, domain.PhaseAwaitingFeedback, out.Continuation.Phase)
	assert.Equal(t, 1, out.Continuation.Iteration)
	assert.Equal(t, "draft one", out.Continuation.LastDraft)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, WriterPersona, calls[0].System)
	assert.Contains(t, calls[0].Prompt, "Human Feedback: "+NoFeedbackYet)
	assert.Contains(t, calls[0].Prompt, "Content Length: short")
	assert.NotContains(t, calls[0].Prompt, "Writing Style:")
}

func TestResumeWithFeedbackRegenerates(t *testing.T) {
	m, mock := newTestMachine(
		llm.MockResponse{Content: "draft one"},
		llm.MockResponse{Content: "draft two"},
	)
	ctx := context.Background()

	first, err := m.Start(ctx, Params{Topic: "Go", Length: domain.LengthMedium, Style: "witty"})
	require.NoError(t, err)

	second, err := m.Resume(ctx, first.Continuation, "make it punchier")
	require.NoError(t, err)

	assert.Equal(t, StateAwaitingFeedback, second.State)
	assert.Equal(t, "draft two", second.Draft)
	assert.Equal(t, []string{"make it punchier"}, second.Feedback)
	assert.Equal(t, 2, second.Continuation.Iteration)

	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].Prompt, "Human Feedback: make it punchier")
	assert.Contains(t, calls[1].Prompt, "Writing Style: witty")
	assert.Contains(t, calls[1].Prompt, "Follow the specified writing style carefully.")

	assert.Empty(t, first.Continuation.Feedback, "resume must not mutate the stored continuation")
}

func TestResumeDoneTerminatesWithoutGenerating(t *testing.T) {
	for _, marker := range []string{"done", "DONE", "Done"} {
		t.Run(marker, func(t *testing.T) {
			m, mock := newTestMachine(llm.MockResponse{Content: "draft one"})
			ctx := context.Background()

			first, err := m.Start(ctx, Params{Topic: "Go", Length: domain.LengthLong})
			require.NoError(t, err)

			out, err := m.Resume(ctx, first.Continuation, marker)
			require.NoError(t, err)

			assert.Equal(t, StateTerminated, out.State)
			assert.Equal(t, domain.StatusCompleted, out.Status)
			assert.Equal(t, "draft one", out.Draft)
			assert.Equal(t, []string{marker}, out.Feedback)
			assert.Nil(t, out.Continuation)
			assert.Len(t, mock.Calls(), 1)
		})
	}
}

func TestResumePaddedDoneIsOrdinaryFeedback(t *testing.T) {
	m, mock := newTestMachine(
		llm.MockResponse{Content: "draft one"},
		llm.MockResponse{Content: "draft two"},
	)
	ctx := context.Background()

	first, err := m.Start(ctx, Params{Topic: "Go"})
	require.NoError(t, err)

	for _, fb := range []string{"done ", ""} {
		out, err := m.Resume(ctx, first.Continuation, fb)
		require.NoError(t, err)
		assert.Equal(t, StateAwaitingFeedback, out.State, "feedback %q", fb)
		assert.Equal(t, []string{fb}, out.Feedback)
	}
	assert.Len(t, mock.Calls(), 3)
}

func TestResumeGenerationFailure(t *testing.T) {
	boom := errors.New("provider down")
	m, _ := newTestMachine(
		llm.MockResponse{Content: "draft one"},
		llm.MockResponse{Err: boom},
	)
	ctx := context.Background()

	first, err := m.Start(ctx, Params{Topic: "Go"})
	require.NoError(t, err)

	_, err = m.Resume(ctx, first.Continuation, "again")
	require.Error(t, err)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "resume", genErr.Op)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, first.Continuation.Feedback)
	assert.Equal(t, "draft one", first.Continuation.LastDraft)
}

func TestStartRejectsBlankDraft(t *testing.T) {
	m, _ := newTestMachine(llm.MockResponse{Content: "  \n"})

	_, err := m.Start(context.Background(), Params{Topic: "Go"})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestResumeRequiresParkedContinuation(t *testing.T) {
	m, _ := newTestMachine(llm.MockResponse{Content: "x"})

	_, err := m.Resume(context.Background(), nil, "hi")
	assert.ErrorIs(t, err, ErrNotSuspended)

	_, err = m.Resume(context.Background(), &domain.Continuation{}, "hi")
	assert.ErrorIs(t, err, ErrNotSuspended)
}

func TestBuildPromptEmbedsLatestFeedback(t *testing.T) {
	fb := "shorter please"
	prompt := BuildPrompt("Remote work", domain.LengthMedium, "  ", &fb)

	assert.True(t, strings.HasPrefix(prompt, "Content Ideas & Details: Remote work\n"))
	assert.Contains(t, prompt, "Human Feedback: shorter please")
	assert.NotContains(t, prompt, "Writing Style:", "blank style must be omitted")
}
