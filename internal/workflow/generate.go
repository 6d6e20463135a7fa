// Package workflow implements the human-in-the-loop revision loop:
// generate a draft, park at the feedback gate, resume with feedback.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/amajai/contentloop-ai/internal/domain"
	"github.com/amajai/contentloop-ai/internal/llm"
)

// WriterPersona is the fixed system prompt for draft generation.
const WriterPersona = "You are an expert content writer who specializes in expanding user ideas into engaging, " +
	"well-structured content. You excel at taking initial concepts, details, and rough ideas and transforming " +
	"them into polished, professional content while preserving the user's original intent and voice. " +
	"You work collaboratively with human feedback to continuously improve the content."

// NoFeedbackYet stands in for feedback on the first generation.
const NoFeedbackYet = "No feedback yet"

// Generator produces one candidate draft per call.
type Generator struct {
	llm llm.Generator
}

// NewGenerator wraps a text-generation collaborator.
func NewGenerator(gen llm.Generator) *Generator {
	return &Generator{llm: gen}
}

// Generate drafts a post. latestFeedback is nil on the first round.
func (g *Generator) Generate(ctx context.Context, topic string, length domain.ContentLength, style string, latestFeedback *string) (string, error) {
	prompt := BuildPrompt(topic, length, style, latestFeedback)

	draft, err := g.llm.Invoke(ctx, WriterPersona, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(draft) == "" {
		return "", llm.ErrEmptyResponse
	}
	slog.Debug("Draft generated", "topic_length", len(topic), "draft_length", len(draft))
	return draft, nil
}

// BuildPrompt renders the instruction block for one generation.
func BuildPrompt(topic string, length domain.ContentLength, style string, latestFeedback *string) string {
	hasStyle := strings.TrimSpace(style) != ""
	feedback := NoFeedbackYet
	if latestFeedback != nil {
		feedback = *latestFeedback
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Content Ideas & Details: %s\n", topic)
	fmt.Fprintf(&sb, "Content Length: %s\n", length)
	if hasStyle {
		fmt.Fprintf(&sb, "Writing Style: %s\n", style)
	}
	fmt.Fprintf(&sb, "Human Feedback: %s\n\n", feedback)

	sb.WriteString("The user has provided their content ideas and details above. ")
	sb.WriteString("Your task is to expand on these ideas and create a structured, engaging content post.\n\n")
	sb.WriteString("Instructions:\n")
	sb.WriteString("- Take the user's ideas, points, and details as your foundation\n")
	sb.WriteString("- Expand and develop their concepts into a well-structured post\n")
	sb.WriteString("- Maintain their intended message while enhancing clarity and engagement\n")
	sb.WriteString("- If they provided specific points, examples, or experiences, incorporate and elaborate on them\n")
	sb.WriteString("- Create compelling hooks, smooth transitions, and strong conclusions\n")
	sb.WriteString("- Ensure the content matches the desired length and writing style\n")
	if hasStyle {
		sb.WriteString("- Follow the specified writing style carefully.\n")
	}
	sb.WriteString("\nConsider previous human feedback to refine the response and make improvements.\n")
	return sb.String()
}
