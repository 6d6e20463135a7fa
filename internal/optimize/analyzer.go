// Package optimize analyzes finished posts and suggests improvements. It is
// stateless and never fails: malformed or missing model output degrades to a
// deterministic report.
package optimize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/amajai/contentloop-ai/internal/domain"
	"github.com/amajai/contentloop-ai/internal/llm"
	"github.com/amajai/contentloop-ai/internal/telemetry"
)

// DefaultHashtagCount is used when the caller does not ask for a count.
const DefaultHashtagCount = 8

// SystemPrompt frames every analysis call.
const SystemPrompt = `You are a content optimization expert specializing in human-in-the-loop feedback systems.
Your job is to analyze content posts and provide specific, actionable suggestions
to maximize engagement, reach, and professional impact.

Focus on:
- Hashtag strategy (trending, relevant, mix of popular/niche)
- Call-to-action effectiveness
- Content structure and readability
- Engagement triggers and hooks
- Professional tone optimization`

// HashtagPersona frames hashtag-only calls.
const HashtagPersona = "You are a content hashtag expert."

var (
	jsonSpan   = regexp.MustCompile(`(?s)\{.*\}`)
	hashtagTok = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

	defaultHashtags = []string{"#Content", "#Professional", "#Growth"}
	errorHashtags   = []string{"#Content", "#Professional", "#Growth", "#Success", "#Business"}
)

// Analyzer wraps a generator with the optimization prompts.
type Analyzer struct {
	llm     llm.Generator
	metrics *telemetry.Metrics
}

// NewAnalyzer creates an analyzer. metrics may be nil.
func NewAnalyzer(gen llm.Generator, metrics *telemetry.Metrics) *Analyzer {
	return &Analyzer{llm: gen, metrics: metrics}
}

// Analyze returns a structured report for content.
func (a *Analyzer) Analyze(ctx context.Context, content, topic string, length domain.ContentLength, industry string) domain.OptimizationReport {
	reply, err := a.llm.Invoke(ctx, SystemPrompt, analysisPrompt(content, topic, length, industry))
	if err != nil {
		slog.Warn("Optimization analysis failed, using fallback", "error", err)
		a.metrics.OptimizationFallback("analyze")
		return Fallback(content, topic)
	}

	report, err := parseReport(reply)
	if err != nil {
		slog.Warn("Optimization output unusable, using fallback", "error", err)
		a.metrics.OptimizationFallback("analyze")
		return Fallback(content, topic)
	}
	return report
}

// SuggestHashtags returns up to count hashtags for content.
func (a *Analyzer) SuggestHashtags(ctx context.Context, content, topic string, count int) []string {
	if count <= 0 {
		count = DefaultHashtagCount
	}

	reply, err := a.llm.Invoke(ctx, HashtagPersona, hashtagPrompt(content, topic, count))
	if err != nil {
		slog.Warn("Hashtag generation failed, using defaults", "error", err)
		a.metrics.OptimizationFallback("hashtags")
		return append([]string(nil), errorHashtags...)
	}

	tags := hashtagTok.FindAllString(reply, -1)
	if len(tags) == 0 {
		a.metrics.OptimizationFallback("hashtags")
		return append([]string(nil), defaultHashtags...)
	}
	if len(tags) > count {
		tags = tags[:count]
	}
	return tags
}

func parseReport(reply string) (domain.OptimizationReport, error) {
	span := jsonSpan.FindString(reply)
	if span == "" {
		return domain.OptimizationReport{}, fmt.Errorf("no JSON object in reply")
	}

	var report domain.OptimizationReport
	if err := json.Unmarshal([]byte(span), &report); err != nil {
		return domain.OptimizationReport{}, fmt.Errorf("decode report: %w", err)
	}
	if len(report.Hashtags.Suggested) == 0 && len(report.KeyRecommendations) == 0 {
		return domain.OptimizationReport{}, fmt.Errorf("report has neither hashtags nor recommendations")
	}
	return report, nil
}

// Fallback builds the deterministic report used whenever analysis fails.
func Fallback(content, topic string) domain.OptimizationReport {
	words := strings.Fields(strings.ToLower(topic))
	if len(words) == 0 {
		words = []string{"content", "professional"}
	}
	if len(words) > 3 {
		words = words[:3]
	}

	hashtags := make([]string, 0, len(words)+2)
	for _, w := range words {
		hashtags = append(hashtags, "#"+capitalize(w))
	}
	hashtags = append(hashtags, "#Content", "#ProfessionalGrowth")
	if len(hashtags) > 5 {
		hashtags = hashtags[:5]
	}

	return domain.OptimizationReport{
		Hashtags: domain.HashtagAdvice{
			Suggested: hashtags,
			Reasoning: "Basic hashtag suggestions based on content topic",
		},
		CallToAction: domain.CallToActionAdvice{
			Current:  "None detected",
			Improved: "What are your thoughts on this topic? Share your experience below!",
			Alternatives: []string{
				"How has this impacted your professional journey?",
				"What strategies have worked for you?",
				"I'd love to hear your perspective in the comments!",
			},
		},
		Structure: domain.StructureAnalysis{
			ReadabilityScore:  "Good",
			ParagraphCount:    len(strings.Split(content, "\n\n")),
			HookEffectiveness: "Moderate",
			Suggestions: []string{
				"Consider starting with a compelling question or statistic",
				"Use bullet points or numbered lists for better readability",
			},
		},
		Engagement: domain.EngagementAdvice{
			PredictedEngagement: "Medium",
			Triggers:            []string{"Personal experience", "Industry insights", "Call to action"},
			Improvements: []string{
				"Add a personal anecdote or example",
				"Include a thought-provoking question",
			},
		},
		OverallScore: 75,
		KeyRecommendations: []string{
			"Enhance with relevant hashtags",
			"Strengthen the call-to-action",
			"Add personal examples for authenticity",
		},
	}
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
