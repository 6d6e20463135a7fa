package optimize

import (
	"fmt"

	"github.com/amajai/contentloop-ai/internal/domain"
)

func analysisPrompt(content, topic string, length domain.ContentLength, industry string) string {
	return fmt.Sprintf(`Analyze this content post and provide optimization suggestions:

CONTENT TO ANALYZE:
%s

CONTEXT:
- Topic: %s
- Length: %s
- Industry: %s

PROVIDE ANALYSIS IN THIS EXACT JSON FORMAT:
{
    "hashtags": {
        "suggested": ["hashtag1", "hashtag2", "hashtag3", "hashtag4", "hashtag5"],
        "reasoning": "Brief explanation of hashtag strategy"
    },
    "call_to_action": {
        "current_cta": "Current CTA from the content or 'None found'",
        "improved_cta": "Specific improved CTA suggestion",
        "alternatives": ["Alternative CTA 1", "Alternative CTA 2", "Alternative CTA 3"]
    },
    "structure_analysis": {
        "readability_score": "Good/Average/Poor",
        "paragraph_count": 0,
        "hook_effectiveness": "Strong/Moderate/Weak",
        "suggestions": ["Specific structural improvement 1", "Improvement 2"]
    },
    "engagement_optimization": {
        "predicted_engagement": "High/Medium/Low",
        "engagement_triggers": ["Trigger 1", "Trigger 2", "Trigger 3"],
        "improvements": ["Specific engagement improvement 1", "Improvement 2"]
    },
    "overall_score": 85,
    "key_recommendations": ["Top recommendation 1", "Top recommendation 2", "Top recommendation 3"]
}

Be specific and actionable in all suggestions. Focus on content best practices for professional platforms.`,
		content, topic, length, industry)
}

func hashtagPrompt(content, topic string, count int) string {
	return fmt.Sprintf(`Content: %s
Topic: %s

Suggest %d highly relevant hashtags for this content.
Mix popular hashtags (high reach) with niche ones (targeted audience).

Return ONLY the hashtags in this format:
#Hashtag1, #Hashtag2, #Hashtag3, etc.`, content, topic, count)
}
