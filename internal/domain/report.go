package domain

// OptimizationReport is the structured result of a content analysis.
type OptimizationReport struct {
	Hashtags           HashtagAdvice      `json:"hashtags"`
	CallToAction       CallToActionAdvice `json:"call_to_action"`
	Structure          StructureAnalysis  `json:"structure_analysis"`
	Engagement         EngagementAdvice   `json:"engagement_optimization"`
	OverallScore       int                `json:"overall_score"`
	KeyRecommendations []string           `json:"key_recommendations"`
}

// HashtagAdvice lists suggested hashtags with the strategy behind them.
type HashtagAdvice struct {
	Suggested []string `json:"suggested"`
	Reasoning string   `json:"reasoning"`
}

// CallToActionAdvice rewrites the post's call to action.
type CallToActionAdvice struct {
	Current      string   `json:"current_cta"`
	Improved     string   `json:"improved_cta"`
	Alternatives []string `json:"alternatives"`
}

// StructureAnalysis critiques layout and readability.
type StructureAnalysis struct {
	ReadabilityScore  string   `json:"readability_score"`
	ParagraphCount    int      `json:"paragraph_count"`
	HookEffectiveness string   `json:"hook_effectiveness"`
	Suggestions       []string `json:"suggestions"`
}

// EngagementAdvice predicts engagement and how to raise it.
type EngagementAdvice struct {
	PredictedEngagement string   `json:"predicted_engagement"`
	Triggers            []string `json:"engagement_triggers"`
	Improvements        []string `json:"improvements"`
}
