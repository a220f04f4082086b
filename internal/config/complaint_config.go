package config

import "time"

const (
	// Analysis
	DefaultGeminiModel       = "gemini-2.5-flash"
	AnalysisTemperature      = 0.3
	AssistantTemperature     = 0.7
	DefaultAnalysisTimeout   = 30 * time.Second
	FallbackPriorityScore    = 50
	FallbackImpactAnalysis   = "AI Analysis unavailable. Manual review required."
	FallbackSuggestedAction  = "Review complaint manually."
	FallbackTrollAnalysis    = "Analysis failed"
	AssistantFallbackMessage = "I'm having trouble connecting to the server. Please try again later."

	// Notifications
	DefaultNotificationLifetime = 6 * time.Second

	// Logs
	SystemLogLimit = 100

	// Submission
	AnonymousSubmitter  = "Anonymous"
	UserFacingSaveError = "Failed to save complaint. Please try again."
)

// UrgencyThresholds map the lower bound of a priority score to its bucket,
// checked from the highest bound down.
var UrgencyThresholds = []struct {
	MinScore int
	Level    string
}{
	{80, "CRITICAL"},
	{60, "HIGH"},
	{35, "MEDIUM"},
	{0, "LOW"},
}

// ComplaintCategories are the standard categories offered on the resident form.
var ComplaintCategories = []string{
	"Sanitation",
	"Infrastructure",
	"Peace and Order",
	"Health",
	"Flooding",
	"Noise",
	"Others",
}
