// Package analysis turns free-text complaint fields into a structured triage
// result using a hosted generative model, with a fixed fallback on any failure.
package analysis

import (
	"context"
	"errors"

	"barangay/backend/internal/config"
	"barangay/backend/internal/models"
)

// ErrUnavailable is returned by analyzers that cannot produce any result.
var ErrUnavailable = errors.New("analysis unavailable")

// Request carries the complaint fields sent to the model.
type Request struct {
	Title       string
	Description string
	Location    string
	Category    string
}

// Analyzer produces an analysis for a complaint.
// Implementations that absorb failures into Fallback never return an error.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*models.AIAnalysis, error)
}

// Fallback is the placeholder result used when the model call fails.
// ConfidenceScore == 0 is the only signal that tells it apart from a real MEDIUM result.
func Fallback() *models.AIAnalysis {
	return &models.AIAnalysis{
		PriorityScore:              config.FallbackPriorityScore,
		UrgencyLevel:               models.UrgencyMedium,
		ImpactAnalysis:             config.FallbackImpactAnalysis,
		SuggestedAction:            config.FallbackSuggestedAction,
		EstimatedResourceIntensity: models.ResourceMedium,
		ConfidenceScore:            0,
		IsTroll:                    false,
		TrollAnalysis:              config.FallbackTrollAnalysis,
	}
}

// UrgencyForScore buckets a priority score into an urgency level.
func UrgencyForScore(score int) models.UrgencyLevel {
	for _, t := range config.UrgencyThresholds {
		if score >= t.MinScore {
			return models.UrgencyLevel(t.Level)
		}
	}
	return models.UrgencyLow
}

// Unavailable is the analyzer used when no model credentials are configured.
// Every complaint ends in the analysis-failed state and waits for manual review.
type Unavailable struct{}

// Analyze always fails.
func (Unavailable) Analyze(context.Context, Request) (*models.AIAnalysis, error) {
	return nil, ErrUnavailable
}
