package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// UrgencyLevel is the coarse bucket of a priority score.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "LOW"
	UrgencyMedium   UrgencyLevel = "MEDIUM"
	UrgencyHigh     UrgencyLevel = "HIGH"
	UrgencyCritical UrgencyLevel = "CRITICAL"
)

// IsValid reports whether u is one of the known urgency levels.
func (u UrgencyLevel) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// IsAlerting reports whether a fresh analysis at this level should raise an alert.
func (u UrgencyLevel) IsAlerting() bool {
	return u == UrgencyHigh || u == UrgencyCritical
}

// ResourceIntensity estimates the manpower needed to resolve a complaint.
type ResourceIntensity string

const (
	ResourceLow    ResourceIntensity = "LOW"
	ResourceMedium ResourceIntensity = "MEDIUM"
	ResourceHigh   ResourceIntensity = "HIGH"
)

// IsValid reports whether r is one of the known intensities.
func (r ResourceIntensity) IsValid() bool {
	switch r {
	case ResourceLow, ResourceMedium, ResourceHigh:
		return true
	}
	return false
}

// AIAnalysis is the structured triage result attached to a complaint.
// It is replaced wholesale, never patched field by field.
// ConfidenceScore == 0 marks the fallback result produced when the model call failed.
type AIAnalysis struct {
	PriorityScore              int               `json:"priorityScore"`
	UrgencyLevel               UrgencyLevel      `json:"urgencyLevel"`
	ImpactAnalysis             string            `json:"impactAnalysis"`
	SuggestedAction            string            `json:"suggestedAction"`
	EstimatedResourceIntensity ResourceIntensity `json:"estimatedResourceIntensity"`
	CategoryCorrection         string            `json:"categoryCorrection,omitempty"`
	ConfidenceScore            int               `json:"confidenceScore"`
	IsTroll                    bool              `json:"isTroll"`
	TrollAnalysis              string            `json:"trollAnalysis,omitempty"`
}

// IsFallback reports whether a is the placeholder produced on analysis failure.
func (a *AIAnalysis) IsFallback() bool {
	return a != nil && a.ConfidenceScore == 0
}

// Value stores the analysis as a JSON document.
func (a AIAnalysis) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan reads a JSON document produced by Value.
func (a *AIAnalysis) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("ai_analysis: unsupported column type")
	}
	return json.Unmarshal(data, a)
}
