package triage

import (
	"strings"

	"barangay/backend/internal/models"
)

// Stats are the dashboard counters.
type Stats struct {
	Total               int `json:"total"`
	Pending             int `json:"pending"`
	Critical            int `json:"critical"`
	Resolved            int `json:"resolved"`
	ResidentSubmissions int `json:"residentSubmissions"`
}

// ComputeStats counts complaints. Critical excludes resolved complaints.
func ComputeStats(complaints []models.Complaint) Stats {
	var s Stats
	for _, c := range complaints {
		s.Total++
		switch c.Status {
		case models.StatusPending:
			s.Pending++
		case models.StatusResolved:
			s.Resolved++
		}
		if c.AIAnalysis != nil && c.AIAnalysis.UrgencyLevel == models.UrgencyCritical && c.Status != models.StatusResolved {
			s.Critical++
		}
		if strings.Contains(strings.ToLower(c.SubmittedBy), "resident") {
			s.ResidentSubmissions++
		}
	}
	return s
}
