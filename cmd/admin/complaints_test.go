package main

import (
	"testing"
	"time"

	"barangay/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestDemoComplaints(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	set := demoComplaints(now)

	assert.Len(t, set, 3)
	seen := map[string]bool{}
	for _, c := range set {
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
		assert.True(t, c.SubmittedAt.Before(now))
		assert.NotNil(t, c.AIAnalysis, c.Title)
		assert.False(t, c.IsAnalyzing)
	}
	assert.Equal(t, models.UrgencyCritical, set[0].AIAnalysis.UrgencyLevel)
	assert.Equal(t, models.StatusResolved, set[2].Status)
	assert.Equal(t, demoID(1), demoComplaints(now.Add(time.Hour))[0].ID, "ids are stable across runs")
}
