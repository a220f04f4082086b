// Package notify decides which complaint transitions raise an alert and
// keeps the ephemeral in-app notification list officials see as toasts.
package notify

import (
	"barangay/backend/internal/localization"
	"barangay/backend/internal/models"
)

// Alert is a notification-worthy transition of one complaint.
type Alert struct {
	Title       string
	Message     string
	Kind        models.NotificationKind
	ComplaintID string
}

// Policy turns a before/after pair of complaint states into alerts.
type Policy struct {
	Localizer *localization.Localizer
	Language  string
}

// NewPolicy creates a policy rendering texts in lang.
func NewPolicy(l *localization.Localizer, lang string) *Policy {
	if lang == "" {
		lang = localization.DefaultLanguage
	}
	return &Policy{Localizer: l, Language: lang}
}

// Evaluate compares two states of the same complaint. A nil before is a
// complaint with no previous state: unanalyzed and not escalated.
//
// Rules: an analysis attached for the first time with HIGH or CRITICAL
// urgency raises a high priority alert; escalation going from false to true
// raises an escalation alert. De-escalation never alerts.
func (p *Policy) Evaluate(before, after *models.Complaint) []Alert {
	if after == nil {
		return nil
	}

	var hadAnalysis, wasEscalated bool
	if before != nil {
		hadAnalysis = before.AIAnalysis != nil
		wasEscalated = before.IsEscalated
	}

	var alerts []Alert
	if !hadAnalysis && after.AIAnalysis != nil && after.AIAnalysis.UrgencyLevel.IsAlerting() {
		alerts = append(alerts, Alert{
			Title:       p.text("alert.high_priority.title"),
			Message:     p.text("alert.high_priority.message", after.AIAnalysis.UrgencyLevel, after.Title),
			Kind:        models.NotificationCritical,
			ComplaintID: after.ID,
		})
	}
	if !wasEscalated && after.IsEscalated {
		alerts = append(alerts, Alert{
			Title:       p.text("alert.escalation.title"),
			Message:     p.text("alert.escalation.message", after.Title),
			Kind:        models.NotificationCritical,
			ComplaintID: after.ID,
		})
	}
	return alerts
}

func (p *Policy) text(key string, args ...interface{}) string {
	if p.Localizer == nil {
		return key
	}
	return p.Localizer.Format(p.Language, key, args...)
}
