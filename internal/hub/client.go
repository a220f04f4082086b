// Package hub fans whole-state realtime events out to connected dashboards.
package hub

import "barangay/backend/internal/models"

// Client is one connected dashboard.
type Client interface {
	// GetClientID returns the connection identifier. Selections are keyed by it.
	GetClientID() string
	// GetRole returns the portal role of the connected user.
	GetRole() models.Role
	// GetSendChannel returns the channel the Manager writes outgoing events to.
	GetSendChannel() chan<- models.RealtimeEvent
	// Run starts the client's pumps.
	Run()
	// Close shuts the outgoing side down. The Manager calls it exactly once.
	Close()
}

// Inbound is a message a dashboard sends to the server.
type Inbound struct {
	ClientID    string `json:"-"`
	Action      string `json:"action"`
	ComplaintID string `json:"complaintId,omitempty"`
}

// Inbound actions.
const (
	ActionSelect   = "select"
	ActionDeselect = "deselect"
)
