// Package auth carries the caller identity through every mutation entry point
// and issues the tokens dashboards present on each request.
package auth

import (
	"context"

	"barangay/backend/internal/models"
)

// Session is the authenticated caller of an operation. The zero value and a
// nil *Session are anonymous.
type Session struct {
	User *models.User
}

// NewSession wraps user.
func NewSession(user *models.User) *Session {
	return &Session{User: user}
}

// Authenticated reports whether a user is attached.
func (s *Session) Authenticated() bool {
	return s != nil && s.User != nil
}

// Actor is the display name written into audit entries.
func (s *Session) Actor() string {
	if !s.Authenticated() {
		return ""
	}
	if s.User.FullName != "" {
		return s.User.FullName
	}
	return s.User.Username
}

// Role returns the caller role, empty when anonymous.
func (s *Session) Role() models.Role {
	if !s.Authenticated() {
		return ""
	}
	return s.User.Role
}

// CanTriage reports whether the caller may change complaints after submission.
func (s *Session) CanTriage() bool {
	return s.Role().CanTriage()
}

// IsSuperAdmin reports whether the caller manages accounts and logs.
func (s *Session) IsSuperAdmin() bool {
	return s.Role() == models.RoleSuperAdmin
}

type sessionKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored in ctx, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}
