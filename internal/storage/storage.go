// Package storage persists complaints, logs and users, and pushes whole-set
// complaint snapshots to subscribers after every change.
package storage

import (
	"context"
	"errors"

	"barangay/backend/internal/models"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("record already exists")
)

// ComplaintStore holds complaint documents and their append-only sub-collections.
// Each UpdateComplaint call is applied atomically to one document; there is no
// version check across calls.
type ComplaintStore interface {
	CreateComplaint(ctx context.Context, c *models.Complaint) error
	UpdateComplaint(ctx context.Context, id string, update models.ComplaintUpdate) error
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)
	ListComplaints(ctx context.Context) ([]models.Complaint, error)

	AppendAuditEntry(ctx context.Context, entry *models.AuditLogEntry) error
	AddInternalNote(ctx context.Context, note *models.InternalNote) error

	// SubscribeComplaints delivers the full current set, newest submission first,
	// once immediately and again after every change. Handlers must not write
	// to the store.
	SubscribeComplaints(handler func([]models.Complaint)) (unsubscribe func())
}

// LogStore holds write-once system log records.
type LogStore interface {
	AppendSystemLog(ctx context.Context, entry *models.SystemLog) error
	RecentSystemLogs(ctx context.Context, limit int) ([]models.SystemLog, error)
}

// UserStore holds portal accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error
}

// Storage is the full persistence surface of the backend.
type Storage interface {
	ComplaintStore
	LogStore
	UserStore
}
