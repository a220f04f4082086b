package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction is the fixed vocabulary of recorded state transitions.
type AuditAction string

const (
	ActionComplaintCreated AuditAction = "COMPLAINT_CREATED"
	ActionStatusChange     AuditAction = "STATUS_CHANGE"
	ActionEscalation       AuditAction = "ESCALATION"
	ActionDeEscalation     AuditAction = "DE_ESCALATION"
	ActionFieldUpdate      AuditAction = "FIELD_UPDATE"
	ActionNoteAdded        AuditAction = "NOTE_ADDED"
	ActionAnalysisAttached AuditAction = "ANALYSIS_ATTACHED"
	ActionAnalysisFailed   AuditAction = "ANALYSIS_FAILED"
	ActionReanalysis       AuditAction = "REANALYSIS_REQUESTED"
	ActionLogin            AuditAction = "LOGIN"
	ActionLoginFailed      AuditAction = "LOGIN_FAILED"
	ActionUserCreated      AuditAction = "USER_CREATED"
	ActionUserDeleted      AuditAction = "USER_DELETED"
	ActionUserUpdated      AuditAction = "USER_UPDATED"
)

// LogCategory groups system log records for admin-side filtering.
type LogCategory string

const (
	CategoryAuth           LogCategory = "AUTH"
	CategoryUserManagement LogCategory = "USER_MANAGEMENT"
	CategoryComplaint      LogCategory = "COMPLAINT"
	CategorySystem         LogCategory = "SYSTEM"
)

// IsValid reports whether c is one of the known categories.
func (c LogCategory) IsValid() bool {
	switch c {
	case CategoryAuth, CategoryUserManagement, CategoryComplaint, CategorySystem:
		return true
	}
	return false
}

// AuditLogEntry is one append-only line of a complaint's history.
type AuditLogEntry struct {
	ID          uint        `gorm:"primaryKey" json:"-"`
	ComplaintID string      `gorm:"type:text;not null;index" json:"-"`
	Action      AuditAction `gorm:"type:text;not null" json:"action"`
	Author      string      `gorm:"type:text" json:"author"`
	Timestamp   time.Time   `gorm:"not null" json:"timestamp"`
	Details     string      `gorm:"type:text" json:"details"`
}

// InternalNote is an officials-only remark attached to a complaint.
type InternalNote struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	ComplaintID string    `gorm:"type:text;not null;index" json:"-"`
	Author      string    `gorm:"type:text" json:"author"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	Timestamp   time.Time `gorm:"not null" json:"timestamp"`
}

// LogMetadata carries optional references to the entities a system log touches.
type LogMetadata struct {
	UserID      string `gorm:"column:meta_user_id;type:text" json:"userId,omitempty"`
	ComplaintID string `gorm:"column:meta_complaint_id;type:text;index" json:"complaintId,omitempty"`
	Target      string `gorm:"column:meta_target;type:text" json:"target,omitempty"`
}

// SystemLog is a write-once, cross-entity event record for administrative review.
type SystemLog struct {
	ID        string      `gorm:"primaryKey" json:"id"`
	Timestamp time.Time   `gorm:"not null;index" json:"timestamp"`
	Action    AuditAction `gorm:"type:text;not null" json:"action"`
	Category  LogCategory `gorm:"type:text;not null;index" json:"category"`
	Actor     string      `gorm:"type:text" json:"actor"`
	Details   string      `gorm:"type:text" json:"details"`
	Metadata  LogMetadata `gorm:"embedded" json:"metadata"`
}

// BeforeCreate assigns an ID when missing.
func (l *SystemLog) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return
}
