package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ComplaintStatus is the lifecycle state of a complaint.
type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "PENDING"
	StatusOnHold     ComplaintStatus = "ON_HOLD"
	StatusInProgress ComplaintStatus = "IN_PROGRESS"
	StatusResolved   ComplaintStatus = "RESOLVED"
	StatusDismissed  ComplaintStatus = "DISMISSED"
	StatusSpam       ComplaintStatus = "SPAM"
)

// IsValid reports whether s is one of the known statuses.
func (s ComplaintStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusOnHold, StatusInProgress, StatusResolved, StatusDismissed, StatusSpam:
		return true
	}
	return false
}

// IsTerminal reports whether s ends the complaint lifecycle.
func (s ComplaintStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusDismissed || s == StatusSpam
}

// Complaint is a resident-submitted issue report tracked through a status lifecycle.
// The ID is generated by the backend at submission time and is the merge key
// for every later partial update.
type Complaint struct {
	// ID is the opaque complaint identifier (UUID).
	ID string `gorm:"primaryKey" json:"id"`
	// Title is a short summary supplied by the resident.
	Title string `gorm:"type:text;not null" json:"title"`
	// Description is the free-text body of the report.
	Description string `gorm:"type:text;not null" json:"description"`
	// Location is a free-text place reference (purok, street, landmark).
	Location string `gorm:"type:text;not null" json:"location"`
	// Category is the resident-selected category.
	Category string `gorm:"type:text;index" json:"category"`
	// SubmittedBy is the display name of the reporter, or "Anonymous".
	SubmittedBy string `gorm:"type:text" json:"submittedBy"`
	// SubmittedAt is the submission time; JSON renders it as RFC 3339.
	SubmittedAt time.Time `gorm:"not null;index" json:"submittedAt"`
	// Photos holds evidence image URLs.
	Photos pq.StringArray `gorm:"type:text[]" json:"photos,omitempty"`
	// ContactNumber is an optional callback number.
	ContactNumber string `gorm:"type:text" json:"contactNumber,omitempty"`

	Status      ComplaintStatus `gorm:"type:text;not null;index" json:"status"`
	IsEscalated bool            `json:"isEscalated"`
	IsAnalyzing bool            `json:"isAnalyzing"`
	// AIAnalysis is nil until an analysis result is attached.
	AIAnalysis *AIAnalysis `gorm:"type:jsonb" json:"aiAnalysis,omitempty"`

	AuditLog      []AuditLogEntry `gorm:"foreignKey:ComplaintID" json:"auditLog,omitempty"`
	InternalNotes []InternalNote  `gorm:"foreignKey:ComplaintID" json:"internalNotes,omitempty"`
}

// BeforeCreate fills in the ID when the caller did not assign one.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// Clone returns a deep copy so snapshot consumers never share slices or the
// analysis pointer with the store.
func (c Complaint) Clone() Complaint {
	out := c
	if c.Photos != nil {
		out.Photos = append(pq.StringArray(nil), c.Photos...)
	}
	if c.AIAnalysis != nil {
		a := *c.AIAnalysis
		out.AIAnalysis = &a
	}
	if c.AuditLog != nil {
		out.AuditLog = append([]AuditLogEntry(nil), c.AuditLog...)
	}
	if c.InternalNotes != nil {
		out.InternalNotes = append([]InternalNote(nil), c.InternalNotes...)
	}
	return out
}

// ComplaintUpdate is a partial update. Nil fields are left untouched.
type ComplaintUpdate struct {
	Title         *string
	Category      *string
	Location      *string
	ContactNumber *string
	Status        *ComplaintStatus
	IsEscalated   *bool
	IsAnalyzing   *bool
	// AIAnalysis replaces the whole analysis when SetAnalysis is true.
	// A nil value with SetAnalysis clears it.
	AIAnalysis  *AIAnalysis
	SetAnalysis bool
}

// IsEmpty reports whether the update touches no column.
func (u ComplaintUpdate) IsEmpty() bool {
	return len(u.Columns()) == 0
}

// Columns maps the set fields to their database column names.
func (u ComplaintUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if u.Title != nil {
		cols["title"] = *u.Title
	}
	if u.Category != nil {
		cols["category"] = *u.Category
	}
	if u.Location != nil {
		cols["location"] = *u.Location
	}
	if u.ContactNumber != nil {
		cols["contact_number"] = *u.ContactNumber
	}
	if u.Status != nil {
		cols["status"] = *u.Status
	}
	if u.IsEscalated != nil {
		cols["is_escalated"] = *u.IsEscalated
	}
	if u.IsAnalyzing != nil {
		cols["is_analyzing"] = *u.IsAnalyzing
	}
	if u.SetAnalysis {
		if u.AIAnalysis == nil {
			cols["ai_analysis"] = nil
		} else {
			cols["ai_analysis"] = *u.AIAnalysis
		}
	}
	return cols
}

// Apply writes the set fields onto c.
func (u ComplaintUpdate) Apply(c *Complaint) {
	if u.Title != nil {
		c.Title = *u.Title
	}
	if u.Category != nil {
		c.Category = *u.Category
	}
	if u.Location != nil {
		c.Location = *u.Location
	}
	if u.ContactNumber != nil {
		c.ContactNumber = *u.ContactNumber
	}
	if u.Status != nil {
		c.Status = *u.Status
	}
	if u.IsEscalated != nil {
		c.IsEscalated = *u.IsEscalated
	}
	if u.IsAnalyzing != nil {
		c.IsAnalyzing = *u.IsAnalyzing
	}
	if u.SetAnalysis {
		if u.AIAnalysis == nil {
			c.AIAnalysis = nil
		} else {
			a := *u.AIAnalysis
			c.AIAnalysis = &a
		}
	}
}
