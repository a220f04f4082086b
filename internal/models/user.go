package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role decides which mutations a caller may perform.
type Role string

const (
	RoleResident   Role = "RESIDENT"
	RoleOfficial   Role = "OFFICIAL"
	RoleSuperAdmin Role = "SUPERADMIN"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleResident, RoleOfficial, RoleSuperAdmin:
		return true
	}
	return false
}

// CanTriage reports whether the role may mutate complaints after submission.
func (r Role) CanTriage() bool {
	return r == RoleOfficial || r == RoleSuperAdmin
}

// User is a portal account. PasswordHash holds a bcrypt digest and is never serialized.
type User struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	FullName     string    `json:"fullName"`
	Role         Role      `gorm:"type:text;not null" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// BeforeCreate is a GORM hook that generates a UUID when ID is empty.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
