package models_test

import (
	"reflect"
	"testing"

	"barangay/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestUserBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestUserBeforeCreate_GeneratesUUID(t *testing.T) {
	// Arrange
	user := &models.User{
		Username: "kagawad.santos",
		FullName: "Lito Santos",
		Role:     models.RoleOfficial,
	}
	assert.Empty(t, user.ID, "User ID should be empty before BeforeCreate")

	// Act
	err := user.BeforeCreate(nil) // nil *gorm.DB is acceptable for this hook

	// Assert
	assert.NoError(t, err)
	parsed, parseErr := uuid.Parse(user.ID)
	assert.NoError(t, parseErr, "User ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsed)
}

// TestUserBeforeCreate_PreservesExistingID verifies that the hook doesn't overwrite an existing ID.
func TestUserBeforeCreate_PreservesExistingID(t *testing.T) {
	existingID := uuid.New().String()
	user := &models.User{ID: existingID, Username: "admin", Role: models.RoleSuperAdmin}

	err := user.BeforeCreate(nil)

	assert.NoError(t, err)
	assert.Equal(t, existingID, user.ID)
}

// TestUserStructTags guards the password hash against accidental serialization.
func TestUserStructTags(t *testing.T) {
	userType := reflect.TypeOf(models.User{})

	hashField, found := userType.FieldByName("PasswordHash")
	assert.True(t, found)
	assert.Equal(t, "-", hashField.Tag.Get("json"), "password hash must never be serialized")

	usernameField, found := userType.FieldByName("Username")
	assert.True(t, found)
	assert.Contains(t, usernameField.Tag.Get("gorm"), "uniqueIndex")
}

func TestRole_CanTriage(t *testing.T) {
	tests := []struct {
		role models.Role
		want bool
	}{
		{models.RoleResident, false},
		{models.RoleOfficial, true},
		{models.RoleSuperAdmin, true},
		{models.Role("GUEST"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.CanTriage())
		})
	}
}

// BenchmarkUserBeforeCreate measures UUID generation performance.
func BenchmarkUserBeforeCreate(b *testing.B) {
	user := &models.User{Username: "benchmark_user"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		user.ID = ""
		_ = user.BeforeCreate(nil)
	}
}
