package storage_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"barangay/backend/internal/models"
	"barangay/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func complaintAt(id string, at time.Time) *models.Complaint {
	return &models.Complaint{
		ID:          id,
		Title:       "Complaint " + id,
		Description: "details",
		Location:    "Purok 1",
		Category:    "Sanitation",
		SubmittedAt: at,
		Status:      models.StatusPending,
		IsAnalyzing: true,
	}
}

// recorder collects every snapshot a subscriber receives.
type recorder struct {
	mu        sync.Mutex
	snapshots [][]models.Complaint
}

func (r *recorder) handle(set []models.Complaint) {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, set)
	r.mu.Unlock()
}

func (r *recorder) last() []models.Complaint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[len(r.snapshots)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func TestMemoryStore_SubscribeDeliversInitialAndWholeSets(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := storage.NewMemoryStore()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateComplaint(ctx, complaintAt("old", base)))

	rec := &recorder{}
	unsubscribe := store.SubscribeComplaints(rec.handle)
	defer unsubscribe()

	// Act
	require.NoError(t, store.CreateComplaint(ctx, complaintAt("new", base.Add(time.Hour))))

	// Assert
	require.Equal(t, 2, rec.count(), "initial snapshot plus one change")
	assert.Len(t, rec.snapshots[0], 1)
	last := rec.last()
	require.Len(t, last, 2)
	assert.Equal(t, "new", last[0].ID, "newest submission first")
	assert.Equal(t, "old", last[1].ID)
}

func TestMemoryStore_UnsubscribeStopsDelivery(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	rec := &recorder{}

	unsubscribe := store.SubscribeComplaints(rec.handle)
	unsubscribe()
	unsubscribe() // idempotent
	require.NoError(t, store.CreateComplaint(ctx, complaintAt("c-1", time.Now())))

	assert.Equal(t, 1, rec.count())
}

func TestMemoryStore_SubscribersDoNotShareSnapshots(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateComplaint(ctx, complaintAt("c-1", time.Now())))

	a, b := &recorder{}, &recorder{}
	defer store.SubscribeComplaints(a.handle)()
	defer store.SubscribeComplaints(b.handle)()

	a.last()[0].Title = "mutated by consumer A"

	assert.Equal(t, "Complaint c-1", b.last()[0].Title)
	stored, err := store.GetComplaint(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Complaint c-1", stored.Title)
}

func TestMemoryStore_UpdateIsPartial(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateComplaint(ctx, complaintAt("c-1", time.Now())))
	location := "X"

	require.NoError(t, store.UpdateComplaint(ctx, "c-1", models.ComplaintUpdate{Location: &location}))

	got, err := store.GetComplaint(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "X", got.Location)
	assert.Equal(t, "Complaint c-1", got.Title)
	assert.True(t, got.IsAnalyzing)
}

func TestMemoryStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateComplaint(ctx, complaintAt("c-1", time.Now())))

	assert.ErrorIs(t, store.CreateComplaint(ctx, complaintAt("c-1", time.Now())), storage.ErrDuplicate)
	assert.ErrorIs(t, store.UpdateComplaint(ctx, "missing", models.ComplaintUpdate{}), storage.ErrNotFound)
	_, err := store.GetComplaint(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	outage := errors.New("store offline")
	store.SetFailWrites(outage)
	assert.ErrorIs(t, store.CreateComplaint(ctx, complaintAt("c-2", time.Now())), outage)
	assert.ErrorIs(t, store.AppendSystemLog(ctx, &models.SystemLog{}), outage)
}

func TestMemoryStore_AuditAndNotesAppend(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateComplaint(ctx, complaintAt("c-1", time.Now())))

	require.NoError(t, store.AppendAuditEntry(ctx, &models.AuditLogEntry{ComplaintID: "c-1", Action: models.ActionStatusChange}))
	require.NoError(t, store.AppendAuditEntry(ctx, &models.AuditLogEntry{ComplaintID: "c-1", Action: models.ActionEscalation}))
	require.NoError(t, store.AddInternalNote(ctx, &models.InternalNote{ComplaintID: "c-1", Text: "Called the reporter"}))
	assert.ErrorIs(t, store.AddInternalNote(ctx, &models.InternalNote{ComplaintID: "missing"}), storage.ErrNotFound)

	got, err := store.GetComplaint(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, got.AuditLog, 2)
	assert.Equal(t, models.ActionStatusChange, got.AuditLog[0].Action)
	assert.Equal(t, models.ActionEscalation, got.AuditLog[1].Action)
	require.Len(t, got.InternalNotes, 1)
}

func TestMemoryStore_RecentSystemLogsNewestFirstAndCapped(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendSystemLog(ctx, &models.SystemLog{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Action:    models.ActionLogin,
			Category:  models.CategoryAuth,
		}))
	}

	logs, err := store.RecentSystemLogs(ctx, 3)

	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.True(t, logs[0].Timestamp.After(logs[1].Timestamp))
	assert.NotEmpty(t, logs[0].ID)
}

func TestMemoryStore_Users(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	user := &models.User{Username: "kap", FullName: "Kapitan", Role: models.RoleOfficial}

	require.NoError(t, store.CreateUser(ctx, user))
	assert.ErrorIs(t, store.CreateUser(ctx, &models.User{Username: "kap"}), storage.ErrDuplicate)

	byName, err := store.GetUserByUsername(ctx, "kap")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	byName.FullName = "Kapitan Reyes"
	require.NoError(t, store.UpdateUser(ctx, byName))
	byID, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kapitan Reyes", byID.FullName)

	require.NoError(t, store.DeleteUser(ctx, user.ID))
	assert.ErrorIs(t, store.DeleteUser(ctx, user.ID), storage.ErrNotFound)
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}
