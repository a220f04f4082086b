package auditlog_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"barangay/backend/internal/auditlog"
	"barangay/backend/internal/logging"
	"barangay/backend/internal/metrics"
	"barangay/backend/internal/models"
	"barangay/backend/internal/storage"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateComplaint(context.Background(), &models.Complaint{
		ID:          "c-1",
		Title:       "No water supply",
		Description: "no water since morning",
		Location:    "Purok 3",
		SubmittedAt: time.Now(),
		Status:      models.StatusPending,
	}))
	return store
}

func TestSink_RecordComplaintWritesAuditAndSystemLog(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := seededStore(t)
	sink := auditlog.NewSink(store, logging.Nop(), metrics.NewNop())

	// Act
	sink.RecordComplaint(ctx, "c-1", models.ActionStatusChange, "Kapitan", "Status changed from PENDING to IN_PROGRESS")

	// Assert
	c, err := store.GetComplaint(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, c.AuditLog, 1)
	assert.Equal(t, models.ActionStatusChange, c.AuditLog[0].Action)
	assert.Equal(t, "Kapitan", c.AuditLog[0].Author)

	logs, err := sink.Recent(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.CategoryComplaint, logs[0].Category)
	assert.Equal(t, "c-1", logs[0].Metadata.ComplaintID)
}

func TestSink_FailuresGoToDeadLetters(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	m := metrics.NewNop()
	sink := auditlog.NewSink(store, logging.Nop(), m)
	store.SetFailWrites(errors.New("store offline"))

	assert.NotPanics(t, func() {
		sink.Log(ctx, models.ActionLogin, models.CategoryAuth, "kap", "Logged in", models.LogMetadata{})
	})

	select {
	case f := <-sink.DeadLetters():
		assert.EqualError(t, f.Err, "store offline")
		_, ok := f.Entry.(*models.SystemLog)
		assert.True(t, ok)
	default:
		t.Fatal("expected a dead-letter record")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditWriteFailures))
}

func TestSink_FullDeadLetterChannelDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	sink := auditlog.NewSink(store, logging.Nop(), nil)
	store.SetFailWrites(errors.New("store offline"))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			sink.Log(ctx, models.ActionLogin, models.CategoryAuth, "kap", "Logged in", models.LogMetadata{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writes blocked on a full dead-letter channel")
	}
}

func TestSink_SubscribeDeliversCappedNewestFirst(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := storage.NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 105; i++ {
		require.NoError(t, store.AppendSystemLog(ctx, &models.SystemLog{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Action:    models.ActionLogin,
			Category:  models.CategoryAuth,
			Details:   fmt.Sprintf("login %d", i),
		}))
	}
	sink := auditlog.NewSink(store, logging.Nop(), nil)

	var mu sync.Mutex
	var got [][]models.SystemLog
	unsubscribe := sink.Subscribe(ctx, func(logs []models.SystemLog) {
		mu.Lock()
		got = append(got, logs)
		mu.Unlock()
	})

	// Act
	sink.Log(ctx, models.ActionUserCreated, models.CategoryUserManagement, "admin", "Created user kap", models.LogMetadata{Target: "kap"})
	unsubscribe()
	sink.Log(ctx, models.ActionUserDeleted, models.CategoryUserManagement, "admin", "Deleted user kap", models.LogMetadata{Target: "kap"})

	// Assert
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Len(t, got[0], 100)
	assert.Equal(t, "login 104", got[0][0].Details)
	require.Len(t, got[1], 100)
	assert.Equal(t, models.ActionUserCreated, got[1][0].Action)
}

// slowLogStore stalls the first RecentSystemLogs after it has read its result,
// like a slow query racing a concurrent write.
type slowLogStore struct {
	*storage.MemoryStore
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (s *slowLogStore) RecentSystemLogs(ctx context.Context, limit int) ([]models.SystemLog, error) {
	logs, err := s.MemoryStore.RecentSystemLogs(ctx, limit)
	s.once.Do(func() {
		close(s.started)
		<-s.release
	})
	return logs, err
}

func TestSink_SubscribeNeverEndsOnStaleInitialList(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := &slowLogStore{MemoryStore: storage.NewMemoryStore(), started: make(chan struct{}), release: make(chan struct{})}
	sink := auditlog.NewSink(store, logging.Nop(), nil)

	var mu sync.Mutex
	var lens []int
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sink.Subscribe(ctx, func(logs []models.SystemLog) {
			mu.Lock()
			lens = append(lens, len(logs))
			mu.Unlock()
		})
	}()
	<-store.started

	// Act
	go func() {
		defer wg.Done()
		sink.Log(ctx, models.ActionLogin, models.CategoryAuth, "kap", "Logged in", models.LogMetadata{})
	}()
	assert.Eventually(t, func() bool {
		logs, _ := store.MemoryStore.RecentSystemLogs(ctx, 10)
		return len(logs) == 1
	}, time.Second, 5*time.Millisecond)
	close(store.release)
	wg.Wait()

	// Assert
	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, lens)
	assert.Equal(t, 1, lens[len(lens)-1], "last delivered list matches the store")
}

func TestFilter(t *testing.T) {
	logs := []models.SystemLog{
		{Action: models.ActionLogin, Category: models.CategoryAuth, Actor: "kap", Details: "Logged in"},
		{Action: models.ActionStatusChange, Category: models.CategoryComplaint, Actor: "Tanod Cruz", Details: "Status changed to RESOLVED"},
		{Action: models.ActionUserCreated, Category: models.CategoryUserManagement, Actor: "admin", Details: "Created user cruz"},
	}

	tests := []struct {
		name     string
		search   string
		category string
		want     int
	}{
		{"no filter", "", auditlog.CategoryAll, 3},
		{"empty category means all", "", "", 3},
		{"by category", "", "AUTH", 1},
		{"search details case-insensitive", "resolved", auditlog.CategoryAll, 1},
		{"search actor", "CRUZ", "", 2},
		{"search action", "user_created", "", 1},
		{"search and category", "cruz", "COMPLAINT", 1},
		{"no match", "flood", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, auditlog.Filter(logs, tt.search, tt.category), tt.want)
		})
	}
}
