package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"barangay/backend/internal/analysis"
	"barangay/backend/internal/auth"
	"barangay/backend/internal/localization"
	"barangay/backend/internal/logging"
	"barangay/backend/internal/metrics"
	"barangay/backend/internal/models"
	"barangay/backend/internal/notify"
	"barangay/backend/internal/storage"
	"barangay/backend/internal/triage"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// MockMirror is a testify mock of notify.Mirror.
type MockMirror struct {
	mock.Mock
}

func (m *MockMirror) Mirror(ctx context.Context, n models.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func newPolicy(t *testing.T) *notify.Policy {
	t.Helper()
	l, err := localization.NewDefault()
	require.NoError(t, err)
	return notify.NewPolicy(l, "en")
}

func analyzed(urgency models.UrgencyLevel) *models.AIAnalysis {
	return &models.AIAnalysis{PriorityScore: 80, UrgencyLevel: urgency, ConfidenceScore: 90}
}

func TestPolicy_Evaluate(t *testing.T) {
	policy := newPolicy(t)
	base := models.Complaint{ID: "c-1", Title: "Flooding near chapel", Status: models.StatusPending}

	with := func(edit func(c *models.Complaint)) *models.Complaint {
		c := base.Clone()
		edit(&c)
		return &c
	}

	tests := []struct {
		name   string
		before *models.Complaint
		after  *models.Complaint
		titles []string
	}{
		{"critical analysis attached", &base, with(func(c *models.Complaint) { c.AIAnalysis = analyzed(models.UrgencyCritical) }), []string{"⚠️ High Priority Alert"}},
		{"high analysis attached", &base, with(func(c *models.Complaint) { c.AIAnalysis = analyzed(models.UrgencyHigh) }), []string{"⚠️ High Priority Alert"}},
		{"medium analysis attached", &base, with(func(c *models.Complaint) { c.AIAnalysis = analyzed(models.UrgencyMedium) }), nil},
		{"analysis failed", &base, with(func(c *models.Complaint) { c.IsAnalyzing = false }), nil},
		{"analysis already present", with(func(c *models.Complaint) { c.AIAnalysis = analyzed(models.UrgencyLow) }),
			with(func(c *models.Complaint) { c.AIAnalysis = analyzed(models.UrgencyCritical) }), nil},
		{"escalated", &base, with(func(c *models.Complaint) { c.IsEscalated = true }), []string{"Escalation Alert"}},
		{"de-escalated", with(func(c *models.Complaint) { c.IsEscalated = true }), &base, nil},
		{"still escalated", with(func(c *models.Complaint) { c.IsEscalated = true }), with(func(c *models.Complaint) { c.IsEscalated = true }), nil},
		{"new complaint arriving analyzed and escalated", nil, with(func(c *models.Complaint) {
			c.AIAnalysis = analyzed(models.UrgencyCritical)
			c.IsEscalated = true
		}), []string{"⚠️ High Priority Alert", "Escalation Alert"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := policy.Evaluate(tt.before, tt.after)

			var titles []string
			for _, a := range alerts {
				titles = append(titles, a.Title)
				assert.Equal(t, models.NotificationCritical, a.Kind)
				assert.Equal(t, "c-1", a.ComplaintID)
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}

func TestPolicy_MessagesCarryTitleAndUrgency(t *testing.T) {
	policy := newPolicy(t)
	after := &models.Complaint{ID: "c-1", Title: "No water supply", AIAnalysis: analyzed(models.UrgencyCritical), IsEscalated: true}

	alerts := policy.Evaluate(&models.Complaint{ID: "c-1"}, after)

	require.Len(t, alerts, 2)
	assert.Equal(t, `New CRITICAL priority complaint reported: "No water supply"`, alerts[0].Message)
	assert.Equal(t, `Complaint "No water supply" has been escalated to higher authority for immediate review.`, alerts[1].Message)
}

func TestCenter_ExpiresAfterLifetime(t *testing.T) {
	center := notify.NewCenter(30*time.Millisecond, logging.Nop(), nil)
	defer center.Close()

	n := center.Push(notify.Alert{Title: "Escalation Alert", Kind: models.NotificationCritical})
	assert.NotEmpty(t, n.ID)
	require.Len(t, center.List(), 1)

	assert.Eventually(t, func() bool { return len(center.List()) == 0 }, time.Second, 5*time.Millisecond)
	assert.False(t, center.Dismiss(n.ID), "expired notification is gone")
}

func TestCenter_InsertionOrderAndDismissByID(t *testing.T) {
	m := metrics.NewNop()
	center := notify.NewCenter(time.Minute, logging.Nop(), m)
	defer center.Close()

	first := center.Push(notify.Alert{Title: "first", Kind: models.NotificationInfo})
	second := center.Push(notify.Alert{Title: "second", Kind: models.NotificationCritical})
	third := center.Push(notify.Alert{Title: "third", Kind: models.NotificationCritical})
	assert.NotEqual(t, first.ID, second.ID)

	assert.True(t, center.Dismiss(second.ID))
	assert.False(t, center.Dismiss(second.ID))

	list := center.List()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, third.ID, list[1].ID)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NotificationsEmitted.WithLabelValues("critical")))
}

func TestCenter_SubscribeReceivesWholeLists(t *testing.T) {
	center := notify.NewCenter(time.Minute, logging.Nop(), nil)
	defer center.Close()

	var mu sync.Mutex
	var lens []int
	unsubscribe := center.Subscribe(func(list []models.Notification) {
		mu.Lock()
		lens = append(lens, len(list))
		mu.Unlock()
	})

	n := center.Push(notify.Alert{Title: "a"})
	center.Push(notify.Alert{Title: "b"})
	center.Dismiss(n.ID)
	unsubscribe()
	center.Push(notify.Alert{Title: "c"})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 1}, lens)
}

func TestCenter_MirrorFailureDoesNotAffectInAppDelivery(t *testing.T) {
	mirror := new(MockMirror)
	mirror.On("Mirror", mock.Anything, mock.MatchedBy(func(n models.Notification) bool {
		return n.Title == "Escalation Alert"
	})).Return(errors.New("chat not found")).Once()
	center := notify.NewCenter(time.Minute, logging.Nop(), nil, mirror)

	center.Push(notify.Alert{Title: "Escalation Alert", Kind: models.NotificationCritical})
	center.Close()

	assert.Len(t, center.List(), 1)
	mirror.AssertExpectations(t)
}

func TestWatcher_EscalationToggleEmitsExactlyOneNotification(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := storage.NewMemoryStore()
	pipeline := triage.NewPipeline(store, analysis.Unavailable{}, nil, logging.Nop(), nil, triage.Options{})
	defer pipeline.Wait()
	center := notify.NewCenter(time.Minute, logging.Nop(), nil)
	defer center.Close()
	watcher := notify.NewWatcher(newPolicy(t), center, logging.Nop())
	watcher.Attach(store)
	defer watcher.Detach()

	c, err := pipeline.Submit(ctx, nil, triage.Draft{Title: "Flooding near chapel", Description: "knee-deep water", Location: "Chapel Rd."})
	require.NoError(t, err)
	pipeline.Wait()
	official := auth.NewSession(&models.User{Username: "kap", Role: models.RoleOfficial})

	// Act
	_, err = pipeline.ToggleEscalation(ctx, official, c.ID)
	require.NoError(t, err)
	afterFirst := center.List()
	_, err = pipeline.ToggleEscalation(ctx, official, c.ID)
	require.NoError(t, err)

	// Assert
	require.Len(t, afterFirst, 1)
	assert.Equal(t, "Escalation Alert", afterFirst[0].Title)
	assert.Equal(t, models.NotificationCritical, afterFirst[0].Kind)
	assert.Len(t, center.List(), 1, "de-escalation emits nothing")
}

func TestWatcher_HighPriorityAnalysisAlertsOnce(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	analyzer := analyzerFunc(func(context.Context, analysis.Request) (*models.AIAnalysis, error) {
		return analyzed(models.UrgencyHigh), nil
	})
	pipeline := triage.NewPipeline(store, analyzer, nil, logging.Nop(), nil, triage.Options{})
	center := notify.NewCenter(time.Minute, logging.Nop(), nil)
	defer center.Close()
	watcher := notify.NewWatcher(newPolicy(t), center, logging.Nop())
	watcher.Attach(store)
	defer watcher.Detach()

	_, err := pipeline.Submit(ctx, nil, triage.Draft{Title: "Live wire on the street", Description: "sparking", Location: "Purok 5"})
	require.NoError(t, err)
	pipeline.Wait()

	list := center.List()
	require.Len(t, list, 1)
	assert.Equal(t, `New HIGH priority complaint reported: "Live wire on the street"`, list[0].Message)
}

func TestWatcher_BaselineSnapshotRaisesNothing(t *testing.T) {
	center := notify.NewCenter(time.Minute, logging.Nop(), nil)
	defer center.Close()
	watcher := notify.NewWatcher(newPolicy(t), center, logging.Nop())

	watcher.Observe([]models.Complaint{{ID: "c-1", Title: "Old", IsEscalated: true, AIAnalysis: analyzed(models.UrgencyCritical)}})

	assert.Empty(t, center.List())
}

type analyzerFunc func(context.Context, analysis.Request) (*models.AIAnalysis, error)

func (f analyzerFunc) Analyze(ctx context.Context, req analysis.Request) (*models.AIAnalysis, error) {
	return f(ctx, req)
}
