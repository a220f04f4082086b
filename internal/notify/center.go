package notify

import (
	"context"
	"sync"
	"time"

	"barangay/backend/internal/config"
	"barangay/backend/internal/metrics"
	"barangay/backend/internal/models"
	"barangay/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const mirrorTimeout = 10 * time.Second

// Mirror forwards a notification outside the dashboard. Delivery is best
// effort: errors are logged and never affect the in-app list.
type Mirror interface {
	Mirror(ctx context.Context, n models.Notification) error
}

// Center holds the live notifications in insertion order. Each one expires
// after the configured lifetime or when dismissed, whichever comes first.
type Center struct {
	lifetime time.Duration
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	mirrors  []Mirror
	now      func() time.Time

	mu     sync.Mutex
	items  []models.Notification
	timers map[string]*time.Timer
	closed bool

	changes   storage.Broadcaster[[]models.Notification]
	mirrorsWG sync.WaitGroup
}

// NewCenter creates a notification center.
func NewCenter(lifetime time.Duration, logger zerolog.Logger, m *metrics.Metrics, mirrors ...Mirror) *Center {
	if lifetime <= 0 {
		lifetime = config.DefaultNotificationLifetime
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Center{
		lifetime: lifetime,
		logger:   logger.With().Str("component", "notify").Logger(),
		metrics:  m,
		mirrors:  mirrors,
		now:      time.Now,
		timers:   make(map[string]*time.Timer),
	}
}

// Push adds a notification for alert and returns it.
func (c *Center) Push(alert Alert) models.Notification {
	n := models.Notification{
		ID:          uuid.New().String(),
		Title:       alert.Title,
		Message:     alert.Message,
		Kind:        alert.Kind,
		ComplaintID: alert.ComplaintID,
		CreatedAt:   c.now().UTC(),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return n
	}
	c.items = append(c.items, n)
	c.timers[n.ID] = time.AfterFunc(c.lifetime, func() { c.remove(n.ID) })
	c.mu.Unlock()

	c.metrics.NotificationsEmitted.WithLabelValues(string(n.Kind)).Inc()
	c.logger.Info().Str("title", n.Title).Str("complaint_id", n.ComplaintID).Msg("notification raised")
	c.publish()
	c.mirror(n)
	return n
}

// Dismiss removes a notification before it expires. It reports whether the
// id was still live.
func (c *Center) Dismiss(id string) bool {
	return c.remove(id)
}

func (c *Center) remove(id string) bool {
	c.mu.Lock()
	idx := -1
	for i, n := range c.items {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	c.items = append(c.items[:idx:idx], c.items[idx+1:]...)
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	c.mu.Unlock()

	c.publish()
	return true
}

// List returns the live notifications, oldest first.
func (c *Center) List() []models.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Notification{}, c.items...)
}

// Subscribe delivers the live list now and after every change.
func (c *Center) Subscribe(fn func([]models.Notification)) func() {
	return c.changes.SubscribeWithInitial(fn, func() ([]models.Notification, bool) {
		return c.List(), true
	})
}

func (c *Center) publish() {
	c.changes.Publish(func() ([]models.Notification, bool) {
		return c.List(), true
	})
}

func (c *Center) mirror(n models.Notification) {
	for _, m := range c.mirrors {
		c.mirrorsWG.Add(1)
		go func(m Mirror) {
			defer c.mirrorsWG.Done()
			ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
			defer cancel()
			if err := m.Mirror(ctx, n); err != nil {
				c.logger.Warn().Err(err).Str("notification_id", n.ID).Msg("notification mirror failed")
			}
		}(m)
	}
}

// Close stops every expiry timer and waits for in-flight mirror deliveries.
// Pushes after Close are ignored.
func (c *Center) Close() {
	c.mu.Lock()
	c.closed = true
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.mu.Unlock()

	c.mirrorsWG.Wait()
}
