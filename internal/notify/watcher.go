package notify

import (
	"sync"

	"barangay/backend/internal/models"
	"barangay/backend/internal/storage"

	"github.com/rs/zerolog"
)

// Watcher diffs consecutive store snapshots by complaint id and pushes the
// alerts the policy derives from each change. The first snapshot only sets
// the baseline.
type Watcher struct {
	policy *Policy
	center *Center
	logger zerolog.Logger

	mu       sync.Mutex
	prev     map[string]models.Complaint
	baseline bool

	unsubscribe func()
}

// NewWatcher creates a watcher feeding center.
func NewWatcher(policy *Policy, center *Center, logger zerolog.Logger) *Watcher {
	return &Watcher{
		policy: policy,
		center: center,
		logger: logger.With().Str("component", "notify.watcher").Logger(),
	}
}

// Attach subscribes the watcher to store.
func (w *Watcher) Attach(store storage.ComplaintStore) {
	w.unsubscribe = store.SubscribeComplaints(w.Observe)
}

// Detach stops watching.
func (w *Watcher) Detach() {
	if w.unsubscribe != nil {
		w.unsubscribe()
	}
}

// Observe handles one whole-set snapshot.
func (w *Watcher) Observe(set []models.Complaint) {
	next := make(map[string]models.Complaint, len(set))
	for _, c := range set {
		next[c.ID] = c
	}

	w.mu.Lock()
	prev, baseline := w.prev, w.baseline
	w.prev, w.baseline = next, true

	var alerts []Alert
	if baseline {
		for i := range set {
			after := &set[i]
			var before *models.Complaint
			if p, ok := prev[after.ID]; ok {
				before = &p
			}
			alerts = append(alerts, w.policy.Evaluate(before, after)...)
		}
	}
	w.mu.Unlock()

	for _, a := range alerts {
		w.center.Push(a)
	}
	if len(alerts) > 0 {
		w.logger.Debug().Int("alerts", len(alerts)).Msg("snapshot raised alerts")
	}
}
