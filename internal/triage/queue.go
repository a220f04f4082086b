package triage

import (
	"sync"

	"barangay/backend/internal/models"
	"barangay/backend/internal/storage"
)

// Queue holds the latest whole-set complaint snapshot delivered by the store
// and the per-viewer selections of the officials' triage queue. Every
// snapshot replaces the previous one; nothing is patched in place.
type Queue struct {
	mu         sync.RWMutex
	complaints []models.Complaint
	index      map[string]int
	selections map[string]string

	// OnSelectionCleared, when set, is called without locks held for every
	// viewer whose selected complaint disappeared from a snapshot.
	OnSelectionCleared func(viewer string)

	unsubscribe func()
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{
		index:      make(map[string]int),
		selections: make(map[string]string),
	}
}

// Attach subscribes the queue to store until Detach is called.
func (q *Queue) Attach(store storage.ComplaintStore) {
	q.unsubscribe = store.SubscribeComplaints(q.Replace)
}

// Detach stops receiving snapshots.
func (q *Queue) Detach() {
	if q.unsubscribe != nil {
		q.unsubscribe()
	}
}

// Replace installs a new snapshot and drops selections pointing at
// complaints it no longer contains.
func (q *Queue) Replace(set []models.Complaint) {
	index := make(map[string]int, len(set))
	for i := range set {
		index[set[i].ID] = i
	}

	var cleared []string
	q.mu.Lock()
	q.complaints = set
	q.index = index
	for viewer, id := range q.selections {
		if _, ok := index[id]; !ok {
			delete(q.selections, viewer)
			cleared = append(cleared, viewer)
		}
	}
	hook := q.OnSelectionCleared
	q.mu.Unlock()

	if hook != nil {
		for _, viewer := range cleared {
			hook(viewer)
		}
	}
}

// Snapshot returns a private copy of the current set.
func (q *Queue) Snapshot() []models.Complaint {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]models.Complaint, len(q.complaints))
	for i := range q.complaints {
		out[i] = q.complaints[i].Clone()
	}
	return out
}

// View is SelectAndSort over the current snapshot.
func (q *Queue) View(filters Filters, order SortOrder) []models.Complaint {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return SelectAndSort(q.complaints, filters, order)
}

// Get returns one complaint of the current snapshot.
func (q *Queue) Get(id string) (models.Complaint, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	i, ok := q.index[id]
	if !ok {
		return models.Complaint{}, false
	}
	return q.complaints[i].Clone(), true
}

// Select makes id the single selected complaint of viewer, replacing any
// previous selection.
func (q *Queue) Select(viewer, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.index[id]; !ok {
		return storage.ErrNotFound
	}
	q.selections[viewer] = id
	return nil
}

// Deselect clears the selection of viewer.
func (q *Queue) Deselect(viewer string) {
	q.mu.Lock()
	delete(q.selections, viewer)
	q.mu.Unlock()
}

// Selected returns the complaint viewer currently has selected.
func (q *Queue) Selected(viewer string) (models.Complaint, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	id, ok := q.selections[viewer]
	if !ok {
		return models.Complaint{}, false
	}
	i, ok := q.index[id]
	if !ok {
		return models.Complaint{}, false
	}
	return q.complaints[i].Clone(), true
}
