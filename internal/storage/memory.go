package storage

import (
	"context"
	"sort"
	"sync"

	"barangay/backend/internal/models"
)

// MemoryStore is an in-process Storage used by tests and by the
// STORAGE_DRIVER=memory development mode.
type MemoryStore struct {
	mu         sync.RWMutex
	complaints map[string]*models.Complaint
	logs       []models.SystemLog
	users      map[string]*models.User

	changes Broadcaster[[]models.Complaint]

	// FailWrites, when set, makes every write return it. Tests use it to
	// simulate a store outage.
	FailWrites error
}

var _ Storage = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		complaints: make(map[string]*models.Complaint),
		users:      make(map[string]*models.User),
	}
}

func (m *MemoryStore) writeErr() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.FailWrites
}

// SetFailWrites toggles the simulated outage.
func (m *MemoryStore) SetFailWrites(err error) {
	m.mu.Lock()
	m.FailWrites = err
	m.mu.Unlock()
}

// CreateComplaint stores a copy of c.
func (m *MemoryStore) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	if err := m.writeErr(); err != nil {
		return err
	}
	if err := c.BeforeCreate(nil); err != nil {
		return err
	}

	m.mu.Lock()
	if _, exists := m.complaints[c.ID]; exists {
		m.mu.Unlock()
		return ErrDuplicate
	}
	stored := c.Clone()
	m.complaints[c.ID] = &stored
	m.mu.Unlock()

	m.notify()
	return nil
}

// UpdateComplaint applies the set fields of update to one complaint.
func (m *MemoryStore) UpdateComplaint(ctx context.Context, id string, update models.ComplaintUpdate) error {
	if err := m.writeErr(); err != nil {
		return err
	}

	m.mu.Lock()
	c, ok := m.complaints[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	update.Apply(c)
	m.mu.Unlock()

	m.notify()
	return nil
}

// GetComplaint returns a copy of one complaint.
func (m *MemoryStore) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.complaints[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := c.Clone()
	return &out, nil
}

// ListComplaints returns every complaint, newest submission first.
func (m *MemoryStore) ListComplaints(ctx context.Context) ([]models.Complaint, error) {
	return m.snapshot(), nil
}

func (m *MemoryStore) snapshot() []models.Complaint {
	m.mu.RLock()
	out := make([]models.Complaint, 0, len(m.complaints))
	for _, c := range m.complaints {
		out = append(out, c.Clone())
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}

// AppendAuditEntry adds a line to a complaint's audit log.
func (m *MemoryStore) AppendAuditEntry(ctx context.Context, entry *models.AuditLogEntry) error {
	if err := m.writeErr(); err != nil {
		return err
	}

	m.mu.Lock()
	c, ok := m.complaints[entry.ComplaintID]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	entry.ID = uint(len(c.AuditLog) + 1)
	c.AuditLog = append(c.AuditLog, *entry)
	m.mu.Unlock()

	m.notify()
	return nil
}

// AddInternalNote adds a note to a complaint.
func (m *MemoryStore) AddInternalNote(ctx context.Context, note *models.InternalNote) error {
	if err := m.writeErr(); err != nil {
		return err
	}

	m.mu.Lock()
	c, ok := m.complaints[note.ComplaintID]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	note.ID = uint(len(c.InternalNotes) + 1)
	c.InternalNotes = append(c.InternalNotes, *note)
	m.mu.Unlock()

	m.notify()
	return nil
}

// SubscribeComplaints implements ComplaintStore.
func (m *MemoryStore) SubscribeComplaints(handler func([]models.Complaint)) func() {
	return m.changes.SubscribeWithInitial(cloningHandler(handler), func() ([]models.Complaint, bool) {
		return m.snapshot(), true
	})
}

func (m *MemoryStore) notify() {
	m.changes.Publish(func() ([]models.Complaint, bool) {
		return m.snapshot(), true
	})
}

// AppendSystemLog appends a write-once log record.
func (m *MemoryStore) AppendSystemLog(ctx context.Context, entry *models.SystemLog) error {
	if err := m.writeErr(); err != nil {
		return err
	}
	if err := entry.BeforeCreate(nil); err != nil {
		return err
	}

	m.mu.Lock()
	m.logs = append(m.logs, *entry)
	m.mu.Unlock()
	return nil
}

// RecentSystemLogs returns up to limit records, newest first.
func (m *MemoryStore) RecentSystemLogs(ctx context.Context, limit int) ([]models.SystemLog, error) {
	m.mu.RLock()
	out := append([]models.SystemLog(nil), m.logs...)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CreateUser stores a new account; usernames are unique.
func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := m.writeErr(); err != nil {
		return err
	}
	if err := user.BeforeCreate(nil); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return ErrDuplicate
		}
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

// GetUserByID returns one account.
func (m *MemoryStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

// GetUserByUsername returns the account with the given username.
func (m *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// ListUsers returns every account ordered by username.
func (m *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// UpdateUser replaces a stored account.
func (m *MemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	if err := m.writeErr(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return ErrNotFound
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

// DeleteUser removes an account.
func (m *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	if err := m.writeErr(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// cloningHandler gives each subscriber its own copy of the snapshot.
func cloningHandler(handler func([]models.Complaint)) func([]models.Complaint) {
	return func(set []models.Complaint) {
		own := make([]models.Complaint, len(set))
		for i := range set {
			own[i] = set[i].Clone()
		}
		handler(own)
	}
}
