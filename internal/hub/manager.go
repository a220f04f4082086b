package hub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"barangay/backend/internal/metrics"
	"barangay/backend/internal/models"

	"github.com/rs/zerolog"
)

type directEvent struct {
	clientID string
	event    models.RealtimeEvent
}

// Manager owns the set of connected clients. Broadcast events are coalesced
// per type: a slow tick only ever delivers the newest snapshot of each kind,
// and newly registered clients receive the latest one of every kind first.
type Manager struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	IncomingCh   chan Inbound

	// OnMessage handles inbound dashboard messages on the Run goroutine.
	OnMessage func(Inbound)
	// OnDisconnect is called on the Run goroutine after a client leaves.
	OnDisconnect func(clientID string)

	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	pending map[string]models.RealtimeEvent
	order   []string
	direct  []directEvent
	wake    chan struct{}

	latest   map[string]models.RealtimeEvent
	audience map[string]func(models.Role) bool
	count    atomic.Int64
	done     chan struct{}
}

// NewManager creates a hub.
func NewManager(logger zerolog.Logger, m *metrics.Metrics) *Manager {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Manager{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		IncomingCh:   make(chan Inbound, 16),
		logger:       logger.With().Str("component", "hub").Logger(),
		metrics:      m,
		pending:      make(map[string]models.RealtimeEvent),
		wake:         make(chan struct{}, 1),
		latest:       make(map[string]models.RealtimeEvent),
		audience:     make(map[string]func(models.Role) bool),
		done:         make(chan struct{}),
	}
}

// Done is closed when Run returns.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Count returns the number of connected clients.
func (m *Manager) Count() int {
	return int(m.count.Load())
}

// Restrict limits broadcasts of eventType to clients whose role passes
// allow. It must be called before Run.
func (m *Manager) Restrict(eventType string, allow func(models.Role) bool) {
	m.audience[eventType] = allow
}

func (m *Manager) allowed(client Client, eventType string) bool {
	allow, ok := m.audience[eventType]
	return !ok || allow(client.GetRole())
}

// Broadcast queues ev for every client. It never blocks; a newer event of
// the same type replaces one not yet delivered.
func (m *Manager) Broadcast(eventType string, data interface{}) {
	ev := models.RealtimeEvent{Type: eventType, Data: data, Timestamp: time.Now().UTC()}

	m.mu.Lock()
	if _, queued := m.pending[eventType]; !queued {
		m.order = append(m.order, eventType)
	}
	m.pending[eventType] = ev
	m.mu.Unlock()
	m.signal()
}

// SendTo queues ev for one client. It never blocks.
func (m *Manager) SendTo(clientID, eventType string, data interface{}) {
	ev := models.RealtimeEvent{Type: eventType, Data: data, Timestamp: time.Now().UTC()}

	m.mu.Lock()
	m.direct = append(m.direct, directEvent{clientID: clientID, event: ev})
	m.mu.Unlock()
	m.signal()
}

func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Run serves registrations and deliveries until ctx is cancelled, then
// closes every client.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.done)
	defer m.closeAll()

	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-m.RegisterCh:
			id := client.GetClientID()
			if old, ok := m.Clients[id]; ok {
				if old != client {
					old.Close()
				}
			} else {
				m.count.Add(1)
			}
			m.Clients[id] = client
			m.metrics.ConnectedDashboards.Set(float64(m.count.Load()))
			m.logger.Info().Str("client_id", id).Msg("dashboard connected")

			for _, ev := range m.latestEvents() {
				if m.allowed(client, ev.Type) {
					m.deliver(client, ev)
				}
			}

		case client := <-m.UnregisterCh:
			m.drop(client.GetClientID(), client)

		case in := <-m.IncomingCh:
			if m.OnMessage != nil {
				m.OnMessage(in)
			}

		case <-m.wake:
			m.flush()
		}
	}
}

func (m *Manager) latestEvents() []models.RealtimeEvent {
	out := make([]models.RealtimeEvent, 0, len(m.latest))
	for _, t := range []string{models.EventComplaints, models.EventNotifications, models.EventSystemLogs} {
		if ev, ok := m.latest[t]; ok {
			out = append(out, ev)
		}
	}
	for t, ev := range m.latest {
		switch t {
		case models.EventComplaints, models.EventNotifications, models.EventSystemLogs:
		default:
			out = append(out, ev)
		}
	}
	return out
}

func (m *Manager) flush() {
	m.mu.Lock()
	order, pending, direct := m.order, m.pending, m.direct
	m.order, m.pending, m.direct = nil, make(map[string]models.RealtimeEvent), nil
	m.mu.Unlock()

	for _, t := range order {
		ev := pending[t]
		m.latest[t] = ev
		for _, client := range m.Clients {
			if m.allowed(client, t) {
				m.deliver(client, ev)
			}
		}
	}
	for _, d := range direct {
		if client, ok := m.Clients[d.clientID]; ok {
			m.deliver(client, d.event)
		}
	}
}

// deliver drops clients whose buffer is full.
func (m *Manager) deliver(client Client, ev models.RealtimeEvent) {
	select {
	case client.GetSendChannel() <- ev:
	default:
		m.logger.Warn().Str("client_id", client.GetClientID()).Msg("dashboard too slow, disconnecting")
		m.drop(client.GetClientID(), client)
	}
}

func (m *Manager) drop(id string, client Client) {
	current, ok := m.Clients[id]
	if !ok || current != client {
		return
	}
	delete(m.Clients, id)
	client.Close()
	m.count.Add(-1)
	m.metrics.ConnectedDashboards.Set(float64(m.count.Load()))
	m.logger.Info().Str("client_id", id).Msg("dashboard disconnected")

	if m.OnDisconnect != nil {
		m.OnDisconnect(id)
	}
}

func (m *Manager) closeAll() {
	for id, client := range m.Clients {
		delete(m.Clients, id)
		client.Close()
	}
	m.count.Store(0)
	m.metrics.ConnectedDashboards.Set(0)
}
