package hub_test

import (
	"sync"

	"barangay/backend/internal/models"
)

type MockClient struct {
	clientID    string
	role        models.Role
	RecvChannel chan models.RealtimeEvent

	mu     sync.Mutex
	closed bool
}

func newMockClient(clientID string, buffer int) *MockClient {
	return &MockClient{
		clientID:    clientID,
		role:        models.RoleOfficial,
		RecvChannel: make(chan models.RealtimeEvent, buffer),
	}
}

func (c *MockClient) GetClientID() string {
	return c.clientID
}

func (c *MockClient) GetRole() models.Role {
	return c.role
}

func (c *MockClient) GetSendChannel() chan<- models.RealtimeEvent {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
