package hub

import (
	"encoding/json"
	"sync"
	"time"

	"barangay/backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

// WebSocketClient implements Client over a gorilla websocket connection.
type WebSocketClient struct {
	ID     string
	UserID string
	Role   models.Role
	Conn   *websocket.Conn
	Hub    *Manager
	Send   chan models.RealtimeEvent
	Logger zerolog.Logger

	closeOnce sync.Once
}

// NewWebSocketClient wraps conn.
func NewWebSocketClient(id string, user *models.User, conn *websocket.Conn, hub *Manager, logger zerolog.Logger) *WebSocketClient {
	return &WebSocketClient{
		ID:     id,
		UserID: user.ID,
		Role:   user.Role,
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan models.RealtimeEvent, sendBuffer),
		Logger: logger,
	}
}

func (c *WebSocketClient) GetClientID() string                         { return c.ID }
func (c *WebSocketClient) GetRole() models.Role                        { return c.Role }
func (c *WebSocketClient) GetSendChannel() chan<- models.RealtimeEvent { return c.Send }

// Run starts the read and write pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes Send, which stops writePump.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

func (c *WebSocketClient) readPump() {
	defer func() {
		select {
		case c.Hub.UnregisterCh <- c:
		case <-c.Hub.Done():
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Logger.Warn().Err(err).Str("client_id", c.ID).Msg("websocket read failed")
			}
			return
		}

		var in Inbound
		if err := json.Unmarshal(message, &in); err != nil {
			c.Logger.Debug().Err(err).Str("client_id", c.ID).Msg("ignoring malformed dashboard message")
			continue
		}
		in.ClientID = c.ID

		select {
		case c.Hub.IncomingCh <- in:
		case <-c.Hub.Done():
			return
		}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
