package handler

import (
	"net/http"

	"barangay/backend/internal/hub"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades an official's connection and registers it with
// the hub. Browsers pass the token as ?token= since they cannot set headers.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	s := session(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewWebSocketClient(uuid.New().String(), s.User, conn, h.Hub, h.Logger)
	select {
	case h.Hub.RegisterCh <- client:
	case <-h.Hub.Done():
		conn.Close()
		return
	}
	client.Run()
}
