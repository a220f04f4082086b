// Package handler exposes the triage pipeline over HTTP and websockets.
package handler

import (
	"net/http"
	"time"

	"barangay/backend/internal/analysis"
	"barangay/backend/internal/auditlog"
	"barangay/backend/internal/auth"
	"barangay/backend/internal/hub"
	"barangay/backend/internal/notify"
	"barangay/backend/internal/storage"
	"barangay/backend/internal/triage"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Handler holds every collaborator the routes need.
type Handler struct {
	Pipeline  *triage.Pipeline
	Queue     *triage.Queue
	Store     storage.Storage
	Audit     *auditlog.Sink
	Center    *notify.Center
	Hub       *hub.Manager
	Tokens    *auth.Tokens
	Assistant *analysis.Assistant
	Logger    zerolog.Logger

	// Metrics, when set, is served on /metrics.
	Metrics http.Handler
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.Logger))

	r.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := r.Group("/api", h.sessionMiddleware)
	api.POST("/auth/login", h.Login)
	api.POST("/complaints", h.SubmitComplaint)
	api.GET("/complaints/:id/track", h.TrackComplaint)
	api.POST("/assistant", h.AskAssistant)

	officials := api.Group("", requireTriage)
	officials.GET("/complaints", h.ListComplaints)
	officials.GET("/complaints/:id", h.GetComplaint)
	officials.PATCH("/complaints/:id", h.UpdateFields)
	officials.PATCH("/complaints/:id/status", h.UpdateStatus)
	officials.POST("/complaints/:id/escalation", h.ToggleEscalation)
	officials.POST("/complaints/:id/notes", h.AddNote)
	officials.POST("/complaints/:id/reanalyze", h.Reanalyze)
	officials.GET("/stats", h.Stats)
	officials.GET("/categories", h.Categories)
	officials.GET("/notifications", h.ListNotifications)
	officials.DELETE("/notifications/:id", h.DismissNotification)

	admins := api.Group("", requireSuperAdmin)
	admins.GET("/logs", h.ListLogs)
	admins.GET("/users", h.ListUsers)
	admins.POST("/users", h.CreateUser)
	admins.PATCH("/users/:id", h.UpdateUser)
	admins.DELETE("/users/:id", h.DeleteUser)

	r.GET("/ws", h.sessionMiddleware, requireTriage, h.ServeWebSocket)
	return r
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := logger.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = logger.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
