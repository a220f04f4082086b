package handler

import (
	"net/http"
	"strings"
	"time"

	"barangay/backend/internal/config"
	"barangay/backend/internal/models"
	"barangay/backend/internal/triage"

	"github.com/gin-gonic/gin"
)

// SubmitComplaint accepts a resident submission. Analysis runs in the
// background; the response carries the complaint with isAnalyzing set.
func (h *Handler) SubmitComplaint(c *gin.Context) {
	var draft triage.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}

	complaint, err := h.Pipeline.Submit(c.Request.Context(), session(c), draft)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, complaint)
}

// ListComplaints returns the filtered and sorted triage queue.
// Query: status, urgency, category, sort.
func (h *Handler) ListComplaints(c *gin.Context) {
	order, err := triage.ParseSortOrder(c.Query("sort"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	filters := triage.Filters{
		Status:   c.Query("status"),
		Urgency:  c.Query("urgency"),
		Category: c.Query("category"),
	}
	c.JSON(http.StatusOK, h.Queue.View(filters, order))
}

// GetComplaint reads one complaint with its audit trail and notes.
func (h *Handler) GetComplaint(c *gin.Context) {
	complaint, err := h.Store.GetComplaint(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

// trackedComplaint is the resident-safe view of a complaint.
type trackedComplaint struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Category    string                 `json:"category"`
	Location    string                 `json:"location"`
	Status      models.ComplaintStatus `json:"status"`
	IsEscalated bool                   `json:"isEscalated"`
	IsAnalyzing bool                   `json:"isAnalyzing"`
	SubmittedAt time.Time              `json:"submittedAt"`
	LastUpdated time.Time              `json:"lastUpdated"`
}

// TrackComplaint lets anyone holding a complaint id follow its status.
// Notes, the audit trail and reporter details stay with officials.
func (h *Handler) TrackComplaint(c *gin.Context) {
	complaint, err := h.Store.GetComplaint(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		h.writeError(c, err)
		return
	}

	tracked := trackedComplaint{
		ID:          complaint.ID,
		Title:       complaint.Title,
		Category:    complaint.Category,
		Location:    complaint.Location,
		Status:      complaint.Status,
		IsEscalated: complaint.IsEscalated,
		IsAnalyzing: complaint.IsAnalyzing,
		SubmittedAt: complaint.SubmittedAt,
		LastUpdated: complaint.SubmittedAt,
	}
	for _, entry := range complaint.AuditLog {
		if entry.Timestamp.After(tracked.LastUpdated) {
			tracked.LastUpdated = entry.Timestamp
		}
	}
	c.JSON(http.StatusOK, tracked)
}

type statusRequest struct {
	Status models.ComplaintStatus `json:"status" binding:"required"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Pipeline.UpdateStatus(c.Request.Context(), session(c), c.Param("id"), req.Status); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": req.Status})
}

func (h *Handler) ToggleEscalation(c *gin.Context) {
	escalated, err := h.Pipeline.ToggleEscalation(c.Request.Context(), session(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "isEscalated": escalated})
}

func (h *Handler) UpdateFields(c *gin.Context) {
	var fields triage.FieldUpdate
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Pipeline.UpdateFields(c.Request.Context(), session(c), c.Param("id"), fields); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type noteRequest struct {
	Text string `json:"text"`
}

func (h *Handler) AddNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	note, err := h.Pipeline.AddNote(c.Request.Context(), session(c), c.Param("id"), req.Text)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (h *Handler) Reanalyze(c *gin.Context) {
	if err := h.Pipeline.Reanalyze(c.Request.Context(), session(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// Stats summarises the current queue for the dashboard header.
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, triage.ComputeStats(h.Queue.Snapshot()))
}

// Categories lists the categories present in the queue plus the standard ones.
func (h *Handler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"inUse":    triage.Categories(h.Queue.Snapshot()),
		"standard": config.ComplaintCategories,
	})
}

func (h *Handler) ListNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, h.Center.List())
}

func (h *Handler) DismissNotification(c *gin.Context) {
	if !h.Center.Dismiss(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

type assistantRequest struct {
	Message string `json:"message" binding:"required"`
	Context string `json:"context"`
}

// AskAssistant answers a help desk question. It never fails once the
// request is well formed.
func (h *Handler) AskAssistant(c *gin.Context) {
	var req assistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": h.Assistant.Reply(c.Request.Context(), req.Message, req.Context)})
}
