package handler

import (
	"errors"
	"net/http"

	"barangay/backend/internal/config"
	"barangay/backend/internal/storage"
	"barangay/backend/internal/triage"

	"github.com/gin-gonic/gin"
)

// writeError maps pipeline and store errors to responses. Persistence
// failures always get the same user-facing message.
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *triage.ValidationError
	var aerr *triage.AuthorizationError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.As(err, &aerr):
		status := http.StatusUnauthorized
		if aerr.Authenticated {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": aerr.Error()})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, storage.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "Already exists"})
	case errors.Is(err, triage.ErrAnalysisInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.Logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": config.UserFacingSaveError})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
