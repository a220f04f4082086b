package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"barangay/backend/internal/auditlog"
	"barangay/backend/internal/auth"
	"barangay/backend/internal/models"
	"barangay/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login exchanges portal credentials for a signed token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	user, err := h.Store.GetUserByUsername(ctx, req.Username)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.writeError(c, err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.Audit.Log(ctx, models.ActionLoginFailed, models.CategoryAuth, req.Username,
			"Failed login attempt", models.LogMetadata{Target: req.Username})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := h.Tokens.Issue(user)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.Audit.Log(ctx, models.ActionLogin, models.CategoryAuth, actorName(user),
		"Signed in as "+string(user.Role), models.LogMetadata{UserID: user.ID})
	c.JSON(http.StatusOK, loginResponse{Token: token, User: user})
}

type createUserRequest struct {
	Username string      `json:"username" binding:"required"`
	Password string      `json:"password" binding:"required,min=8"`
	FullName string      `json:"fullName"`
	Role     models.Role `json:"role" binding:"required"`
}

type updateUserRequest struct {
	FullName *string      `json:"fullName"`
	Role     *models.Role `json:"role"`
	Password *string      `json:"password"`
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Store.ListUsers(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !req.Role.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role", "field": "role"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
	}
	if err := h.Store.CreateUser(c.Request.Context(), user); err != nil {
		h.writeError(c, err)
		return
	}

	h.Audit.Log(c.Request.Context(), models.ActionUserCreated, models.CategoryUserManagement, session(c).Actor(),
		fmt.Sprintf("Created %s account %q", user.Role, user.Username), models.LogMetadata{UserID: user.ID, Target: user.Username})
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	user, err := h.Store.GetUserByID(ctx, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	var changes []string
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
		changes = append(changes, "full name")
	}
	if req.Role != nil {
		if !req.Role.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role", "field": "role"})
			return
		}
		user.Role = *req.Role
		changes = append(changes, "role to "+string(user.Role))
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters", "field": "password"})
			return
		}
		if user.PasswordHash, err = auth.HashPassword(*req.Password); err != nil {
			h.writeError(c, err)
			return
		}
		changes = append(changes, "password")
	}
	if len(changes) == 0 {
		c.JSON(http.StatusOK, user)
		return
	}

	if err := h.Store.UpdateUser(ctx, user); err != nil {
		h.writeError(c, err)
		return
	}
	h.Audit.Log(ctx, models.ActionUserUpdated, models.CategoryUserManagement, session(c).Actor(),
		fmt.Sprintf("Updated %q: %s", user.Username, strings.Join(changes, ", ")), models.LogMetadata{UserID: user.ID, Target: user.Username})
	c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	s := session(c)
	id := c.Param("id")
	if s.User != nil && s.User.ID == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot delete your own account"})
		return
	}
	ctx := c.Request.Context()

	user, err := h.Store.GetUserByID(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.Store.DeleteUser(ctx, id); err != nil {
		h.writeError(c, err)
		return
	}
	h.Audit.Log(ctx, models.ActionUserDeleted, models.CategoryUserManagement, s.Actor(),
		fmt.Sprintf("Deleted account %q", user.Username), models.LogMetadata{UserID: user.ID, Target: user.Username})
	c.Status(http.StatusNoContent)
}

// ListLogs returns recent system logs. Query: search, category.
func (h *Handler) ListLogs(c *gin.Context) {
	logs, err := h.Audit.Recent(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	category := c.DefaultQuery("category", auditlog.CategoryAll)
	c.JSON(http.StatusOK, auditlog.Filter(logs, c.Query("search"), category))
}

func actorName(u *models.User) string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
