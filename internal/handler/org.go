package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/domainverify/domainverify/internal/auth"
	"github.com/domainverify/domainverify/internal/org"
)

// OrgHandler handles HTTP requests for organizations.
type OrgHandler struct {
	repo     *org.Repository
	sessions *auth.SessionIssuer
	logger   *zap.Logger
}

// NewOrgHandler creates an OrgHandler.
func NewOrgHandler(repo *org.Repository, sessions *auth.SessionIssuer, logger *zap.Logger) *OrgHandler {
	return &OrgHandler{repo: repo, sessions: sessions, logger: logger}
}

// Register mounts the organization routes. All routes require a session.
func (h *OrgHandler) Register(rg *gin.RouterGroup) {
	o := rg.Group("/organizations")
	o.Use(auth.RequireSession(h.sessions))
	{
		o.POST("", h.Create)
		o.GET("", h.List)
		o.GET("/:id", h.Get)
	}
}

// Create handles POST /organizations.
func (h *OrgHandler) Create(c *gin.Context) {
	userID, ok := sessionUserID(c)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := h.repo.Create(c.Request.Context(), userID, req.Name)
	if err != nil {
		h.logger.Error("create organization", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create organization"})
		return
	}

	c.JSON(http.StatusCreated, o)
}

// List handles GET /organizations — the caller's organizations.
func (h *OrgHandler) List(c *gin.Context) {
	userID, ok := sessionUserID(c)
	if !ok {
		return
	}

	orgs, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list organizations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list organizations"})
		return
	}
	if orgs == nil {
		orgs = []*org.Organization{}
	}

	c.JSON(http.StatusOK, orgs)
}

// Get handles GET /organizations/:id.
func (h *OrgHandler) Get(c *gin.Context) {
	userID, ok := sessionUserID(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization ID"})
		return
	}

	o, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, org.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "organization not found"})
			return
		}
		h.logger.Error("get organization", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get organization"})
		return
	}
	if o.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "organization not found"})
		return
	}

	c.JSON(http.StatusOK, o)
}

// sessionUserID pulls the authenticated user id from the context, writing
// the error response itself when absent.
func sessionUserID(c *gin.Context) (uuid.UUID, bool) {
	claims := auth.UserFromCtx(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return uuid.Nil, false
	}
	userID, err := claims.UserID()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return uuid.Nil, false
	}
	return userID, true
}
