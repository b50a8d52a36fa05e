package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/domainverify/domainverify/internal/apikey"
	"github.com/domainverify/domainverify/internal/auth"
	"github.com/domainverify/domainverify/internal/org"
)

// APIKeyHandler handles HTTP requests for an organization's API keys.
type APIKeyHandler struct {
	svc      *apikey.Service
	orgs     *org.Repository
	sessions *auth.SessionIssuer
	logger   *zap.Logger
}

// NewAPIKeyHandler creates an APIKeyHandler.
func NewAPIKeyHandler(svc *apikey.Service, orgs *org.Repository, sessions *auth.SessionIssuer, logger *zap.Logger) *APIKeyHandler {
	return &APIKeyHandler{svc: svc, orgs: orgs, sessions: sessions, logger: logger}
}

// Register mounts the API key routes. Keys are managed from the dashboard,
// so all routes require a session and organization ownership.
func (h *APIKeyHandler) Register(rg *gin.RouterGroup) {
	k := rg.Group("/organizations/:id/keys")
	k.Use(auth.RequireSession(h.sessions))
	{
		k.POST("", h.Create)
		k.GET("", h.List)
		k.DELETE("/:keyID", h.Delete)
	}
}

// Create handles POST /organizations/:id/keys. The raw key appears only in
// this response.
func (h *APIKeyHandler) Create(c *gin.Context) {
	orgID, ok := h.ownedOrg(c)
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

	created, err := h.svc.Create(c.Request.Context(), orgID, req.Name)
	if err != nil {
		h.logger.Error("create api key", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create api key"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"apiKey": created,
		"note":   "Store the key securely. It will not be shown again.",
	})
}

// List handles GET /organizations/:id/keys.
func (h *APIKeyHandler) List(c *gin.Context) {
	orgID, ok := h.ownedOrg(c)
	if !ok {
		return
	}

	keys, err := h.svc.List(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Error("list api keys", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list api keys"})
		return
	}
	if keys == nil {
		keys = []*apikey.APIKey{}
	}

	c.JSON(http.StatusOK, keys)
}

// Delete handles DELETE /organizations/:id/keys/:keyID.
func (h *APIKeyHandler) Delete(c *gin.Context) {
	orgID, ok := h.ownedOrg(c)
	if !ok {
		return
	}

	keyID, err := uuid.Parse(c.Param("keyID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key ID"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), orgID, keyID); err != nil {
		if errors.Is(err, apikey.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "api key not found"})
			return
		}
		h.logger.Error("delete api key", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete api key"})
		return
	}

	c.Status(http.StatusNoContent)
}

// ownedOrg parses the :id path parameter and checks the session user owns
// that organization, writing the error response itself on failure.
func (h *APIKeyHandler) ownedOrg(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := sessionUserID(c)
	if !ok {
		return uuid.Nil, false
	}

	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization ID"})
		return uuid.Nil, false
	}

	o, err := h.orgs.GetByID(c.Request.Context(), orgID)
	if err != nil || o.UserID != userID {
		if err != nil && !errors.Is(err, org.ErrNotFound) {
			h.logger.Error("get organization", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get organization"})
			return uuid.Nil, false
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "organization not found"})
		return uuid.Nil, false
	}
	return orgID, true
}
