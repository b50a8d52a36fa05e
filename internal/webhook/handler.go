package webhook

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/domainverify/domainverify/internal/auth"
)

// Handler handles HTTP requests for webhook subscriptions. All routes are
// organization-scoped; dispatching itself never goes through HTTP handlers.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a webhook Handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// Register mounts the webhook routes on the given router group. The group
// must already carry scope resolution; an organization scope is enforced
// here.
func (h *Handler) Register(rg *gin.RouterGroup) {
	wh := rg.Group("/webhooks")
	wh.Use(auth.RequireOrganization())
	{
		wh.POST("", h.Create)
		wh.GET("", h.List)
		wh.DELETE("/:id", h.Delete)
	}
}

// Create handles POST /webhooks — registers a subscription endpoint.
func (h *Handler) Create(c *gin.Context) {
	orgID := auth.OrganizationFromCtx(c)

	var req CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, e := range req.Events {
		if !KnownEvent(e) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event: " + e})
			return
		}
	}

	secret, err := GenerateSecret()
	if err != nil {
		h.logger.Error("generate webhook secret", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create webhook"})
		return
	}

	w := &Webhook{
		OrganizationID: *orgID,
		URL:            req.URL,
		Events:         req.Events,
		Secret:         secret,
	}
	if err := h.repo.Create(c.Request.Context(), w); err != nil {
		h.logger.Error("create webhook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create webhook"})
		return
	}

	// The secret is shown once so the subscriber can verify signatures.
	c.JSON(http.StatusCreated, gin.H{
		"webhook": w,
		"secret":  w.Secret,
		"note":    "Store the secret securely. It will not be shown again.",
	})
}

// List handles GET /webhooks — the organization's subscriptions.
func (h *Handler) List(c *gin.Context) {
	orgID := auth.OrganizationFromCtx(c)

	whs, err := h.repo.ListByOrganization(c.Request.Context(), *orgID)
	if err != nil {
		h.logger.Error("list webhooks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list webhooks"})
		return
	}
	if whs == nil {
		whs = []*Webhook{}
	}

	c.JSON(http.StatusOK, gin.H{"webhooks": whs, "count": len(whs)})
}

// Delete handles DELETE /webhooks/:id — removes a subscription, checking
// ownership.
func (h *Handler) Delete(c *gin.Context) {
	orgID := auth.OrganizationFromCtx(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook ID"})
		return
	}

	w, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil || w.OrganizationID != *orgID {
		if err != nil && !errors.Is(err, ErrNotFound) {
			h.logger.Error("get webhook", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete webhook"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "webhook not found"})
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("delete webhook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete webhook"})
		return
	}

	c.Status(http.StatusNoContent)
}
