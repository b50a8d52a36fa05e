package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/domainverify/domainverify/internal/auth"
	"github.com/domainverify/domainverify/internal/challenge"
	"github.com/domainverify/domainverify/internal/verification"
)

// VerificationHandler handles HTTP requests for the verification lifecycle.
type VerificationHandler struct {
	svc    *verification.Service
	logger *zap.Logger
}

// NewVerificationHandler creates a VerificationHandler.
func NewVerificationHandler(svc *verification.Service, logger *zap.Logger) *VerificationHandler {
	return &VerificationHandler{svc: svc, logger: logger}
}

// Register mounts the verification routes on the given router group.
func (h *VerificationHandler) Register(rg *gin.RouterGroup) {
	v := rg.Group("/verifications")
	{
		v.POST("", h.Create)
		v.GET("", h.List)
		v.GET("/:id", h.Get)
		v.POST("/:id/check", h.Check)
	}
}

// createRequest is the payload for starting a verification.
type createRequest struct {
	Domain string `json:"domain" binding:"required"`
	Method string `json:"method" binding:"required,oneof=dns file"`
}

// Create handles POST /verifications.
//
// Request body: {"domain": "example.com", "method": "dns"}
//
// Response: the pending verification record, including the token the owner
// must publish.
func (h *VerificationHandler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := h.svc.Create(c.Request.Context(), callerScope(c), req.Domain, challenge.Method(req.Method))
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrInvalidDomain), errors.Is(err, verification.ErrInvalidMethod):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("create verification", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create verification"})
		}
		return
	}

	c.JSON(http.StatusCreated, v)
}

// Get handles GET /verifications/:id.
func (h *VerificationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid verification ID"})
		return
	}

	v, err := h.svc.Get(c.Request.Context(), callerScope(c), id)
	if err != nil {
		if errors.Is(err, verification.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "verification not found"})
			return
		}
		h.logger.Error("get verification", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get verification"})
		return
	}

	c.JSON(http.StatusOK, v)
}

// List handles GET /verifications — all records in the caller's scope,
// newest first.
func (h *VerificationHandler) List(c *gin.Context) {
	vs, err := h.svc.List(c.Request.Context(), callerScope(c))
	if err != nil {
		h.logger.Error("list verifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list verifications"})
		return
	}
	if vs == nil {
		vs = []*verification.Verification{}
	}

	c.JSON(http.StatusOK, vs)
}

// Check handles POST /verifications/:id/check. It runs the external proof
// check and returns the record with its updated status.
func (h *VerificationHandler) Check(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid verification ID"})
		return
	}

	v, err := h.svc.Check(c.Request.Context(), callerScope(c), id)
	if err != nil {
		if errors.Is(err, verification.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "verification not found"})
			return
		}
		h.logger.Error("check verification", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check verification"})
		return
	}

	c.JSON(http.StatusOK, v)
}

// callerScope builds the service scope from what the auth middleware
// resolved.
func callerScope(c *gin.Context) verification.Scope {
	return verification.Scope{OrganizationID: auth.OrganizationFromCtx(c)}
}
