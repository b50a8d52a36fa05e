package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BrandingConfig is the public instance configuration served to dashboards
// and clients. Values come from the server config at construction; the
// handler never reads ambient state.
type BrandingConfig struct {
	AppName        string `json:"appName"`
	LogoURL        string `json:"logoUrl,omitempty"`
	SupportEmail   string `json:"supportEmail,omitempty"`
	DocsURL        string `json:"docsUrl,omitempty"`
	SignupsEnabled bool   `json:"signupsEnabled"`
	LoginEnabled   bool   `json:"loginEnabled"`
}

// ConfigHandler serves the public instance configuration.
type ConfigHandler struct {
	cfg BrandingConfig
}

// NewConfigHandler creates a ConfigHandler.
func NewConfigHandler(cfg BrandingConfig) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// Register mounts the config route on the given router group.
func (h *ConfigHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/config", h.Get)
}

// Get handles GET /config. No auth: the payload is public.
func (h *ConfigHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.cfg)
}
