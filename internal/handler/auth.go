package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/domainverify/domainverify/internal/auth"
	"github.com/domainverify/domainverify/internal/user"
)

// OIDCConfig holds the OAuth2/OIDC provider settings for the login flow.
// An empty ClientID disables the auth routes.
type OIDCConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string
}

// Enabled reports whether a provider is configured.
func (c OIDCConfig) Enabled() bool {
	return c.ClientID != ""
}

// userStore is the interface expected by AuthHandler, satisfied by
// *user.Repository.
type userStore interface {
	Upsert(ctx context.Context, u *user.User) (*user.User, error)
}

// AuthHandler handles login against the external identity provider and
// hands out session tokens for the API.
type AuthHandler struct {
	oauth       *oauth2.Config
	userInfoURL string
	users       userStore
	sessions    *auth.SessionIssuer
	frontendURL string // where the browser lands after the callback
	logger      *zap.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(cfg OIDCConfig, users userStore, sessions *auth.SessionIssuer, frontendURL string, logger *zap.Logger) *AuthHandler {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	return &AuthHandler{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL},
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		userInfoURL: cfg.UserInfoURL,
		users:       users,
		sessions:    sessions,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// Register mounts the auth routes on the given router group.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	{
		a.GET("/login", h.Login)
		a.GET("/callback", h.Callback)
		a.GET("/me", auth.RequireSession(h.sessions), h.Me)
	}
}

// Login handles GET /auth/login — redirects the browser to the identity
// provider.
func (h *AuthHandler) Login(c *gin.Context) {
	state, err := h.sessions.IssueState()
	if err != nil {
		h.logger.Error("issue oauth state", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start login"})
		return
	}
	c.Redirect(http.StatusFound, h.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// Callback handles GET /auth/callback — exchanges the authorization code,
// upserts the user, and redirects to the frontend with a session token in
// the URL fragment so it never reaches a server log.
func (h *AuthHandler) Callback(c *gin.Context) {
	if err := h.sessions.VerifyState(c.Query("state")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid OAuth state"})
		return
	}

	code := c.Query("code")
	if code == "" {
		errMsg := c.Query("error_description")
		if errMsg == "" {
			errMsg = c.Query("error")
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization failed: " + errMsg})
		return
	}

	tok, err := h.oauth.Exchange(c.Request.Context(), code)
	if err != nil {
		h.logger.Error("oauth code exchange", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "code exchange failed"})
		return
	}

	info, err := h.fetchUserInfo(c.Request.Context(), tok.AccessToken)
	if err != nil {
		h.logger.Error("fetch userinfo", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch user info from provider"})
		return
	}

	u, err := h.users.Upsert(c.Request.Context(), &user.User{
		Email:     info.Email,
		Name:      info.Name,
		AvatarURL: info.Picture,
	})
	if err != nil {
		h.logger.Error("upsert user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process login"})
		return
	}

	session, err := h.sessions.Issue(u.ID, u.Email)
	if err != nil {
		h.logger.Error("issue session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session issuance failed"})
		return
	}

	c.Redirect(http.StatusFound, h.frontendURL+"/auth/callback#token="+session)
}

// Me handles GET /auth/me — echoes the session's identity.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := auth.UserFromCtx(c)
	c.JSON(http.StatusOK, gin.H{"userId": claims.Subject, "email": claims.Email})
}

// userInfo are the standard OIDC claims we consume.
type userInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// fetchUserInfo calls the provider's userinfo endpoint.
func (h *AuthHandler) fetchUserInfo(ctx context.Context, accessToken string) (*userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	info := &userInfo{}
	if err := json.Unmarshal(body, info); err != nil {
		return nil, fmt.Errorf("parse userinfo: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("provider returned no email claim")
	}
	return info, nil
}
