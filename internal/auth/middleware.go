package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Gin context keys.
const (
	ctxKeyUser = "auth.user"
	ctxKeyOrg  = "auth.org"
)

// RequireSession returns a middleware that rejects requests without a valid
// Bearer session token and stores the claims in the context.
func RequireSession(issuer *SessionIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := BearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		claims, err := issuer.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}
		c.Set(ctxKeyUser, claims)
		c.Next()
	}
}

// SetUser stores the caller's session claims.
func SetUser(c *gin.Context, claims *SessionClaims) {
	c.Set(ctxKeyUser, claims)
}

// UserFromCtx returns the session claims set by RequireSession, or nil.
func UserFromCtx(c *gin.Context) *SessionClaims {
	if v, ok := c.Get(ctxKeyUser); ok {
		if claims, ok := v.(*SessionClaims); ok {
			return claims
		}
	}
	return nil
}

// SetOrganization stores the caller's resolved organization scope.
func SetOrganization(c *gin.Context, orgID uuid.UUID) {
	c.Set(ctxKeyOrg, orgID)
}

// OrganizationFromCtx returns the resolved organization scope, or nil for
// anonymous callers.
func OrganizationFromCtx(c *gin.Context) *uuid.UUID {
	if v, ok := c.Get(ctxKeyOrg); ok {
		if id, ok := v.(uuid.UUID); ok {
			return &id
		}
	}
	return nil
}

// RequireOrganization aborts requests that have no organization scope.
func RequireOrganization() gin.HandlerFunc {
	return func(c *gin.Context) {
		if OrganizationFromCtx(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organization scope required"})
			return
		}
		c.Next()
	}
}

// BearerToken extracts the Bearer token from the Authorization header.
func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}
