package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/domainverify/domainverify/internal/apikey"
	"github.com/domainverify/domainverify/internal/auth"
	"github.com/domainverify/domainverify/internal/org"
)

// OrgHeader names the organization a session caller wants to act as.
const OrgHeader = "X-Organization-ID"

// APIKeyHeader carries a third-party consumer's API key.
const APIKeyHeader = "X-API-Key"

// keyValidator resolves a raw API key to its record.
// *apikey.Service satisfies this interface.
type keyValidator interface {
	Validate(ctx context.Context, raw string) (*apikey.APIKey, error)
}

// orgGetter loads an organization for ownership checks.
// *org.Repository satisfies this interface.
type orgGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*org.Organization, error)
}

// ResolveScope returns a middleware that resolves the caller's scope:
//
//   - an API key binds the request to the key's organization;
//   - a session token plus X-Organization-ID binds it to that organization,
//     after an ownership check;
//   - anything else is the anonymous bucket.
//
// Credentials that are present but invalid are rejected rather than silently
// downgraded to anonymous.
func ResolveScope(keys keyValidator, sessions *auth.SessionIssuer, orgs orgGetter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if raw := c.GetHeader(APIKeyHeader); raw != "" {
			k, err := keys.Validate(ctx, raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
				return
			}
			auth.SetOrganization(c, k.OrganizationID)
			c.Next()
			return
		}

		if tok := auth.BearerToken(c); tok != "" {
			claims, err := sessions.Parse(tok)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
				return
			}
			auth.SetUser(c, claims)

			if hdr := c.GetHeader(OrgHeader); hdr != "" {
				orgID, err := uuid.Parse(hdr)
				if err != nil {
					c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid organization ID"})
					return
				}
				o, err := orgs.GetByID(ctx, orgID)
				if err != nil {
					c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "organization not found"})
					return
				}
				userID, err := claims.UserID()
				if err != nil || o.UserID != userID {
					// Treat a foreign organization as nonexistent.
					c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "organization not found"})
					return
				}
				auth.SetOrganization(c, o.ID)
			}
		}

		c.Next()
	}
}
