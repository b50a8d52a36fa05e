// Package apikey issues and validates the opaque API keys third-party
// consumers authenticate with. Only a bcrypt hash is stored; the raw key is
// returned once at creation, with a prefix/suffix kept for display.
package apikey

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is an organization's credential for the verification API.
type APIKey struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	Name           string     `json:"name"`
	KeyHash        string     `json:"-"`
	KeyPrefix      string     `json:"keyPrefix"`
	KeySuffix      string     `json:"keySuffix"`
	IsActive       bool       `json:"isActive"`
	LastUsedAt     *time.Time `json:"lastUsedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// APIKeyWithSecret carries the raw key, returned only at creation.
type APIKeyWithSecret struct {
	APIKey
	Key string `json:"key"`
}
