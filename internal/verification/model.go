// Package verification owns the domain-ownership verification lifecycle:
// record creation, the pending → verified|failed state machine, and the
// orchestration of challenge checks and webhook notifications.
package verification

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/domainverify/domainverify/internal/challenge"
)

// Status is the lifecycle state of a verification attempt.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusFailed   Status = "failed"
)

// Verification is one attempt to prove ownership of a domain. Domain, Method
// and Token are fixed at creation; only Status and VerifiedAt ever change,
// and only through Transition.
type Verification struct {
	ID             uuid.UUID        `json:"id"`
	OrganizationID *uuid.UUID       `json:"organizationId"`
	Domain         string           `json:"domain"`
	Method         challenge.Method `json:"method"`
	Token          string           `json:"token"`
	Status         Status           `json:"status"`
	VerifiedAt     *time.Time       `json:"verifiedAt"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// Scope is the authorization boundary a caller acts within: an organization
// id for API/dashboard callers, or nil for the anonymous bucket.
type Scope struct {
	OrganizationID *uuid.UUID
}

// owns reports whether a record is visible to the scope.
func (s Scope) owns(v *Verification) bool {
	if s.OrganizationID == nil {
		return v.OrganizationID == nil
	}
	return v.OrganizationID != nil && *v.OrganizationID == *s.OrganizationID
}

// NormalizeDomain lower-cases a caller-supplied hostname and strips scheme,
// path and trailing dot. It does not validate DNS-name syntax; that is the
// transport layer's job.
func NormalizeDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	if i := strings.IndexByte(d, '/'); i >= 0 {
		d = d[:i]
	}
	return strings.TrimSuffix(d, ".")
}
