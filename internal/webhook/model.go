// Package webhook manages an organization's notification endpoints and the
// best-effort fan-out of verification lifecycle events to them.
package webhook

import (
	"time"

	"github.com/google/uuid"
)

// Event names dispatched by the verification lifecycle.
const (
	EventVerificationCompleted = "verification.completed"
	EventVerificationFailed    = "verification.failed"
)

// KnownEvent reports whether name is one of the dispatchable events.
func KnownEvent(name string) bool {
	return name == EventVerificationCompleted || name == EventVerificationFailed
}

// Webhook is an organization's subscription endpoint.
type Webhook struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organizationId"`
	URL            string    `json:"url"`
	Events         []string  `json:"events"`
	Secret         string    `json:"-"` // returned once at creation, never again
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

// subscribed reports whether the webhook listens for the given event.
func (w *Webhook) subscribed(event string) bool {
	for _, e := range w.Events {
		if e == event {
			return true
		}
	}
	return false
}

// Delivery records the outcome of a single delivery attempt.
type Delivery struct {
	ID           uuid.UUID `json:"id"`
	WebhookID    uuid.UUID `json:"webhookId"`
	Event        string    `json:"event"`
	StatusCode   int       `json:"statusCode"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"errorMessage"`
	DeliveredAt  time.Time `json:"deliveredAt"`
}

// CreateWebhookRequest is the payload for registering a webhook.
type CreateWebhookRequest struct {
	URL    string   `json:"url" binding:"required,url"`
	Events []string `json:"events" binding:"required,min=1"`
}
