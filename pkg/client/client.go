package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotFound is returned when the server reports a missing record. Records
// outside the caller's scope surface the same way.
var ErrNotFound = errors.New("not found")

// Verification mirrors the server's verification record.
type Verification struct {
	ID             string     `json:"id"`
	OrganizationID *string    `json:"organizationId,omitempty"`
	Domain         string     `json:"domain"`
	Method         string     `json:"method"`
	Token          string     `json:"token"`
	Status         string     `json:"status"`
	VerifiedAt     *time.Time `json:"verifiedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Webhook mirrors the server's webhook subscription record. The signing
// secret is only returned at creation.
type Webhook struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	URL            string    `json:"url"`
	Events         []string  `json:"events"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

// CreateWebhookResult is the one-time response from CreateWebhook.
type CreateWebhookResult struct {
	Webhook *Webhook `json:"webhook"`
	Secret  string   `json:"secret"`
}

// Client talks to the domain verification API.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	apiKey       string
	sessionToken string
	orgID        string
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAPIKey authenticates every request with an organization API key.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithSessionToken authenticates every request with a dashboard session
// token. Combine with WithOrganization to act within an organization scope.
func WithSessionToken(token string) Option {
	return func(c *Client) { c.sessionToken = token }
}

// WithOrganization selects the organization scope for session-authenticated
// requests. Ignored when an API key is set; the key carries its own scope.
func WithOrganization(orgID string) Option {
	return func(c *Client) { c.orgID = orgID }
}

// New creates a Client for the API at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CreateVerification starts a verification for domain using the given proof
// method ("dns" or "file"). The returned record carries the token the domain
// owner must publish.
func (c *Client) CreateVerification(ctx context.Context, domain, method string) (*Verification, error) {
	payload, _ := json.Marshal(map[string]string{"domain": domain, "method": method})
	body, err := c.do(ctx, http.MethodPost, "/api/v1/verifications", payload)
	if err != nil {
		return nil, err
	}

	var v Verification
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decode verification: %w", err)
	}
	return &v, nil
}

// GetVerification fetches a verification record by ID.
func (c *Client) GetVerification(ctx context.Context, id string) (*Verification, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/verifications/"+id, nil)
	if err != nil {
		return nil, err
	}

	var v Verification
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decode verification: %w", err)
	}
	return &v, nil
}

// ListVerifications returns all verification records in the caller's scope,
// newest first.
func (c *Client) ListVerifications(ctx context.Context) ([]Verification, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/verifications", nil)
	if err != nil {
		return nil, err
	}

	var vs []Verification
	if err := json.Unmarshal(body, &vs); err != nil {
		return nil, fmt.Errorf("decode verifications: %w", err)
	}
	return vs, nil
}

// CheckVerification asks the server to look for the published proof and
// returns the record with its updated status.
func (c *Client) CheckVerification(ctx context.Context, id string) (*Verification, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/v1/verifications/"+id+"/check", nil)
	if err != nil {
		return nil, err
	}

	var v Verification
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decode verification: %w", err)
	}
	return &v, nil
}

// CreateWebhook registers a webhook subscription. The signing secret in the
// result is shown only once.
func (c *Client) CreateWebhook(ctx context.Context, url string, events []string) (*CreateWebhookResult, error) {
	payload, err := json.Marshal(map[string]any{"url": url, "events": events})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, "/api/v1/webhooks", payload)
	if err != nil {
		return nil, err
	}

	var result CreateWebhookResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	return &result, nil
}

// ListWebhooks returns the organization's webhook subscriptions.
func (c *Client) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/webhooks", nil)
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		Webhooks []Webhook `json:"webhooks"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decode webhooks: %w", err)
	}
	return wrapper.Webhooks, nil
}

// DeleteWebhook removes a webhook subscription.
func (c *Client) DeleteWebhook(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/webhooks/"+id, nil)
	return err
}

// do executes an HTTP request against the API, attaching credentials.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	switch {
	case c.apiKey != "":
		req.Header.Set("X-API-Key", c.apiKey)
	case c.sessionToken != "":
		req.Header.Set("Authorization", "Bearer "+c.sessionToken)
		if c.orgID != "" {
			req.Header.Set("X-Organization-ID", c.orgID)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("unauthorized: %s", string(body))
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
