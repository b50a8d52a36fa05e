package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/domainverify/domainverify/pkg/client"
)

// ── Stub server ─────────────────────────────────────────────────────────

func stubAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/verifications", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req map[string]string
			json.NewDecoder(r.Body).Decode(&req)
			if req["domain"] == "" {
				http.Error(w, `{"error":"domain is required"}`, http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{
				"id":        "550e8400-e29b-41d4-a716-446655440000",
				"domain":    req["domain"],
				"method":    req["method"],
				"token":     "verify-domain-abc123xyz456abc123xy",
				"status":    "pending",
				"createdAt": "2026-01-02T15:04:05Z",
			})
		case http.MethodGet:
			json.NewEncoder(w).Encode([]map[string]any{
				{"id": "550e8400-e29b-41d4-a716-446655440000", "domain": "example.com", "status": "pending"},
			})
		}
	})

	mux.HandleFunc("/api/v1/verifications/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if strings.Contains(path, "missing") {
			http.Error(w, `{"error":"verification not found"}`, http.StatusNotFound)
			return
		}
		if strings.HasSuffix(path, "/check") {
			json.NewEncoder(w).Encode(map[string]any{
				"id":         "550e8400-e29b-41d4-a716-446655440000",
				"domain":     "example.com",
				"status":     "verified",
				"verifiedAt": "2026-01-02T15:05:00Z",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "550e8400-e29b-41d4-a716-446655440000",
			"domain": "example.com",
			"status": "pending",
		})
	})

	mux.HandleFunc("/api/v1/webhooks", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") == "" && r.Header.Get("Authorization") == "" {
			http.Error(w, `{"error":"organization scope required"}`, http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{
				"webhook": map[string]any{
					"id":     "660e8400-e29b-41d4-a716-446655440000",
					"url":    "https://app.example.com/hooks",
					"events": []string{"verification.completed"},
				},
				"secret": "deadbeef",
			})
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{
				"webhooks": []map[string]any{
					{"id": "660e8400-e29b-41d4-a716-446655440000", "url": "https://app.example.com/hooks"},
				},
				"count": 1,
			})
		}
	})

	return httptest.NewServer(mux)
}

func TestCreateVerification_success(t *testing.T) {
	srv := stubAPIServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	v, err := c.CreateVerification(context.Background(), "example.com", "dns")
	if err != nil {
		t.Fatalf("CreateVerification: %v", err)
	}
	if v.Domain != "example.com" || v.Status != "pending" {
		t.Errorf("unexpected record: %+v", v)
	}
	if !strings.HasPrefix(v.Token, "verify-domain-") {
		t.Errorf("token: %q", v.Token)
	}
}

func TestGetVerification_notFound(t *testing.T) {
	srv := stubAPIServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	if _, err := c.GetVerification(context.Background(), "missing"); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckVerification_success(t *testing.T) {
	srv := stubAPIServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	v, err := c.CheckVerification(context.Background(), "550e8400-e29b-41d4-a716-446655440000")
	if err != nil {
		t.Fatalf("CheckVerification: %v", err)
	}
	if v.Status != "verified" || v.VerifiedAt == nil {
		t.Errorf("unexpected record: %+v", v)
	}
}

func TestListVerifications_success(t *testing.T) {
	srv := stubAPIServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	vs, err := c.ListVerifications(context.Background())
	if err != nil {
		t.Fatalf("ListVerifications: %v", err)
	}
	if len(vs) != 1 || vs[0].Domain != "example.com" {
		t.Errorf("unexpected list: %+v", vs)
	}
}

func TestCreateWebhook_sendsAPIKey(t *testing.T) {
	srv := stubAPIServer(t)
	defer srv.Close()

	c := client.New(srv.URL, client.WithAPIKey("dv_testkey"))
	res, err := c.CreateWebhook(context.Background(), "https://app.example.com/hooks", []string{"verification.completed"})
	if err != nil {
		t.Fatalf("CreateWebhook: %v", err)
	}
	if res.Secret == "" || res.Webhook == nil {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestCreateWebhook_unauthorized(t *testing.T) {
	srv := stubAPIServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	if _, err := c.CreateWebhook(context.Background(), "https://app.example.com/hooks", []string{"verification.completed"}); err == nil {
		t.Fatal("expected error for missing credentials")
	}
}
