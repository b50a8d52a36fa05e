package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/domainverify/domainverify/internal/challenge"
	"github.com/domainverify/domainverify/internal/handler"
	"github.com/domainverify/domainverify/internal/verification"
)

// ── Stub verification store ──────────────────────────────────────────────

type stubVerificationStore struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*verification.Verification
}

func newStubVerificationStore() *stubVerificationStore {
	return &stubVerificationStore{rows: make(map[uuid.UUID]*verification.Verification)}
}

func (s *stubVerificationStore) Create(_ context.Context, v *verification.Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = uuid.New()
	v.CreatedAt = time.Now().UTC()
	cp := *v
	s.rows[v.ID] = &cp
	return nil
}

func (s *stubVerificationStore) GetByID(_ context.Context, id uuid.UUID) (*verification.Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.rows[id]
	if !ok {
		return nil, verification.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *stubVerificationStore) ListByOrganization(_ context.Context, orgID *uuid.UUID) ([]*verification.Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*verification.Verification
	for _, v := range s.rows {
		if orgID == nil && v.OrganizationID == nil ||
			orgID != nil && v.OrganizationID != nil && *v.OrganizationID == *orgID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *stubVerificationStore) UpdateStatus(_ context.Context, id uuid.UUID, prev, next verification.Status, verifiedAt *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.rows[id]
	if !ok || v.Status != prev {
		return false, nil
	}
	v.Status = next
	v.VerifiedAt = verifiedAt
	return true, nil
}

type countingChecker struct {
	found bool
	calls int
}

func (c *countingChecker) Check(_ context.Context, _, _ string) bool {
	c.calls++
	return c.found
}

func setupVerificationRouter(t *testing.T, chk challenge.Checker) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc := verification.NewService(newStubVerificationStore(), challenge.NewSetWith(chk, chk), nil, zap.NewNop())
	h := handler.NewVerificationHandler(svc, zap.NewNop())
	v1 := r.Group("/api/v1")
	h.Register(v1)
	return r
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateVerification_201(t *testing.T) {
	router := setupVerificationRouter(t, &countingChecker{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/verifications", `{"domain":"Example.COM","method":"dns"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["domain"] != "example.com" {
		t.Errorf("domain not normalized: %v", resp["domain"])
	}
	if resp["status"] != "pending" {
		t.Errorf("status: %v", resp["status"])
	}
	tok, _ := resp["token"].(string)
	if !strings.HasPrefix(tok, "verify-domain-") {
		t.Errorf("token: %v", resp["token"])
	}
	if resp["verifiedAt"] != nil {
		t.Errorf("verifiedAt: %v", resp["verifiedAt"])
	}
}

func TestCreateVerification_400_badMethod(t *testing.T) {
	router := setupVerificationRouter(t, &countingChecker{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/verifications", `{"domain":"example.com","method":"ftp"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateVerification_400_missingDomain(t *testing.T) {
	router := setupVerificationRouter(t, &countingChecker{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/verifications", `{"method":"dns"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetVerification_404(t *testing.T) {
	router := setupVerificationRouter(t, &countingChecker{})

	w := doJSON(t, router, http.MethodGet, "/api/v1/verifications/"+uuid.New().String(), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCheckVerification_lifecycle(t *testing.T) {
	chk := &countingChecker{found: true}
	router := setupVerificationRouter(t, chk)

	w := doJSON(t, router, http.MethodPost, "/api/v1/verifications", `{"domain":"example.com","method":"dns"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d: %s", w.Code, w.Body.String())
	}
	var created map[string]any
	json.Unmarshal(w.Body.Bytes(), &created)
	id := created["id"].(string)

	// First check flips the record to verified.
	w2 := doJSON(t, router, http.MethodPost, "/api/v1/verifications/"+id+"/check", "")
	if w2.Code != http.StatusOK {
		t.Fatalf("check: %d: %s", w2.Code, w2.Body.String())
	}
	var first map[string]any
	json.Unmarshal(w2.Body.Bytes(), &first)
	if first["status"] != "verified" {
		t.Fatalf("status after check: %v", first["status"])
	}
	if first["verifiedAt"] == nil {
		t.Fatal("verifiedAt not set")
	}
	if chk.calls != 1 {
		t.Fatalf("expected 1 proof lookup, got %d", chk.calls)
	}

	// A verified record is terminal: the second check returns the same
	// record without touching the network.
	w3 := doJSON(t, router, http.MethodPost, "/api/v1/verifications/"+id+"/check", "")
	if w3.Code != http.StatusOK {
		t.Fatalf("re-check: %d: %s", w3.Code, w3.Body.String())
	}
	var second map[string]any
	json.Unmarshal(w3.Body.Bytes(), &second)
	if second["status"] != "verified" || second["verifiedAt"] != first["verifiedAt"] {
		t.Errorf("re-check altered the record: %v vs %v", second, first)
	}
	if chk.calls != 1 {
		t.Errorf("re-check hit the network: %d calls", chk.calls)
	}
}

func TestCheckVerification_failed(t *testing.T) {
	router := setupVerificationRouter(t, &countingChecker{found: false})

	w := doJSON(t, router, http.MethodPost, "/api/v1/verifications", `{"domain":"example.com","method":"file"}`)
	var created map[string]any
	json.Unmarshal(w.Body.Bytes(), &created)
	id := created["id"].(string)

	w2 := doJSON(t, router, http.MethodPost, "/api/v1/verifications/"+id+"/check", "")
	if w2.Code != http.StatusOK {
		t.Fatalf("check: %d: %s", w2.Code, w2.Body.String())
	}
	var got map[string]any
	json.Unmarshal(w2.Body.Bytes(), &got)
	if got["status"] != "failed" {
		t.Errorf("status: %v", got["status"])
	}
	if got["verifiedAt"] != nil {
		t.Errorf("verifiedAt: %v", got["verifiedAt"])
	}
}

func TestListVerifications_emptyIsArray(t *testing.T) {
	router := setupVerificationRouter(t, &countingChecker{})

	w := doJSON(t, router, http.MethodGet, "/api/v1/verifications", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}
}
