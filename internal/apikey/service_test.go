package apikey_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/domainverify/domainverify/internal/apikey"
)

// ── In-memory stub for the key store ────────────────────────────────────────

type stubKeyStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*apikey.APIKey
}

func newStubKeyStore() *stubKeyStore {
	return &stubKeyStore{rows: make(map[uuid.UUID]*apikey.APIKey)}
}

func (s *stubKeyStore) Create(_ context.Context, k *apikey.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k.ID = uuid.New()
	k.CreatedAt = time.Now().UTC()
	k.IsActive = true
	cp := *k
	s.rows[k.ID] = &cp
	return nil
}

func (s *stubKeyStore) ListActive(_ context.Context) ([]*apikey.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*apikey.APIKey
	for _, k := range s.rows {
		if k.IsActive {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *stubKeyStore) ListByOrganization(_ context.Context, orgID uuid.UUID) ([]*apikey.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*apikey.APIKey
	for _, k := range s.rows {
		if k.OrganizationID == orgID {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *stubKeyStore) GetByID(_ context.Context, id uuid.UUID) (*apikey.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.rows[id]
	if !ok {
		return nil, apikey.ErrNotFound
	}
	cp := *k
	return &cp, nil
}

func (s *stubKeyStore) TouchLastUsed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.rows[id]; ok {
		now := time.Now().UTC()
		k.LastUsedAt = &now
	}
	return nil
}

func (s *stubKeyStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return apikey.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

// ── Tests ───────────────────────────────────────────────────────────────────

func TestCreate_returnsRawKeyOnce(t *testing.T) {
	svc := apikey.NewService(newStubKeyStore(), zap.NewNop())

	created, err := svc.Create(context.Background(), uuid.New(), "ci")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(created.Key, "dv_") {
		t.Errorf("raw key: %q", created.Key)
	}
	if created.KeyHash == created.Key {
		t.Error("raw key must not be stored verbatim")
	}
	if created.KeyPrefix != created.Key[:7] || created.KeySuffix != created.Key[len(created.Key)-4:] {
		t.Errorf("display affixes wrong: %q / %q", created.KeyPrefix, created.KeySuffix)
	}
}

func TestValidate_roundTrip(t *testing.T) {
	store := newStubKeyStore()
	svc := apikey.NewService(store, zap.NewNop())
	orgID := uuid.New()

	created, _ := svc.Create(context.Background(), orgID, "ci")

	k, err := svc.Validate(context.Background(), created.Key)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if k.OrganizationID != orgID {
		t.Errorf("organization: got %v", k.OrganizationID)
	}
	if k2, _ := store.GetByID(context.Background(), k.ID); k2.LastUsedAt == nil {
		t.Error("last_used_at not stamped")
	}
}

func TestValidate_rejectsUnknownKey(t *testing.T) {
	svc := apikey.NewService(newStubKeyStore(), zap.NewNop())

	if _, err := svc.Validate(context.Background(), "dv_not-a-real-key"); !errors.Is(err, apikey.ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestDelete_ownershipEnforced(t *testing.T) {
	svc := apikey.NewService(newStubKeyStore(), zap.NewNop())
	orgID := uuid.New()

	created, _ := svc.Create(context.Background(), orgID, "ci")

	if err := svc.Delete(context.Background(), uuid.New(), created.ID); !errors.Is(err, apikey.ErrNotFound) {
		t.Errorf("foreign delete: got %v", err)
	}
	if err := svc.Delete(context.Background(), orgID, created.ID); err != nil {
		t.Errorf("owner delete: %v", err)
	}
}
