package apikey

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// keyPrefix marks raw keys as belonging to this service.
const keyPrefix = "dv_"

// ErrInvalidKey is returned when no active key matches the presented secret.
var ErrInvalidKey = errors.New("invalid api key")

// keyStore is the storage interface required by Service.
// *Repository satisfies this interface.
type keyStore interface {
	Create(ctx context.Context, k *APIKey) error
	ListActive(ctx context.Context) ([]*APIKey, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*APIKey, error)
	GetByID(ctx context.Context, id uuid.UUID) (*APIKey, error)
	TouchLastUsed(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service implements API key issuance and validation.
type Service struct {
	store  keyStore
	logger *zap.Logger
}

// NewService creates a Service.
func NewService(store keyStore, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Create issues a new key for the organization. The raw key is present only
// in the returned value; the store keeps a bcrypt hash plus display affixes.
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, name string) (*APIKeyWithSecret, error) {
	if name == "" {
		return nil, fmt.Errorf("key name must not be empty")
	}

	raw, err := generateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash key: %w", err)
	}

	k := &APIKey{
		OrganizationID: orgID,
		Name:           name,
		KeyHash:        string(hash),
		KeyPrefix:      raw[:7],
		KeySuffix:      raw[len(raw)-4:],
	}
	if err := s.store.Create(ctx, k); err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}

	s.logger.Info("api key created",
		zap.String("organization_id", orgID.String()),
		zap.String("key_prefix", k.KeyPrefix),
	)
	return &APIKeyWithSecret{APIKey: *k, Key: raw}, nil
}

// Validate resolves a presented raw key to its record, or ErrInvalidKey.
// It compares against every active key's hash and stamps last_used_at on a
// match.
func (s *Service) Validate(ctx context.Context, raw string) (*APIKey, error) {
	keys, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active keys: %w", err)
	}
	for _, k := range keys {
		if bcrypt.CompareHashAndPassword([]byte(k.KeyHash), []byte(raw)) == nil {
			if err := s.store.TouchLastUsed(ctx, k.ID); err != nil {
				s.logger.Warn("stamp api key last_used_at", zap.Error(err))
			}
			return k, nil
		}
	}
	return nil, ErrInvalidKey
}

// List returns the organization's keys.
func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]*APIKey, error) {
	return s.store.ListByOrganization(ctx, orgID)
}

// Delete removes a key, checking ownership.
func (s *Service) Delete(ctx context.Context, orgID, keyID uuid.UUID) error {
	k, err := s.store.GetByID(ctx, keyID)
	if err != nil {
		return err
	}
	if k.OrganizationID != orgID {
		return ErrNotFound // never leak other organizations' keys
	}
	return s.store.Delete(ctx, keyID)
}

// generateKey produces the raw key: a fixed prefix plus 32 random bytes,
// URL-safe base64 without padding.
func generateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return keyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}
