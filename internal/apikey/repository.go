package apikey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when an API key does not exist.
var ErrNotFound = errors.New("api key not found")

// Repository provides pgx-backed persistence for API keys.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const apiKeyColumns = `id, organization_id, name, key_hash, key_prefix, key_suffix, is_active, last_used_at, created_at`

// Create inserts a new API key record.
func (r *Repository) Create(ctx context.Context, k *APIKey) error {
	k.ID = uuid.New()
	k.CreatedAt = time.Now().UTC()
	k.IsActive = true

	_, err := r.db.Exec(ctx,
		`INSERT INTO api_keys (id, organization_id, name, key_hash, key_prefix, key_suffix, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		k.ID, k.OrganizationID, k.Name, k.KeyHash, k.KeyPrefix, k.KeySuffix, k.IsActive, k.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// ListActive returns every active API key. Validation has to compare the
// presented key against each stored bcrypt hash, so the working set is all
// active keys.
func (r *Repository) ListActive(ctx context.Context) ([]*APIKey, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE is_active = true`)
	if err != nil {
		return nil, fmt.Errorf("list active api keys: %w", err)
	}
	defer rows.Close()
	return scanKeys(rows)
}

// ListByOrganization returns all keys owned by an organization, newest first.
func (r *Repository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*APIKey, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys
		 WHERE organization_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()
	return scanKeys(rows)
}

// GetByID returns a key by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*APIKey, error) {
	k := &APIKey{}
	err := r.db.QueryRow(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id,
	).Scan(&k.ID, &k.OrganizationID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.KeySuffix, &k.IsActive, &k.LastUsedAt, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return k, nil
}

// TouchLastUsed stamps the key's last_used_at.
func (r *Repository) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}

// Delete removes a key.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanKeys(rows pgx.Rows) ([]*APIKey, error) {
	var out []*APIKey
	for rows.Next() {
		k := &APIKey{}
		if err := rows.Scan(&k.ID, &k.OrganizationID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.KeySuffix, &k.IsActive, &k.LastUsedAt, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
