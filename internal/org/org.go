// Package org persists organizations, the ownership scope for API keys,
// webhooks and non-anonymous verifications.
package org

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when an organization does not exist.
var ErrNotFound = errors.New("organization not found")

// Organization is a user-owned scope.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Repository provides pgx-backed persistence for organizations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new organization owned by userID.
func (r *Repository) Create(ctx context.Context, userID uuid.UUID, name string) (*Organization, error) {
	o := &Organization{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	o.UpdatedAt = o.CreatedAt

	_, err := r.db.Exec(ctx,
		`INSERT INTO organizations (id, user_id, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.UserID, o.Name, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert organization: %w", err)
	}
	return o, nil
}

// GetByID returns an organization by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	o := &Organization{}
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, name, created_at, updated_at FROM organizations WHERE id = $1`, id,
	).Scan(&o.ID, &o.UserID, &o.Name, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return o, nil
}

// ListByUser returns all organizations owned by a user.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Organization, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, name, created_at, updated_at FROM organizations
		 WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var out []*Organization
	for rows.Next() {
		o := &Organization{}
		if err := rows.Scan(&o.ID, &o.UserID, &o.Name, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
