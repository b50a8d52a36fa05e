package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a verification record does not exist.
var ErrNotFound = errors.New("verification not found")

// Repository provides pgx-backed persistence for verification records.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const verificationColumns = `id, organization_id, domain, method, token, status, verified_at, created_at`

// Create inserts a new pending verification record.
func (r *Repository) Create(ctx context.Context, v *Verification) error {
	v.ID = uuid.New()
	v.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(ctx,
		`INSERT INTO verifications (id, organization_id, domain, method, token, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		v.ID, v.OrganizationID, v.Domain, v.Method, v.Token, v.Status, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}
	return nil
}

// GetByID returns a single verification by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Verification, error) {
	v := &Verification{}
	err := r.db.QueryRow(ctx,
		`SELECT `+verificationColumns+` FROM verifications WHERE id = $1`, id,
	).Scan(&v.ID, &v.OrganizationID, &v.Domain, &v.Method, &v.Token, &v.Status, &v.VerifiedAt, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get verification: %w", err)
	}
	return v, nil
}

// ListByOrganization returns all records in the given scope, newest first.
// A nil orgID selects the anonymous bucket.
func (r *Repository) ListByOrganization(ctx context.Context, orgID *uuid.UUID) ([]*Verification, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if orgID == nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+verificationColumns+` FROM verifications
			 WHERE organization_id IS NULL ORDER BY created_at DESC`)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+verificationColumns+` FROM verifications
			 WHERE organization_id = $1 ORDER BY created_at DESC`, *orgID)
	}
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	defer rows.Close()

	var out []*Verification
	for rows.Next() {
		v := &Verification{}
		if err := rows.Scan(&v.ID, &v.OrganizationID, &v.Domain, &v.Method, &v.Token, &v.Status, &v.VerifiedAt, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListUnresolved returns records that have not verified yet (pending or
// failed) created after cutoff, oldest first, capped at limit. Used by the
// background rechecker; verified records are terminal and never re-fetched.
func (r *Repository) ListUnresolved(ctx context.Context, cutoff time.Time, limit int) ([]*Verification, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+verificationColumns+` FROM verifications
		 WHERE status IN ('pending', 'failed') AND created_at > $1
		 ORDER BY created_at ASC LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list unresolved verifications: %w", err)
	}
	defer rows.Close()

	var out []*Verification
	for rows.Next() {
		v := &Verification{}
		if err := rows.Scan(&v.ID, &v.OrganizationID, &v.Domain, &v.Method, &v.Token, &v.Status, &v.VerifiedAt, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdateStatus moves a record from prev to next, conditional on the stored
// status still being prev. Returns false when the row was not updated, i.e.
// a concurrent check won the race; callers should reload and trust the
// winning write.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, prev, next Status, verifiedAt *time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE verifications SET status = $3, verified_at = $4
		 WHERE id = $1 AND status = $2`,
		id, prev, next, verifiedAt,
	)
	if err != nil {
		return false, fmt.Errorf("update verification status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
