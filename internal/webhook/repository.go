package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a webhook is not found.
var ErrNotFound = errors.New("webhook not found")

// Repository provides pgx-backed persistence for webhooks and deliveries.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const webhookColumns = `id, organization_id, url, events, secret, is_active, created_at`

// Create inserts a new webhook subscription.
func (r *Repository) Create(ctx context.Context, w *Webhook) error {
	w.ID = uuid.New()
	w.CreatedAt = time.Now().UTC()
	w.IsActive = true

	_, err := r.db.Exec(ctx,
		`INSERT INTO webhooks (id, organization_id, url, events, secret, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		w.ID, w.OrganizationID, w.URL, w.Events, w.Secret, w.IsActive, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook: %w", err)
	}
	return nil
}

// GetByID returns a webhook by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Webhook, error) {
	w := &Webhook{}
	err := r.db.QueryRow(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE id = $1`, id,
	).Scan(&w.ID, &w.OrganizationID, &w.URL, &w.Events, &w.Secret, &w.IsActive, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get webhook: %w", err)
	}
	return w, nil
}

// ListByOrganization returns all webhooks owned by an organization.
func (r *Repository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*Webhook, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+webhookColumns+` FROM webhooks
		 WHERE organization_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()
	return scanWebhooks(rows)
}

// ListSubscribed returns the active webhooks of an organization that listen
// for the given event. This is the read the dispatcher fans out over.
func (r *Repository) ListSubscribed(ctx context.Context, orgID uuid.UUID, event string) ([]*Webhook, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+webhookColumns+` FROM webhooks
		 WHERE organization_id = $1 AND is_active = true AND $2 = ANY(events)
		 ORDER BY created_at`, orgID, event)
	if err != nil {
		return nil, fmt.Errorf("list subscribed webhooks: %w", err)
	}
	defer rows.Close()
	return scanWebhooks(rows)
}

// Delete removes a webhook.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordDelivery stores the outcome of one delivery attempt.
func (r *Repository) RecordDelivery(ctx context.Context, d *Delivery) error {
	d.ID = uuid.New()
	d.DeliveredAt = time.Now().UTC()

	_, err := r.db.Exec(ctx,
		`INSERT INTO webhook_deliveries (id, webhook_id, event, status_code, success, error_message, delivered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.WebhookID, d.Event, d.StatusCode, d.Success, d.ErrorMessage, d.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("record webhook delivery: %w", err)
	}
	return nil
}

func scanWebhooks(rows pgx.Rows) ([]*Webhook, error) {
	var out []*Webhook
	for rows.Next() {
		w := &Webhook{}
		if err := rows.Scan(&w.ID, &w.OrganizationID, &w.URL, &w.Events, &w.Secret, &w.IsActive, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
