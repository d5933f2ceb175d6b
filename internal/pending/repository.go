// Package pending manages the recovery records for domains that failed to
// register after their payment was captured, and the manual-resolution
// workflow that writes results back into the originating order.
package pending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/PawanKumar-Dev/domainflow/internal/domain"
)

var (
	ErrNotFound = errors.New("pending domain not found")

	// ErrAlreadyResolved guards the second idempotency-sensitive invariant:
	// one domain must never be resolved into two different terminal statuses.
	ErrAlreadyResolved = errors.New("pending domain already resolved to a different status")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, record *domain.PendingDomain) error {
	record.ID = uuid.New().String()
	if record.Status == "" {
		record.Status = domain.PendingStatusPending
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_domains (
			id, order_id, domain_name, price, currency, period, user_email,
			customer_id, contact_id, reason, status, admin_notes, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	`, record.ID, record.OrderID, record.DomainName, record.Price, record.Currency,
		record.Period, record.UserEmail, record.CustomerID, record.ContactID,
		record.Reason, record.Status, record.AdminNotes, now)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.PendingDomain, error) {
	record := &domain.PendingDomain{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, domain_name, price, currency, period, user_email,
			customer_id, contact_id, reason, status, admin_notes, created_at, updated_at
		FROM pending_domains
		WHERE id = $1
	`, id).Scan(&record.ID, &record.OrderID, &record.DomainName, &record.Price,
		&record.Currency, &record.Period, &record.UserEmail, &record.CustomerID,
		&record.ContactID, &record.Reason, &record.Status, &record.AdminNotes,
		&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return record, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.PendingDomain, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, domain_name, price, currency, period, user_email,
			customer_id, contact_id, reason, status, admin_notes, created_at, updated_at
		FROM pending_domains
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []domain.PendingDomain
	for rows.Next() {
		var record domain.PendingDomain
		if err := rows.Scan(&record.ID, &record.OrderID, &record.DomainName, &record.Price,
			&record.Currency, &record.Period, &record.UserEmail, &record.CustomerID,
			&record.ContactID, &record.Reason, &record.Status, &record.AdminNotes,
			&record.CreatedAt, &record.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// Transition moves a pending record to a terminal status with a guarded
// UPDATE. Retrying the same transition is a no-op; a transition conflicting
// with an earlier resolution fails with ErrAlreadyResolved.
func (r *Repository) Transition(ctx context.Context, id string, status domain.PendingDomainStatus, notes string) error {
	if !status.Terminal() {
		return fmt.Errorf("status %q is not a terminal pending-domain status", status)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE pending_domains
		SET status = $2,
			admin_notes = CASE WHEN $3 <> '' THEN $3 ELSE admin_notes END,
			updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'processing')
	`, id, status, notes)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected > 0 {
		return nil
	}

	var current domain.PendingDomainStatus
	err = r.db.QueryRowContext(ctx, `SELECT status FROM pending_domains WHERE id = $1`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if current == status {
		// Resolution retry; at-least-once delivery makes these routine.
		return nil
	}
	return fmt.Errorf("%w: currently %q, requested %q", ErrAlreadyResolved, current, status)
}
