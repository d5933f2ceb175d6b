package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/PawanKumar-Dev/domainflow/internal/domain"
)

// RejectionRepository stores checkout rejections: captured charges that never
// became orders because the cart was rejected pre-registration. The payment is
// real, so operators need this trail for refunds and follow-up.
type RejectionRepository struct {
	db *sql.DB
}

func NewRejectionRepository(db *sql.DB) *RejectionRepository {
	return &RejectionRepository{db: db}
}

func (r *RejectionRepository) Create(ctx context.Context, rejection *domain.CheckoutRejection) error {
	rejection.ID = uuid.New().String()
	if rejection.CreatedAt.IsZero() {
		rejection.CreatedAt = time.Now().UTC()
	}

	restricted, err := json.Marshal(rejection.RestrictedDomains)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO checkout_rejections (
			id, gateway_charge_id, gateway_order_id, user_email, reason,
			restricted_domains, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rejection.ID, rejection.GatewayChargeID, rejection.GatewayOrderID,
		rejection.UserEmail, rejection.Reason, restricted, rejection.CreatedAt)
	return err
}

func (r *RejectionRepository) List(ctx context.Context) ([]domain.CheckoutRejection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, gateway_charge_id, gateway_order_id, user_email, reason,
			restricted_domains, created_at
		FROM checkout_rejections
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var rejections []domain.CheckoutRejection
	for rows.Next() {
		var rejection domain.CheckoutRejection
		var restricted []byte
		if err := rows.Scan(&rejection.ID, &rejection.GatewayChargeID, &rejection.GatewayOrderID,
			&rejection.UserEmail, &rejection.Reason, &restricted, &rejection.CreatedAt); err != nil {
			return nil, err
		}
		if len(restricted) > 0 {
			if err := json.Unmarshal(restricted, &rejection.RestrictedDomains); err != nil {
				return nil, err
			}
		}
		rejections = append(rejections, rejection)
	}

	return rejections, rows.Err()
}
