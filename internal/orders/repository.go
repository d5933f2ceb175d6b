package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/PawanKumar-Dev/domainflow/internal/domain"
)

// ErrDuplicateCharge is returned when an order already exists for the gateway
// charge id. The unique constraint raising it is the final backstop against
// two concurrent verifications of the same charge both creating an order.
var ErrDuplicateCharge = errors.New("order already exists for gateway charge id")

const uniqueViolation = "23505"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create persists the order aggregate with its outcomes and audit events in
// one transaction. It assigns the order id and invoice number.
func (r *Repository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	order.ID = uuid.New().String()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.InvoiceNumber = invoiceNumber(order.ID, order.CreatedAt)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, gateway_charge_id, gateway_order_id, invoice_number,
			customer_email, customer_name, amount, currency, status,
			successful_domains, verified_at, gateway_status, gateway_amount,
			gateway_currency, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
	`, order.ID, order.GatewayChargeID, order.GatewayOrderID, order.InvoiceNumber,
		order.CustomerEmail, order.CustomerName, order.Amount, order.Currency, order.Status,
		pq.Array(order.SuccessfulDomains), order.Payment.VerifiedAt, order.Payment.GatewayStatus,
		order.Payment.GatewayAmount, order.Payment.GatewayCurrency, order.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && strings.Contains(pqErr.Constraint, "gateway_charge_id") {
			return ErrDuplicateCharge
		}
		return err
	}

	for i, outcome := range order.Domains {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO domain_outcomes (
				order_id, position, domain_name, price, currency, period,
				status, error_message, registrar_order_id, expires_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, order.ID, i, outcome.DomainName, outcome.Price, outcome.Currency, outcome.Period,
			outcome.Status, outcome.Error, outcome.RegistrarOrderID, outcome.ExpiresAt)
		if err != nil {
			return err
		}

		for _, event := range outcome.Events {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO status_events (order_id, domain_name, step, message, progress, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, order.ID, outcome.DomainName, event.Step, event.Message, event.Progress, event.Timestamp)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// GetByChargeID is the idempotency lookup: one gateway charge maps to at most
// one order.
func (r *Repository) GetByChargeID(ctx context.Context, gatewayChargeID string) (*domain.Order, error) {
	return r.getBy(ctx, "gateway_charge_id", gatewayChargeID)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getBy(ctx, "id", id)
}

func (r *Repository) getBy(ctx context.Context, column, value string) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, gateway_charge_id, gateway_order_id, invoice_number,
			customer_email, customer_name, amount, currency, status,
			successful_domains, verified_at, gateway_status, gateway_amount,
			gateway_currency, created_at
		FROM orders
		WHERE %s = $1
	`, column), value).Scan(
		&order.ID, &order.GatewayChargeID, &order.GatewayOrderID, &order.InvoiceNumber,
		&order.CustomerEmail, &order.CustomerName, &order.Amount, &order.Currency, &order.Status,
		pq.Array(&order.SuccessfulDomains), &order.Payment.VerifiedAt, &order.Payment.GatewayStatus,
		&order.Payment.GatewayAmount, &order.Payment.GatewayCurrency, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if err := r.loadOutcomes(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *Repository) loadOutcomes(ctx context.Context, order *domain.Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT domain_name, price, currency, period, status, error_message,
			registrar_order_id, expires_at
		FROM domain_outcomes
		WHERE order_id = $1
		ORDER BY position
	`, order.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	byName := make(map[string]*domain.DomainOutcome)
	for rows.Next() {
		var outcome domain.DomainOutcome
		if err := rows.Scan(&outcome.DomainName, &outcome.Price, &outcome.Currency, &outcome.Period,
			&outcome.Status, &outcome.Error, &outcome.RegistrarOrderID, &outcome.ExpiresAt); err != nil {
			return err
		}
		order.Domains = append(order.Domains, outcome)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range order.Domains {
		byName[order.Domains[i].DomainName] = &order.Domains[i]
	}

	eventRows, err := r.db.QueryContext(ctx, `
		SELECT domain_name, step, message, progress, created_at
		FROM status_events
		WHERE order_id = $1
		ORDER BY id
	`, order.ID)
	if err != nil {
		return err
	}
	defer func() { _ = eventRows.Close() }()

	for eventRows.Next() {
		var domainName string
		var event domain.StatusEvent
		if err := eventRows.Scan(&domainName, &event.Step, &event.Message, &event.Progress, &event.Timestamp); err != nil {
			return err
		}
		if outcome, ok := byName[domainName]; ok {
			outcome.Events = append(outcome.Events, event)
		}
	}

	return eventRows.Err()
}

// List returns orders newest first, with outcomes but without audit events.
func (r *Repository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, gateway_charge_id, invoice_number, customer_email, amount,
			currency, status, successful_domains, created_at
		FROM orders
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.GatewayChargeID, &order.InvoiceNumber,
			&order.CustomerEmail, &order.Amount, &order.Currency, &order.Status,
			pq.Array(&order.SuccessfulDomains), &order.CreatedAt); err != nil {
			return nil, err
		}
		order.Domains = []domain.DomainOutcome{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	outcomeRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, domain_name, price, currency, period, status,
			error_message, registrar_order_id, expires_at
		FROM domain_outcomes
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = outcomeRows.Close() }()

	for outcomeRows.Next() {
		var orderID string
		var outcome domain.DomainOutcome
		if err := outcomeRows.Scan(&orderID, &outcome.DomainName, &outcome.Price, &outcome.Currency,
			&outcome.Period, &outcome.Status, &outcome.Error, &outcome.RegistrarOrderID, &outcome.ExpiresAt); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Domains = append(order.Domains, outcome)
	}
	if err := outcomeRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

// AppendStatusEvent appends one audit-trail entry to a domain outcome.
// History is never rewritten.
func (r *Repository) AppendStatusEvent(ctx context.Context, orderID, domainName string, event domain.StatusEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO status_events (order_id, domain_name, step, message, progress, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, orderID, domainName, event.Step, event.Message, event.Progress, event.Timestamp)
	return err
}

// SyncOutcome moves a domain outcome to a terminal status during pending
// resolution. It is idempotent: a repeat call with the same target status is
// a no-op that still reports a match. Returns false when the order has no
// outcome for the domain name.
func (r *Repository) SyncOutcome(ctx context.Context, orderID, domainName string, status domain.DomainStatus, registrarOrderID string, expiresAt *time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE domain_outcomes
		SET status = $3,
			registrar_order_id = COALESCE(NULLIF($4, ''), registrar_order_id),
			expires_at = COALESCE($5, expires_at),
			error_message = CASE WHEN $3 = 'registered' THEN '' ELSE error_message END
		WHERE order_id = $1 AND domain_name = $2 AND status <> $3
	`, orderID, domainName, status, registrarOrderID, expiresAt)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if rowsAffected == 0 {
		var current domain.DomainStatus
		err := r.db.QueryRowContext(ctx, `
			SELECT status FROM domain_outcomes WHERE order_id = $1 AND domain_name = $2
		`, orderID, domainName).Scan(&current)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		// Already in the requested state; treat the retry as matched.
		return current == status, nil
	}

	if status == domain.DomainStatusRegistered {
		_, err = r.db.ExecContext(ctx, `
			UPDATE orders
			SET successful_domains = array_append(successful_domains, $2), updated_at = NOW()
			WHERE id = $1 AND NOT ($2 = ANY(successful_domains))
		`, orderID, domainName)
		if err != nil {
			return false, err
		}
	}

	return true, nil
}

func invoiceNumber(orderID string, createdAt time.Time) string {
	return "INV-" + createdAt.UTC().Format("20060102") + "-" + strings.ToUpper(orderID[:8])
}
