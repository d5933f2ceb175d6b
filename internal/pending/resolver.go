package pending

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PawanKumar-Dev/domainflow/internal/domain"
)

// Outcome is the result an operator resolves a pending domain to.
type Outcome struct {
	Status           domain.DomainStatus
	RegistrarOrderID string
	ExpiresAt        *time.Time
	Notes            string
}

// PendingStore is the slice of the repository the resolver needs.
type PendingStore interface {
	GetByID(ctx context.Context, id string) (*domain.PendingDomain, error)
	Transition(ctx context.Context, id string, status domain.PendingDomainStatus, notes string) error
}

// OrderSyncer writes resolution results back into the originating order.
type OrderSyncer interface {
	SyncOutcome(ctx context.Context, orderID, domainName string, status domain.DomainStatus, registrarOrderID string, expiresAt *time.Time) (bool, error)
	AppendStatusEvent(ctx context.Context, orderID, domainName string, event domain.StatusEvent) error
}

// Resolver performs the dual write of manual resolution: the pending record's
// own terminal transition, then an idempotent sync of the matching outcome on
// the order, keyed by (orderID, domainName). No transaction spans the two
// aggregates; both writes tolerate retries, and the pending record stays
// authoritative when the order-side match is missing.
type Resolver struct {
	pending PendingStore
	orders  OrderSyncer
	logger  *slog.Logger
}

func NewResolver(pending PendingStore, orders OrderSyncer, logger *slog.Logger) *Resolver {
	return &Resolver{pending: pending, orders: orders, logger: logger}
}

func (r *Resolver) Resolve(ctx context.Context, pendingID string, outcome Outcome) (*domain.PendingDomain, error) {
	pendingStatus, err := pendingStatusFor(outcome.Status)
	if err != nil {
		return nil, err
	}

	record, err := r.pending.GetByID(ctx, pendingID)
	if err != nil {
		return nil, err
	}

	if err := r.pending.Transition(ctx, pendingID, pendingStatus, outcome.Notes); err != nil {
		return nil, err
	}
	record.Status = pendingStatus
	if outcome.Notes != "" {
		record.AdminNotes = outcome.Notes
	}

	matched, err := r.orders.SyncOutcome(ctx, record.OrderID, record.DomainName,
		outcome.Status, outcome.RegistrarOrderID, outcome.ExpiresAt)
	if err != nil {
		r.logger.Error("failed to sync order outcome after resolution",
			"error", err, "order_id", record.OrderID, "domain", record.DomainName)
		return record, nil
	}
	if !matched {
		r.logger.Warn("no matching domain outcome on originating order",
			"order_id", record.OrderID, "domain", record.DomainName)
		return record, nil
	}

	event := domain.StatusEvent{
		Step:      "manual_resolution",
		Message:   fmt.Sprintf("resolved to %s by operator", outcome.Status),
		Progress:  100,
		Timestamp: time.Now().UTC(),
	}
	if err := r.orders.AppendStatusEvent(ctx, record.OrderID, record.DomainName, event); err != nil {
		r.logger.Error("failed to append resolution status event",
			"error", err, "order_id", record.OrderID, "domain", record.DomainName)
	}

	r.logger.Info("pending domain resolved",
		"pending_id", pendingID, "order_id", record.OrderID,
		"domain", record.DomainName, "status", outcome.Status)

	return record, nil
}

func pendingStatusFor(status domain.DomainStatus) (domain.PendingDomainStatus, error) {
	switch status {
	case domain.DomainStatusRegistered:
		return domain.PendingStatusRegistered, nil
	case domain.DomainStatusFailed:
		return domain.PendingStatusFailed, nil
	default:
		return "", fmt.Errorf("invalid resolution status %q", status)
	}
}
