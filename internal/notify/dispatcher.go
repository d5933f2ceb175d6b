// Package notify publishes post-checkout notification events. Everything here
// is best-effort: a broker outage must never surface to the customer or touch
// the financial record.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/PawanKumar-Dev/domainflow/internal/domain"
	"github.com/PawanKumar-Dev/domainflow/internal/messaging"
)

type Dispatcher struct {
	producer *messaging.Producer
	logger   *slog.Logger
}

// NewDispatcher accepts a nil producer; the dispatcher then degrades to a
// no-op, which keeps checkout usable without a broker (local dev, tests).
func NewDispatcher(producer *messaging.Producer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{producer: producer, logger: logger}
}

// OrderCompleted publishes the order outcome for the notification worker.
// Errors are logged and swallowed.
func (d *Dispatcher) OrderCompleted(ctx context.Context, order *domain.Order) {
	if d == nil || d.producer == nil {
		return
	}

	event := domain.OrderCompletedEvent{
		OrderID:           order.ID,
		InvoiceNumber:     order.InvoiceNumber,
		CustomerEmail:     order.CustomerEmail,
		CustomerName:      order.CustomerName,
		Amount:            order.Amount,
		Currency:          order.Currency,
		Domains:           order.Domains,
		SuccessfulDomains: order.SuccessfulDomains,
		Timestamp:         time.Now().UTC(),
	}

	if err := d.producer.Publish(ctx, order.ID, event); err != nil {
		d.logger.Error("failed to publish order completed event", "error", err, "order_id", order.ID)
	}
}
