// Package worker consumes order completion events and turns them into emails:
// a purchase summary for the customer and, when any registration failed, an
// alert for the operations inbox so the pending domain gets picked up.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PawanKumar-Dev/domainflow/internal/domain"
)

type NotificationHandler struct {
	emailServiceURL string
	opsEmail        string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewNotificationHandler(emailServiceURL, opsEmail string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		emailServiceURL: emailServiceURL,
		opsEmail:        opsEmail,
		httpClient:      client,
		logger:          logger,
	}
}

func (h *NotificationHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderCompletedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order completed event: %w", err)
	}

	h.logger.Info("processing order completed event",
		"order_id", event.OrderID, "invoice_number", event.InvoiceNumber)

	if err := h.sendConfirmationEmail(ctx, event); err != nil {
		h.logger.Error("failed to send confirmation email", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send confirmation email: %w", err)
	}

	failed := failedDomains(event)
	if len(failed) > 0 && h.opsEmail != "" {
		if err := h.sendOpsAlert(ctx, event, failed); err != nil {
			h.logger.Error("failed to send ops alert", "error", err, "order_id", event.OrderID)
			return fmt.Errorf("send ops alert: %w", err)
		}
	}

	h.logger.Info("order notifications sent", "order_id", event.OrderID, "failed_domains", len(failed))
	return nil
}

func (h *NotificationHandler) sendConfirmationEmail(ctx context.Context, event domain.OrderCompletedEvent) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nThank you for your order %s.\n\n", event.CustomerName, event.InvoiceNumber)
	for _, outcome := range event.Domains {
		switch outcome.Status {
		case domain.DomainStatusRegistered:
			fmt.Fprintf(&b, "  %s: registered", outcome.DomainName)
			if outcome.ExpiresAt != nil {
				fmt.Fprintf(&b, " (expires %s)", outcome.ExpiresAt.Format("2006-01-02"))
			}
			b.WriteString("\n")
		default:
			fmt.Fprintf(&b, "  %s: registration in progress, our team is on it\n", outcome.DomainName)
		}
	}
	fmt.Fprintf(&b, "\nTotal charged: %s %.2f\n", event.Currency, float64(event.Amount)/100)

	body := map[string]string{
		"to":      event.CustomerEmail,
		"subject": "Your domain order " + event.InvoiceNumber,
		"body":    b.String(),
	}
	return h.sendEmail(ctx, body)
}

func (h *NotificationHandler) sendOpsAlert(ctx context.Context, event domain.OrderCompletedEvent, failed []domain.DomainOutcome) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s (%s) has %d failed registration(s) awaiting manual resolution:\n\n",
		event.OrderID, event.InvoiceNumber, len(failed))
	for _, outcome := range failed {
		fmt.Fprintf(&b, "  %s: %s\n", outcome.DomainName, outcome.Error)
	}
	fmt.Fprintf(&b, "\nCustomer: %s <%s>\n", event.CustomerName, event.CustomerEmail)

	body := map[string]string{
		"to":      h.opsEmail,
		"subject": fmt.Sprintf("[action required] %d failed registration(s) on %s", len(failed), event.InvoiceNumber),
		"body":    b.String(),
	}
	return h.sendEmail(ctx, body)
}

func (h *NotificationHandler) sendEmail(ctx context.Context, body map[string]string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}

func failedDomains(event domain.OrderCompletedEvent) []domain.DomainOutcome {
	var failed []domain.DomainOutcome
	for _, outcome := range event.Domains {
		if outcome.Status == domain.DomainStatusFailed {
			failed = append(failed, outcome)
		}
	}
	return failed
}
