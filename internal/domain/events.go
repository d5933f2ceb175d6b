package domain

import "time"

// OrderCompletedEvent is published after an order is persisted. Consumers use
// it for customer and operations notifications; delivery is best-effort and
// never feeds back into the financial record.
type OrderCompletedEvent struct {
	OrderID           string          `json:"order_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	CustomerEmail     string          `json:"customer_email"`
	CustomerName      string          `json:"customer_name"`
	Amount            int64           `json:"amount"`
	Currency          string          `json:"currency"`
	Domains           []DomainOutcome `json:"domains"`
	SuccessfulDomains []string        `json:"successful_domains"`
	Timestamp         time.Time       `json:"timestamp"`
}
