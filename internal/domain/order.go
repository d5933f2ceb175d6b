package domain

import "time"

type OrderStatus string

// An order is marked completed as soon as the payment is verified, no matter
// how the individual registrations turn out. Registration failures are tracked
// per domain and recovered through pending domain records; they never demote
// the order itself.
const (
	OrderStatusCompleted OrderStatus = "completed"
)

type DomainStatus string

const (
	DomainStatusRegistered DomainStatus = "registered"
	DomainStatusFailed     DomainStatus = "failed"
)

// StatusEvent is one entry in a domain outcome's append-only audit trail.
type StatusEvent struct {
	Step      string    `json:"step"`
	Message   string    `json:"message"`
	Progress  int       `json:"progress"`
	Timestamp time.Time `json:"timestamp"`
}

// DomainOutcome is the per-domain registration result embedded in an order.
// Outcomes are never rewritten; state changes append a StatusEvent.
type DomainOutcome struct {
	DomainName       string        `json:"domain_name"`
	Price            float64       `json:"price"`
	Currency         string        `json:"currency"`
	Period           int           `json:"period"`
	Status           DomainStatus  `json:"status"`
	Error            string        `json:"error,omitempty"`
	RegistrarOrderID string        `json:"registrar_order_id,omitempty"`
	ExpiresAt        *time.Time    `json:"expires_at,omitempty"`
	Events           []StatusEvent `json:"events,omitempty"`
}

// PaymentSnapshot freezes what the gateway reported at verification time so a
// later audit never needs to re-contact the gateway.
type PaymentSnapshot struct {
	VerifiedAt      time.Time `json:"verified_at"`
	GatewayStatus   string    `json:"gateway_status"`
	GatewayAmount   int64     `json:"gateway_amount"`
	GatewayCurrency string    `json:"gateway_currency"`
}

// Order is the aggregate created once per captured charge. GatewayChargeID is
// the idempotency key: it carries a uniqueness constraint in the store and is
// never reused by a second order.
type Order struct {
	ID              string `json:"id"`
	GatewayChargeID string `json:"gateway_charge_id"`
	GatewayOrderID  string `json:"gateway_order_id"`
	InvoiceNumber   string `json:"invoice_number"`
	CustomerEmail   string `json:"customer_email"`
	CustomerName    string `json:"customer_name"`

	// Amount is the verified charge amount in minor currency units.
	Amount   int64       `json:"amount"`
	Currency string      `json:"currency"`
	Status   OrderStatus `json:"status"`

	Domains           []DomainOutcome `json:"domains"`
	SuccessfulDomains []string        `json:"successful_domains"`
	Payment           PaymentSnapshot `json:"payment"`

	CreatedAt time.Time `json:"created_at"`
}
