package domain

import "time"

// CheckoutRejection records a captured charge whose cart was rejected before
// any registrar call, e.g. because it contained a restricted TLD. No order
// exists for such a charge, so this row is the only trace operators have of
// the paid-but-unfulfilled checkout.
type CheckoutRejection struct {
	ID                string             `json:"id"`
	GatewayChargeID   string             `json:"gateway_charge_id"`
	GatewayOrderID    string             `json:"gateway_order_id"`
	UserEmail         string             `json:"user_email"`
	Reason            string             `json:"reason"`
	RestrictedDomains []RestrictedDomain `json:"restricted_domains,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}
