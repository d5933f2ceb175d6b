package domain

import "time"

type PendingDomainStatus string

const (
	PendingStatusPending    PendingDomainStatus = "pending"
	PendingStatusProcessing PendingDomainStatus = "processing"
	PendingStatusRegistered PendingDomainStatus = "registered"
	PendingStatusFailed     PendingDomainStatus = "failed"
)

// Terminal reports whether s is a final state for a pending domain.
func (s PendingDomainStatus) Terminal() bool {
	return s == PendingStatusRegistered || s == PendingStatusFailed
}

// PendingDomain is the recovery record for a domain whose registration failed
// after the payment was already captured. It is the authoritative record for
// manual resolution: an operator transitions it to a terminal status, which
// also syncs the matching outcome on the originating order.
type PendingDomain struct {
	ID         string              `json:"id"`
	OrderID    string              `json:"order_id"`
	DomainName string              `json:"domain_name"`
	Price      float64             `json:"price"`
	Currency   string              `json:"currency"`
	Period     int                 `json:"period"`
	UserEmail  string              `json:"user_email"`
	CustomerID string              `json:"customer_id,omitempty"`
	ContactID  string              `json:"contact_id,omitempty"`
	Reason     string              `json:"reason"`
	Status     PendingDomainStatus `json:"status"`
	AdminNotes string              `json:"admin_notes,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}
