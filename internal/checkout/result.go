package checkout

import (
	"time"

	"github.com/PawanKumar-Dev/domainflow/internal/domain"
)

// DomainResult is the per-domain slice of an OrderResult.
type DomainResult struct {
	DomainName       string              `json:"domain_name"`
	Status           domain.DomainStatus `json:"status"`
	RegistrarOrderID string              `json:"registrar_order_id,omitempty"`
	Error            string              `json:"error,omitempty"`
	ExpiresAt        *time.Time          `json:"expires_at,omitempty"`
}

// OrderResult is the checkout response. An idempotent replay produces the
// same OrderResult as the original run, built from the persisted order.
type OrderResult struct {
	OrderID           string         `json:"order_id"`
	InvoiceNumber     string         `json:"invoice_number"`
	PerDomainResults  []DomainResult `json:"per_domain_results"`
	SuccessfulDomains []string       `json:"successful_domains"`
}

func ResultFromOrder(order *domain.Order) *OrderResult {
	results := make([]DomainResult, 0, len(order.Domains))
	for _, outcome := range order.Domains {
		results = append(results, DomainResult{
			DomainName:       outcome.DomainName,
			Status:           outcome.Status,
			RegistrarOrderID: outcome.RegistrarOrderID,
			Error:            outcome.Error,
			ExpiresAt:        outcome.ExpiresAt,
		})
	}

	successful := order.SuccessfulDomains
	if successful == nil {
		successful = []string{}
	}

	return &OrderResult{
		OrderID:           order.ID,
		InvoiceNumber:     order.InvoiceNumber,
		PerDomainResults:  results,
		SuccessfulDomains: successful,
	}
}
