package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/PawanKumar-Dev/domainflow/internal/domain"
)

// Verification failures. All are fatal and non-retryable with the same inputs;
// none has side effects.
var (
	ErrSignatureInvalid  = errors.New("payment signature mismatch")
	ErrChargeNotCaptured = errors.New("charge is not captured")
	ErrAmountMismatch    = errors.New("charge amount does not match cart total")
	ErrOrderIDMismatch   = errors.New("charge belongs to a different gateway order")
)

const statusCaptured = "captured"

// Confirmation is the payment callback payload as supplied by the client or
// webhook. Only the identifiers are retained after verification.
type Confirmation struct {
	GatewayOrderID  string `json:"gateway_order_id"`
	GatewayChargeID string `json:"gateway_charge_id"`
	Signature       string `json:"signature"`
}

// VerifiedCharge is the gateway-confirmed charge plus the verification time,
// kept as the order's immutable payment snapshot.
type VerifiedCharge struct {
	Charge
	VerifiedAt time.Time
}

// ChargeFetcher is the gateway lookup the verifier depends on.
type ChargeFetcher interface {
	GetCharge(ctx context.Context, chargeID string) (*Charge, error)
}

// Verifier checks that a payment confirmation is genuine and matches the cart.
type Verifier struct {
	gateway ChargeFetcher
	secret  string
}

func NewVerifier(gateway ChargeFetcher, secret string) *Verifier {
	return &Verifier{gateway: gateway, secret: secret}
}

// Verify validates the confirmation in four steps: signature, captured status,
// amount against the cart, and gateway order id. The signature check runs
// first so a forged confirmation never reaches the gateway API.
func (v *Verifier) Verify(ctx context.Context, conf Confirmation, items []domain.CartItem) (*VerifiedCharge, error) {
	if !VerifySignature(v.secret, conf.GatewayOrderID, conf.GatewayChargeID, conf.Signature) {
		return nil, ErrSignatureInvalid
	}

	charge, err := v.gateway.GetCharge(ctx, conf.GatewayChargeID)
	if err != nil {
		return nil, err
	}

	if charge.Status != statusCaptured {
		return nil, fmt.Errorf("%w: gateway reports %q", ErrChargeNotCaptured, charge.Status)
	}

	expected := ExpectedAmountMinor(items)
	if charge.Amount != expected {
		return nil, fmt.Errorf("%w: gateway reports %d, cart totals %d", ErrAmountMismatch, charge.Amount, expected)
	}

	if charge.OrderID != conf.GatewayOrderID {
		return nil, fmt.Errorf("%w: gateway reports %q", ErrOrderIDMismatch, charge.OrderID)
	}

	return &VerifiedCharge{Charge: *charge, VerifiedAt: time.Now().UTC()}, nil
}

// ExpectedAmountMinor converts the summed cart prices to minor currency units.
// Prices are display-level values; the sum is rounded before conversion so the
// comparison against the gateway happens in integer paise.
func ExpectedAmountMinor(items []domain.CartItem) int64 {
	var total float64
	for _, item := range items {
		total += item.Price
	}
	return int64(math.Round(total)) * 100
}
