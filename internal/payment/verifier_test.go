package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/PawanKumar-Dev/domainflow/internal/domain"
)

const testSecret = "test-webhook-secret"

type fakeGateway struct {
	charge *Charge
	err    error
	calls  int
}

func (f *fakeGateway) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.charge, nil
}

func testCart() []domain.CartItem {
	return []domain.CartItem{
		{DomainName: "alpha.com", Price: 1200, Currency: "INR", Period: 1},
		{DomainName: "beta.shop", Price: 1800, Currency: "INR", Period: 1},
	}
}

func testConfirmation() Confirmation {
	return Confirmation{
		GatewayOrderID:  "order_abc",
		GatewayChargeID: "pay_123",
		Signature:       Signature(testSecret, "order_abc", "pay_123"),
	}
}

func TestVerifier_Verify(t *testing.T) {
	t.Run("accepts a genuine captured charge matching the cart", func(t *testing.T) {
		gw := &fakeGateway{charge: &Charge{
			ID: "pay_123", OrderID: "order_abc", Status: "captured", Amount: 300000, Currency: "INR",
		}}
		verifier := NewVerifier(gw, testSecret)

		verified, err := verifier.Verify(context.Background(), testConfirmation(), testCart())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if verified.Amount != 300000 {
			t.Errorf("expected verified amount 300000, got %d", verified.Amount)
		}
		if verified.VerifiedAt.IsZero() {
			t.Error("expected VerifiedAt to be set")
		}
	})

	t.Run("rejects a tampered signature without contacting the gateway", func(t *testing.T) {
		gw := &fakeGateway{charge: &Charge{ID: "pay_123", OrderID: "order_abc", Status: "captured", Amount: 300000}}
		verifier := NewVerifier(gw, testSecret)

		conf := testConfirmation()
		conf.Signature = Signature(testSecret, "order_abc", "pay_999")

		_, err := verifier.Verify(context.Background(), conf, testCart())
		if !errors.Is(err, ErrSignatureInvalid) {
			t.Fatalf("expected ErrSignatureInvalid, got %v", err)
		}
		if gw.calls != 0 {
			t.Errorf("expected no gateway calls, got %d", gw.calls)
		}
	})

	t.Run("rejects a charge that is not captured", func(t *testing.T) {
		gw := &fakeGateway{charge: &Charge{ID: "pay_123", OrderID: "order_abc", Status: "authorized", Amount: 300000}}
		verifier := NewVerifier(gw, testSecret)

		_, err := verifier.Verify(context.Background(), testConfirmation(), testCart())
		if !errors.Is(err, ErrChargeNotCaptured) {
			t.Errorf("expected ErrChargeNotCaptured, got %v", err)
		}
	})

	t.Run("rejects a cart that does not sum to the charged amount", func(t *testing.T) {
		gw := &fakeGateway{charge: &Charge{ID: "pay_123", OrderID: "order_abc", Status: "captured", Amount: 300000}}
		verifier := NewVerifier(gw, testSecret)

		cart := testCart()
		cart[1].Price = 900 // tampered client-side after order creation

		_, err := verifier.Verify(context.Background(), testConfirmation(), cart)
		if !errors.Is(err, ErrAmountMismatch) {
			t.Errorf("expected ErrAmountMismatch, got %v", err)
		}
	})

	t.Run("rejects a charge captured for a different gateway order", func(t *testing.T) {
		gw := &fakeGateway{charge: &Charge{ID: "pay_123", OrderID: "order_other", Status: "captured", Amount: 300000}}
		verifier := NewVerifier(gw, testSecret)

		_, err := verifier.Verify(context.Background(), testConfirmation(), testCart())
		if !errors.Is(err, ErrOrderIDMismatch) {
			t.Errorf("expected ErrOrderIDMismatch, got %v", err)
		}
	})

	t.Run("propagates gateway lookup failures", func(t *testing.T) {
		gw := &fakeGateway{err: ErrChargeNotFound}
		verifier := NewVerifier(gw, testSecret)

		_, err := verifier.Verify(context.Background(), testConfirmation(), testCart())
		if !errors.Is(err, ErrChargeNotFound) {
			t.Errorf("expected ErrChargeNotFound, got %v", err)
		}
	})
}

func TestExpectedAmountMinor(t *testing.T) {
	items := []domain.CartItem{
		{Price: 1200},
		{Price: 1800},
	}
	if got := ExpectedAmountMinor(items); got != 300000 {
		t.Errorf("expected 300000 paise, got %d", got)
	}

	fractional := []domain.CartItem{{Price: 649.50}, {Price: 0.49}}
	if got := ExpectedAmountMinor(fractional); got != 65000 {
		t.Errorf("expected rounding to 65000, got %d", got)
	}
}
