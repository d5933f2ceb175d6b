package checkout

import (
	"errors"

	"github.com/PawanKumar-Dev/domainflow/internal/domain"
	"github.com/PawanKumar-Dev/domainflow/internal/payment"
)

// ErrorKind tags every orchestrator failure so callers can branch without
// string matching.
type ErrorKind string

const (
	// Pre-registration verification failures. Non-retryable with the same
	// inputs and free of side effects.
	KindSignatureInvalid  ErrorKind = "signature_invalid"
	KindChargeNotCaptured ErrorKind = "charge_not_captured"
	KindAmountMismatch    ErrorKind = "amount_mismatch"
	KindOrderIDMismatch   ErrorKind = "order_id_mismatch"
	KindChargeNotFound    ErrorKind = "charge_not_found"
	KindGatewayFailure    ErrorKind = "gateway_failure"

	// KindRestrictedDomain needs human follow-up, not a retry: payment is
	// captured but the cart cannot be registered.
	KindRestrictedDomain ErrorKind = "restricted_domain"

	// KindDuplicateCharge marks a duplicate-processing race lost at the store
	// where the winning order could not be read back.
	KindDuplicateCharge ErrorKind = "duplicate_charge"

	// KindStoreUnavailable is a store failure before any registration was
	// attempted. Retryable once the store recovers; no work is lost.
	KindStoreUnavailable ErrorKind = "store_unavailable"

	// KindPersistenceFailure is the loud one: registrations may have gone
	// through and money has moved, but no durable order record exists.
	KindPersistenceFailure ErrorKind = "persistence_failure"
)

type Error struct {
	Kind              ErrorKind
	Message           string
	RestrictedDomains []domain.RestrictedDomain
	SupportContact    string
	cause             error
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// fromVerification maps verifier sentinels onto error kinds.
func fromVerification(err error) *Error {
	switch {
	case errors.Is(err, payment.ErrSignatureInvalid):
		return newError(KindSignatureInvalid, "payment signature verification failed", err)
	case errors.Is(err, payment.ErrChargeNotCaptured):
		return newError(KindChargeNotCaptured, "payment is not captured at the gateway", err)
	case errors.Is(err, payment.ErrAmountMismatch):
		return newError(KindAmountMismatch, "cart total does not match the captured amount", err)
	case errors.Is(err, payment.ErrOrderIDMismatch):
		return newError(KindOrderIDMismatch, "payment belongs to a different gateway order", err)
	case errors.Is(err, payment.ErrChargeNotFound):
		return newError(KindChargeNotFound, "gateway has no record of this charge", err)
	default:
		return newError(KindGatewayFailure, "could not verify payment with the gateway", err)
	}
}
