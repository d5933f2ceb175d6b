package checkout

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PawanKumar-Dev/domainflow/internal/domain"
	"github.com/PawanKumar-Dev/domainflow/internal/payment"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type verifyRequest struct {
	GatewayOrderID  string            `json:"gateway_order_id"`
	GatewayChargeID string            `json:"gateway_charge_id"`
	Signature       string            `json:"signature"`
	CartItems       []domain.CartItem `json:"cart_items"`
	Customer        domain.Customer   `json:"customer"`
}

type errorResponse struct {
	ErrorKind         string                    `json:"error_kind"`
	Message           string                    `json:"message"`
	RestrictedDomains []domain.RestrictedDomain `json:"restricted_domains,omitempty"`
	SupportContact    string                    `json:"support_contact,omitempty"`
}

// HandleVerify is POST /checkout/verify, the storefront's payment callback.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	if msg := validateVerifyRequest(req); msg != "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	conf := payment.Confirmation{
		GatewayOrderID:  req.GatewayOrderID,
		GatewayChargeID: req.GatewayChargeID,
		Signature:       req.Signature,
	}

	result, err := h.service.Process(r.Context(), conf, req.CartItems, req.Customer)
	if err != nil {
		h.writeProcessError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func validateVerifyRequest(req verifyRequest) string {
	switch {
	case req.GatewayOrderID == "":
		return "gateway_order_id is required"
	case req.GatewayChargeID == "":
		return "gateway_charge_id is required"
	case req.Signature == "":
		return "signature is required"
	case len(req.CartItems) == 0:
		return "cart_items must contain at least one item"
	case req.Customer.Email == "":
		return "customer email is required"
	}

	seen := make(map[string]bool, len(req.CartItems))
	for _, item := range req.CartItems {
		name := strings.ToLower(strings.TrimSpace(item.DomainName))
		if name == "" {
			return "cart item domain_name is required"
		}
		if item.Period < 1 {
			return "cart item period must be at least 1 year"
		}
		if item.Price <= 0 {
			return "cart item price must be positive"
		}
		if seen[name] {
			return "cart contains duplicate domain " + name
		}
		seen[name] = true
	}
	return ""
}

func (h *Handler) writeProcessError(w http.ResponseWriter, err error) {
	var procErr *Error
	if !errors.As(err, &procErr) {
		h.logger.Error("checkout failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal_error", "checkout failed")
		return
	}

	status := http.StatusInternalServerError
	switch procErr.Kind {
	case KindSignatureInvalid, KindChargeNotCaptured, KindAmountMismatch,
		KindOrderIDMismatch, KindRestrictedDomain:
		status = http.StatusBadRequest
	case KindChargeNotFound:
		status = http.StatusNotFound
	case KindDuplicateCharge:
		status = http.StatusConflict
	case KindGatewayFailure, KindStoreUnavailable, KindPersistenceFailure:
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("checkout failed", "kind", procErr.Kind, "error", err)
	} else {
		h.logger.Warn("checkout rejected", "kind", procErr.Kind, "error", err)
	}

	h.writeJSON(w, status, errorResponse{
		ErrorKind:         string(procErr.Kind),
		Message:           procErr.Message,
		RestrictedDomains: procErr.RestrictedDomains,
		SupportContact:    procErr.SupportContact,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, kind, message string) {
	h.writeJSON(w, status, errorResponse{ErrorKind: kind, Message: message})
}
