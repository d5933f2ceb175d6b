package pending

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/PawanKumar-Dev/domainflow/internal/domain"
)

// Handler exposes the pending-domain recovery API used by operators.
type Handler struct {
	repo     *Repository
	resolver *Resolver
	logger   *slog.Logger
}

func NewHandler(repo *Repository, resolver *Resolver, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, resolver: resolver, logger: logger}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list pending domains", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, records)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing pending domain id")
		return
	}

	record, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "pending domain not found")
			return
		}
		h.logger.Error("failed to get pending domain", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, record)
}

type resolveRequest struct {
	Status           domain.DomainStatus `json:"status"`
	RegistrarOrderID string              `json:"registrar_order_id"`
	ExpiresAt        *time.Time          `json:"expires_at"`
	Notes            string              `json:"notes"`
}

func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing pending domain id")
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Status != domain.DomainStatusRegistered && req.Status != domain.DomainStatusFailed {
		h.writeError(w, http.StatusBadRequest, "status must be registered or failed")
		return
	}

	record, err := h.resolver.Resolve(r.Context(), id, Outcome{
		Status:           req.Status,
		RegistrarOrderID: req.RegistrarOrderID,
		ExpiresAt:        req.ExpiresAt,
		Notes:            req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			h.writeError(w, http.StatusNotFound, "pending domain not found")
		case errors.Is(err, ErrAlreadyResolved):
			h.writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("failed to resolve pending domain", "error", err, "id", id)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, record)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
