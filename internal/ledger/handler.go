package ledger

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/contaflux/backend/internal/middleware"
	"github.com/contaflux/backend/internal/models"
	"github.com/contaflux/backend/internal/repository"
)

type AddManualRequest struct {
	BankAccountID string          `json:"bank_account_id"`
	Date          string          `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
}

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

func (h *Handler) AddManual(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromCtx(r.Context())
	if tenantID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req AddManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	bankAccountID, err := uuid.Parse(req.BankAccountID)
	if err != nil {
		http.Error(w, "invalid bank_account_id", http.StatusBadRequest)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	row, err := h.svc.AddManual(r.Context(), tenantID, bankAccountID, date, req.Amount, req.Description)
	if err != nil {
		if errors.Is(err, ErrZeroAmount) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error("add manual ledger row failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromCtx(r.Context())
	if tenantID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.svc.Reconcile(r.Context(), tenantID, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			http.Error(w, "ledger row not found", http.StatusNotFound)
		case errors.Is(err, ErrReconciled):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.log.Error("reconcile failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List serves GET /ledger?bank_account_id=...&from=...&to=...
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromCtx(r.Context())
	if tenantID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	bankAccountID, err := uuid.Parse(r.URL.Query().Get("bank_account_id"))
	if err != nil {
		http.Error(w, "bank_account_id query parameter is required", http.StatusBadRequest)
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rows, err := h.svc.List(r.Context(), tenantID, bankAccountID, from, to)
	if err != nil {
		h.log.Error("list ledger rows failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []*models.LedgerRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// parseRange reads from/to query parameters, defaulting to the current
// month when absent.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from, want YYYY-MM-DD")
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to, want YYYY-MM-DD")
		}
		to = t
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("to must not be before from")
	}
	return from, to, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
