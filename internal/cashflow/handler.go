package cashflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/contaflux/backend/internal/middleware"
	"github.com/contaflux/backend/internal/models"
	"github.com/contaflux/backend/internal/repository"
)

// AccountSource resolves the bank account whose balance opens the
// projection.
type AccountSource interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.BankAccount, error)
}

type Handler struct {
	projector *Projector
	accounts  AccountSource
	log       *slog.Logger
}

func NewHandler(projector *Projector, accounts AccountSource, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{projector: projector, accounts: accounts, log: log}
}

// Project serves GET /cashflow?bank_account_id=...&from=...&to=...
// The opening balance is the account's opening balance plus every row
// dated before the window.
func (h *Handler) Project(w http.ResponseWriter, r *http.Request) {
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
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "invalid from, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "invalid to, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if to.Before(from) {
		http.Error(w, "to must not be before from", http.StatusBadRequest)
		return
	}

	account, err := h.accounts.GetByID(r.Context(), tenantID, bankAccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "bank account not found", http.StatusNotFound)
			return
		}
		h.log.Error("load bank account failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Zero time as the lower bound covers every row ever written, so no
	// movement is lost from the derived opening balance.
	opening := account.OpeningBalance
	before, err := h.projector.Project(r.Context(), tenantID, bankAccountID, time.Time{}, from.AddDate(0, 0, -1), opening)
	if err != nil {
		h.log.Error("pre-window projection failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	opening = before.ClosingBalance

	projection, err := h.projector.Project(r.Context(), tenantID, bankAccountID, from, to, opening)
	if err != nil {
		h.log.Error("projection failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(projection)
}
