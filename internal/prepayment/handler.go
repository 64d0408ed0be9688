package prepayment

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

type OpenRequest struct {
	CounterpartyID string          `json:"counterparty_id"`
	Direction      string          `json:"direction"`
	Total          decimal.Decimal `json:"total"`
}

type ReturnRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	BankAccountID string          `json:"bank_account_id"`
	Date          string          `json:"date"`
}

type ReturnResponse struct {
	Account   *models.PrepaymentAccount `json:"account"`
	LedgerRow *models.LedgerRow         `json:"ledger_row"`
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

func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromCtx(r.Context())
	if tenantID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	counterpartyID, err := uuid.Parse(req.CounterpartyID)
	if err != nil {
		http.Error(w, "invalid counterparty_id", http.StatusBadRequest)
		return
	}
	account, err := h.svc.Open(r.Context(), tenantID, counterpartyID, req.Direction, req.Total)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
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
	account, err := h.svc.Get(r.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "prepayment not found", http.StatusNotFound)
			return
		}
		h.log.Error("get prepayment failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// ListByCounterparty serves GET /prepayments?counterparty_id=...
func (h *Handler) ListByCounterparty(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromCtx(r.Context())
	if tenantID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	counterpartyID, err := uuid.Parse(r.URL.Query().Get("counterparty_id"))
	if err != nil {
		http.Error(w, "counterparty_id query parameter is required", http.StatusBadRequest)
		return
	}
	accounts, err := h.svc.ListByCounterparty(r.Context(), tenantID, counterpartyID)
	if err != nil {
		h.log.Error("list prepayments failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if accounts == nil {
		accounts = []*models.PrepaymentAccount{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
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
	var req ReturnRequest
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
	row, err := h.svc.Return(r.Context(), tenantID, id, req.Amount, bankAccountID, date)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			http.Error(w, "prepayment not found", http.StatusNotFound)
		case errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrInvalidAmount):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrVersionConflict):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.log.Error("prepayment return failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	account, err := h.svc.Get(r.Context(), tenantID, id)
	if err != nil {
		h.log.Error("reload prepayment after return failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ReturnResponse{Account: account, LedgerRow: row})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
