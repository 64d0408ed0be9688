package settlement

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/contaflux/backend/internal/middleware"
	"github.com/contaflux/backend/internal/prepayment"
	"github.com/contaflux/backend/internal/repository"
)

type allocationRequest struct {
	PrepaymentID string          `json:"prepayment_id"`
	Amount       decimal.Decimal `json:"amount"`
}

type settleRequest struct {
	PaidDate      string              `json:"paid_date"`
	PaidValue     decimal.Decimal     `json:"paid_value"`
	Interest      decimal.Decimal     `json:"interest"`
	Fine          decimal.Decimal     `json:"fine"`
	Discount      decimal.Decimal     `json:"discount"`
	BankAccountID string              `json:"bank_account_id"`
	Allocations   []allocationRequest `json:"allocations"`
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

// Settle serves POST /installments/{id}/settle.
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromCtx(r.Context())
	if tenantID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	installmentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	paidDate, err := time.Parse("2006-01-02", req.PaidDate)
	if err != nil {
		http.Error(w, "invalid paid_date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	bankAccountID, err := uuid.Parse(req.BankAccountID)
	if err != nil {
		http.Error(w, "invalid bank_account_id", http.StatusBadRequest)
		return
	}
	allocations := make([]Allocation, len(req.Allocations))
	for i, a := range req.Allocations {
		prepaymentID, err := uuid.Parse(a.PrepaymentID)
		if err != nil {
			http.Error(w, "invalid prepayment_id", http.StatusBadRequest)
			return
		}
		allocations[i] = Allocation{PrepaymentID: prepaymentID, Amount: a.Amount}
	}

	result, err := h.svc.Settle(r.Context(), SettleRequest{
		TenantID:      tenantID,
		InstallmentID: installmentID,
		PaidDate:      paidDate,
		PaidValue:     req.PaidValue,
		Interest:      req.Interest,
		Fine:          req.Fine,
		Discount:      req.Discount,
		BankAccountID: bankAccountID,
		Allocations:   allocations,
	})
	if err != nil {
		h.writeSettleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DeleteContract serves DELETE /contracts/{id}. Refused while any
// installment of the contract is settled.
func (h *Handler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromCtx(r.Context())
	if tenantID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	contractID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.svc.DeleteParent(r.Context(), tenantID, contractID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			http.Error(w, "contract not found", http.StatusNotFound)
		case errors.Is(err, ErrHasSettledInstallments):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.log.Error("delete contract failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeSettleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "installment not found", http.StatusNotFound)
	case errors.Is(err, ErrAlreadySettled), errors.Is(err, repository.ErrVersionConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidPayment),
		errors.Is(err, ErrAllocationsExceedValue),
		errors.Is(err, prepayment.ErrInsufficientBalance):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.log.Error("settle failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
