package registry

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/contaflux/backend/internal/middleware"
	"github.com/contaflux/backend/internal/models"
	"github.com/contaflux/backend/internal/repository"
)

// Request/response structs use snake_case JSON.

type CreateBankAccountRequest struct {
	Name           string          `json:"name"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type CreateCounterpartyRequest struct {
	Name     string `json:"name"`
	Document string `json:"document"`
	Kind     string `json:"kind"`
	Email    string `json:"email"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

func (h *Handler) CreateBankAccount(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromCtx(r.Context())
	if tenantID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req CreateBankAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	account, err := h.svc.CreateBankAccount(r.Context(), tenantID, req.Name, req.OpeningBalance)
	if err != nil {
		h.log.Error("create bank account failed", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *Handler) ListBankAccounts(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromCtx(r.Context())
	if tenantID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	accounts, err := h.svc.ListBankAccounts(r.Context(), tenantID)
	if err != nil {
		h.log.Error("list bank accounts failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if accounts == nil {
		accounts = []*models.BankAccount{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) CreateCounterparty(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromCtx(r.Context())
	if tenantID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req CreateCounterpartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	cp, err := h.svc.CreateCounterparty(r.Context(), tenantID, req.Name, req.Document, req.Kind, req.Email)
	if err != nil {
		if errors.Is(err, ErrInvalidKind) {
			http.Error(w, "kind must be customer or supplier", http.StatusBadRequest)
			return
		}
		h.log.Error("create counterparty failed", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, cp)
}

func (h *Handler) ListCounterparties(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromCtx(r.Context())
	if tenantID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.svc.ListCounterparties(r.Context(), tenantID)
	if err != nil {
		h.log.Error("list counterparties failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Counterparty{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) DeleteCounterparty(w http.ResponseWriter, r *http.Request) {
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
	if err := h.svc.DeleteCounterparty(r.Context(), tenantID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "counterparty not found", http.StatusNotFound)
			return
		}
		h.log.Error("delete counterparty failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
