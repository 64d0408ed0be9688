package contracts

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
	"github.com/contaflux/backend/internal/schedule"
	"github.com/contaflux/backend/internal/settlement"
)

// Request structs use snake_case JSON; dates are plain "2006-01-02".

type CreateContractRequest struct {
	CounterpartyID string          `json:"counterparty_id"`
	Kind           string          `json:"kind"`
	Direction      string          `json:"direction"`
	Description    string          `json:"description"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	FirstDueDate   string          `json:"first_due_date"`
	Periodicity    string          `json:"periodicity"`
	MonthlyValue   decimal.Decimal `json:"monthly_value"`
}

type UpdateContractRequest struct {
	Description  string          `json:"description"`
	StartDate    string          `json:"start_date"`
	EndDate      string          `json:"end_date"`
	FirstDueDate string          `json:"first_due_date"`
	Periodicity  string          `json:"periodicity"`
	MonthlyValue decimal.Decimal `json:"monthly_value"`
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

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromCtx(r.Context())
	if tenantID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req CreateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	counterpartyID, err := uuid.Parse(req.CounterpartyID)
	if err != nil {
		http.Error(w, "invalid counterparty_id", http.StatusBadRequest)
		return
	}
	start, end, firstDue, err := parseDates(req.StartDate, req.EndDate, req.FirstDueDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := h.svc.Create(r.Context(), CreateRequest{
		TenantID:       tenantID,
		CounterpartyID: counterpartyID,
		Kind:           req.Kind,
		Direction:      req.Direction,
		Description:    req.Description,
		StartDate:      start,
		EndDate:        end,
		FirstDueDate:   firstDue,
		Periodicity:    req.Periodicity,
		MonthlyValue:   req.MonthlyValue,
	})
	if err != nil {
		h.writeServiceError(w, err, "create contract failed")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromCtx(r.Context())
	if tenantID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.svc.List(r.Context(), tenantID)
	if err != nil {
		h.log.Error("list contracts failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Contract{}
	}
	writeJSON(w, http.StatusOK, list)
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
	c, err := h.svc.Get(r.Context(), tenantID, id)
	if err != nil {
		h.writeServiceError(w, err, "get contract failed")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
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
	var req UpdateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	start, end, firstDue, err := parseDates(req.StartDate, req.EndDate, req.FirstDueDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := h.svc.Update(r.Context(), UpdateRequest{
		TenantID:     tenantID,
		ContractID:   id,
		Description:  req.Description,
		StartDate:    start,
		EndDate:      end,
		FirstDueDate: firstDue,
		Periodicity:  req.Periodicity,
		MonthlyValue: req.MonthlyValue,
	})
	if err != nil {
		h.writeServiceError(w, err, "update contract failed")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
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
	if err := h.svc.Activate(r.Context(), tenantID, id); err != nil {
		h.writeServiceError(w, err, "activate contract failed")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) ListInstallments(w http.ResponseWriter, r *http.Request) {
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
	views, err := h.svc.ListInstallments(r.Context(), tenantID, id, time.Now().UTC())
	if err != nil {
		h.writeServiceError(w, err, "list installments failed")
		return
	}
	if views == nil {
		views = []InstallmentView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, settlement.ErrHasSettledInstallments):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, schedule.ErrInvalidRange), errors.Is(err, schedule.ErrInvalidPeriodicity), errors.Is(err, ErrInvalidContract):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error(logMsg, "error", err)
		http.Error(w, logMsg, http.StatusInternalServerError)
	}
}

func parseDates(start, end, firstDue string) (time.Time, time.Time, time.Time, error) {
	s, err := parseDate(start, "start_date")
	if err != nil {
		return time.Time{}, time.Time{}, time.Time{}, err
	}
	e, err := parseDate(end, "end_date")
	if err != nil {
		return time.Time{}, time.Time{}, time.Time{}, err
	}
	f, err := parseDate(firstDue, "first_due_date")
	if err != nil {
		return time.Time{}, time.Time{}, time.Time{}, err
	}
	return s, e, f, nil
}

func parseDate(v, field string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, errors.New("invalid " + field + ", want YYYY-MM-DD")
	}
	return t, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
