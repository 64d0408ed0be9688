package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/contaflux/backend/internal/middleware"
)

// Summarizer is implemented by Repository.
type Summarizer interface {
	Summarize(ctx context.Context, tenantID uuid.UUID, today time.Time) (*Summary, error)
}

type Handler struct {
	repo Summarizer
	log  *slog.Logger
}

func NewHandler(repo Summarizer, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{repo: repo, log: log}
}

// Summary serves GET /dashboard/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromCtx(r.Context())
	if tenantID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	summary, err := h.repo.Summarize(r.Context(), tenantID, time.Now().UTC())
	if err != nil {
		h.log.Error("dashboard summary failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(summary)
}
