package router

import (
	"net/http"

	"github.com/contaflux/backend/internal/auth"
	"github.com/contaflux/backend/internal/cashflow"
	"github.com/contaflux/backend/internal/contracts"
	"github.com/contaflux/backend/internal/dashboard"
	"github.com/contaflux/backend/internal/ledger"
	"github.com/contaflux/backend/internal/middleware"
	"github.com/contaflux/backend/internal/prepayment"
	"github.com/contaflux/backend/internal/registry"
	"github.com/contaflux/backend/internal/settlement"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth       *auth.Handler
	Registry   *registry.Handler
	Contracts  *contracts.Handler
	Prepayment *prepayment.Handler
	Settlement *settlement.Handler
	Ledger     *ledger.Handler
	Cashflow   *cashflow.Handler
	Dashboard  *dashboard.Handler
}

// New returns an http.Handler serving the API under /api/v1. Everything
// except register/login sits behind JWT auth.
func New(h Handlers, authSvc auth.Service) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"
	jwtAuth := middleware.JWTAuth(authSvc)
	protected := func(handler http.HandlerFunc) http.Handler {
		return jwtAuth(handler)
	}

	mux.HandleFunc("POST "+base+"/auth/register", h.Auth.Register)
	mux.HandleFunc("POST "+base+"/auth/login", h.Auth.Login)

	mux.Handle("POST "+base+"/bank-accounts", protected(h.Registry.CreateBankAccount))
	mux.Handle("GET "+base+"/bank-accounts", protected(h.Registry.ListBankAccounts))
	mux.Handle("POST "+base+"/counterparties", protected(h.Registry.CreateCounterparty))
	mux.Handle("GET "+base+"/counterparties", protected(h.Registry.ListCounterparties))
	mux.Handle("DELETE "+base+"/counterparties/{id}", protected(h.Registry.DeleteCounterparty))

	mux.Handle("POST "+base+"/contracts", protected(h.Contracts.Create))
	mux.Handle("GET "+base+"/contracts", protected(h.Contracts.List))
	mux.Handle("GET "+base+"/contracts/{id}", protected(h.Contracts.Get))
	mux.Handle("PUT "+base+"/contracts/{id}", protected(h.Contracts.Update))
	mux.Handle("DELETE "+base+"/contracts/{id}", protected(h.Settlement.DeleteContract))
	mux.Handle("POST "+base+"/contracts/{id}/activate", protected(h.Contracts.Activate))
	mux.Handle("GET "+base+"/contracts/{id}/installments", protected(h.Contracts.ListInstallments))

	mux.Handle("POST "+base+"/installments/{id}/settle", protected(h.Settlement.Settle))

	mux.Handle("POST "+base+"/prepayments", protected(h.Prepayment.Open))
	mux.Handle("GET "+base+"/prepayments", protected(h.Prepayment.ListByCounterparty))
	mux.Handle("GET "+base+"/prepayments/{id}", protected(h.Prepayment.Get))
	mux.Handle("POST "+base+"/prepayments/{id}/return", protected(h.Prepayment.Return))

	mux.Handle("POST "+base+"/ledger", protected(h.Ledger.AddManual))
	mux.Handle("GET "+base+"/ledger", protected(h.Ledger.List))
	mux.Handle("POST "+base+"/ledger/{id}/reconcile", protected(h.Ledger.Reconcile))

	mux.Handle("GET "+base+"/cashflow", protected(h.Cashflow.Project))
	mux.Handle("GET "+base+"/dashboard/summary", protected(h.Dashboard.Summary))

	return mux
}
