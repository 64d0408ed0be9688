package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserKey   contextKey = "user_id"
	ctxTenantKey contextKey = "tenant_id"
)

// TokenValidator resolves a bearer token to the user and tenant it was
// issued for.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, uuid.UUID, error)
}

// JWTAuth authenticates requests with a Bearer JWT. On success it sets the
// user id and tenant id into request context; every handler reads the
// tenant from there and passes it down explicitly.
func JWTAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}

			userID, tenantID, err := validator.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserKey, userID)
			ctx = context.WithValue(ctx, ctxTenantKey, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromCtx returns the authenticated user id, or uuid.Nil.
func UserFromCtx(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxUserKey).(uuid.UUID)
	return id
}

// TenantFromCtx returns the authenticated tenant id, or uuid.Nil.
func TenantFromCtx(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxTenantKey).(uuid.UUID)
	return id
}

// WithTenant returns a context carrying the given user and tenant ids.
func WithTenant(ctx context.Context, userID, tenantID uuid.UUID) context.Context {
	ctx = context.WithValue(ctx, ctxUserKey, userID)
	return context.WithValue(ctx, ctxTenantKey, tenantID)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
