package middleware

import (
	"context"
	"net/http"
	"strings"

	"clinic-booking-api/internal/auth"
)

type ctxKey string

const claimsKey ctxKey = "claims"

const msgAuthFailed = "Authentication failed!"

// Auth reads a bearer token from Authorization. With required set, requests
// without a valid token get 401. Otherwise a valid token is attached to the
// context and anything else is ignored.
func Auth(iss *auth.Issuer, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			raw := bearer(r)
			if raw == "" {
				if required {
					writeError(w, http.StatusUnauthorized, msgAuthFailed)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			claims, err := iss.Parse(raw)
			if err != nil {
				if required {
					writeError(w, http.StatusUnauthorized, msgAuthFailed)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// token from Authorization: Bearer <jwt>
func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func WithClaims(ctx context.Context, c *auth.Claims) context.Context {
	if h, ok := ctx.Value(holderKey).(*claimsHolder); ok {
		h.id = c.UserID
	}
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok && c != nil
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", false
	}
	return c.UserID, true
}
