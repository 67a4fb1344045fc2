package middleware

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
)

type contextKey string

const (
	claimsKey contextKey = "claims"
	tokenKey  contextKey = "token"
)

// RevocationChecker reports whether a token was logged out.
// Satisfied by *store.Store.
type RevocationChecker interface {
	IsRevoked(token string) bool
}

// Authenticate requires a valid bearer token. revoked may be nil.
func Authenticate(jwtSecret string, revoked RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, enum.ErrorCodeUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeError(w, http.StatusUnauthorized, enum.ErrorCodeUnauthorized, "invalid authorization format")
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, enum.ErrorCodeUnauthorized, "invalid token")
				return
			}
			if revoked != nil && revoked.IsRevoked(parts[1]) {
				writeError(w, http.StatusUnauthorized, enum.ErrorCodeUnauthorized, "token revoked")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = context.WithValue(ctx, tokenKey, parts[1])
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MatchIdentityHeaders rejects requests whose service identity headers
// (usuario-id, X-User-Id) name someone other than the token's subject.
func MatchIdentityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			writeError(w, http.StatusUnauthorized, enum.ErrorCodeUnauthorized, "not authenticated")
			return
		}
		for _, h := range []string{"usuario-id", "X-User-Id"} {
			if v := r.Header.Get(h); v != "" && v != claims.UserID {
				writeError(w, http.StatusForbidden, enum.ErrorCodeForbidden, h+" does not match token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, enum.ErrorCodeUnauthorized, "not authenticated")
				return
			}

			user := claims.User()
			for _, role := range roles {
				if user.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, http.StatusForbidden, enum.ErrorCodeForbidden, "insufficient permissions")
		})
	}
}

// SimulateLatency delays every request by a random duration in [lo, hi]
// so clients see realistic loading states.
func SimulateLatency(lo, hi time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hi <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := lo
			if hi > lo {
				d += rand.N(hi - lo + 1)
			}
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
			case <-r.Context().Done():
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// TokenFromContext returns the raw bearer token Authenticate accepted.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, model.ErrorBody{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
