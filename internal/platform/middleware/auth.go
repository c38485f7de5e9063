package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"facepay/pkg/domain"
	"facepay/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns the payer address the
// authentication provider bound to it. The address arrives already verified;
// the core trusts it as-is.
type TokenValidator interface {
	Validate(tokenString string) (domain.Address, error)
}

// RequireAuth rejects requests without a valid bearer token and injects the
// payer address into the request context.
func RequireAuth(validator TokenValidator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			addr, err := validator.Validate(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				if log != nil {
					log.WarnContext(r.Context(), "token rejected", "error", err)
				}
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			ctx := requestcontext.WithPayer(r.Context(), addr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
