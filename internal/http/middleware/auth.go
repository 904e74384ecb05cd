package middleware

import (
	"net/http"
	"strings"

	"github.com/agendai/agendai-platform/internal/tenancy"
)

// IdentityHeader carries the caller's professional id on dashboard requests.
// The dashboard layer authenticates the user; this service only scopes rows.
const IdentityHeader = "X-Professional-Id"

// RequireProfessional rejects requests without an identity header and stores
// the professional id in the request context for ownership checks downstream.
func RequireProfessional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(IdentityHeader))
		if id == "" {
			http.Error(w, "missing identity", http.StatusUnauthorized)
			return
		}
		ctx := tenancy.WithProfessionalID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
