package tenant

import (
	"net/http"

	"github.com/google/uuid"
)

// HeaderName is the request header operator clients use to scope a request
// to a single tenant. Requests without it operate across all tenants.
const HeaderName = "X-Tenant-ID"

// Middleware extracts the tenant id from the request header and scopes the
// request context with it. A missing header passes through unscoped; a
// malformed one is rejected with 400.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(HeaderName)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, ErrInvalidTenantID.Error(), http.StatusBadRequest)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}
