package middleware

import (
	"net/http"

	"github.com/veritest-io/veritest-saas/platform/go/tenant"
)

// Identity headers carrying the already-authenticated caller. Authentication
// itself happens upstream (gateway in prod, plain headers in dev); this layer
// only consumes the result.
const (
	HeaderOrganizationID = "X-Organization-Id"
	HeaderUserID         = "X-User-Id"
)

// Identity reads the caller's identity headers and stores them on the context
// as a tenant Space. Requests without both headers pass through untagged and
// are treated as anonymous downstream.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		space := tenant.Space{
			OrganizationID: r.Header.Get(HeaderOrganizationID),
			UserID:         r.Header.Get(HeaderUserID),
		}
		if space.Valid() && space.UserID != "" {
			r = r.WithContext(tenant.WithSpace(r.Context(), space))
		}
		next.ServeHTTP(w, r)
	})
}
