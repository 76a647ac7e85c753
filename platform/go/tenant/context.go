package tenant

import (
	"context"
	"strings"
)

// Space captures the resolved organization scope for a request.
// It is attached to the context by middleware once the organization has been
// resolved from credentials/claims; the data layer never derives it on its own.
type Space struct {
	// OrganizationID is the opaque tenant identifier every document path and
	// collection-group query is scoped by.
	OrganizationID string
	// UserID identifies the acting user for audit stamping; may be empty for
	// system-initiated work.
	UserID string
}

type ctxKey string

const spaceKey ctxKey = "VERITEST_TENANT_SPACE"

// WithSpace returns a derived context carrying the organization Space.
func WithSpace(ctx context.Context, space Space) context.Context {
	return context.WithValue(ctx, spaceKey, space)
}

// FromContext extracts the organization Space and a boolean indicating presence.
func FromContext(ctx context.Context) (Space, bool) {
	v := ctx.Value(spaceKey)
	if v == nil {
		return Space{}, false
	}

	space, ok := v.(Space)
	return space, ok
}

// Valid reports whether the Space carries a usable organization id.
func (s Space) Valid() bool {
	return strings.TrimSpace(s.OrganizationID) != ""
}
