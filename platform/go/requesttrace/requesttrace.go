package requesttrace

import (
	"context"
	"errors"
)

type contextKey string

const (
	ctxAuditInfo contextKey = "VERITEST_REQUEST_TRACE"
)

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindAnonymous ActorKind = "anonymous"
	ActorKindSystem    ActorKind = "system"
)

// AuditInfo captures request-scoped metadata needed for traceability and audit stamping.
// UserID is set only when ActorKind is user; services use it for updatedBy fields.
type AuditInfo struct {
	ActorKind      ActorKind
	UserID         *string
	OrganizationID *string
	RequestID      string
}

// IntoContext stores the AuditInfo in the provided context.
func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxAuditInfo, audit)
}

// FromContext extracts the AuditInfo from context, returning false when not present.
func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	v := ctx.Value(ctxAuditInfo)
	if v == nil {
		return AuditInfo{}, false
	}

	audit, ok := v.(AuditInfo)
	return audit, ok
}

// FromContextOrAnonymous returns the AuditInfo stored on the context, or an anonymous record when absent.
func FromContextOrAnonymous(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return Anonymous("")
}

// ForUser builds an AuditInfo for an authenticated user acting inside an organization.
// Returns an error when the user id is empty; organization may be empty for
// platform-level operations.
func ForUser(userID, organizationID, requestID string) (AuditInfo, error) {
	if userID == "" {
		return AuditInfo{}, errors.New("user id is required to build audit info")
	}

	audit := AuditInfo{
		ActorKind: ActorKindUser,
		UserID:    &userID,
		RequestID: requestID,
	}
	if organizationID != "" {
		audit.OrganizationID = &organizationID
	}
	return audit, nil
}

// Anonymous builds an AuditInfo for unauthenticated requests where no user ID exists yet.
func Anonymous(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID}
}

// System builds an AuditInfo for background/system operations (CLI, seed jobs).
func System(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindSystem, RequestID: requestID}
}
