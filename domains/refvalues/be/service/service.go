package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/veritest-io/veritest-saas/domains/refvalues/be/repo"
	"github.com/veritest-io/veritest-saas/platform/go/authority"
	"github.com/veritest-io/veritest-saas/platform/go/logging"
	"github.com/veritest-io/veritest-saas/platform/go/taxonomy"
)

// ValidationError signals a caller mistake, such as an unknown taxonomy.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error"
}

// Value is a resolved reference value ready to present to a client.
type Value struct {
	ID    string
	Label string
}

// Service resolves reference values with tenant-then-global precedence.
type Service interface {
	Resolve(ctx context.Context, organizationID string, t taxonomy.Type) ([]Value, error)
	InitializeDefaults(ctx context.Context, organizationID string) error
}

type service struct {
	repo      repo.Repository
	authority authority.Authority
	logger    *zap.Logger
}

// New wires the resolver over its repository and the backend authority.
func New(r repo.Repository, auth authority.Authority, logger *zap.Logger) Service {
	if r == nil {
		panic("repository is required")
	}
	if auth == nil {
		panic("authority is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &service{repo: r, authority: auth, logger: logger}
}

func (s *service) Resolve(ctx context.Context, organizationID string, t taxonomy.Type) ([]Value, error) {
	if organizationID == "" {
		return nil, &ValidationError{Reason: "organization id is required"}
	}
	if !taxonomy.Valid(t) {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown taxonomy %q", t)}
	}

	tenantValues, err := s.repo.TenantValues(ctx, organizationID, t)
	if err != nil {
		// A broken tenant set must not hide the global catalogue.
		logging.FromContextOr(ctx, s.logger).Warn("tenant reference value lookup failed, falling back to global set",
			zap.String("organizationId", organizationID),
			zap.String("taxonomy", string(t)),
			zap.Error(err))
		tenantValues = nil
	}

	var globalValues []repo.Value
	if len(tenantValues) == 0 {
		globalValues, err = s.repo.GlobalValues(ctx, t)
		if err != nil {
			return nil, err
		}
	}

	return pick(tenantValues, globalValues), nil
}

func (s *service) InitializeDefaults(ctx context.Context, organizationID string) error {
	if organizationID == "" {
		return &ValidationError{Reason: "organization id is required"}
	}

	return s.authority.InitializeReferenceValues(ctx, organizationID)
}

// pick applies the precedence rule over two already-fetched sets: a
// non-empty tenant set wins outright, otherwise the global set is used.
func pick(tenant, global []repo.Value) []Value {
	source := tenant
	if len(source) == 0 {
		source = global
	}

	values := make([]Value, 0, len(source))
	for _, v := range source {
		values = append(values, Value{ID: v.ID, Label: v.Label})
	}

	return values
}
