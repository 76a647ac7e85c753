package persistence

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/veritest-io/veritest-saas/database"
)

// KeyCounter allocates sequential defect numbers per organization/project row.
// The single UPDATE … RETURNING inside Postgres serializes allocation, which is
// what makes human-readable keys unique under concurrent creation. SQL is
// embedded at build time so binaries stay self-contained.
type KeyCounter struct {
	pool *pgxpool.Pool
}

// NewKeyCounter applies the counter DDL (idempotent) and returns the allocator.
func NewKeyCounter(ctx context.Context, pool *pgxpool.Pool) (*KeyCounter, error) {
	if pool == nil {
		return nil, fmt.Errorf("key counter: pool is required")
	}

	if _, err := pool.Exec(ctx, sqlassets.DefectKeyCountersSQL); err != nil {
		return nil, fmt.Errorf("apply key counter ddl: %w", err)
	}

	return &KeyCounter{pool: pool}, nil
}

// NextNumber returns the next sequential defect number for the given scope,
// starting at 1. Concurrent callers on the same row block on the row lock and
// each observe a distinct value.
func (c *KeyCounter) NextNumber(ctx context.Context, organizationID, projectID string) (int64, error) {
	if organizationID == "" || projectID == "" {
		return 0, fmt.Errorf("key counter: organization and project are required")
	}

	var next int64
	err := c.pool.QueryRow(ctx, `
INSERT INTO defect_key_counters (organization_id, project_id, next_number)
VALUES ($1, $2, 1)
ON CONFLICT (organization_id, project_id)
DO UPDATE SET next_number = defect_key_counters.next_number + 1
RETURNING next_number`, organizationID, projectID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("allocate defect number: %w", err)
	}

	return next, nil
}

// KeyPrefix derives the human-readable key prefix from a project id: uppercase
// alphanumerics only, capped at ten characters. "proj-1" becomes "PROJ1".
func KeyPrefix(projectID string) string {
	var b strings.Builder
	for _, r := range projectID {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
		if b.Len() >= 10 {
			break
		}
	}
	if b.Len() == 0 {
		return "DEF"
	}
	return b.String()
}
