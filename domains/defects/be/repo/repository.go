package repo

import (
	"context"
	"errors"

	"github.com/veritest-io/veritest-saas/platform/go/firestoredb"
)

// ErrNotFound is returned when the target defect document does not exist.
var ErrNotFound = errors.New("defect not found")

// Filter restricts a listing. All fields are optional, AND-combined and
// equality-matched; there is no free-text search at this layer.
type Filter struct {
	FolderID   string
	Status     string
	Severity   string
	Priority   string
	AssignedTo string
}

// ListParams defines filtering, ordering and continuation inputs. The service
// fills in defaults before this reaches the store.
type ListParams struct {
	Filter     Filter
	OrderField string
	Descending bool
	PageSize   int
	// Cursor is an opaque continuation token from a previous page, empty for
	// the first page.
	Cursor string
}

// Record pairs a defect document with its store id.
type Record struct {
	ID  string
	Doc firestoredb.DefectDoc
}

// ListResult is one page of records plus the continuation token for the next
// page; NextCursor is empty when the page was not full.
type ListResult struct {
	Records    []Record
	NextCursor string
}

// Repository exposes defect reads and the direct writes the lifecycle manager
// owns. Creation is absent on purpose: new defects only enter through the
// backend authority, which allocates their keys.
type Repository interface {
	ListByProject(ctx context.Context, organizationID, projectID string, params ListParams) (ListResult, error)
	ListByOrganization(ctx context.Context, organizationID string, params ListParams) (ListResult, error)
	Get(ctx context.Context, organizationID, projectID, defectID string) (Record, error)
	// Patch applies field updates to an existing defect and returns the fresh
	// record. Fields use Firestore field names.
	Patch(ctx context.Context, organizationID, projectID, defectID string, fields map[string]interface{}) (Record, error)
}
