// Package authority defines the backend-authority boundary of the defect data
// layer. Operations that need serialization (unique key allocation) or side
// effects beyond a plain document write (notification fan-out, bulk import)
// are delegated to a trusted remote procedure; this layer never reimplements
// their logic and never retries them on its own.
package authority

import (
	"context"
	"fmt"

	"github.com/veritest-io/veritest-saas/platform/go/firestoredb"
)

// DefectPayload is the caller-supplied portion of a defect sent to the
// authority. Validation of required fields happens before this ever leaves
// the process.
type DefectPayload struct {
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Severity         string  `json:"severity"`
	Priority         string  `json:"priority"`
	Status           string  `json:"status,omitempty"`
	FolderID         *string `json:"folderId,omitempty"`
	AssignedTo       string  `json:"assignedTo,omitempty"`
	RaisedBy         string  `json:"raisedBy,omitempty"`
	Environment      string  `json:"environment,omitempty"`
	Browser          string  `json:"browser,omitempty"`
	OperatingSystem  string  `json:"operatingSystem,omitempty"`
	StepsToReproduce string  `json:"stepsToReproduce,omitempty"`
	ExpectedBehavior string  `json:"expectedBehavior,omitempty"`
	ActualBehavior   string  `json:"actualBehavior,omitempty"`
}

// CreatedDefect is the fully materialized record the authority hands back,
// including the allocated human-readable key.
type CreatedDefect struct {
	ID  string
	Doc firestoredb.DefectDoc
}

// CommentRef addresses one defect's comment sub-collection.
type CommentRef struct {
	OrganizationID string
	ProjectID      string
	DefectID       string
}

// CommentPayload is the caller-supplied portion of a comment.
type CommentPayload struct {
	Body     string `json:"body"`
	AuthorID string `json:"authorId"`
}

// CreatedComment is the materialized comment returned by the authority.
type CreatedComment struct {
	ID  string
	Doc firestoredb.CommentDoc
}

// Filter restricts an export the same way the query composer restricts a
// listing: optional, AND-combined, equality only.
type Filter struct {
	FolderID   string `json:"folderId,omitempty"`
	Status     string `json:"status,omitempty"`
	Severity   string `json:"severity,omitempty"`
	Priority   string `json:"priority,omitempty"`
	AssignedTo string `json:"assignedTo,omitempty"`
}

// ExportRequest describes a defect export. ProjectID nil means all projects
// of the organization.
type ExportRequest struct {
	OrganizationID string  `json:"organizationId"`
	ProjectID      *string `json:"projectId,omitempty"`
	Filter         Filter  `json:"filter"`
	Format         string  `json:"format"`
}

// ExportResult carries the produced export document.
type ExportResult struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"content"`
	RecordCount int    `json:"recordCount"`
}

// ImportReport is the structured outcome of an import run. Dry runs validate
// without persisting; commits additionally carry the allocated keys.
type ImportReport struct {
	DryRun   bool             `json:"dryRun"`
	Accepted []AcceptedRecord `json:"accepted"`
	Rejected []RejectedRecord `json:"rejected"`
}

// AcceptedRecord identifies an input record that passed validation. Key is
// empty on dry runs.
type AcceptedRecord struct {
	Index int    `json:"index"`
	Key   string `json:"key,omitempty"`
}

// RejectedRecord identifies an input record that failed validation, with
// per-record reasons.
type RejectedRecord struct {
	Index   int      `json:"index"`
	Reasons []string `json:"reasons"`
}

// Authority is the remote-procedure boundary. Every method maps to one
// callable backend function with its own failure modes.
type Authority interface {
	CreateDefectWithUniqueKey(ctx context.Context, organizationID, projectID string, payload DefectPayload) (CreatedDefect, error)
	CreateComment(ctx context.Context, ref CommentRef, payload CommentPayload) (CreatedComment, error)
	UpdateComment(ctx context.Context, ref CommentRef, commentID, body string) error
	DeleteComment(ctx context.Context, ref CommentRef, commentID string) error
	ExportDefects(ctx context.Context, req ExportRequest) (ExportResult, error)
	ImportDefects(ctx context.Context, organizationID, projectID string, records []DefectPayload, dryRun bool) (ImportReport, error)
	InitializeReferenceValues(ctx context.Context, organizationID string) error
}

// AuthorityError wraps a backend function failure (network, server-side
// rejection, quota). It is surfaced to callers unmodified; a timed-out create
// may have succeeded server-side, so retrying is a caller decision.
type AuthorityError struct {
	Function string
	Status   string
	Message  string
	Err      error
}

func (e *AuthorityError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("authority %s failed: %s (%s)", e.Function, e.Message, e.Status)
	}
	return fmt.Sprintf("authority %s failed: %v", e.Function, e.Err)
}

func (e *AuthorityError) Unwrap() error {
	return e.Err
}
