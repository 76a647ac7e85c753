// Package local implements the backend authority in-process for development
// and integration testing: key allocation through a Postgres transactional
// counter, direct Firestore writes, and import validation through JSON
// Schema. Production deployments use the callable-functions client instead.
package local

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/veritest-io/veritest-saas/platform/go/authority"
	"github.com/veritest-io/veritest-saas/platform/go/firestoredb"
	"github.com/veritest-io/veritest-saas/platform/go/persistence"
	"github.com/veritest-io/veritest-saas/platform/go/taxonomy"
)

// Authority is the in-process backend authority.
type Authority struct {
	fs      *firestore.Client
	counter *persistence.KeyCounter
	schema  *jsonschema.Schema
	logger  *zap.Logger
}

var _ authority.Authority = (*Authority)(nil)

// New constructs the local authority. The key counter carries the only
// serialization point; everything else is plain Firestore writes.
func New(fs *firestore.Client, counter *persistence.KeyCounter, logger *zap.Logger) (*Authority, error) {
	if fs == nil {
		return nil, fmt.Errorf("local authority: firestore client is required")
	}
	if counter == nil {
		return nil, fmt.Errorf("local authority: key counter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	schema, err := compileRecordSchema()
	if err != nil {
		return nil, fmt.Errorf("local authority: %w", err)
	}

	return &Authority{fs: fs, counter: counter, schema: schema, logger: logger}, nil
}

func (a *Authority) CreateDefectWithUniqueKey(ctx context.Context, organizationID, projectID string, payload authority.DefectPayload) (authority.CreatedDefect, error) {
	if reasons := a.validateRecord(payload); len(reasons) > 0 {
		return authority.CreatedDefect{}, &authority.AuthorityError{
			Function: authority.FnCreateDefect,
			Status:   "INVALID_ARGUMENT",
			Message:  strings.Join(reasons, "; "),
		}
	}

	created, err := a.createDefect(ctx, organizationID, projectID, payload)
	if err != nil {
		return authority.CreatedDefect{}, &authority.AuthorityError{Function: authority.FnCreateDefect, Err: err}
	}
	return created, nil
}

// newDocID mints the document id for locally written defects, comments and
// history entries. The deployed functions use auto-ids; uuids keep local ids
// equally opaque and collision-free.
func newDocID() string {
	return uuid.NewString()
}

// createDefect allocates the key and writes the defect plus its first history
// entry. Shared by create and import commit.
func (a *Authority) createDefect(ctx context.Context, organizationID, projectID string, payload authority.DefectPayload) (authority.CreatedDefect, error) {
	number, err := a.counter.NextNumber(ctx, organizationID, projectID)
	if err != nil {
		return authority.CreatedDefect{}, err
	}
	key := fmt.Sprintf("%s-%d", persistence.KeyPrefix(projectID), number)

	status := payload.Status
	if status == "" {
		status = taxonomy.DefaultStatusID
	}

	now := time.Now().UTC()
	doc := firestoredb.DefectDoc{
		Key:              key,
		Title:            payload.Title,
		Description:      payload.Description,
		Severity:         payload.Severity,
		Priority:         payload.Priority,
		Status:           status,
		OrganizationID:   organizationID,
		ProjectID:        projectID,
		FolderID:         payload.FolderID,
		AssignedTo:       payload.AssignedTo,
		RaisedBy:         payload.RaisedBy,
		Environment:      payload.Environment,
		Browser:          payload.Browser,
		OperatingSystem:  payload.OperatingSystem,
		StepsToReproduce: payload.StepsToReproduce,
		ExpectedBehavior: payload.ExpectedBehavior,
		ActualBehavior:   payload.ActualBehavior,
		CreatedAt:        now,
		UpdatedAt:        now,
		UpdatedBy:        payload.RaisedBy,
	}

	docRef := a.fs.Collection(firestoredb.DefectsPath(organizationID, projectID)).Doc(newDocID())
	if _, err := docRef.Set(ctx, doc); err != nil {
		return authority.CreatedDefect{}, fmt.Errorf("write defect: %w", err)
	}

	a.appendHistory(ctx, organizationID, projectID, docRef.ID, firestoredb.HistoryDoc{
		Field:      "status",
		NewValue:   status,
		ActorID:    payload.RaisedBy,
		OccurredAt: now,
	})

	return authority.CreatedDefect{ID: docRef.ID, Doc: doc}, nil
}

// appendHistory best-effort writes an audit entry. A failed history write is
// logged, not propagated; the defect write already committed.
func (a *Authority) appendHistory(ctx context.Context, organizationID, projectID, defectID string, entry firestoredb.HistoryDoc) {
	ref := a.fs.Collection(firestoredb.HistoryPath(organizationID, projectID, defectID)).Doc(newDocID())
	if _, err := ref.Set(ctx, entry); err != nil {
		a.logger.Warn("append history entry failed",
			zap.String("defect_id", defectID),
			zap.Error(err),
		)
	}
}

func (a *Authority) CreateComment(ctx context.Context, ref authority.CommentRef, payload authority.CommentPayload) (authority.CreatedComment, error) {
	if strings.TrimSpace(payload.Body) == "" {
		return authority.CreatedComment{}, &authority.AuthorityError{
			Function: authority.FnCreateComment,
			Status:   "INVALID_ARGUMENT",
			Message:  "comment body is required",
		}
	}

	doc := firestoredb.CommentDoc{
		Body:      payload.Body,
		AuthorID:  payload.AuthorID,
		CreatedAt: time.Now().UTC(),
	}

	docRef := a.fs.Collection(firestoredb.CommentsPath(ref.OrganizationID, ref.ProjectID, ref.DefectID)).Doc(newDocID())
	if _, err := docRef.Set(ctx, doc); err != nil {
		return authority.CreatedComment{}, &authority.AuthorityError{Function: authority.FnCreateComment, Err: err}
	}

	// The deployed function fans out notifications here; locally we only log.
	a.logger.Debug("comment created, notification fan-out skipped",
		zap.String("defect_id", ref.DefectID),
		zap.String("comment_id", docRef.ID),
	)

	return authority.CreatedComment{ID: docRef.ID, Doc: doc}, nil
}

func (a *Authority) UpdateComment(ctx context.Context, ref authority.CommentRef, commentID, body string) error {
	docRef := a.fs.Doc(firestoredb.CommentsPath(ref.OrganizationID, ref.ProjectID, ref.DefectID) + "/" + commentID)
	now := time.Now().UTC()
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "body", Value: body},
		{Path: "updatedAt", Value: now},
	})
	if err != nil {
		status := ""
		if firestoredb.IsNotFound(err) {
			status = "NOT_FOUND"
		}
		return &authority.AuthorityError{Function: authority.FnUpdateComment, Status: status, Err: err}
	}
	return nil
}

func (a *Authority) DeleteComment(ctx context.Context, ref authority.CommentRef, commentID string) error {
	docRef := a.fs.Doc(firestoredb.CommentsPath(ref.OrganizationID, ref.ProjectID, ref.DefectID) + "/" + commentID)
	if _, err := docRef.Delete(ctx); err != nil {
		return &authority.AuthorityError{Function: authority.FnDeleteComment, Err: err}
	}
	return nil
}

func (a *Authority) InitializeReferenceValues(ctx context.Context, organizationID string) error {
	for _, t := range taxonomy.All {
		col := a.fs.Collection(firestoredb.TenantRefValuesPath(organizationID, string(t)))

		// Existing values win; initialization never overwrites tenant overrides.
		iter := col.Limit(1).Documents(ctx)
		_, err := iter.Next()
		iter.Stop()
		if err == nil {
			continue
		}
		if err != iterator.Done {
			return &authority.AuthorityError{Function: authority.FnInitRefValues, Err: err}
		}

		for _, seed := range taxonomy.Defaults(t) {
			// Stable ids make a racing second initialization converge on the
			// same documents instead of duplicating values.
			if _, err := col.Doc(seed.ID).Set(ctx, firestoredb.RefValueDoc{Label: seed.Label, Order: seed.Order}); err != nil {
				return &authority.AuthorityError{Function: authority.FnInitRefValues, Err: err}
			}
		}
	}
	return nil
}

// SeedGlobalDefaults writes the process-wide taxonomy seed data. Used by the
// admin CLI against fresh environments; idempotent.
func (a *Authority) SeedGlobalDefaults(ctx context.Context) error {
	for _, t := range taxonomy.All {
		col := a.fs.Collection(firestoredb.GlobalRefValuesPath(string(t)))
		for _, seed := range taxonomy.Defaults(t) {
			if _, err := col.Doc(seed.ID).Set(ctx, firestoredb.RefValueDoc{Label: seed.Label, Order: seed.Order}); err != nil {
				return fmt.Errorf("seed %s/%s: %w", t, seed.ID, err)
			}
		}
	}
	return nil
}
