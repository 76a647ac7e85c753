package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainrepo "github.com/veritest-io/veritest-saas/domains/defects/be/repo"
	"github.com/veritest-io/veritest-saas/platform/go/authority"
	"github.com/veritest-io/veritest-saas/platform/go/firestoredb"
	"github.com/veritest-io/veritest-saas/platform/go/requesttrace"
	"github.com/veritest-io/veritest-saas/platform/go/taxonomy"
)

func TestService_CreateValidationBeforeAnyCall(t *testing.T) {
	t.Parallel()

	repo := &stubRepository{}
	auth := &stubAuthority{}
	svc := New(repo, auth, nil)

	cases := []CreateInput{
		{Description: "d", Severity: "high", Priority: "p1"},
		{Title: "t", Severity: "high", Priority: "p1"},
		{Title: "t", Description: "d", Priority: "p1"},
		{Title: "t", Description: "d", Severity: "high"},
		{Title: "   ", Description: "d", Severity: "high", Priority: "p1"},
	}
	for _, input := range cases {
		_, err := svc.Create(context.Background(), "org-1", "proj-1", input)
		var valErr *ValidationError
		require.ErrorAs(t, err, &valErr)
	}

	require.Zero(t, auth.createCalls, "invalid payloads must not reach the authority")
	require.Zero(t, repo.patchCalls, "invalid payloads must not reach the store")
}

func TestService_CreateDelegatesKeyAllocation(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	auth := &stubAuthority{
		createFn: func(_ context.Context, organizationID, projectID string, payload authority.DefectPayload) (authority.CreatedDefect, error) {
			require.Equal(t, "org-1", organizationID)
			require.Equal(t, "proj-1", projectID)
			require.Equal(t, taxonomy.DefaultStatusID, payload.Status)
			require.Equal(t, "user-7", payload.RaisedBy)
			return authority.CreatedDefect{
				ID: "d-1",
				Doc: firestoredb.DefectDoc{
					Key:            "PROJ1-12",
					Title:          payload.Title,
					Description:    payload.Description,
					Severity:       payload.Severity,
					Priority:       payload.Priority,
					Status:         payload.Status,
					OrganizationID: organizationID,
					ProjectID:      projectID,
					RaisedBy:       payload.RaisedBy,
					CreatedAt:      now,
					UpdatedAt:      now,
				},
			}, nil
		},
	}
	svc := New(&stubRepository{}, auth, nil)

	audit, err := requesttrace.ForUser("user-7", "org-1", "req-1")
	require.NoError(t, err)
	ctx := requesttrace.IntoContext(context.Background(), audit)

	defect, err := svc.Create(ctx, "org-1", "proj-1", CreateInput{
		Title:       "Login fails",
		Description: "<p>click login, nothing happens</p>",
		Severity:    "high",
		Priority:    "p1",
	})
	require.NoError(t, err)
	require.Equal(t, "PROJ1-12", defect.Key)
	require.Equal(t, taxonomy.DefaultStatusID, defect.Status)
	require.Equal(t, "org-1", defect.OrganizationID)
	require.Nil(t, defect.ArchivedAt)
	require.False(t, defect.Archived())
}

func TestService_CreateSurfacesAuthorityError(t *testing.T) {
	t.Parallel()

	authErr := &authority.AuthorityError{Function: authority.FnCreateDefect, Status: "ABORTED"}
	auth := &stubAuthority{
		createFn: func(context.Context, string, string, authority.DefectPayload) (authority.CreatedDefect, error) {
			return authority.CreatedDefect{}, authErr
		},
	}
	svc := New(&stubRepository{}, auth, nil)

	_, err := svc.Create(context.Background(), "org-1", "proj-1", CreateInput{
		Title: "t", Description: "d", Severity: "high", Priority: "p1",
	})
	var got *authority.AuthorityError
	require.ErrorAs(t, err, &got)
	require.Equal(t, authErr, got)
}

func TestService_UpdateStampsAudit(t *testing.T) {
	t.Parallel()

	var gotFields map[string]interface{}
	repo := &stubRepository{
		patchFn: func(_ context.Context, _, _, defectID string, fields map[string]interface{}) (domainrepo.Record, error) {
			require.Equal(t, "d-1", defectID)
			gotFields = fields
			return domainrepo.Record{ID: defectID, Doc: firestoredb.DefectDoc{Title: "patched"}}, nil
		},
	}
	svc := New(repo, &stubAuthority{}, nil)

	audit, err := requesttrace.ForUser("user-3", "org-1", "")
	require.NoError(t, err)
	ctx := requesttrace.IntoContext(context.Background(), audit)

	title := "patched"
	_, err = svc.Update(ctx, "org-1", "proj-1", "d-1", UpdatePatch{Title: &title})
	require.NoError(t, err)

	require.Equal(t, "patched", gotFields["title"])
	require.Equal(t, "user-3", gotFields["updatedBy"])
	require.IsType(t, time.Time{}, gotFields["updatedAt"])
	require.NotContains(t, gotFields, "description")
}

func TestService_UpdateAllowsBlankingTitle(t *testing.T) {
	t.Parallel()

	var gotFields map[string]interface{}
	repo := &stubRepository{
		patchFn: func(_ context.Context, _, _, _ string, fields map[string]interface{}) (domainrepo.Record, error) {
			gotFields = fields
			return domainrepo.Record{}, nil
		},
	}
	svc := New(repo, &stubAuthority{}, nil)

	empty := ""
	_, err := svc.Update(context.Background(), "org-1", "proj-1", "d-1", UpdatePatch{Title: &empty})
	require.NoError(t, err)
	require.Equal(t, "", gotFields["title"])
}

func TestService_UpdateNotFound(t *testing.T) {
	t.Parallel()

	repo := &stubRepository{
		patchFn: func(context.Context, string, string, string, map[string]interface{}) (domainrepo.Record, error) {
			return domainrepo.Record{}, domainrepo.ErrNotFound
		},
	}
	svc := New(repo, &stubAuthority{}, nil)

	_, err := svc.Update(context.Background(), "org-1", "proj-1", "missing", UpdatePatch{})
	require.ErrorIs(t, err, ErrDefectNotFound)
}

func TestService_SoftDeleteTransitionsToArchived(t *testing.T) {
	t.Parallel()

	repo := &stubRepository{
		getFn: func(context.Context, string, string, string) (domainrepo.Record, error) {
			return domainrepo.Record{ID: "d-1", Doc: firestoredb.DefectDoc{Status: "open"}}, nil
		},
		patchFn: func(_ context.Context, _, _, _ string, fields map[string]interface{}) (domainrepo.Record, error) {
			require.Equal(t, taxonomy.ArchivedStatusID, fields["status"])
			require.IsType(t, time.Time{}, fields["archivedAt"])
			require.IsType(t, time.Time{}, fields["updatedAt"])
			return domainrepo.Record{}, nil
		},
	}
	svc := New(repo, &stubAuthority{}, nil)

	require.NoError(t, svc.SoftDelete(context.Background(), "org-1", "proj-1", "d-1"))
	require.Equal(t, 1, repo.patchCalls)
}

func TestService_SoftDeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	archivedAt := time.Now().UTC()
	repo := &stubRepository{
		getFn: func(context.Context, string, string, string) (domainrepo.Record, error) {
			return domainrepo.Record{ID: "d-1", Doc: firestoredb.DefectDoc{
				Status:     taxonomy.ArchivedStatusID,
				ArchivedAt: &archivedAt,
			}}, nil
		},
	}
	svc := New(repo, &stubAuthority{}, nil)

	require.NoError(t, svc.SoftDelete(context.Background(), "org-1", "proj-1", "d-1"))
	require.Zero(t, repo.patchCalls, "second soft delete must not write")
}

func TestService_SoftDeleteNotFound(t *testing.T) {
	t.Parallel()

	repo := &stubRepository{
		getFn: func(context.Context, string, string, string) (domainrepo.Record, error) {
			return domainrepo.Record{}, domainrepo.ErrNotFound
		},
	}
	svc := New(repo, &stubAuthority{}, nil)

	err := svc.SoftDelete(context.Background(), "org-1", "proj-1", "missing")
	require.ErrorIs(t, err, ErrDefectNotFound)
}

func TestService_MoveClearsFolder(t *testing.T) {
	t.Parallel()

	var gotFields map[string]interface{}
	repo := &stubRepository{
		patchFn: func(_ context.Context, _, _, _ string, fields map[string]interface{}) (domainrepo.Record, error) {
			gotFields = fields
			return domainrepo.Record{}, nil
		},
	}
	svc := New(repo, &stubAuthority{}, nil)

	_, err := svc.Move(context.Background(), "org-1", "proj-1", "d-1", nil)
	require.NoError(t, err)

	folder, present := gotFields["folderId"]
	require.True(t, present)
	require.Nil(t, folder)
}

func TestService_ListDefaults(t *testing.T) {
	t.Parallel()

	repo := &stubRepository{
		listByProjectFn: func(_ context.Context, organizationID, projectID string, params domainrepo.ListParams) (domainrepo.ListResult, error) {
			require.Equal(t, "org-1", organizationID)
			require.Equal(t, "proj-1", projectID)
			require.Equal(t, 25, params.PageSize)
			require.Equal(t, "updatedAt", params.OrderField)
			require.True(t, params.Descending)
			return domainrepo.ListResult{}, nil
		},
	}
	svc := New(repo, &stubAuthority{}, nil)

	_, err := svc.ListByProject(context.Background(), "org-1", "proj-1", ListOptions{})
	require.NoError(t, err)
}

func TestService_ListFilterPassthrough(t *testing.T) {
	t.Parallel()

	repo := &stubRepository{
		listByOrgFn: func(_ context.Context, organizationID string, params domainrepo.ListParams) (domainrepo.ListResult, error) {
			require.Equal(t, "org-1", organizationID)
			require.Equal(t, "high", params.Filter.Severity)
			require.Equal(t, "user-2", params.Filter.AssignedTo)
			return domainrepo.ListResult{
				Records: []domainrepo.Record{{ID: "d-1", Doc: firestoredb.DefectDoc{Severity: "high"}}},
			}, nil
		},
	}
	svc := New(repo, &stubAuthority{}, nil)

	page, err := svc.ListByOrganization(context.Background(), "org-1", ListOptions{
		Filter: domainrepo.Filter{Severity: "high", AssignedTo: "user-2"},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "high", page.Items[0].Severity)
	require.Empty(t, page.NextCursor)
}

func TestService_ListRejectsUnknownOrderField(t *testing.T) {
	t.Parallel()

	svc := New(&stubRepository{}, &stubAuthority{}, nil)

	_, err := svc.ListByProject(context.Background(), "org-1", "proj-1", ListOptions{OrderBy: "severity"})
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestService_ListMapsInvalidCursor(t *testing.T) {
	t.Parallel()

	repo := &stubRepository{
		listByProjectFn: func(context.Context, string, string, domainrepo.ListParams) (domainrepo.ListResult, error) {
			return domainrepo.ListResult{}, firestoredb.ErrInvalidCursor
		},
	}
	svc := New(repo, &stubAuthority{}, nil)

	_, err := svc.ListByProject(context.Background(), "org-1", "proj-1", ListOptions{Cursor: "bogus"})
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestService_ListCapsPageSize(t *testing.T) {
	t.Parallel()

	repo := &stubRepository{
		listByProjectFn: func(_ context.Context, _, _ string, params domainrepo.ListParams) (domainrepo.ListResult, error) {
			require.Equal(t, 100, params.PageSize)
			return domainrepo.ListResult{}, nil
		},
	}
	svc := New(repo, &stubAuthority{}, nil)

	_, err := svc.ListByProject(context.Background(), "org-1", "proj-1", ListOptions{PageSize: 5000})
	require.NoError(t, err)
}

func TestService_LifecycleCreateUpdateArchive(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	var stored firestoredb.DefectDoc
	auth := &stubAuthority{
		createFn: func(_ context.Context, organizationID, projectID string, payload authority.DefectPayload) (authority.CreatedDefect, error) {
			stored = firestoredb.DefectDoc{
				Key:            "PROJ1-1",
				Title:          payload.Title,
				Description:    payload.Description,
				Severity:       payload.Severity,
				Priority:       payload.Priority,
				Status:         payload.Status,
				OrganizationID: organizationID,
				ProjectID:      projectID,
				RaisedBy:       payload.RaisedBy,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			return authority.CreatedDefect{ID: "d-1", Doc: stored}, nil
		},
	}
	repo := &stubRepository{
		getFn: func(context.Context, string, string, string) (domainrepo.Record, error) {
			return domainrepo.Record{ID: "d-1", Doc: stored}, nil
		},
		patchFn: func(_ context.Context, _, _, defectID string, fields map[string]interface{}) (domainrepo.Record, error) {
			applyDefectFields(&stored, fields)
			return domainrepo.Record{ID: defectID, Doc: stored}, nil
		},
	}
	svc := New(repo, auth, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "org-1", "proj-1", CreateInput{
		Title:       "Login fails",
		Description: "clicking login does nothing",
		Severity:    "high",
		Priority:    "p1",
	})
	require.NoError(t, err)
	require.Equal(t, "PROJ1-1", created.Key)
	require.Equal(t, taxonomy.DefaultStatusID, created.Status)

	severity := "critical"
	updated, err := svc.Update(ctx, "org-1", "proj-1", "d-1", UpdatePatch{Severity: &severity})
	require.NoError(t, err)
	require.Equal(t, "critical", updated.Severity)
	require.Equal(t, "Login fails", updated.Title, "untouched fields must survive a patch")
	require.False(t, updated.Archived())

	require.NoError(t, svc.SoftDelete(ctx, "org-1", "proj-1", "d-1"))
	require.Equal(t, taxonomy.ArchivedStatusID, stored.Status)
	require.NotNil(t, stored.ArchivedAt)

	patches := repo.patchCalls
	require.NoError(t, svc.SoftDelete(ctx, "org-1", "proj-1", "d-1"))
	require.Equal(t, patches, repo.patchCalls, "archiving an archived defect must not write")
}

func applyDefectFields(doc *firestoredb.DefectDoc, fields map[string]interface{}) {
	for path, v := range fields {
		switch path {
		case "title":
			doc.Title = v.(string)
		case "description":
			doc.Description = v.(string)
		case "severity":
			doc.Severity = v.(string)
		case "priority":
			doc.Priority = v.(string)
		case "status":
			doc.Status = v.(string)
		case "archivedAt":
			at := v.(time.Time)
			doc.ArchivedAt = &at
		case "updatedAt":
			doc.UpdatedAt = v.(time.Time)
		case "updatedBy":
			doc.UpdatedBy = v.(string)
		}
	}
}

type stubRepository struct {
	listByProjectFn func(context.Context, string, string, domainrepo.ListParams) (domainrepo.ListResult, error)
	listByOrgFn     func(context.Context, string, domainrepo.ListParams) (domainrepo.ListResult, error)
	getFn           func(context.Context, string, string, string) (domainrepo.Record, error)
	patchFn         func(context.Context, string, string, string, map[string]interface{}) (domainrepo.Record, error)
	patchCalls      int
}

func (s *stubRepository) ListByProject(ctx context.Context, organizationID, projectID string, params domainrepo.ListParams) (domainrepo.ListResult, error) {
	if s.listByProjectFn == nil {
		return domainrepo.ListResult{}, nil
	}
	return s.listByProjectFn(ctx, organizationID, projectID, params)
}

func (s *stubRepository) ListByOrganization(ctx context.Context, organizationID string, params domainrepo.ListParams) (domainrepo.ListResult, error) {
	if s.listByOrgFn == nil {
		return domainrepo.ListResult{}, nil
	}
	return s.listByOrgFn(ctx, organizationID, params)
}

func (s *stubRepository) Get(ctx context.Context, organizationID, projectID, defectID string) (domainrepo.Record, error) {
	if s.getFn == nil {
		return domainrepo.Record{}, nil
	}
	return s.getFn(ctx, organizationID, projectID, defectID)
}

func (s *stubRepository) Patch(ctx context.Context, organizationID, projectID, defectID string, fields map[string]interface{}) (domainrepo.Record, error) {
	s.patchCalls++
	if s.patchFn == nil {
		return domainrepo.Record{}, nil
	}
	return s.patchFn(ctx, organizationID, projectID, defectID, fields)
}

type stubAuthority struct {
	createFn    func(context.Context, string, string, authority.DefectPayload) (authority.CreatedDefect, error)
	createCalls int
}

func (s *stubAuthority) CreateDefectWithUniqueKey(ctx context.Context, organizationID, projectID string, payload authority.DefectPayload) (authority.CreatedDefect, error) {
	s.createCalls++
	if s.createFn == nil {
		return authority.CreatedDefect{}, nil
	}
	return s.createFn(ctx, organizationID, projectID, payload)
}

func (s *stubAuthority) CreateComment(context.Context, authority.CommentRef, authority.CommentPayload) (authority.CreatedComment, error) {
	return authority.CreatedComment{}, nil
}

func (s *stubAuthority) UpdateComment(context.Context, authority.CommentRef, string, string) error {
	return nil
}

func (s *stubAuthority) DeleteComment(context.Context, authority.CommentRef, string) error {
	return nil
}

func (s *stubAuthority) ExportDefects(context.Context, authority.ExportRequest) (authority.ExportResult, error) {
	return authority.ExportResult{}, nil
}

func (s *stubAuthority) ImportDefects(context.Context, string, string, []authority.DefectPayload, bool) (authority.ImportReport, error) {
	return authority.ImportReport{}, nil
}

func (s *stubAuthority) InitializeReferenceValues(context.Context, string) error {
	return nil
}
