package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainrepo "github.com/veritest-io/veritest-saas/domains/audit/be/repo"
	"github.com/veritest-io/veritest-saas/platform/go/authority"
	"github.com/veritest-io/veritest-saas/platform/go/firestoredb"
	"github.com/veritest-io/veritest-saas/platform/go/requesttrace"
)

var testRef = Ref{OrganizationID: "org-1", ProjectID: "proj-1", DefectID: "d-1"}

func TestService_ListCommentsKeepsStoreOrder(t *testing.T) {
	t.Parallel()

	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	repo := &stubRepository{
		listCommentsFn: func(_ context.Context, organizationID, projectID, defectID string) ([]domainrepo.Comment, error) {
			require.Equal(t, "org-1", organizationID)
			require.Equal(t, "proj-1", projectID)
			require.Equal(t, "d-1", defectID)
			return []domainrepo.Comment{
				{ID: "c-1", Body: "first", AuthorID: "user-1", CreatedAt: first},
				{ID: "c-2", Body: "second", AuthorID: "user-2", CreatedAt: second},
			}, nil
		},
	}
	svc := New(repo, &stubAuthority{}, nil)

	comments, err := svc.ListComments(context.Background(), testRef)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	require.Equal(t, "c-1", comments[0].ID)
	require.Equal(t, "c-2", comments[1].ID)
}

func TestService_CreateCommentDelegatesWithActor(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	auth := &stubAuthority{
		createCommentFn: func(_ context.Context, ref authority.CommentRef, payload authority.CommentPayload) (authority.CreatedComment, error) {
			require.Equal(t, authority.CommentRef{OrganizationID: "org-1", ProjectID: "proj-1", DefectID: "d-1"}, ref)
			require.Equal(t, "looks like a regression", payload.Body)
			require.Equal(t, "user-7", payload.AuthorID)
			return authority.CreatedComment{
				ID:  "c-9",
				Doc: firestoredb.CommentDoc{Body: payload.Body, AuthorID: payload.AuthorID, CreatedAt: now},
			}, nil
		},
	}
	svc := New(&stubRepository{}, auth, nil)

	audit, err := requesttrace.ForUser("user-7", "org-1", "req-1")
	require.NoError(t, err)
	ctx := requesttrace.IntoContext(context.Background(), audit)

	comment, err := svc.CreateComment(ctx, testRef, "looks like a regression")
	require.NoError(t, err)
	require.Equal(t, "c-9", comment.ID)
	require.Equal(t, "user-7", comment.AuthorID)
	require.Equal(t, now, comment.CreatedAt)
}

func TestService_CreateCommentRejectsBlankBody(t *testing.T) {
	t.Parallel()

	auth := &stubAuthority{}
	svc := New(&stubRepository{}, auth, nil)

	_, err := svc.CreateComment(context.Background(), testRef, "   ")
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Zero(t, auth.createCalls, "a blank comment must not reach the authority")
}

func TestService_UpdateCommentTranslatesNotFound(t *testing.T) {
	t.Parallel()

	auth := &stubAuthority{
		updateCommentFn: func(_ context.Context, _ authority.CommentRef, commentID, body string) error {
			require.Equal(t, "c-1", commentID)
			require.Equal(t, "edited", body)
			return &authority.AuthorityError{Function: authority.FnUpdateComment, Status: "NOT_FOUND", Message: "no such comment"}
		},
	}
	svc := New(&stubRepository{}, auth, nil)

	err := svc.UpdateComment(context.Background(), testRef, "c-1", "edited")
	require.ErrorIs(t, err, ErrCommentNotFound)
}

func TestService_UpdateCommentPassesAuthorityErrorsThrough(t *testing.T) {
	t.Parallel()

	auth := &stubAuthority{
		updateCommentFn: func(context.Context, authority.CommentRef, string, string) error {
			return &authority.AuthorityError{Function: authority.FnUpdateComment, Status: "UNAVAILABLE", Message: "try later"}
		},
	}
	svc := New(&stubRepository{}, auth, nil)

	err := svc.UpdateComment(context.Background(), testRef, "c-1", "edited")
	var authErr *authority.AuthorityError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, "UNAVAILABLE", authErr.Status)
}

func TestService_DeleteCommentRequiresID(t *testing.T) {
	t.Parallel()

	auth := &stubAuthority{}
	svc := New(&stubRepository{}, auth, nil)

	err := svc.DeleteComment(context.Background(), testRef, "")
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Zero(t, auth.deleteCalls)
}

func TestService_ListHistory(t *testing.T) {
	t.Parallel()

	later := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	repo := &stubRepository{
		listHistoryFn: func(context.Context, string, string, string) ([]domainrepo.HistoryEntry, error) {
			return []domainrepo.HistoryEntry{
				{ID: "h-2", Field: "status", OldValue: "new", NewValue: "archived", ActorID: "user-1", OccurredAt: later},
				{ID: "h-1", Field: "created", OccurredAt: later.Add(-time.Hour)},
			}, nil
		},
	}
	svc := New(repo, &stubAuthority{}, nil)

	entries, err := svc.ListHistory(context.Background(), testRef)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "status", entries[0].Field)
	require.Equal(t, "archived", entries[0].NewValue)
}

func TestService_ValidatesRef(t *testing.T) {
	t.Parallel()

	svc := New(&stubRepository{}, &stubAuthority{}, nil)

	for _, ref := range []Ref{
		{ProjectID: "proj-1", DefectID: "d-1"},
		{OrganizationID: "org-1", DefectID: "d-1"},
		{OrganizationID: "org-1", ProjectID: "proj-1"},
	} {
		_, err := svc.ListComments(context.Background(), ref)
		var valErr *ValidationError
		require.ErrorAs(t, err, &valErr)
	}
}

type stubRepository struct {
	listCommentsFn func(context.Context, string, string, string) ([]domainrepo.Comment, error)
	listHistoryFn  func(context.Context, string, string, string) ([]domainrepo.HistoryEntry, error)
}

func (s *stubRepository) ListComments(ctx context.Context, organizationID, projectID, defectID string) ([]domainrepo.Comment, error) {
	if s.listCommentsFn == nil {
		return nil, nil
	}
	return s.listCommentsFn(ctx, organizationID, projectID, defectID)
}

func (s *stubRepository) ListHistory(ctx context.Context, organizationID, projectID, defectID string) ([]domainrepo.HistoryEntry, error) {
	if s.listHistoryFn == nil {
		return nil, nil
	}
	return s.listHistoryFn(ctx, organizationID, projectID, defectID)
}

type stubAuthority struct {
	createCommentFn func(context.Context, authority.CommentRef, authority.CommentPayload) (authority.CreatedComment, error)
	updateCommentFn func(context.Context, authority.CommentRef, string, string) error
	deleteCommentFn func(context.Context, authority.CommentRef, string) error
	createCalls     int
	deleteCalls     int
}

func (s *stubAuthority) CreateDefectWithUniqueKey(context.Context, string, string, authority.DefectPayload) (authority.CreatedDefect, error) {
	return authority.CreatedDefect{}, nil
}

func (s *stubAuthority) CreateComment(ctx context.Context, ref authority.CommentRef, payload authority.CommentPayload) (authority.CreatedComment, error) {
	s.createCalls++
	if s.createCommentFn == nil {
		return authority.CreatedComment{}, nil
	}
	return s.createCommentFn(ctx, ref, payload)
}

func (s *stubAuthority) UpdateComment(ctx context.Context, ref authority.CommentRef, commentID, body string) error {
	if s.updateCommentFn == nil {
		return nil
	}
	return s.updateCommentFn(ctx, ref, commentID, body)
}

func (s *stubAuthority) DeleteComment(ctx context.Context, ref authority.CommentRef, commentID string) error {
	s.deleteCalls++
	if s.deleteCommentFn == nil {
		return nil
	}
	return s.deleteCommentFn(ctx, ref, commentID)
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
