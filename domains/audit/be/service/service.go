package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/veritest-io/veritest-saas/domains/audit/be/repo"
	"github.com/veritest-io/veritest-saas/platform/go/authority"
	"github.com/veritest-io/veritest-saas/platform/go/requesttrace"
)

// ValidationError signals a caller mistake detected before any network call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error"
}

// ErrCommentNotFound reports that the addressed comment does not exist.
var ErrCommentNotFound = errors.New("comment not found")

// Comment is a defect comment ready to present to a client.
type Comment struct {
	ID        string
	Body      string
	AuthorID  string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// HistoryEntry is one immutable audit record of a defect transition.
type HistoryEntry struct {
	ID         string
	Field      string
	OldValue   string
	NewValue   string
	ActorID    string
	OccurredAt time.Time
}

// Ref addresses one defect's audit trail.
type Ref struct {
	OrganizationID string
	ProjectID      string
	DefectID       string
}

// Service exposes a defect's audit trail. Reads go straight to the store;
// comment mutations are delegated to the backend authority so notification
// fan-out stays server-side.
type Service interface {
	ListComments(ctx context.Context, ref Ref) ([]Comment, error)
	CreateComment(ctx context.Context, ref Ref, body string) (Comment, error)
	UpdateComment(ctx context.Context, ref Ref, commentID, body string) error
	DeleteComment(ctx context.Context, ref Ref, commentID string) error
	ListHistory(ctx context.Context, ref Ref) ([]HistoryEntry, error)
}

type service struct {
	repo      repo.Repository
	authority authority.Authority
	logger    *zap.Logger
}

// New wires the audit trail service.
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

func (s *service) ListComments(ctx context.Context, ref Ref) ([]Comment, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}

	stored, err := s.repo.ListComments(ctx, ref.OrganizationID, ref.ProjectID, ref.DefectID)
	if err != nil {
		return nil, err
	}

	comments := make([]Comment, 0, len(stored))
	for _, c := range stored {
		comments = append(comments, Comment(c))
	}
	return comments, nil
}

func (s *service) CreateComment(ctx context.Context, ref Ref, body string) (Comment, error) {
	if err := validateRef(ref); err != nil {
		return Comment{}, err
	}
	if strings.TrimSpace(body) == "" {
		return Comment{}, &ValidationError{Reason: "comment body is required"}
	}

	audit := requesttrace.FromContextOrAnonymous(ctx)
	authorID := ""
	if audit.UserID != nil {
		authorID = *audit.UserID
	}

	created, err := s.authority.CreateComment(ctx, authority.CommentRef(ref), authority.CommentPayload{
		Body:     body,
		AuthorID: authorID,
	})
	if err != nil {
		return Comment{}, translateError(err)
	}

	return Comment{
		ID:        created.ID,
		Body:      created.Doc.Body,
		AuthorID:  created.Doc.AuthorID,
		CreatedAt: created.Doc.CreatedAt,
		UpdatedAt: created.Doc.UpdatedAt,
	}, nil
}

func (s *service) UpdateComment(ctx context.Context, ref Ref, commentID, body string) error {
	if err := validateRef(ref); err != nil {
		return err
	}
	if commentID == "" {
		return &ValidationError{Reason: "comment id is required"}
	}
	if strings.TrimSpace(body) == "" {
		return &ValidationError{Reason: "comment body is required"}
	}

	return translateError(s.authority.UpdateComment(ctx, authority.CommentRef(ref), commentID, body))
}

func (s *service) DeleteComment(ctx context.Context, ref Ref, commentID string) error {
	if err := validateRef(ref); err != nil {
		return err
	}
	if commentID == "" {
		return &ValidationError{Reason: "comment id is required"}
	}

	return translateError(s.authority.DeleteComment(ctx, authority.CommentRef(ref), commentID))
}

func (s *service) ListHistory(ctx context.Context, ref Ref) ([]HistoryEntry, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}

	stored, err := s.repo.ListHistory(ctx, ref.OrganizationID, ref.ProjectID, ref.DefectID)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(stored))
	for _, e := range stored {
		entries = append(entries, HistoryEntry(e))
	}
	return entries, nil
}

func validateRef(ref Ref) error {
	switch {
	case ref.OrganizationID == "":
		return &ValidationError{Reason: "organization id is required"}
	case ref.ProjectID == "":
		return &ValidationError{Reason: "project id is required"}
	case ref.DefectID == "":
		return &ValidationError{Reason: "defect id is required"}
	}
	return nil
}

func translateError(err error) error {
	var authErr *authority.AuthorityError
	if errors.As(err, &authErr) && authErr.Status == "NOT_FOUND" {
		return ErrCommentNotFound
	}
	return err
}
