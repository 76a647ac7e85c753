package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/veritest-io/veritest-saas/platform/go/authority"
)

// Export formats accepted by the gateway.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ValidationError signals a caller mistake detected before any network call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error"
}

// ExportInput describes an export request. ProjectID nil means the whole
// organization, read through a collection-group query.
type ExportInput struct {
	ProjectID *string
	Filter    authority.Filter
	Format    string
}

// Document is a produced export, ready to stream to the client.
type Document struct {
	FileName    string
	ContentType string
	Content     []byte
	RecordCount int
}

// Service is the bulk transfer gateway. Both directions are delegated to the
// backend authority, which owns validation and key allocation.
type Service interface {
	Export(ctx context.Context, organizationID string, input ExportInput) (Document, error)
	Import(ctx context.Context, organizationID, projectID string, records []authority.DefectPayload, dryRun bool) (authority.ImportReport, error)
}

type service struct {
	authority authority.Authority
	logger    *zap.Logger
}

// New wires the transfer gateway to the backend authority.
func New(auth authority.Authority, logger *zap.Logger) Service {
	if auth == nil {
		panic("authority is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &service{authority: auth, logger: logger}
}

func (s *service) Export(ctx context.Context, organizationID string, input ExportInput) (Document, error) {
	if organizationID == "" {
		return Document{}, &ValidationError{Reason: "organization id is required"}
	}
	if input.ProjectID != nil && *input.ProjectID == "" {
		return Document{}, &ValidationError{Reason: "project id must not be blank"}
	}
	if input.Format != FormatJSON && input.Format != FormatCSV {
		return Document{}, &ValidationError{Reason: `format must be "json" or "csv"`}
	}

	result, err := s.authority.ExportDefects(ctx, authority.ExportRequest{
		OrganizationID: organizationID,
		ProjectID:      input.ProjectID,
		Filter:         input.Filter,
		Format:         input.Format,
	})
	if err != nil {
		return Document{}, err
	}

	return Document{
		FileName:    result.FileName,
		ContentType: result.ContentType,
		Content:     result.Content,
		RecordCount: result.RecordCount,
	}, nil
}

func (s *service) Import(ctx context.Context, organizationID, projectID string, records []authority.DefectPayload, dryRun bool) (authority.ImportReport, error) {
	if organizationID == "" {
		return authority.ImportReport{}, &ValidationError{Reason: "organization id is required"}
	}
	if projectID == "" {
		return authority.ImportReport{}, &ValidationError{Reason: "project id is required"}
	}
	if len(records) == 0 {
		return authority.ImportReport{}, &ValidationError{Reason: "at least one record is required"}
	}

	return s.authority.ImportDefects(ctx, organizationID, projectID, records, dryRun)
}
