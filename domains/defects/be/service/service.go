package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	domainrepo "github.com/veritest-io/veritest-saas/domains/defects/be/repo"
	"github.com/veritest-io/veritest-saas/platform/go/authority"
	"github.com/veritest-io/veritest-saas/platform/go/firestoredb"
	"github.com/veritest-io/veritest-saas/platform/go/requesttrace"
	"github.com/veritest-io/veritest-saas/platform/go/taxonomy"
)

// ValidationError captures a missing or empty required field. It is raised
// before any network call; a defect with an invalid payload never reaches the
// store or the authority.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error"
}

// Domain-level errors surfaced by the service.
var ErrDefectNotFound = errors.New("defect not found")

// Defect is a defect record as exposed to consumers.
type Defect struct {
	ID               string
	Key              string
	Title            string
	Description      string
	Severity         string
	Priority         string
	Status           string
	OrganizationID   string
	ProjectID        string
	FolderID         *string
	AssignedTo       string
	RaisedBy         string
	Environment      string
	Browser          string
	OperatingSystem  string
	StepsToReproduce string
	ExpectedBehavior string
	ActualBehavior   string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	UpdatedBy        string
	ArchivedAt       *time.Time
}

// Archived reports whether the defect reached the terminal archived state.
// Both visibility in default listings and re-deletability derive from this
// one field, not from separate flags.
func (d Defect) Archived() bool {
	return d.Status == taxonomy.ArchivedStatusID || d.ArchivedAt != nil
}

// CreateInput is the caller-supplied payload for a new defect.
type CreateInput struct {
	Title            string
	Description      string
	Severity         string
	Priority         string
	Status           string
	FolderID         *string
	AssignedTo       string
	RaisedBy         string
	Environment      string
	Browser          string
	OperatingSystem  string
	StepsToReproduce string
	ExpectedBehavior string
	ActualBehavior   string
}

// UpdatePatch is a partial update; nil fields are left untouched. Required
// fields are not re-validated here, so a patch may blank a title — observed
// behavior kept for parity with the deployed system.
type UpdatePatch struct {
	Title            *string
	Description      *string
	Severity         *string
	Priority         *string
	Status           *string
	AssignedTo       *string
	Environment      *string
	Browser          *string
	OperatingSystem  *string
	StepsToReproduce *string
	ExpectedBehavior *string
	ActualBehavior   *string
}

// ListOptions defines filter, ordering and pagination inputs.
type ListOptions struct {
	Filter domainrepo.Filter
	// OrderBy selects the single ordering field; empty means updatedAt.
	OrderBy string
	// Ascending flips the default last-updated-first ordering.
	Ascending bool
	PageSize  int
	Cursor    string
}

// Page is one page of defects plus the continuation token for the next page.
type Page struct {
	Items      []Defect
	NextCursor string
}

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

var orderFields = map[string]string{
	"":          "updatedAt",
	"updatedAt": "updatedAt",
	"createdAt": "createdAt",
}

// Service owns the defect lifecycle and the query surface. It is the only
// writer of defect documents besides the backend authority.
type Service interface {
	ListByProject(ctx context.Context, organizationID, projectID string, opts ListOptions) (Page, error)
	ListByOrganization(ctx context.Context, organizationID string, opts ListOptions) (Page, error)
	Get(ctx context.Context, organizationID, projectID, defectID string) (Defect, error)
	Create(ctx context.Context, organizationID, projectID string, input CreateInput) (Defect, error)
	Update(ctx context.Context, organizationID, projectID, defectID string, patch UpdatePatch) (Defect, error)
	SoftDelete(ctx context.Context, organizationID, projectID, defectID string) error
	Move(ctx context.Context, organizationID, projectID, defectID string, folderID *string) (Defect, error)
}

type service struct {
	repo      domainrepo.Repository
	authority authority.Authority
	logger    *zap.Logger
}

// New constructs a Service instance.
func New(repo domainrepo.Repository, auth authority.Authority, logger *zap.Logger) Service {
	if repo == nil {
		panic("defects repository is required")
	}
	if auth == nil {
		panic("backend authority is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &service{repo: repo, authority: auth, logger: logger}
}

func (s *service) ListByProject(ctx context.Context, organizationID, projectID string, opts ListOptions) (Page, error) {
	if err := requireScope(organizationID, projectID); err != nil {
		return Page{}, err
	}

	params, err := listParams(opts)
	if err != nil {
		return Page{}, err
	}

	result, err := s.repo.ListByProject(ctx, organizationID, projectID, params)
	if err != nil {
		return Page{}, translateError(err)
	}

	return toPage(result), nil
}

func (s *service) ListByOrganization(ctx context.Context, organizationID string, opts ListOptions) (Page, error) {
	if strings.TrimSpace(organizationID) == "" {
		return Page{}, &ValidationError{Reason: "organizationId is required"}
	}

	params, err := listParams(opts)
	if err != nil {
		return Page{}, err
	}

	result, err := s.repo.ListByOrganization(ctx, organizationID, params)
	if err != nil {
		return Page{}, translateError(err)
	}

	return toPage(result), nil
}

func (s *service) Get(ctx context.Context, organizationID, projectID, defectID string) (Defect, error) {
	if err := requireScope(organizationID, projectID); err != nil {
		return Defect{}, err
	}
	if strings.TrimSpace(defectID) == "" {
		return Defect{}, &ValidationError{Reason: "defectId is required"}
	}

	record, err := s.repo.Get(ctx, organizationID, projectID, defectID)
	if err != nil {
		return Defect{}, translateError(err)
	}

	return mapRecord(record), nil
}

func (s *service) Create(ctx context.Context, organizationID, projectID string, input CreateInput) (Defect, error) {
	if err := requireScope(organizationID, projectID); err != nil {
		return Defect{}, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return Defect{}, &ValidationError{Reason: "title is required"}
	}
	if strings.TrimSpace(input.Description) == "" {
		return Defect{}, &ValidationError{Reason: "description is required"}
	}
	if strings.TrimSpace(input.Severity) == "" {
		return Defect{}, &ValidationError{Reason: "severity is required"}
	}
	if strings.TrimSpace(input.Priority) == "" {
		return Defect{}, &ValidationError{Reason: "priority is required"}
	}

	status := input.Status
	if status == "" {
		status = taxonomy.DefaultStatusID
	}

	raisedBy := input.RaisedBy
	if raisedBy == "" {
		raisedBy = actorID(ctx)
	}

	// Key allocation is the authority's job; a concurrent create on the same
	// project is safe only because allocation serializes there.
	created, err := s.authority.CreateDefectWithUniqueKey(ctx, organizationID, projectID, authority.DefectPayload{
		Title:            input.Title,
		Description:      input.Description,
		Severity:         input.Severity,
		Priority:         input.Priority,
		Status:           status,
		FolderID:         input.FolderID,
		AssignedTo:       input.AssignedTo,
		RaisedBy:         raisedBy,
		Environment:      input.Environment,
		Browser:          input.Browser,
		OperatingSystem:  input.OperatingSystem,
		StepsToReproduce: input.StepsToReproduce,
		ExpectedBehavior: input.ExpectedBehavior,
		ActualBehavior:   input.ActualBehavior,
	})
	if err != nil {
		return Defect{}, err
	}

	return mapRecord(domainrepo.Record{ID: created.ID, Doc: created.Doc}), nil
}

func (s *service) Update(ctx context.Context, organizationID, projectID, defectID string, patch UpdatePatch) (Defect, error) {
	if err := requireScope(organizationID, projectID); err != nil {
		return Defect{}, err
	}
	if strings.TrimSpace(defectID) == "" {
		return Defect{}, &ValidationError{Reason: "defectId is required"}
	}

	fields := map[string]interface{}{}
	setIf(fields, "title", patch.Title)
	setIf(fields, "description", patch.Description)
	setIf(fields, "severity", patch.Severity)
	setIf(fields, "priority", patch.Priority)
	setIf(fields, "status", patch.Status)
	setIf(fields, "assignedTo", patch.AssignedTo)
	setIf(fields, "environment", patch.Environment)
	setIf(fields, "browser", patch.Browser)
	setIf(fields, "operatingSystem", patch.OperatingSystem)
	setIf(fields, "stepsToReproduce", patch.StepsToReproduce)
	setIf(fields, "expectedBehavior", patch.ExpectedBehavior)
	setIf(fields, "actualBehavior", patch.ActualBehavior)
	s.stampAudit(ctx, fields)

	record, err := s.repo.Patch(ctx, organizationID, projectID, defectID, fields)
	if err != nil {
		return Defect{}, translateError(err)
	}

	return mapRecord(record), nil
}

func (s *service) SoftDelete(ctx context.Context, organizationID, projectID, defectID string) error {
	if err := requireScope(organizationID, projectID); err != nil {
		return err
	}
	if strings.TrimSpace(defectID) == "" {
		return &ValidationError{Reason: "defectId is required"}
	}

	record, err := s.repo.Get(ctx, organizationID, projectID, defectID)
	if err != nil {
		return translateError(err)
	}

	// Already archived: the transition is terminal and the call idempotent.
	if mapRecord(record).Archived() {
		return nil
	}

	now := time.Now().UTC()
	fields := map[string]interface{}{
		"status":     taxonomy.ArchivedStatusID,
		"archivedAt": now,
	}
	s.stampAudit(ctx, fields)

	if _, err := s.repo.Patch(ctx, organizationID, projectID, defectID, fields); err != nil {
		return translateError(err)
	}
	return nil
}

func (s *service) Move(ctx context.Context, organizationID, projectID, defectID string, folderID *string) (Defect, error) {
	if err := requireScope(organizationID, projectID); err != nil {
		return Defect{}, err
	}
	if strings.TrimSpace(defectID) == "" {
		return Defect{}, &ValidationError{Reason: "defectId is required"}
	}

	// nil folder means "no folder"; folder membership is not checked against
	// a folder collection here.
	fields := map[string]interface{}{
		"folderId": folderID,
	}
	s.stampAudit(ctx, fields)

	record, err := s.repo.Patch(ctx, organizationID, projectID, defectID, fields)
	if err != nil {
		return Defect{}, translateError(err)
	}

	return mapRecord(record), nil
}

// stampAudit overwrites updatedAt/updatedBy on every mutation. Last writer
// wins at the field level; no optimistic concurrency token is carried.
func (s *service) stampAudit(ctx context.Context, fields map[string]interface{}) {
	fields["updatedAt"] = time.Now().UTC()
	if actor := actorID(ctx); actor != "" {
		fields["updatedBy"] = actor
	}
}

func actorID(ctx context.Context) string {
	audit := requesttrace.FromContextOrAnonymous(ctx)
	if audit.UserID != nil {
		return *audit.UserID
	}
	return ""
}

func requireScope(organizationID, projectID string) error {
	if strings.TrimSpace(organizationID) == "" {
		return &ValidationError{Reason: "organizationId is required"}
	}
	if strings.TrimSpace(projectID) == "" {
		return &ValidationError{Reason: "projectId is required"}
	}
	return nil
}

func listParams(opts ListOptions) (domainrepo.ListParams, error) {
	orderField, ok := orderFields[opts.OrderBy]
	if !ok {
		return domainrepo.ListParams{}, &ValidationError{Reason: "unsupported order field"}
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return domainrepo.ListParams{
		Filter:     opts.Filter,
		OrderField: orderField,
		Descending: !opts.Ascending,
		PageSize:   pageSize,
		Cursor:     opts.Cursor,
	}, nil
}

func setIf(fields map[string]interface{}, path string, value *string) {
	if value != nil {
		fields[path] = *value
	}
}

func toPage(result domainrepo.ListResult) Page {
	items := make([]Defect, 0, len(result.Records))
	for _, record := range result.Records {
		items = append(items, mapRecord(record))
	}
	return Page{Items: items, NextCursor: result.NextCursor}
}

func mapRecord(record domainrepo.Record) Defect {
	doc := record.Doc
	return Defect{
		ID:               record.ID,
		Key:              doc.Key,
		Title:            doc.Title,
		Description:      doc.Description,
		Severity:         doc.Severity,
		Priority:         doc.Priority,
		Status:           doc.Status,
		OrganizationID:   doc.OrganizationID,
		ProjectID:        doc.ProjectID,
		FolderID:         doc.FolderID,
		AssignedTo:       doc.AssignedTo,
		RaisedBy:         doc.RaisedBy,
		Environment:      doc.Environment,
		Browser:          doc.Browser,
		OperatingSystem:  doc.OperatingSystem,
		StepsToReproduce: doc.StepsToReproduce,
		ExpectedBehavior: doc.ExpectedBehavior,
		ActualBehavior:   doc.ActualBehavior,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
		UpdatedBy:        doc.UpdatedBy,
		ArchivedAt:       doc.ArchivedAt,
	}
}

func translateError(err error) error {
	switch {
	case errors.Is(err, domainrepo.ErrNotFound):
		return ErrDefectNotFound
	case errors.Is(err, firestoredb.ErrInvalidCursor):
		return &ValidationError{Reason: "invalid pagination cursor"}
	default:
		return err
	}
}
