package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domainrepo "github.com/veritest-io/veritest-saas/domains/defects/be/repo"
	"github.com/veritest-io/veritest-saas/domains/defects/be/service"
	"github.com/veritest-io/veritest-saas/platform/go/authority"
	"github.com/veritest-io/veritest-saas/platform/go/logging"
	"github.com/veritest-io/veritest-saas/platform/go/tenant"
)

// Handler wires the defects service to the HTTP surface.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("defects service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

// Routes returns the defect routes, mounted under /organizations/{organizationID}.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/defects", h.listByOrganization)
	r.Route("/projects/{projectID}/defects", func(r chi.Router) {
		r.Get("/", h.listByProject)
		r.Post("/", h.create)
		r.Route("/{defectID}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Patch("/", h.update)
			r.Delete("/", h.softDelete)
			r.Post("/move", h.move)
		})
	})
	return r
}

type defectResponse struct {
	ID               string     `json:"id"`
	Key              string     `json:"key"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Severity         string     `json:"severity"`
	Priority         string     `json:"priority"`
	Status           string     `json:"status"`
	OrganizationID   string     `json:"organizationId"`
	ProjectID        string     `json:"projectId"`
	FolderID         *string    `json:"folderId"`
	AssignedTo       string     `json:"assignedTo,omitempty"`
	RaisedBy         string     `json:"raisedBy,omitempty"`
	Environment      string     `json:"environment,omitempty"`
	Browser          string     `json:"browser,omitempty"`
	OperatingSystem  string     `json:"operatingSystem,omitempty"`
	StepsToReproduce string     `json:"stepsToReproduce,omitempty"`
	ExpectedBehavior string     `json:"expectedBehavior,omitempty"`
	ActualBehavior   string     `json:"actualBehavior,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	UpdatedBy        string     `json:"updatedBy,omitempty"`
	ArchivedAt       *time.Time `json:"archivedAt,omitempty"`
}

type pageResponse struct {
	Items      []defectResponse `json:"items"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

type createRequest struct {
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

type updateRequest struct {
	Title            *string `json:"title"`
	Description      *string `json:"description"`
	Severity         *string `json:"severity"`
	Priority         *string `json:"priority"`
	Status           *string `json:"status"`
	AssignedTo       *string `json:"assignedTo"`
	Environment      *string `json:"environment"`
	Browser          *string `json:"browser"`
	OperatingSystem  *string `json:"operatingSystem"`
	StepsToReproduce *string `json:"stepsToReproduce"`
	ExpectedBehavior *string `json:"expectedBehavior"`
	ActualBehavior   *string `json:"actualBehavior"`
}

type moveRequest struct {
	FolderID *string `json:"folderId"`
}

func (h *Handler) listByOrganization(w http.ResponseWriter, r *http.Request) {
	organizationID, ok := h.scope(w, r)
	if !ok {
		return
	}

	page, err := h.svc.ListByOrganization(r.Context(), organizationID, listOptions(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, toPageResponse(page))
}

func (h *Handler) listByProject(w http.ResponseWriter, r *http.Request) {
	organizationID, ok := h.scope(w, r)
	if !ok {
		return
	}

	page, err := h.svc.ListByProject(r.Context(), organizationID, chi.URLParam(r, "projectID"), listOptions(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, toPageResponse(page))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	organizationID, ok := h.scope(w, r)
	if !ok {
		return
	}

	defect, err := h.svc.Get(r.Context(), organizationID, chi.URLParam(r, "projectID"), chi.URLParam(r, "defectID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, toDefectResponse(defect))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	organizationID, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeProblem(w, r, http.StatusBadRequest, problemTypeValidation, "invalid request body")
		return
	}

	defect, err := h.svc.Create(r.Context(), organizationID, chi.URLParam(r, "projectID"), service.CreateInput{
		Title:            req.Title,
		Description:      req.Description,
		Severity:         req.Severity,
		Priority:         req.Priority,
		Status:           req.Status,
		FolderID:         req.FolderID,
		AssignedTo:       req.AssignedTo,
		RaisedBy:         req.RaisedBy,
		Environment:      req.Environment,
		Browser:          req.Browser,
		OperatingSystem:  req.OperatingSystem,
		StepsToReproduce: req.StepsToReproduce,
		ExpectedBehavior: req.ExpectedBehavior,
		ActualBehavior:   req.ActualBehavior,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, toDefectResponse(defect))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	organizationID, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeProblem(w, r, http.StatusBadRequest, problemTypeValidation, "invalid request body")
		return
	}

	defect, err := h.svc.Update(r.Context(), organizationID, chi.URLParam(r, "projectID"), chi.URLParam(r, "defectID"), service.UpdatePatch{
		Title:            req.Title,
		Description:      req.Description,
		Severity:         req.Severity,
		Priority:         req.Priority,
		Status:           req.Status,
		AssignedTo:       req.AssignedTo,
		Environment:      req.Environment,
		Browser:          req.Browser,
		OperatingSystem:  req.OperatingSystem,
		StepsToReproduce: req.StepsToReproduce,
		ExpectedBehavior: req.ExpectedBehavior,
		ActualBehavior:   req.ActualBehavior,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, toDefectResponse(defect))
}

func (h *Handler) softDelete(w http.ResponseWriter, r *http.Request) {
	organizationID, ok := h.scope(w, r)
	if !ok {
		return
	}

	err := h.svc.SoftDelete(r.Context(), organizationID, chi.URLParam(r, "projectID"), chi.URLParam(r, "defectID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request) {
	organizationID, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeProblem(w, r, http.StatusBadRequest, problemTypeValidation, "invalid request body")
		return
	}

	defect, err := h.svc.Move(r.Context(), organizationID, chi.URLParam(r, "projectID"), chi.URLParam(r, "defectID"), req.FolderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, toDefectResponse(defect))
}

// scope resolves the organization from the URL and cross-checks it against
// the authenticated tenant space when one is present.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (string, bool) {
	organizationID := chi.URLParam(r, "organizationID")
	if space, ok := tenant.FromContext(r.Context()); ok && space.Valid() && space.OrganizationID != organizationID {
		h.writeProblem(w, r, http.StatusForbidden, problemTypeForbidden, "organization scope mismatch")
		return "", false
	}
	return organizationID, true
}

func listOptions(r *http.Request) service.ListOptions {
	q := r.URL.Query()

	pageSize := 0
	if raw := q.Get("pageSize"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			pageSize = parsed
		}
	}

	return service.ListOptions{
		Filter: domainrepo.Filter{
			FolderID:   q.Get("folderId"),
			Status:     q.Get("status"),
			Severity:   q.Get("severity"),
			Priority:   q.Get("priority"),
			AssignedTo: q.Get("assignedTo"),
		},
		OrderBy:   q.Get("orderBy"),
		Ascending: q.Get("order") == "asc",
		PageSize:  pageSize,
		Cursor:    q.Get("cursor"),
	}
}

func toPageResponse(page service.Page) pageResponse {
	items := make([]defectResponse, 0, len(page.Items))
	for _, defect := range page.Items {
		items = append(items, toDefectResponse(defect))
	}
	return pageResponse{Items: items, NextCursor: page.NextCursor}
}

func toDefectResponse(d service.Defect) defectResponse {
	return defectResponse{
		ID:               d.ID,
		Key:              d.Key,
		Title:            d.Title,
		Description:      d.Description,
		Severity:         d.Severity,
		Priority:         d.Priority,
		Status:           d.Status,
		OrganizationID:   d.OrganizationID,
		ProjectID:        d.ProjectID,
		FolderID:         d.FolderID,
		AssignedTo:       d.AssignedTo,
		RaisedBy:         d.RaisedBy,
		Environment:      d.Environment,
		Browser:          d.Browser,
		OperatingSystem:  d.OperatingSystem,
		StepsToReproduce: d.StepsToReproduce,
		ExpectedBehavior: d.ExpectedBehavior,
		ActualBehavior:   d.ActualBehavior,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		UpdatedBy:        d.UpdatedBy,
		ArchivedAt:       d.ArchivedAt,
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *service.ValidationError
	var authErr *authority.AuthorityError
	switch {
	case errors.As(err, &valErr):
		h.writeProblem(w, r, http.StatusBadRequest, problemTypeValidation, valErr.Reason)
	case errors.Is(err, service.ErrDefectNotFound):
		h.writeProblem(w, r, http.StatusNotFound, problemTypeNotFound, "defect not found")
	case errors.As(err, &authErr):
		logging.FromRequest(r, h.logger).Error("backend authority call failed", zap.Error(err))
		h.writeProblem(w, r, http.StatusBadGateway, problemTypeAuthority, "backend authority call failed")
	default:
		logging.FromRequest(r, h.logger).Error("defects request failed", zap.Error(err))
		h.writeProblem(w, r, http.StatusInternalServerError, problemTypeInternal, "internal error")
	}
}
