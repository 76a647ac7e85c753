package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/veritest-io/veritest-saas/domains/transfer/be/service"
	"github.com/veritest-io/veritest-saas/platform/go/authority"
	"github.com/veritest-io/veritest-saas/platform/go/logging"
	"github.com/veritest-io/veritest-saas/platform/go/problems"
	"github.com/veritest-io/veritest-saas/platform/go/tenant"
)

const (
	problemTypeValidation = "https://veritest.io/problems/validation-error"
	problemTypeForbidden  = "https://veritest.io/problems/forbidden"
	problemTypeAuthority  = "https://veritest.io/problems/authority-error"
	problemTypeInternal   = "https://veritest.io/problems/internal-error"
)

// Handler exposes the bulk transfer gateway over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("transfer service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

// Routes returns the transfer routes, mounted under
// /organizations/{organizationID}.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/defects/export", h.export)
	r.Get("/projects/{projectID}/defects/export", h.export)
	r.Post("/projects/{projectID}/defects/import", h.importDefects)
	return r
}

type importRequest struct {
	DryRun  bool                      `json:"dryRun"`
	Records []authority.DefectPayload `json:"records"`
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	organizationID, ok := h.scope(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	input := service.ExportInput{
		Filter: authority.Filter{
			FolderID:   q.Get("folderId"),
			Status:     q.Get("status"),
			Severity:   q.Get("severity"),
			Priority:   q.Get("priority"),
			AssignedTo: q.Get("assignedTo"),
		},
		Format: q.Get("format"),
	}
	if input.Format == "" {
		input.Format = service.FormatJSON
	}
	if projectID := chi.URLParam(r, "projectID"); projectID != "" {
		input.ProjectID = &projectID
	}

	doc, err := h.svc.Export(r.Context(), organizationID, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Content)
}

func (h *Handler) importDefects(w http.ResponseWriter, r *http.Request) {
	organizationID, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problems.Write(w, r, http.StatusBadRequest, problemTypeValidation, "invalid request body")
		return
	}

	report, err := h.svc.Import(r.Context(), organizationID, chi.URLParam(r, "projectID"), req.Records, req.DryRun)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	problems.WriteJSON(w, http.StatusOK, report)
}

// scope resolves the organization from the URL and cross-checks it against
// the authenticated tenant space when one is present.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (string, bool) {
	organizationID := chi.URLParam(r, "organizationID")
	if space, ok := tenant.FromContext(r.Context()); ok && space.Valid() && space.OrganizationID != organizationID {
		problems.Write(w, r, http.StatusForbidden, problemTypeForbidden, "organization scope mismatch")
		return "", false
	}
	return organizationID, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *service.ValidationError
	var authErr *authority.AuthorityError
	switch {
	case errors.As(err, &valErr):
		problems.Write(w, r, http.StatusBadRequest, problemTypeValidation, valErr.Reason)
	case errors.As(err, &authErr):
		logging.FromRequest(r, h.logger).Error("backend authority call failed", zap.Error(err))
		problems.Write(w, r, http.StatusBadGateway, problemTypeAuthority, "backend authority call failed")
	default:
		logging.FromRequest(r, h.logger).Error("transfer request failed", zap.Error(err))
		problems.Write(w, r, http.StatusInternalServerError, problemTypeInternal, "internal error")
	}
}
