package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/veritest-io/veritest-saas/domains/refvalues/be/service"
	"github.com/veritest-io/veritest-saas/platform/go/authority"
	"github.com/veritest-io/veritest-saas/platform/go/logging"
	"github.com/veritest-io/veritest-saas/platform/go/problems"
	"github.com/veritest-io/veritest-saas/platform/go/taxonomy"
	"github.com/veritest-io/veritest-saas/platform/go/tenant"
)

const (
	problemTypeValidation = "https://veritest.io/problems/validation-error"
	problemTypeForbidden  = "https://veritest.io/problems/forbidden"
	problemTypeAuthority  = "https://veritest.io/problems/authority-error"
	problemTypeInternal   = "https://veritest.io/problems/internal-error"
)

// Handler wires the reference value resolver to the HTTP surface.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("refvalues service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

// Routes returns the reference value routes, mounted under
// /organizations/{organizationID}.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/ref-values/{taxonomy}", h.resolve)
	r.Post("/ref-values/initialize", h.initialize)
	return r
}

type valueResponse struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type valuesResponse struct {
	Taxonomy string          `json:"taxonomy"`
	Values   []valueResponse `json:"values"`
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	organizationID, ok := h.scope(w, r)
	if !ok {
		return
	}

	t := taxonomy.Type(chi.URLParam(r, "taxonomy"))
	values, err := h.svc.Resolve(r.Context(), organizationID, t)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := valuesResponse{Taxonomy: string(t), Values: make([]valueResponse, 0, len(values))}
	for _, v := range values {
		resp.Values = append(resp.Values, valueResponse{ID: v.ID, Label: v.Label})
	}

	problems.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) initialize(w http.ResponseWriter, r *http.Request) {
	organizationID, ok := h.scope(w, r)
	if !ok {
		return
	}

	if err := h.svc.InitializeDefaults(r.Context(), organizationID); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
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
		logging.FromRequest(r, h.logger).Error("reference value request failed", zap.Error(err))
		problems.Write(w, r, http.StatusInternalServerError, problemTypeInternal, "internal error")
	}
}
