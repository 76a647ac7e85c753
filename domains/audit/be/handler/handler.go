package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/veritest-io/veritest-saas/domains/audit/be/service"
	"github.com/veritest-io/veritest-saas/platform/go/authority"
	"github.com/veritest-io/veritest-saas/platform/go/logging"
	"github.com/veritest-io/veritest-saas/platform/go/problems"
	"github.com/veritest-io/veritest-saas/platform/go/tenant"
)

const (
	problemTypeValidation = "https://veritest.io/problems/validation-error"
	problemTypeNotFound   = "https://veritest.io/problems/not-found"
	problemTypeForbidden  = "https://veritest.io/problems/forbidden"
	problemTypeAuthority  = "https://veritest.io/problems/authority-error"
	problemTypeInternal   = "https://veritest.io/problems/internal-error"
)

// Handler exposes a defect's comments and history over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("audit service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

// Routes returns the audit trail routes, mounted under
// /organizations/{organizationID}.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/projects/{projectID}/defects/{defectID}", func(r chi.Router) {
		r.Get("/comments", h.listComments)
		r.Post("/comments", h.createComment)
		r.Patch("/comments/{commentID}", h.updateComment)
		r.Delete("/comments/{commentID}", h.deleteComment)
		r.Get("/history", h.listHistory)
	})
	return r
}

type commentResponse struct {
	ID        string     `json:"id"`
	Body      string     `json:"body"`
	AuthorID  string     `json:"authorId"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type commentsResponse struct {
	Items []commentResponse `json:"items"`
}

type historyResponse struct {
	Items []historyEntryResponse `json:"items"`
}

type historyEntryResponse struct {
	ID         string    `json:"id"`
	Field      string    `json:"field"`
	OldValue   string    `json:"oldValue,omitempty"`
	NewValue   string    `json:"newValue,omitempty"`
	ActorID    string    `json:"actorId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type commentRequest struct {
	Body string `json:"body"`
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.scope(w, r)
	if !ok {
		return
	}

	comments, err := h.svc.ListComments(r.Context(), ref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := commentsResponse{Items: make([]commentResponse, 0, len(comments))}
	for _, c := range comments {
		resp.Items = append(resp.Items, toCommentResponse(c))
	}
	problems.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) createComment(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problems.Write(w, r, http.StatusBadRequest, problemTypeValidation, "invalid request body")
		return
	}

	comment, err := h.svc.CreateComment(r.Context(), ref, req.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	problems.WriteJSON(w, http.StatusCreated, toCommentResponse(comment))
}

func (h *Handler) updateComment(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problems.Write(w, r, http.StatusBadRequest, problemTypeValidation, "invalid request body")
		return
	}

	if err := h.svc.UpdateComment(r.Context(), ref, chi.URLParam(r, "commentID"), req.Body); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.scope(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteComment(r.Context(), ref, chi.URLParam(r, "commentID")); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.scope(w, r)
	if !ok {
		return
	}

	entries, err := h.svc.ListHistory(r.Context(), ref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := historyResponse{Items: make([]historyEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Items = append(resp.Items, historyEntryResponse{
			ID:         e.ID,
			Field:      e.Field,
			OldValue:   e.OldValue,
			NewValue:   e.NewValue,
			ActorID:    e.ActorID,
			OccurredAt: e.OccurredAt,
		})
	}
	problems.WriteJSON(w, http.StatusOK, resp)
}

// scope resolves the audit trail address from the URL and cross-checks the
// organization against the authenticated tenant space when one is present.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (service.Ref, bool) {
	organizationID := chi.URLParam(r, "organizationID")
	if space, ok := tenant.FromContext(r.Context()); ok && space.Valid() && space.OrganizationID != organizationID {
		problems.Write(w, r, http.StatusForbidden, problemTypeForbidden, "organization scope mismatch")
		return service.Ref{}, false
	}
	return service.Ref{
		OrganizationID: organizationID,
		ProjectID:      chi.URLParam(r, "projectID"),
		DefectID:       chi.URLParam(r, "defectID"),
	}, true
}

func toCommentResponse(c service.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		Body:      c.Body,
		AuthorID:  c.AuthorID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *service.ValidationError
	var authErr *authority.AuthorityError
	switch {
	case errors.As(err, &valErr):
		problems.Write(w, r, http.StatusBadRequest, problemTypeValidation, valErr.Reason)
	case errors.Is(err, service.ErrCommentNotFound):
		problems.Write(w, r, http.StatusNotFound, problemTypeNotFound, "comment not found")
	case errors.As(err, &authErr):
		logging.FromRequest(r, h.logger).Error("backend authority call failed", zap.Error(err))
		problems.Write(w, r, http.StatusBadGateway, problemTypeAuthority, "backend authority call failed")
	default:
		logging.FromRequest(r, h.logger).Error("audit trail request failed", zap.Error(err))
		problems.Write(w, r, http.StatusInternalServerError, problemTypeInternal, "internal error")
	}
}
