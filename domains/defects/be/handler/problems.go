package handler

import (
	"net/http"

	"github.com/veritest-io/veritest-saas/platform/go/problems"
)

const (
	problemTypeValidation = "https://veritest.io/problems/validation-error"
	problemTypeNotFound   = "https://veritest.io/problems/not-found"
	problemTypeForbidden  = "https://veritest.io/problems/forbidden"
	problemTypeAuthority  = "https://veritest.io/problems/authority-error"
	problemTypeInternal   = "https://veritest.io/problems/internal-error"
)

func (h *Handler) writeProblem(w http.ResponseWriter, r *http.Request, status int, problemType, detail string) {
	problems.Write(w, r, status, problemType, detail)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	problems.WriteJSON(w, status, payload)
}
