// Package problems renders RFC 7807 application/problem+json responses.
package problems

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// Problem is the RFC 7807 response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// Write emits a problem response. The request id, when present, is echoed as
// the problem instance for correlation with logs.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, detail string) {
	problem := Problem{
		Type:   problemType,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
	if requestID := middleware.GetReqID(r.Context()); requestID != "" {
		problem.Instance = requestID
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteJSON emits a plain JSON response.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
