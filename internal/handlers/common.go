package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/asyncanticheat/ingest-api/internal/auth"
)

// Health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// requireIngestAuth checks the static plugin/operator token in constant
// time. An empty configured token rejects everything rather than allowing
// everything.
func (h *Handler) requireIngestAuth(r *http.Request) bool {
	token, ok := auth.ParseBearerToken(r)
	return ok && h.ingestToken != "" && auth.ConstantTimeEqual(token, h.ingestToken)
}

// requireCallbackAuth checks the static module-to-API token in constant time.
func (h *Handler) requireCallbackAuth(r *http.Request) bool {
	token, ok := auth.ParseBearerToken(r)
	return ok && h.moduleCallbackToken != "" && auth.ConstantTimeEqual(token, h.moduleCallbackToken)
}

// RequireDashboard protects dashboard endpoints with a static bearer token.
// When no token is configured the middleware is a no-op, which keeps local
// development friction-free.
func (h *Handler) RequireDashboard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.dashboardToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := auth.ParseBearerToken(r)
		if !ok || !auth.ConstantTimeEqual(token, h.dashboardToken) {
			h.errorResponse(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}

// headerValue returns the trimmed header value, or nil when empty.
func headerValue(r *http.Request, name string) *string {
	v := strings.TrimSpace(r.Header.Get(name))
	if v == "" {
		return nil
	}
	return &v
}
