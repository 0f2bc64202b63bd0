package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/asyncanticheat/ingest-api/internal/models"
)

// UpsertModule handles POST /servers/{server_id}/modules: register or update
// a module subscription. Guarded by the static ingest token.
func (h *Handler) UpsertModule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.requireIngestAuth(r) {
		h.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	serverID := strings.TrimSpace(chi.URLParam(r, "server_id"))

	var req models.UpsertModuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.errorResponse(w, http.StatusBadRequest, "name is required")
		return
	}
	if strings.TrimSpace(req.BaseURL) == "" {
		h.errorResponse(w, http.StatusBadRequest, "base_url is required")
		return
	}

	module, err := h.modules.Upsert(ctx, serverID, &req)
	if err != nil {
		h.logger.Errorw("upsert module failed", "server_id", serverID, "module", req.Name, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.jsonResponse(w, http.StatusOK, module)
}

// ListModules handles GET /servers/{server_id}/modules.
func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.requireIngestAuth(r) {
		h.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	serverID := strings.TrimSpace(chi.URLParam(r, "server_id"))

	modules, err := h.modules.List(ctx, serverID)
	if err != nil {
		h.logger.Errorw("list modules failed", "server_id", serverID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}
	if modules == nil {
		modules = []models.ServerModule{}
	}

	h.jsonResponse(w, http.StatusOK, modules)
}
