package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/asyncanticheat/ingest-api/internal/logic"
	"github.com/asyncanticheat/ingest-api/internal/models"
)

// GetServers handles GET /dashboard/servers
func (h *Handler) GetServers(w http.ResponseWriter, r *http.Request) {
	servers, err := h.dashboard.Servers(r.Context())
	if err != nil {
		h.logger.Errorw("dashboard servers query failed", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}
	if servers == nil {
		servers = []models.ServerInfo{}
	}
	h.jsonResponse(w, http.StatusOK, models.ServersResponse{OK: true, Servers: servers})
}

// GetBuiltinModules handles GET /dashboard/builtin-modules: the static
// catalog of builtin analysis modules and their checks.
func (h *Handler) GetBuiltinModules(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"modules": logic.BuiltinModulesInfo(),
	})
}

// GetStats handles GET /dashboard/{server_id}/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "server_id")

	stats, err := h.dashboard.Stats(r.Context(), serverID)
	if err != nil {
		h.logger.Errorw("dashboard stats query failed", "server_id", serverID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.jsonResponse(w, http.StatusOK, models.DashboardStatsResponse{OK: true, Stats: *stats})
}

// GetFindings handles GET /dashboard/{server_id}/findings with optional
// severity, limit, and offset query parameters.
func (h *Handler) GetFindings(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "server_id")

	q := r.URL.Query()
	limit := parseInt64(q.Get("limit"), 50)
	offset := parseInt64(q.Get("offset"), 0)
	var severity *string
	if s := strings.TrimSpace(q.Get("severity")); s != "" {
		severity = &s
	}

	findings, total, err := h.dashboard.Findings(r.Context(), serverID, limit, offset, severity)
	if err != nil {
		h.logger.Errorw("dashboard findings query failed", "server_id", serverID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}
	if findings == nil {
		findings = []models.FindingItem{}
	}
	h.jsonResponse(w, http.StatusOK, models.FindingsResponse{OK: true, Findings: findings, Total: total})
}

// GetPlayers handles GET /dashboard/{server_id}/players
func (h *Handler) GetPlayers(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "server_id")

	players, err := h.dashboard.Players(r.Context(), serverID)
	if err != nil {
		h.logger.Errorw("dashboard players query failed", "server_id", serverID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}
	if players == nil {
		players = []models.PlayerItem{}
	}
	h.jsonResponse(w, http.StatusOK, models.PlayersResponse{OK: true, Players: players})
}

// GetModules handles GET /dashboard/{server_id}/modules
func (h *Handler) GetModules(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "server_id")

	modules, err := h.dashboard.Modules(r.Context(), serverID)
	if err != nil {
		h.logger.Errorw("dashboard modules query failed", "server_id", serverID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}
	if modules == nil {
		modules = []models.ModuleItem{}
	}
	h.jsonResponse(w, http.StatusOK, models.ModulesResponse{OK: true, Modules: modules})
}

// GetStatus handles GET /dashboard/{server_id}/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "server_id")

	status, err := h.dashboard.Status(r.Context(), serverID)
	if err != nil {
		h.logger.Errorw("dashboard status query failed", "server_id", serverID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.jsonResponse(w, http.StatusOK, models.StatusResponse{OK: true, Status: *status})
}

type toggleModuleRequest struct {
	Enabled bool `json:"enabled"`
}

// ToggleModule handles POST /dashboard/{server_id}/modules/{module_id}/toggle
func (h *Handler) ToggleModule(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "server_id")

	moduleID, err := uuid.Parse(chi.URLParam(r, "module_id"))
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid module_id")
		return
	}

	var req toggleModuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.modules.Toggle(r.Context(), serverID, moduleID, req.Enabled); err != nil {
		h.logger.Errorw("toggle module failed", "server_id", serverID, "module_id", moduleID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

func parseInt64(s string, fallback int64) int64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}
