package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/asyncanticheat/ingest-api/internal/logic"
	"github.com/asyncanticheat/ingest-api/internal/models"
	"github.com/asyncanticheat/ingest-api/internal/webhooks"
)

// PostFindings handles POST /callbacks/findings: analysis modules reporting
// detections for an earlier batch. Findings are aggregated into minute
// buckets; buckets that pass the server's webhook filter are pushed out in
// the background.
func (h *Handler) PostFindings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.requireCallbackAuth(r) {
		h.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.PostFindingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	inserted, groups, err := h.findings.StoreFindings(ctx, &req)
	if err != nil {
		h.logger.Errorw("failed to store findings", "server_id", req.ServerID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}

	if inserted > 0 {
		h.notifyFindings(r, req.ServerID, groups)
	}

	h.jsonResponse(w, http.StatusOK, models.PostFindingsResponse{
		OK:       true,
		Inserted: inserted,
	})
}

// notifyFindings pushes webhook notifications for the stored groups that
// pass the server's severity filter. Failures never affect the callback.
func (h *Handler) notifyFindings(r *http.Request, serverID string, groups []logic.FindingGroup) {
	ctx := r.Context()

	settings, err := h.findings.GetWebhookSettings(ctx, serverID)
	if err != nil {
		h.logger.Warnw("webhook settings lookup failed", "server_id", serverID, "error", err)
		return
	}

	var notifications []webhooks.FindingNotification
	for i := range groups {
		g := groups[i]
		if !webhooks.ShouldNotify(settings, g.Severity) {
			continue
		}
		playerUUID := g.PlayerUUID
		notifications = append(notifications, webhooks.FindingNotification{
			ServerID:     serverID,
			PlayerUUID:   &playerUUID,
			DetectorName: g.DetectorName,
			Severity:     g.Severity,
			Title:        g.Title,
			Description:  g.Description,
			Occurrences:  g.Occurrences,
		})
	}
	if len(notifications) == 0 {
		return
	}

	serverName, err := h.findings.ServerName(ctx, serverID)
	if err != nil {
		h.logger.Debugw("server name lookup failed", "server_id", serverID, "error", err)
	}
	h.notifier.SendAll(*settings.URL, notifications, serverName)
}

// GetPlayerState handles GET /callbacks/player-state. The request carries a
// JSON body even on GET; modules drive this endpoint, not browsers.
func (h *Handler) GetPlayerState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.requireCallbackAuth(r) {
		h.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.GetPlayerStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	state, updatedAt, err := h.playerState.Get(ctx, req.ServerID, req.PlayerUUID, req.ModuleName)
	if err != nil {
		h.logger.Errorw("get player state failed", "server_id", req.ServerID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := models.PlayerStateResponse{OK: true, State: state}
	if updatedAt != nil {
		ts := updatedAt.Format(time.RFC3339Nano)
		resp.UpdatedAt = &ts
	}
	h.jsonResponse(w, http.StatusOK, resp)
}

// SetPlayerState handles POST /callbacks/player-state.
func (h *Handler) SetPlayerState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.requireCallbackAuth(r) {
		h.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.SetPlayerStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	if err := h.playerState.Set(ctx, req.ServerID, req.PlayerUUID, req.ModuleName, req.State); err != nil {
		h.logger.Errorw("set player state failed", "server_id", req.ServerID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.jsonResponse(w, http.StatusOK, models.SetPlayerStateResponse{OK: true})
}

// BatchGetPlayerStates handles POST /callbacks/player-states/batch-get.
func (h *Handler) BatchGetPlayerStates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.requireCallbackAuth(r) {
		h.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.BatchGetPlayerStatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	states := []models.BatchPlayerState{}
	if len(req.PlayerUUIDs) > 0 {
		var err error
		states, err = h.playerState.BatchGet(ctx, req.ServerID, req.PlayerUUIDs, req.ModuleName)
		if err != nil {
			h.logger.Errorw("batch get player states failed", "server_id", req.ServerID, "error", err)
			h.errorResponse(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	h.jsonResponse(w, http.StatusOK, models.BatchGetPlayerStatesResponse{
		OK:     true,
		States: states,
	})
}

// BatchSetPlayerStates handles POST /callbacks/player-states/batch-set.
func (h *Handler) BatchSetPlayerStates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.requireCallbackAuth(r) {
		h.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.BatchSetPlayerStatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	updated := 0
	if len(req.States) > 0 {
		var err error
		updated, err = h.playerState.BatchSet(ctx, req.ServerID, req.ModuleName, req.States)
		if err != nil {
			h.logger.Errorw("batch set player states failed", "server_id", req.ServerID, "error", err)
			h.errorResponse(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	h.jsonResponse(w, http.StatusOK, models.BatchSetPlayerStatesResponse{
		OK:      true,
		Updated: updated,
	})
}
