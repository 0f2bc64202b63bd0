package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/asyncanticheat/ingest-api/internal/auth"
	"github.com/asyncanticheat/ingest-api/internal/logic"
	"github.com/asyncanticheat/ingest-api/internal/models"
)

// Handshake handles POST /handshake, the plugin's "hello" on startup. It
// enrolls unseen servers as pending and reports registration state without
// accepting any payload.
func (h *Handler) Handshake(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, ok := auth.ParseBearerToken(r)
	if !ok {
		h.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	serverID := strings.TrimSpace(r.Header.Get("X-Server-Id"))
	if serverID == "" {
		h.errorResponse(w, http.StatusBadRequest, "missing X-Server-Id")
		return
	}

	platform := headerValue(r, "X-Server-Platform")
	var callbackURL *string
	if addr := auth.ExtractServerAddress(r); addr != "" {
		callbackURL = &addr
	}

	status, err := h.registration.Gate(ctx, serverID, token, platform, callbackURL)
	if err != nil {
		if errors.Is(err, logic.ErrUnauthorized) {
			h.errorResponse(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h.logger.Errorw("handshake failed", "server_id", serverID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}

	code := http.StatusOK
	if status != logic.GateRegistered {
		code = http.StatusConflict
	}
	h.jsonResponse(w, code, models.HandshakeResponse{
		OK:       true,
		Status:   string(status),
		ServerID: serverID,
	})
}

// Heartbeat handles POST /heartbeat, called every 30 seconds by the plugin
// so the dashboard shows liveness even when no batches flow.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	serverID := strings.TrimSpace(r.Header.Get("X-Server-Id"))
	if serverID == "" {
		h.errorResponse(w, http.StatusBadRequest, "X-Server-Id header is required")
		return
	}

	token, ok := auth.ParseBearerToken(r)
	if !ok {
		h.errorResponse(w, http.StatusBadRequest, "Authorization header is required")
		return
	}

	if err := h.registration.Heartbeat(ctx, serverID, token); err != nil {
		if errors.Is(err, logic.ErrUnknownServer) || errors.Is(err, logic.ErrUnauthorized) {
			h.errorResponse(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h.logger.Errorw("heartbeat failed", "server_id", serverID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Debugw("heartbeat received", "server_id", serverID)
	h.jsonResponse(w, http.StatusOK, models.HeartbeatResponse{OK: true})
}
