package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/asyncanticheat/ingest-api/internal/auth"
	"github.com/asyncanticheat/ingest-api/internal/logic"
	"github.com/asyncanticheat/ingest-api/internal/models"
)

// CreateObservation handles POST /observations: in-game staff labeling a
// recorded gameplay range (confirmed cheater, clean player, false positive).
// Authenticated with the per-server token; the server must be registered.
func (h *Handler) CreateObservation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	serverID := strings.TrimSpace(r.Header.Get("X-Server-Id"))
	if serverID == "" {
		h.errorResponse(w, http.StatusBadRequest, "missing X-Server-Id header")
		return
	}

	token, ok := auth.ParseBearerToken(r)
	if !ok {
		h.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var payload models.CreateObservation
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.validator.Struct(&payload); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	if err := h.registration.AuthenticateRegistered(ctx, serverID, token); err != nil {
		switch {
		case errors.Is(err, logic.ErrUnknownServer):
			h.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("server %s not found", serverID))
		case errors.Is(err, logic.ErrUnauthorized):
			h.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		case errors.Is(err, logic.ErrNotRegistered):
			h.errorResponse(w, http.StatusBadRequest, "server not registered - please link it in the dashboard first")
		default:
			h.logger.Errorw("observation server lookup failed", "server_id", serverID, "error", err)
			h.errorResponse(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	payload.ObservationType = strings.ToLower(payload.ObservationType)
	switch payload.ObservationType {
	case "recording", "undetected", "false_positive":
	default:
		h.errorResponse(w, http.StatusBadRequest, fmt.Sprintf(
			"invalid observation_type: %s (must be 'recording', 'undetected', or 'false_positive')",
			payload.ObservationType))
		return
	}

	observationID, err := h.observations.Create(ctx, serverID, &payload)
	if err != nil {
		h.logger.Errorw("failed to insert observation", "server_id", serverID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Infow("observation created",
		"observation_id", observationID,
		"server_id", serverID,
		"observation_type", payload.ObservationType,
		"player_uuid", payload.PlayerUUID,
	)

	h.jsonResponse(w, http.StatusCreated, models.CreateObservationResponse{
		OK:            true,
		ObservationID: observationID,
	})
}
