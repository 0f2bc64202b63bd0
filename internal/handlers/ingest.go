package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/asyncanticheat/ingest-api/internal/auth"
	"github.com/asyncanticheat/ingest-api/internal/logic"
	"github.com/asyncanticheat/ingest-api/internal/models"
	"github.com/asyncanticheat/ingest-api/internal/store"
)

// Ingest handles POST /ingest: a gzipped NDJSON batch of packet records.
//
// Accepted batches are indexed in Postgres first, then uploaded to object
// storage; a batch_index row without a blob is easier to detect and retry
// than an orphaned blob. Player tracking and module fan-out run in the
// background after the response is committed.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	serverID := strings.TrimSpace(r.Header.Get("X-Server-Id"))
	sessionID := strings.TrimSpace(r.Header.Get("X-Session-Id"))
	if serverID == "" || sessionID == "" {
		h.errorResponse(w, http.StatusBadRequest, "missing X-Server-Id or X-Session-Id")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBodyBytes+1))
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()
	if int64(len(body)) > h.maxBodyBytes {
		h.errorResponse(w, http.StatusBadRequest,
			fmt.Sprintf("payload too large: %d bytes (max %d)", len(body), h.maxBodyBytes))
		return
	}

	token, ok := auth.ParseBearerToken(r)
	if !ok {
		h.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	platform := headerValue(r, "X-Server-Platform")
	var callbackURL *string
	if addr := auth.ExtractServerAddress(r); addr != "" {
		callbackURL = &addr
	}

	// Unknown servers are enrolled as pending on first contact; their
	// payloads are rejected until someone links them in the dashboard.
	status, err := h.registration.Gate(ctx, serverID, token, platform, callbackURL)
	if err != nil {
		if errors.Is(err, logic.ErrUnauthorized) {
			h.errorResponse(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h.logger.Errorw("ingest registration gate failed", "server_id", serverID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}
	if status != logic.GateRegistered {
		h.jsonResponse(w, http.StatusConflict, models.WaitingForRegistrationResponse{
			OK:       true,
			Status:   string(logic.GatePending),
			ServerID: serverID,
		})
		return
	}

	batchID := uuid.New()
	payloadBytes := int32(math.MaxInt32)
	if len(body) < math.MaxInt32 {
		payloadBytes = int32(len(body))
	}

	s3Key, err := store.BatchKey(serverID, sessionID, batchID)
	if err != nil {
		h.logger.Warnw("invalid batch key components", "server_id", serverID, "session_id", sessionID)
		h.errorResponse(w, http.StatusBadRequest, "Invalid server_id or session_id: sanitizes to empty string")
		return
	}

	if err := h.batches.RecordBatch(ctx, serverID, sessionID, platform, batchID, s3Key, payloadBytes); err != nil {
		h.logger.Errorw("failed to record batch", "batch_id", batchID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.store.PutBatch(ctx, s3Key, body); err != nil {
		// batch_index row exists without a blob at this point; retried by the plugin
		h.logger.Errorw("object store upload failed", "s3_key", s3Key, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}

	go func() {
		if err := h.players.ExtractAndUpsert(context.Background(), serverID, body); err != nil {
			h.logger.Debugw("server player tracking failed", "server_id", serverID, "error", err)
		}
	}()
	go func() {
		if err := h.dispatcher.DispatchBatch(context.Background(), serverID, sessionID, batchID, s3Key, body); err != nil {
			h.logger.Warnw("module dispatch failed", "batch_id", batchID, "error", err)
		}
	}()

	batchesIngested.Inc()
	ingestBytes.Add(float64(len(body)))

	h.logger.Infow("batch ingested",
		"batch_id", batchID,
		"server_id", serverID,
		"session_id", sessionID,
		"s3_key", s3Key,
		"bytes", payloadBytes,
	)

	h.jsonResponse(w, http.StatusOK, models.IngestResponse{
		OK:      true,
		BatchID: batchID,
		S3Key:   s3Key,
	})
}
