// Package pipeline runs the asynchronous halves of ingestion: fan-out of
// accepted batches to analysis modules, the periodic module health loop, and
// the retention sweeper.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asyncanticheat/ingest-api/internal/logic"
	"github.com/asyncanticheat/ingest-api/internal/transforms"
)

// Dispatcher fans an accepted batch out to every enabled module of the
// originating server, applying each module's stream transform on the way.
type Dispatcher struct {
	modules logic.ModuleService
	httpc   *http.Client
	logger  *zap.SugaredLogger
}

func NewDispatcher(modules logic.ModuleService, httpc *http.Client, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{modules: modules, httpc: httpc, logger: logger}
}

// DispatchBatch delivers one batch to each enabled module sequentially.
// Per-module failures are recorded and do not stop the fan-out; a module
// that is known-down (failed health plus three consecutive failures) is
// skipped until a health probe restores it.
func (d *Dispatcher) DispatchBatch(ctx context.Context, serverID, sessionID string, batchID uuid.UUID, s3Key string, rawGzNDJSON []byte) error {
	serverID = strings.TrimSpace(serverID)
	sessionID = strings.TrimSpace(sessionID)

	modules, err := d.modules.EnabledForServer(ctx, serverID)
	if err != nil {
		return fmt.Errorf("load modules: %w", err)
	}

	for i := range modules {
		m := &modules[i]
		if m.Skipped() {
			dispatchesSkipped.Inc()
			continue
		}

		payload, err := transforms.Apply(m.Transform, rawGzNDJSON)
		if err != nil {
			transformsFailed.Inc()
			msg := fmt.Sprintf("transform '%s' failed: %v", m.Transform, err)
			d.logger.Errorw("module transform failed", "module", m.Name, "error", msg)
			d.recordFailure(ctx, batchID, m.ServerID, m.ID, nil, msg)
			continue
		}

		ingestURL := strings.TrimRight(m.BaseURL, "/") + "/ingest"

		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ingestURL, bytes.NewReader(payload))
		if err != nil {
			msg := fmt.Sprintf("dispatch error: %v", err)
			d.recordFailure(ctx, batchID, m.ServerID, m.ID, nil, msg)
			continue
		}
		// Headers stay consistent with plugin to API ingest.
		req.Header.Set("Content-Type", "application/x-ndjson")
		req.Header.Set("Content-Encoding", "gzip")
		req.Header.Set("X-Server-Id", serverID)
		req.Header.Set("X-Session-Id", sessionID)
		req.Header.Set("X-Batch-Id", batchID.String())
		req.Header.Set("X-S3-Key", s3Key)

		resp, err := d.httpc.Do(req)
		dispatchDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			msg := fmt.Sprintf("dispatch error: %v", err)
			d.recordFailure(ctx, batchID, m.ServerID, m.ID, nil, msg)
			continue
		}
		status := resp.StatusCode
		resp.Body.Close()

		if status >= 200 && status < 300 {
			dispatchesSent.Inc()
			if err := d.modules.RecordDispatch(ctx, batchID, m.ServerID, m.ID, "sent", &status, nil); err != nil {
				d.logger.Warnw("record dispatch failed", "module", m.Name, "error", err)
			}
			if err := d.modules.MarkHealthOK(ctx, m.ID); err != nil {
				d.logger.Warnw("mark module ok failed", "module", m.Name, "error", err)
			}
			continue
		}

		msg := fmt.Sprintf("module returned http %d", status)
		d.recordFailure(ctx, batchID, m.ServerID, m.ID, &status, msg)
	}

	return nil
}

func (d *Dispatcher) recordFailure(ctx context.Context, batchID uuid.UUID, serverID string, moduleID uuid.UUID, httpStatus *int, msg string) {
	dispatchesFailed.Inc()
	if err := d.modules.RecordDispatch(ctx, batchID, serverID, moduleID, "failed", httpStatus, &msg); err != nil {
		d.logger.Warnw("record dispatch failed", "module_id", moduleID, "error", err)
	}
	if err := d.modules.MarkHealthFailure(ctx, moduleID, msg); err != nil {
		d.logger.Warnw("mark module failure failed", "module_id", moduleID, "error", err)
	}
}
