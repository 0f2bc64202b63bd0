package pipeline

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/asyncanticheat/ingest-api/internal/logic"
)

// healthProbeConcurrency bounds parallel probes across all servers.
const healthProbeConcurrency = 8

// HealthChecker periodically probes every enabled module's /health endpoint
// and updates the health bookkeeping the dispatcher's skip rule reads.
type HealthChecker struct {
	modules logic.ModuleService
	httpc   *http.Client
	logger  *zap.SugaredLogger
}

func NewHealthChecker(modules logic.ModuleService, httpc *http.Client, logger *zap.SugaredLogger) *HealthChecker {
	return &HealthChecker{modules: modules, httpc: httpc, logger: logger}
}

// Tick probes every enabled module once. A single successful probe fully
// restores a module (zero failures, no error).
func (h *HealthChecker) Tick(ctx context.Context) {
	modules, err := h.modules.AllEnabled(ctx)
	if err != nil {
		h.logger.Warnw("health loop module query failed", "error", err)
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(healthProbeConcurrency)
	for i := range modules {
		m := modules[i]
		g.Go(func() error {
			healthURL := strings.TrimRight(m.BaseURL, "/") + "/health"

			ok := false
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
			if err == nil {
				if resp, err := h.httpc.Do(req); err == nil {
					ok = resp.StatusCode >= 200 && resp.StatusCode < 300
					resp.Body.Close()
				}
			}

			if ok {
				if err := h.modules.MarkHealthOK(ctx, m.ID); err != nil {
					h.logger.Warnw("mark module ok failed", "module", m.Name, "error", err)
				}
			} else {
				healthchecksFailed.Inc()
				if err := h.modules.MarkHealthFailure(ctx, m.ID, "healthcheck failed"); err != nil {
					h.logger.Warnw("mark module failure failed", "module", m.Name, "error", err)
				}
			}
			return nil
		})
	}
	g.Wait()
}

// Run ticks at the given interval until the context is canceled.
func (h *HealthChecker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Tick(ctx)
		}
	}
}
