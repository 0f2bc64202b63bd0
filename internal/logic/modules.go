package logic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/asyncanticheat/ingest-api/internal/models"
)

// moduleCacheTTL bounds staleness of the per-server enabled-module cache.
const moduleCacheTTL = 15 * time.Second

type moduleService struct {
	pg    PgPool
	redis RedisClient // nil when no REDIS_URL is configured
}

func NewModuleService(pg PgPool, redis RedisClient) ModuleService {
	return &moduleService{pg: pg, redis: redis}
}

const serverModuleColumns = `
	id,
	server_id,
	name,
	base_url,
	enabled,
	transform,
	last_healthcheck_ok,
	last_error,
	consecutive_failures
`

func scanModules(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]models.ServerModule, error) {
	var modules []models.ServerModule
	for rows.Next() {
		var m models.ServerModule
		if err := rows.Scan(&m.ID, &m.ServerID, &m.Name, &m.BaseURL, &m.Enabled,
			&m.Transform, &m.LastHealthcheckOK, &m.LastError, &m.ConsecutiveFailures); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

func (s *moduleService) Upsert(ctx context.Context, serverID string, req *models.UpsertModuleRequest) (*models.ServerModule, error) {
	serverID = strings.TrimSpace(serverID)

	// Ensure the server exists so FK constraints don't block registration.
	if _, err := s.pg.Exec(ctx, `
		INSERT INTO servers (id, first_seen_at, last_seen_at)
		VALUES ($1, now(), now())
		ON CONFLICT (id) DO UPDATE SET last_seen_at = now()
	`, serverID); err != nil {
		return nil, fmt.Errorf("upsert server for module registration: %w", err)
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	transform := "raw_ndjson_gz"
	if req.Transform != nil {
		transform = *req.Transform
	}

	var m models.ServerModule
	err := s.pg.QueryRow(ctx, `
		INSERT INTO server_modules
			(server_id, name, base_url, enabled, transform, updated_at)
		VALUES
			($1, $2, $3, $4, $5, now())
		ON CONFLICT (server_id, name) DO UPDATE SET
			base_url = EXCLUDED.base_url,
			enabled = EXCLUDED.enabled,
			transform = EXCLUDED.transform,
			updated_at = now()
		RETURNING `+serverModuleColumns,
		serverID, strings.TrimSpace(req.Name), strings.TrimSpace(req.BaseURL), enabled, transform,
	).Scan(&m.ID, &m.ServerID, &m.Name, &m.BaseURL, &m.Enabled,
		&m.Transform, &m.LastHealthcheckOK, &m.LastError, &m.ConsecutiveFailures)
	if err != nil {
		return nil, fmt.Errorf("upsert module: %w", err)
	}

	s.invalidateCache(ctx, serverID)
	return &m, nil
}

func (s *moduleService) List(ctx context.Context, serverID string) ([]models.ServerModule, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT `+serverModuleColumns+`
		FROM server_modules
		WHERE server_id = $1
		ORDER BY name ASC
	`, serverID)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()
	return scanModules(rows)
}

func (s *moduleService) EnabledForServer(ctx context.Context, serverID string) ([]models.ServerModule, error) {
	if cached, ok := s.cacheGet(ctx, serverID); ok {
		return cached, nil
	}

	rows, err := s.pg.Query(ctx, `
		SELECT `+serverModuleColumns+`
		FROM server_modules
		WHERE server_id = $1 AND enabled = true
		ORDER BY name ASC
	`, serverID)
	if err != nil {
		return nil, fmt.Errorf("enabled modules: %w", err)
	}
	defer rows.Close()

	modules, err := scanModules(rows)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, serverID, modules)
	return modules, nil
}

func (s *moduleService) AllEnabled(ctx context.Context) ([]models.ServerModule, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT `+serverModuleColumns+`
		FROM server_modules
		WHERE enabled = true
		ORDER BY server_id ASC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("all enabled modules: %w", err)
	}
	defer rows.Close()
	return scanModules(rows)
}

func (s *moduleService) MarkHealthOK(ctx context.Context, moduleID uuid.UUID) error {
	var serverID string
	err := s.pg.QueryRow(ctx, `
		UPDATE server_modules
		SET
			consecutive_failures = 0,
			last_error = NULL,
			last_healthcheck_ok = true,
			last_healthcheck_at = now()
		WHERE id = $1
		RETURNING server_id
	`, moduleID).Scan(&serverID)
	if err == pgx.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark module ok: %w", err)
	}
	// Cached module rows carry the health fields that gate dispatch.
	s.invalidateCache(ctx, serverID)
	return nil
}

func (s *moduleService) MarkHealthFailure(ctx context.Context, moduleID uuid.UUID, reason string) error {
	var serverID string
	err := s.pg.QueryRow(ctx, `
		UPDATE server_modules
		SET
			consecutive_failures = consecutive_failures + 1,
			last_error = $2,
			last_healthcheck_ok = false,
			last_healthcheck_at = now()
		WHERE id = $1
		RETURNING server_id
	`, moduleID, reason).Scan(&serverID)
	if err == pgx.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark module failure: %w", err)
	}
	s.invalidateCache(ctx, serverID)
	return nil
}

func (s *moduleService) RecordDispatch(ctx context.Context, batchID uuid.UUID, serverID string, moduleID uuid.UUID, status string, httpStatus *int, dispatchErr *string) error {
	if _, err := s.pg.Exec(ctx, `
		INSERT INTO module_dispatches
			(batch_id, server_id, module_id, status, http_status, error)
		VALUES
			($1, $2, $3, $4, $5, $6)
	`, batchID, serverID, moduleID, status, httpStatus, dispatchErr); err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}
	return nil
}

func (s *moduleService) Toggle(ctx context.Context, serverID string, moduleID uuid.UUID, enabled bool) error {
	if _, err := s.pg.Exec(ctx, `
		UPDATE server_modules SET enabled = $1, updated_at = now() WHERE id = $2 AND server_id = $3
	`, enabled, moduleID, serverID); err != nil {
		return fmt.Errorf("toggle module: %w", err)
	}
	s.invalidateCache(ctx, serverID)
	return nil
}

func moduleCacheKey(serverID string) string {
	return "modules:enabled:" + serverID
}

// moduleCacheEntry carries the fields the API model hides from JSON.
type moduleCacheEntry struct {
	Module              models.ServerModule `json:"module"`
	ConsecutiveFailures int                 `json:"consecutive_failures"`
}

func (s *moduleService) cacheGet(ctx context.Context, serverID string) ([]models.ServerModule, bool) {
	if s.redis == nil {
		return nil, false
	}
	raw, err := s.redis.Get(ctx, moduleCacheKey(serverID)).Result()
	if err != nil {
		return nil, false
	}
	var entries []moduleCacheEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, false
	}
	modules := make([]models.ServerModule, 0, len(entries))
	for _, e := range entries {
		m := e.Module
		m.ConsecutiveFailures = e.ConsecutiveFailures
		modules = append(modules, m)
	}
	return modules, true
}

func (s *moduleService) cacheSet(ctx context.Context, serverID string, modules []models.ServerModule) {
	if s.redis == nil {
		return
	}
	entries := make([]moduleCacheEntry, 0, len(modules))
	for _, m := range modules {
		entries = append(entries, moduleCacheEntry{Module: m, ConsecutiveFailures: m.ConsecutiveFailures})
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	s.redis.Set(ctx, moduleCacheKey(serverID), raw, moduleCacheTTL)
}

func (s *moduleService) invalidateCache(ctx context.Context, serverID string) {
	if s.redis == nil {
		return
	}
	s.redis.Del(ctx, moduleCacheKey(serverID))
}
