package logic

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/asyncanticheat/ingest-api/internal/models"
)

// playerStateService persists per-(server, player, module) state blobs so
// modules can run NCP-style checks that track violation levels across batch
// boundaries.
type playerStateService struct {
	pg PgPool
}

func NewPlayerStateService(pg PgPool) PlayerStateService {
	return &playerStateService{pg: pg}
}

func (s *playerStateService) Get(ctx context.Context, serverID string, playerUUID uuid.UUID, moduleName string) (json.RawMessage, *time.Time, error) {
	var state json.RawMessage
	var updatedAt time.Time
	err := s.pg.QueryRow(ctx, `
		SELECT state_json, updated_at
		FROM module_player_state
		WHERE server_id = $1 AND player_uuid = $2 AND module_name = $3
	`, serverID, playerUUID, moduleName).Scan(&state, &updatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get player state: %w", err)
	}
	return state, &updatedAt, nil
}

func (s *playerStateService) Set(ctx context.Context, serverID string, playerUUID uuid.UUID, moduleName string, state json.RawMessage) error {
	if err := s.ensurePlayer(ctx, s.pg, playerUUID); err != nil {
		return err
	}
	if _, err := s.pg.Exec(ctx, `
		INSERT INTO module_player_state (server_id, player_uuid, module_name, state_json, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (server_id, player_uuid, module_name)
		DO UPDATE SET state_json = EXCLUDED.state_json, updated_at = now()
	`, serverID, playerUUID, moduleName, state); err != nil {
		return fmt.Errorf("set player state: %w", err)
	}
	return nil
}

func (s *playerStateService) BatchGet(ctx context.Context, serverID string, playerUUIDs []uuid.UUID, moduleName string) ([]models.BatchPlayerState, error) {
	if len(playerUUIDs) == 0 {
		return nil, nil
	}

	rows, err := s.pg.Query(ctx, `
		SELECT player_uuid, state_json, updated_at
		FROM module_player_state
		WHERE server_id = $1 AND module_name = $2 AND player_uuid = ANY($3)
	`, serverID, moduleName, playerUUIDs)
	if err != nil {
		return nil, fmt.Errorf("batch get player states: %w", err)
	}
	defer rows.Close()

	var states []models.BatchPlayerState
	for rows.Next() {
		var playerUUID uuid.UUID
		var state json.RawMessage
		var updatedAt time.Time
		if err := rows.Scan(&playerUUID, &state, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan player state: %w", err)
		}
		states = append(states, models.BatchPlayerState{
			PlayerUUID: playerUUID,
			State:      state,
			UpdatedAt:  updatedAt.Format(time.RFC3339),
		})
	}
	return states, rows.Err()
}

func (s *playerStateService) BatchSet(ctx context.Context, serverID, moduleName string, states []models.PlayerStateEntry) (int, error) {
	if len(states) == 0 {
		return 0, nil
	}

	tx, err := s.pg.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	updated := 0
	for _, entry := range states {
		if err := s.ensurePlayer(ctx, tx, entry.PlayerUUID); err != nil {
			return 0, err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO module_player_state (server_id, player_uuid, module_name, state_json, updated_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (server_id, player_uuid, module_name)
			DO UPDATE SET state_json = EXCLUDED.state_json, updated_at = now()
		`, serverID, entry.PlayerUUID, moduleName, entry.State); err != nil {
			return 0, fmt.Errorf("set player state: %w", err)
		}
		updated++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

// execer covers both the pool and an open transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ensurePlayer creates the player row if missing so the state FK holds.
// DO NOTHING avoids deadlocks from concurrent upserts.
func (s *playerStateService) ensurePlayer(ctx context.Context, db execer, playerUUID uuid.UUID) error {
	if _, err := db.Exec(ctx, `
		INSERT INTO players (uuid, username, first_seen_at, last_seen_at)
		VALUES ($1, 'unknown', now(), now())
		ON CONFLICT (uuid) DO NOTHING
	`, playerUUID); err != nil {
		return fmt.Errorf("ensure player exists: %w", err)
	}
	return nil
}
