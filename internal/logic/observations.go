package logic

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/asyncanticheat/ingest-api/internal/models"
)

type observationService struct {
	pg PgPool
}

func NewObservationService(pg PgPool) ObservationService {
	return &observationService{pg: pg}
}

// Create stores one labeled gameplay observation. The caller has already
// validated the observation type and authenticated the server.
func (s *observationService) Create(ctx context.Context, serverID string, obs *models.CreateObservation) (uuid.UUID, error) {
	observationID := uuid.New()

	if _, err := s.pg.Exec(ctx, `
		INSERT INTO cheat_observations (
			id,
			server_id,
			observation_type,
			source,
			player_uuid,
			player_name,
			cheat_type,
			label,
			started_at,
			ended_at,
			session_id,
			recorded_by_uuid,
			recorded_by_name,
			status,
			created_at,
			updated_at
		) VALUES (
			$1, $2, $3, 'ingame', $4, $5, $6, $7, $8, $9, $10, $11, $12, 'new', now(), now()
		)
	`, observationID, serverID, obs.ObservationType, obs.PlayerUUID, obs.PlayerName,
		obs.CheatType, obs.Label, obs.StartedAt, obs.EndedAt, obs.SessionID,
		obs.RecordedByUUID, obs.RecordedByName); err != nil {
		return uuid.Nil, fmt.Errorf("insert observation: %w", err)
	}

	return observationID, nil
}
