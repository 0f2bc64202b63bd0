package logic

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/asyncanticheat/ingest-api/internal/auth"
)

type registrationService struct {
	pg PgPool
}

func NewRegistrationService(pg PgPool) RegistrationService {
	return &registrationService{pg: pg}
}

// Gate authenticates a server by its bearer token. The first token a server
// ever presents becomes its credential (trust on first use); afterwards every
// request must carry the same token. Unknown servers are enrolled as pending
// so the dashboard can offer them for linking.
func (s *registrationService) Gate(ctx context.Context, serverID, token string, platform, callbackURL *string) (GateStatus, error) {
	tokenHash := auth.SHA256Hex(token)

	var storedHash *string
	var ownerUserID *uuid.UUID
	var registeredAt *time.Time
	err := s.pg.QueryRow(ctx, `
		SELECT auth_token_hash, owner_user_id, registered_at
		FROM servers
		WHERE id = $1
	`, serverID).Scan(&storedHash, &ownerUserID, &registeredAt)

	if err == pgx.ErrNoRows {
		_, err := s.pg.Exec(ctx, `
			INSERT INTO servers
				(id, platform, first_seen_at, last_seen_at, auth_token_hash, auth_token_first_seen_at, callback_url)
			VALUES
				($1, $2, now(), now(), $3, now(), $4)
			ON CONFLICT (id) DO UPDATE SET
				platform = COALESCE(EXCLUDED.platform, servers.platform),
				last_seen_at = now(),
				callback_url = COALESCE(EXCLUDED.callback_url, servers.callback_url)
		`, serverID, platform, tokenHash, callbackURL)
		if err != nil {
			return "", fmt.Errorf("enroll pending server: %w", err)
		}
		return GatePending, nil
	}
	if err != nil {
		return "", fmt.Errorf("server lookup: %w", err)
	}

	// Token check comes before any writes so a wrong token cannot touch
	// the row.
	if storedHash != nil && !auth.ConstantTimeEqual(tokenHash, *storedHash) {
		return "", ErrUnauthorized
	}

	_, err = s.pg.Exec(ctx, `
		UPDATE servers SET
			last_seen_at = now(),
			platform = COALESCE($2, platform),
			callback_url = COALESCE($3, callback_url),
			auth_token_hash = COALESCE(auth_token_hash, $4),
			auth_token_first_seen_at = COALESCE(auth_token_first_seen_at, now())
		WHERE id = $1
	`, serverID, platform, callbackURL, tokenHash)
	if err != nil {
		return "", fmt.Errorf("refresh server: %w", err)
	}

	if ownerUserID != nil && registeredAt != nil {
		return GateRegistered, nil
	}
	return GatePending, nil
}

func (s *registrationService) Heartbeat(ctx context.Context, serverID, token string) error {
	var storedHash *string
	err := s.pg.QueryRow(ctx, `
		SELECT auth_token_hash FROM servers WHERE id = $1
	`, serverID).Scan(&storedHash)
	if err == pgx.ErrNoRows {
		return ErrUnknownServer
	}
	if err != nil {
		return fmt.Errorf("server lookup: %w", err)
	}
	if storedHash == nil || !auth.ConstantTimeEqual(auth.SHA256Hex(token), *storedHash) {
		return ErrUnauthorized
	}

	if _, err := s.pg.Exec(ctx, `
		UPDATE servers SET last_seen_at = now() WHERE id = $1
	`, serverID); err != nil {
		return fmt.Errorf("bump last_seen_at: %w", err)
	}
	return nil
}

func (s *registrationService) AuthenticateRegistered(ctx context.Context, serverID, token string) error {
	var storedHash *string
	var ownerUserID *uuid.UUID
	var registeredAt *time.Time
	err := s.pg.QueryRow(ctx, `
		SELECT auth_token_hash, owner_user_id, registered_at
		FROM servers
		WHERE id = $1
	`, serverID).Scan(&storedHash, &ownerUserID, &registeredAt)
	if err == pgx.ErrNoRows {
		return ErrUnknownServer
	}
	if err != nil {
		return fmt.Errorf("server lookup: %w", err)
	}

	if storedHash == nil || !auth.ConstantTimeEqual(auth.SHA256Hex(token), *storedHash) {
		return ErrUnauthorized
	}
	if ownerUserID == nil || registeredAt == nil {
		return ErrNotRegistered
	}
	return nil
}
