package logic

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type batchService struct {
	pg PgPool
}

func NewBatchService(pg PgPool) BatchService {
	return &batchService{pg: pg}
}

// RecordBatch runs all batch bookkeeping in one transaction: the server
// upsert, the builtin module seed for newly-seen servers, and the
// batch_index row. The blob upload happens after this succeeds so a failed
// upload leaves an index row to retry rather than an orphaned object.
func (s *batchService) RecordBatch(ctx context.Context, serverID, sessionID string, platform *string, batchID uuid.UUID, s3Key string, payloadBytes int32) error {
	tx, err := s.pg.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO servers (id, platform, first_seen_at, last_seen_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			platform = COALESCE(EXCLUDED.platform, servers.platform),
			last_seen_at = now()
	`, serverID, platform); err != nil {
		return fmt.Errorf("upsert server: %w", err)
	}

	if err := ensureBuiltinModules(ctx, tx, serverID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO batch_index (id, server_id, session_id, s3_key, payload_bytes)
		VALUES ($1, $2, $3, $4, $5)
	`, batchID, serverID, sessionID, s3Key, payloadBytes); err != nil {
		return fmt.Errorf("insert batch_index: %w", err)
	}

	return tx.Commit(ctx)
}
