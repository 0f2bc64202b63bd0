package logic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
)

// maxPlayerScanLines bounds how deep into a batch the player extractor looks.
const maxPlayerScanLines = 2000

type playerService struct {
	pg PgPool
}

func NewPlayerService(pg PgPool) PlayerService {
	return &playerService{pg: pg}
}

type packetRecordPartial struct {
	UUID *string `json:"uuid"`
	Name *string `json:"name"`
}

// ExtractAndUpsert scans the gzipped batch for (uuid, name) pairs and
// upserts them so the dashboard can show active players even before any
// findings exist. Best-effort: malformed lines are skipped and individual
// upsert failures do not abort the scan.
func (s *playerService) ExtractAndUpsert(ctx context.Context, serverID string, gzBody []byte) error {
	gzr, err := gzip.NewReader(bytes.NewReader(gzBody))
	if err != nil {
		return fmt.Errorf("gzip decode: %w", err)
	}
	defer gzr.Close()

	type playerKey struct {
		uuid uuid.UUID
		name string
	}
	seen := make(map[playerKey]struct{})

	sc := bufio.NewScanner(gzr)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for i := 0; sc.Scan(); i++ {
		if i >= maxPlayerScanLines {
			break
		}
		// Line 0 is the batch metadata object, not a packet record.
		if i == 0 {
			continue
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec packetRecordPartial
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.UUID == nil || rec.Name == nil || *rec.Name == "" {
			continue
		}
		playerUUID, err := uuid.Parse(*rec.UUID)
		if err != nil {
			continue
		}
		seen[playerKey{uuid: playerUUID, name: *rec.Name}] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read lines: %w", err)
	}
	if len(seen) == 0 {
		return nil
	}

	for p := range seen {
		s.pg.Exec(ctx, `
			INSERT INTO players (uuid, username, first_seen_at, last_seen_at)
			VALUES ($1, $2, now(), now())
			ON CONFLICT (uuid) DO UPDATE SET
				username = EXCLUDED.username,
				last_seen_at = now()
		`, p.uuid, p.name)

		s.pg.Exec(ctx, `
			INSERT INTO server_players (server_id, player_uuid, player_name, first_seen_at, last_seen_at)
			VALUES ($1, $2, $3, now(), now())
			ON CONFLICT (server_id, player_uuid) DO UPDATE SET
				player_name = EXCLUDED.player_name,
				last_seen_at = now()
		`, serverID, p.uuid, p.name)
	}
	return nil
}
