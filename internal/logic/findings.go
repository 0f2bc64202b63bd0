package logic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/asyncanticheat/ingest-api/internal/models"
)

type findingsService struct {
	pg PgPool
}

func NewFindingsService(pg PgPool) FindingsService {
	return &findingsService{pg: pg}
}

// sevRank orders severities for "keep the strongest" bucket replacement.
// Unknown severities (including the "info" default) rank lowest.
func sevRank(sev string) int {
	switch sev {
	case "critical":
		return 4
	case "high":
		return 3
	case "medium":
		return 2
	case "low":
		return 1
	default:
		return 0
	}
}

// findingAgg is one (player, detector) bucket accumulated from a callback.
type findingAgg struct {
	playerUUID      uuid.UUID
	detectorName    string
	count           int32
	detectorVersion *string
	severity        string
	title           string
	description     *string
	evidenceS3Key   *string
	evidenceJSON    json.RawMessage
}

// aggregateFindings groups findings per (player_uuid, detector_name).
// Entries without a player UUID, detector, or title are dropped. Within a
// bucket the strongest severity wins and brings its title, description, and
// evidence along; ties go to the newest entry.
func aggregateFindings(findings []models.FindingIn) []findingAgg {
	type aggKey struct {
		playerUUID uuid.UUID
		detector   string
	}
	index := make(map[aggKey]int)
	var out []findingAgg

	for _, f := range findings {
		if f.PlayerUUID == nil {
			continue
		}
		detector := strings.TrimSpace(f.DetectorName)
		title := strings.TrimSpace(f.Title)
		if detector == "" || title == "" {
			continue
		}

		sev := "info"
		if f.Severity != nil {
			sev = *f.Severity
		}

		key := aggKey{playerUUID: *f.PlayerUUID, detector: detector}
		idx, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, findingAgg{
				playerUUID:      *f.PlayerUUID,
				detectorName:    detector,
				count:           0,
				detectorVersion: f.DetectorVersion,
				severity:        sev,
				title:           title,
				description:     f.Description,
				evidenceS3Key:   f.EvidenceS3Key,
				evidenceJSON:    f.EvidenceJSON,
			})
			idx = len(out) - 1
		}

		a := &out[idx]
		a.count++
		if f.DetectorVersion != nil {
			a.detectorVersion = f.DetectorVersion
		}
		if sevRank(sev) >= sevRank(a.severity) {
			a.severity = sev
			a.title = title
			a.description = f.Description
			a.evidenceS3Key = f.EvidenceS3Key
			a.evidenceJSON = f.EvidenceJSON
		}
	}
	return out
}

// StoreFindings upserts minute-bucketed finding aggregates in a single
// transaction. The window is the floor of the current minute, so repeated
// callbacks within one minute increment the same rows.
func (s *findingsService) StoreFindings(ctx context.Context, req *models.PostFindingsRequest) (int, []FindingGroup, error) {
	serverID := strings.TrimSpace(req.ServerID)
	if serverID == "" {
		return 0, nil, fmt.Errorf("server_id is required")
	}

	tx, err := s.pg.Begin(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	windowStartAt := time.Now().UTC().Truncate(time.Minute)

	// Ensure player rows exist for the FK. DO NOTHING avoids deadlocks
	// from concurrent upserts; last_seen_at is maintained elsewhere.
	playerUUIDs := make(map[uuid.UUID]struct{})
	for _, f := range req.Findings {
		if f.PlayerUUID != nil {
			playerUUIDs[*f.PlayerUUID] = struct{}{}
		}
	}
	for playerUUID := range playerUUIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO players (uuid, username, first_seen_at, last_seen_at)
			VALUES ($1, 'unknown', now(), now())
			ON CONFLICT (uuid) DO NOTHING
		`, playerUUID); err != nil {
			return 0, nil, fmt.Errorf("ensure player exists: %w", err)
		}
	}

	aggs := aggregateFindings(req.Findings)
	for _, a := range aggs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO findings
				(server_id, player_uuid, session_id, detector_name, detector_version, severity, title, description, evidence_s3_key, evidence_json,
				 occurrences, window_start_at, first_seen_at, last_seen_at)
			VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
				 $11, $12, now(), now())
			ON CONFLICT (server_id, player_uuid, detector_name, window_start_at)
				WHERE player_uuid IS NOT NULL
			DO UPDATE SET
				occurrences = findings.occurrences + EXCLUDED.occurrences,
				last_seen_at = now(),
				detector_version = COALESCE(EXCLUDED.detector_version, findings.detector_version),
				severity = CASE
					WHEN (CASE EXCLUDED.severity
							WHEN 'critical' THEN 4
							WHEN 'high' THEN 3
							WHEN 'medium' THEN 2
							WHEN 'low' THEN 1
							ELSE 0 END)
						 >= (CASE findings.severity
							WHEN 'critical' THEN 4
							WHEN 'high' THEN 3
							WHEN 'medium' THEN 2
							WHEN 'low' THEN 1
							ELSE 0 END)
					THEN EXCLUDED.severity
					ELSE findings.severity
				END,
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				evidence_s3_key = EXCLUDED.evidence_s3_key,
				evidence_json = EXCLUDED.evidence_json
		`, serverID, a.playerUUID, req.SessionID, a.detectorName, a.detectorVersion,
			a.severity, a.title, a.description, a.evidenceS3Key, a.evidenceJSON,
			a.count, windowStartAt); err != nil {
			return 0, nil, fmt.Errorf("upsert finding bucket: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, nil, fmt.Errorf("commit: %w", err)
	}

	groups := make([]FindingGroup, 0, len(aggs))
	for _, a := range aggs {
		groups = append(groups, FindingGroup{
			PlayerUUID:   a.playerUUID,
			DetectorName: a.detectorName,
			Severity:     a.severity,
			Title:        a.title,
			Description:  a.description,
			Occurrences:  a.count,
		})
	}
	return len(aggs), groups, nil
}

func (s *findingsService) GetWebhookSettings(ctx context.Context, serverID string) (*models.WebhookSettings, error) {
	var settings models.WebhookSettings
	err := s.pg.QueryRow(ctx, `
		SELECT webhook_url, webhook_enabled, webhook_severity_levels
		FROM servers
		WHERE id = $1
	`, serverID).Scan(&settings.URL, &settings.Enabled, &settings.SeverityLevels)
	if err != nil {
		return nil, fmt.Errorf("load webhook settings: %w", err)
	}
	return &settings, nil
}

func (s *findingsService) ServerName(ctx context.Context, serverID string) (*string, error) {
	var name *string
	err := s.pg.QueryRow(ctx, `
		SELECT name FROM servers WHERE id = $1
	`, serverID).Scan(&name)
	if err != nil {
		return nil, fmt.Errorf("load server name: %w", err)
	}
	return name, nil
}
