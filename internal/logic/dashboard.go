package logic

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/asyncanticheat/ingest-api/internal/models"
)

// defaultGamePort is assumed when a server address carries no explicit port.
const defaultGamePort = 25565

// tcpPingTimeout bounds the reachability probe so a dead host cannot stall
// the status endpoint.
const tcpPingTimeout = 3 * time.Second

// pluginOnlineWindow is how recently a server must have been seen for the
// plugin to count as online.
const pluginOnlineWindow = 30 * time.Second

type dashboardService struct {
	pg PgPool
}

func NewDashboardService(pg PgPool) DashboardService {
	return &dashboardService{pg: pg}
}

func (s *dashboardService) Servers(ctx context.Context) ([]models.ServerInfo, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT id, name, platform, last_seen_at FROM servers ORDER BY last_seen_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("get servers: %w", err)
	}
	defer rows.Close()

	var servers []models.ServerInfo
	for rows.Next() {
		var info models.ServerInfo
		var lastSeenAt time.Time
		if err := rows.Scan(&info.ID, &info.Name, &info.Platform, &lastSeenAt); err != nil {
			return nil, fmt.Errorf("scan server: %w", err)
		}
		info.LastSeenAt = lastSeenAt.Format(time.RFC3339)
		servers = append(servers, info)
	}
	return servers, rows.Err()
}

func (s *dashboardService) Stats(ctx context.Context, serverID string) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.pg.QueryRow(ctx,
			`SELECT COUNT(*) FROM findings WHERE server_id = $1`,
			serverID).Scan(&stats.TotalFindings)
	})
	g.Go(func() error {
		return s.pg.QueryRow(ctx,
			`SELECT COUNT(*) FROM server_modules WHERE server_id = $1 AND enabled = true`,
			serverID).Scan(&stats.ActiveModules)
	})
	g.Go(func() error {
		return s.pg.QueryRow(ctx,
			`SELECT COUNT(DISTINCT player_uuid) FROM findings WHERE server_id = $1 AND player_uuid IS NOT NULL`,
			serverID).Scan(&stats.PlayersMonitored)
	})
	g.Go(func() error {
		return s.pg.QueryRow(ctx,
			`SELECT COUNT(*) FROM findings WHERE server_id = $1 AND created_at > NOW() - INTERVAL '24 hours'`,
			serverID).Scan(&stats.FindingsToday)
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return stats, nil
}

func (s *dashboardService) Findings(ctx context.Context, serverID string, limit, offset int64, severity *string) ([]models.FindingItem, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var rows pgx.Rows
	var err error
	if severity != nil {
		rows, err = s.pg.Query(ctx, `
			SELECT
				f.id,
				f.player_uuid,
				p.username AS player_name,
				f.detector_name,
				f.severity,
				f.title,
				f.description,
				f.created_at
			FROM findings f
			LEFT JOIN players p ON f.player_uuid = p.uuid
			WHERE f.server_id = $1 AND f.severity = $2
			ORDER BY f.created_at DESC
			LIMIT $3 OFFSET $4
		`, serverID, *severity, limit, offset)
	} else {
		rows, err = s.pg.Query(ctx, `
			SELECT
				f.id,
				f.player_uuid,
				p.username AS player_name,
				f.detector_name,
				f.severity,
				f.title,
				f.description,
				f.created_at
			FROM findings f
			LEFT JOIN players p ON f.player_uuid = p.uuid
			WHERE f.server_id = $1
			ORDER BY f.created_at DESC
			LIMIT $2 OFFSET $3
		`, serverID, limit, offset)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get findings: %w", err)
	}
	defer rows.Close()

	var items []models.FindingItem
	for rows.Next() {
		var item models.FindingItem
		var createdAt time.Time
		if err := rows.Scan(&item.ID, &item.PlayerUUID, &item.PlayerName,
			&item.DetectorName, &item.Severity, &item.Title, &item.Description, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("scan finding: %w", err)
		}
		item.CreatedAt = createdAt.Format(time.RFC3339)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if severity != nil {
		err = s.pg.QueryRow(ctx,
			`SELECT COUNT(*) FROM findings WHERE server_id = $1 AND severity = $2`,
			serverID, *severity).Scan(&total)
	} else {
		err = s.pg.QueryRow(ctx,
			`SELECT COUNT(*) FROM findings WHERE server_id = $1`,
			serverID).Scan(&total)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("count findings: %w", err)
	}

	return items, total, nil
}

func (s *dashboardService) Players(ctx context.Context, serverID string) ([]models.PlayerItem, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT
			p.uuid,
			p.username,
			COUNT(f.id) AS findings_count,
			MAX(f.created_at) AS last_finding
		FROM players p
		INNER JOIN findings f ON p.uuid = f.player_uuid
		WHERE f.server_id = $1
		GROUP BY p.uuid, p.username
		ORDER BY COUNT(f.id) DESC
		LIMIT 50
	`, serverID)
	if err != nil {
		return nil, fmt.Errorf("get players: %w", err)
	}
	defer rows.Close()

	type playerRow struct {
		uuid          uuid.UUID
		username      string
		findingsCount int64
		lastFinding   time.Time
	}
	var base []playerRow
	for rows.Next() {
		var r playerRow
		if err := rows.Scan(&r.uuid, &r.username, &r.findingsCount, &r.lastFinding); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		base = append(base, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	players := make([]models.PlayerItem, 0, len(base))
	for _, r := range base {
		highest := "info"
		var sev string
		err := s.pg.QueryRow(ctx, `
			SELECT severity FROM findings
			WHERE player_uuid = $1 AND server_id = $2
			ORDER BY
				CASE severity
					WHEN 'critical' THEN 4
					WHEN 'high' THEN 3
					WHEN 'medium' THEN 2
					WHEN 'low' THEN 1
					ELSE 0
				END DESC
			LIMIT 1
		`, r.uuid, serverID).Scan(&sev)
		if err == nil {
			highest = sev
		}

		var detectors []string
		detRows, err := s.pg.Query(ctx, `
			SELECT DISTINCT detector_name
			FROM findings
			WHERE player_uuid = $1 AND server_id = $2
		`, r.uuid, serverID)
		if err == nil {
			for detRows.Next() {
				var d string
				if err := detRows.Scan(&d); err == nil {
					detectors = append(detectors, d)
				}
			}
			detRows.Close()
		}

		players = append(players, models.PlayerItem{
			UUID:            r.uuid,
			Username:        r.username,
			FindingsCount:   r.findingsCount,
			HighestSeverity: highest,
			LastSeen:        r.lastFinding.Format(time.RFC3339),
			Detectors:       detectors,
		})
	}
	return players, nil
}

func (s *dashboardService) Modules(ctx context.Context, serverID string) ([]models.ModuleItem, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT
			id,
			name,
			base_url,
			enabled,
			last_healthcheck_ok,
			last_error
		FROM server_modules
		WHERE server_id = $1
		ORDER BY name
	`, serverID)
	if err != nil {
		return nil, fmt.Errorf("get modules: %w", err)
	}
	defer rows.Close()

	type moduleRow struct {
		item     models.ModuleItem
		healthOK *bool
	}
	var base []moduleRow
	for rows.Next() {
		var r moduleRow
		if err := rows.Scan(&r.item.ID, &r.item.Name, &r.item.BaseURL, &r.item.Enabled,
			&r.healthOK, &r.item.LastError); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		base = append(base, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	modules := make([]models.ModuleItem, 0, len(base))
	for _, r := range base {
		item := r.item
		// A module that has never been probed counts as healthy.
		item.Healthy = r.healthOK == nil || *r.healthOK

		// Detection count approximated by the detector_name prefix
		// convention (module name lowercased with underscores).
		prefix := strings.ReplaceAll(strings.ToLower(item.Name), " ", "_") + "%"
		s.pg.QueryRow(ctx, `
			SELECT COUNT(*) FROM findings
			WHERE server_id = $1 AND detector_name LIKE $2
		`, serverID, prefix).Scan(&item.Detections)

		modules = append(modules, item)
	}
	return modules, nil
}

func (s *dashboardService) Status(ctx context.Context, serverID string) (*models.ConnectionStatus, error) {
	var lastSeenAt time.Time
	var callbackURL *string
	err := s.pg.QueryRow(ctx, `
		SELECT last_seen_at, callback_url FROM servers WHERE id = $1
	`, serverID).Scan(&lastSeenAt, &callbackURL)
	if err == pgx.ErrNoRows {
		return &models.ConnectionStatus{PluginLastSeenMS: -1}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get server status: %w", err)
	}

	status := &models.ConnectionStatus{
		PluginLastSeenMS: time.Since(lastSeenAt).Milliseconds(),
	}
	status.PluginOnline = status.PluginLastSeenMS < pluginOnlineWindow.Milliseconds()

	// Ping source: the callback URL when present, else the server id when
	// it looks like an address. UUID-ish ids are skipped so the dashboard's
	// 5s poll does not eat 3s timeouts forever.
	var pingSource string
	if callbackURL != nil {
		pingSource = *callbackURL
	} else if _, err := uuid.Parse(serverID); err != nil {
		pingSource = serverID
	}
	if pingSource == "" {
		return status, nil
	}

	host, port, ok := extractHostPort(pingSource)
	if !ok || host == "127.0.0.1" || host == "localhost" {
		return status, nil
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))
	if ms, ok := tcpPing(address); ok {
		status.ServerPingMS = &ms
		status.ServerReachable = true
	}
	status.ServerAddress = &address
	return status, nil
}

// tcpPing measures a bare TCP connect to the game port.
func tcpPing(address string) (int64, bool) {
	start := time.Now()
	conn, err := net.DialTimeout("tcp", address, tcpPingTimeout)
	if err != nil {
		return 0, false
	}
	conn.Close()
	return time.Since(start).Milliseconds(), true
}

// extractHostPort parses a host[:port], URL, or bracketed IPv6 address into
// its components. The game default port applies when none is given.
func extractHostPort(raw string) (string, int, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", 0, false
	}

	withoutScheme := strings.TrimPrefix(trimmed, "http://")
	if withoutScheme == trimmed {
		withoutScheme = strings.TrimPrefix(trimmed, "https://")
	}

	// Drop any path or query fragment.
	authority := strings.TrimSpace(strings.SplitN(withoutScheme, "/", 2)[0])
	if authority == "" {
		return "", 0, false
	}

	// Bracketed IPv6 form: [::1]:25565
	if rest, ok := strings.CutPrefix(authority, "["); ok {
		end := strings.Index(rest, "]")
		if end < 0 {
			return "", 0, false
		}
		host := strings.TrimSpace(rest[:end])
		if host == "" {
			return "", 0, false
		}
		port := defaultGamePort
		after := strings.TrimSpace(rest[end+1:])
		if p, ok := strings.CutPrefix(after, ":"); ok {
			if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 && parsed <= 65535 {
				port = parsed
			}
		}
		return host, port, true
	}

	host, portStr, found := strings.Cut(authority, ":")
	host = strings.TrimSpace(host)
	if host == "" {
		return "", 0, false
	}
	port := defaultGamePort
	if found {
		if parsed, err := strconv.Atoi(strings.TrimSpace(portStr)); err == nil && parsed > 0 && parsed <= 65535 {
			port = parsed
		}
	}
	return host, port, true
}
