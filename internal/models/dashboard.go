package models

import "github.com/google/uuid"

type DashboardStats struct {
	TotalFindings    int64 `json:"total_findings"`
	ActiveModules    int64 `json:"active_modules"`
	PlayersMonitored int64 `json:"players_monitored"`
	FindingsToday    int64 `json:"findings_today"`
}

type DashboardStatsResponse struct {
	OK    bool           `json:"ok"`
	Stats DashboardStats `json:"stats"`
}

type FindingItem struct {
	ID           uuid.UUID  `json:"id"`
	PlayerUUID   *uuid.UUID `json:"player_uuid"`
	PlayerName   *string    `json:"player_name"`
	DetectorName string     `json:"detector_name"`
	Severity     string     `json:"severity"`
	Title        string     `json:"title"`
	Description  *string    `json:"description"`
	CreatedAt    string     `json:"created_at"`
}

type FindingsResponse struct {
	OK       bool          `json:"ok"`
	Findings []FindingItem `json:"findings"`
	Total    int64         `json:"total"`
}

type PlayerItem struct {
	UUID            uuid.UUID `json:"uuid"`
	Username        string    `json:"username"`
	FindingsCount   int64     `json:"findings_count"`
	HighestSeverity string    `json:"highest_severity"`
	LastSeen        string    `json:"last_seen"`
	Detectors       []string  `json:"detectors"`
}

type PlayersResponse struct {
	OK      bool         `json:"ok"`
	Players []PlayerItem `json:"players"`
}

type ModuleItem struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	BaseURL    string    `json:"base_url"`
	Enabled    bool      `json:"enabled"`
	Healthy    bool      `json:"healthy"`
	LastError  *string   `json:"last_error"`
	Detections int64     `json:"detections"`
}

type ModulesResponse struct {
	OK      bool         `json:"ok"`
	Modules []ModuleItem `json:"modules"`
}

type ServerInfo struct {
	ID         string  `json:"id"`
	Name       *string `json:"name"`
	Platform   *string `json:"platform"`
	LastSeenAt string  `json:"last_seen_at"`
}

type ServersResponse struct {
	OK      bool         `json:"ok"`
	Servers []ServerInfo `json:"servers"`
}

// ConnectionStatus reports plugin liveness and a best-effort TCP ping of the
// game server itself.
type ConnectionStatus struct {
	PluginLastSeenMS int64   `json:"plugin_last_seen_ms"`
	PluginOnline     bool    `json:"plugin_online"`
	ServerPingMS     *int64  `json:"server_ping_ms"`
	ServerReachable  bool    `json:"server_reachable"`
	ServerAddress    *string `json:"server_address"`
}

type StatusResponse struct {
	OK     bool             `json:"ok"`
	Status ConnectionStatus `json:"status"`
}
