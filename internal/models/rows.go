package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Server is a game server identity row. A server is registered once both
// OwnerUserID and RegisteredAt are set; until then it is pending and its
// payloads are rejected at the gate.
type Server struct {
	ID                    string     `json:"id"`
	Name                  *string    `json:"name"`
	Platform              *string    `json:"platform"`
	FirstSeenAt           time.Time  `json:"first_seen_at"`
	LastSeenAt            time.Time  `json:"last_seen_at"`
	AuthTokenHash         *string    `json:"-"`
	AuthTokenFirstSeenAt  *time.Time `json:"-"`
	OwnerUserID           *uuid.UUID `json:"owner_user_id"`
	RegisteredAt          *time.Time `json:"registered_at"`
	CallbackURL           *string    `json:"callback_url"`
	WebhookURL            *string    `json:"-"`
	WebhookEnabled        bool       `json:"-"`
	WebhookSeverityLevels []string   `json:"-"`
}

// ServerModule is a per-(server, name) subscription of an analysis module.
type ServerModule struct {
	ID                  uuid.UUID `json:"id"`
	ServerID            string    `json:"server_id"`
	Name                string    `json:"name"`
	BaseURL             string    `json:"base_url"`
	Enabled             bool      `json:"enabled"`
	Transform           string    `json:"transform"`
	LastHealthcheckOK   *bool     `json:"last_healthcheck_ok"`
	LastError           *string   `json:"last_error"`
	ConsecutiveFailures int       `json:"-"`
}

// Skipped reports whether the dispatcher should not fan out to this module.
// A module is skipped once it is known-down and has failed three times in a
// row; a single successful health probe restores it.
func (m *ServerModule) Skipped() bool {
	return m.LastHealthcheckOK != nil && !*m.LastHealthcheckOK && m.ConsecutiveFailures >= 3
}

// BatchIndexRow references a raw batch blob in object storage.
type BatchIndexRow struct {
	ID           uuid.UUID `json:"id"`
	ServerID     string    `json:"server_id"`
	SessionID    string    `json:"session_id"`
	S3Key        string    `json:"s3_key"`
	PayloadBytes int32     `json:"payload_bytes"`
	ReceivedAt   time.Time `json:"received_at"`
}

// Finding is a minute-bucketed aggregate of detections for one player and
// detector on one server.
type Finding struct {
	ID              uuid.UUID       `json:"id"`
	ServerID        string          `json:"server_id"`
	PlayerUUID      *uuid.UUID      `json:"player_uuid"`
	SessionID       *string         `json:"session_id"`
	DetectorName    string          `json:"detector_name"`
	DetectorVersion *string         `json:"detector_version"`
	Severity        string          `json:"severity"`
	Title           string          `json:"title"`
	Description     *string         `json:"description"`
	EvidenceS3Key   *string         `json:"evidence_s3_key"`
	EvidenceJSON    json.RawMessage `json:"evidence_json"`
	Occurrences     int32           `json:"occurrences"`
	WindowStartAt   time.Time       `json:"window_start_at"`
	FirstSeenAt     time.Time       `json:"first_seen_at"`
	LastSeenAt      time.Time       `json:"last_seen_at"`
}

// WebhookSettings is the per-server outbound notification configuration.
type WebhookSettings struct {
	URL            *string
	Enabled        bool
	SeverityLevels []string
}

// BuiltinTier marks the pareto split of the builtin module catalog.
type BuiltinTier string

const (
	TierCore     BuiltinTier = "core"
	TierAdvanced BuiltinTier = "advanced"
)

// BuiltinModuleInfo describes one entry of the builtin module catalog as
// exposed to the dashboard.
type BuiltinModuleInfo struct {
	Name             string      `json:"name"`
	Tier             BuiltinTier `json:"tier"`
	DefaultPort      int         `json:"default_port"`
	DefaultBaseURL   string      `json:"default_base_url"`
	ShortDescription string      `json:"short_description"`
	FullDescription  string      `json:"full_description"`
	Checks           []string    `json:"checks"`
}
