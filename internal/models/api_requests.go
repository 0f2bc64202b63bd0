package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// FindingIn is one detection reported by a module. Entries without a player
// UUID or with an empty detector/title are silently dropped during
// aggregation rather than rejected.
type FindingIn struct {
	PlayerUUID      *uuid.UUID      `json:"player_uuid"`
	DetectorName    string          `json:"detector_name"`
	DetectorVersion *string         `json:"detector_version"`
	Severity        *string         `json:"severity"`
	Title           string          `json:"title"`
	Description     *string         `json:"description"`
	EvidenceS3Key   *string         `json:"evidence_s3_key"`
	EvidenceJSON    json.RawMessage `json:"evidence_json"`
}

type PostFindingsRequest struct {
	ServerID  string     `json:"server_id" validate:"required"`
	SessionID *string    `json:"session_id"`
	BatchID   *uuid.UUID `json:"batch_id"`
	Findings  []FindingIn `json:"findings"`
}

type PostFindingsResponse struct {
	OK       bool `json:"ok"`
	Inserted int  `json:"inserted"`
}

type GetPlayerStateRequest struct {
	ServerID   string    `json:"server_id" validate:"required"`
	PlayerUUID uuid.UUID `json:"player_uuid" validate:"required"`
	ModuleName string    `json:"module_name" validate:"required"`
}

type PlayerStateResponse struct {
	OK        bool            `json:"ok"`
	State     json.RawMessage `json:"state"`
	UpdatedAt *string         `json:"updated_at"`
}

type SetPlayerStateRequest struct {
	ServerID   string          `json:"server_id" validate:"required"`
	PlayerUUID uuid.UUID       `json:"player_uuid" validate:"required"`
	ModuleName string          `json:"module_name" validate:"required"`
	State      json.RawMessage `json:"state" validate:"required"`
}

type SetPlayerStateResponse struct {
	OK bool `json:"ok"`
}

type BatchGetPlayerStatesRequest struct {
	ServerID    string      `json:"server_id" validate:"required"`
	PlayerUUIDs []uuid.UUID `json:"player_uuids"`
	ModuleName  string      `json:"module_name" validate:"required"`
}

type BatchPlayerState struct {
	PlayerUUID uuid.UUID       `json:"player_uuid"`
	State      json.RawMessage `json:"state"`
	UpdatedAt  string          `json:"updated_at"`
}

type BatchGetPlayerStatesResponse struct {
	OK     bool               `json:"ok"`
	States []BatchPlayerState `json:"states"`
}

type PlayerStateEntry struct {
	PlayerUUID uuid.UUID       `json:"player_uuid"`
	State      json.RawMessage `json:"state"`
}

type BatchSetPlayerStatesRequest struct {
	ServerID   string             `json:"server_id" validate:"required"`
	ModuleName string             `json:"module_name" validate:"required"`
	States     []PlayerStateEntry `json:"states"`
}

type BatchSetPlayerStatesResponse struct {
	OK      bool `json:"ok"`
	Updated int  `json:"updated"`
}

type UpsertModuleRequest struct {
	Name      string  `json:"name" validate:"required"`
	BaseURL   string  `json:"base_url" validate:"required"`
	Enabled   *bool   `json:"enabled"`
	Transform *string `json:"transform"`
}

// CreateObservation labels a recorded gameplay range from in-game staff.
type CreateObservation struct {
	ObservationType string     `json:"observation_type" validate:"required"`
	PlayerUUID      uuid.UUID  `json:"player_uuid" validate:"required"`
	PlayerName      *string    `json:"player_name"`
	CheatType       *string    `json:"cheat_type"`
	Label           *string    `json:"label"`
	StartedAt       time.Time  `json:"started_at" validate:"required"`
	EndedAt         *time.Time `json:"ended_at"`
	RecordedByUUID  *uuid.UUID `json:"recorded_by_uuid"`
	RecordedByName  *string    `json:"recorded_by_name"`
	SessionID       *string    `json:"session_id"`
}

type CreateObservationResponse struct {
	OK            bool      `json:"ok"`
	ObservationID uuid.UUID `json:"observation_id"`
}

type IngestResponse struct {
	OK      bool      `json:"ok"`
	BatchID uuid.UUID `json:"batch_id"`
	S3Key   string    `json:"s3_key"`
}

// WaitingForRegistrationResponse is the 409 body returned while a server is
// pending dashboard linking.
type WaitingForRegistrationResponse struct {
	OK       bool   `json:"ok"`
	Status   string `json:"status"`
	ServerID string `json:"server_id"`
}

type HandshakeResponse struct {
	OK       bool   `json:"ok"`
	Status   string `json:"status"`
	ServerID string `json:"server_id"`
}

type HeartbeatResponse struct {
	OK bool `json:"ok"`
}
