package logic

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"github.com/asyncanticheat/ingest-api/internal/models"
)

// PgPool defines the interface for PostgreSQL connection pool
type PgPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RedisClient defines the interface for the optional Redis cache
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// GateStatus is the outcome of the token gate for a server that presented
// valid credentials.
type GateStatus string

const (
	// GatePending means the server row exists but nobody has linked it in
	// the dashboard yet. Payloads are rejected with a waiting status.
	GatePending GateStatus = "waiting_for_registration"
	// GateRegistered means the server is linked and may ingest.
	GateRegistered GateStatus = "registered"
)

// RegistrationService covers server identity: the first-contact token gate,
// heartbeats, and token validation for side channels.
type RegistrationService interface {
	// Gate authenticates a server during handshake or ingest. Unknown
	// servers are auto-enrolled as pending. Returns ErrUnauthorized when
	// the presented token does not match the stored hash.
	Gate(ctx context.Context, serverID, token string, platform, callbackURL *string) (GateStatus, error)
	// Heartbeat validates the token and bumps last_seen_at.
	Heartbeat(ctx context.Context, serverID, token string) error
	// AuthenticateRegistered validates the token and requires the server to
	// be fully registered. Returns ErrUnknownServer, ErrUnauthorized, or
	// ErrNotRegistered.
	AuthenticateRegistered(ctx context.Context, serverID, token string) error
}

// BatchService records accepted batches in the relational index.
type BatchService interface {
	// RecordBatch upserts the server row, seeds builtin modules for
	// newly-seen servers, and inserts the batch_index row.
	RecordBatch(ctx context.Context, serverID, sessionID string, platform *string, batchID uuid.UUID, s3Key string, payloadBytes int32) error
}

// PlayerService tracks which players appear in ingested traffic.
type PlayerService interface {
	// ExtractAndUpsert scans a gzipped NDJSON batch for player identities
	// and upserts them into the global and per-server player tables.
	ExtractAndUpsert(ctx context.Context, serverID string, gzBody []byte) error
}

// FindingGroup is one minute-bucket aggregate produced while storing a
// findings callback, used to drive webhook notifications.
type FindingGroup struct {
	PlayerUUID   uuid.UUID
	DetectorName string
	Severity     string
	Title        string
	Description  *string
	Occurrences  int32
}

// FindingsService persists module detections.
type FindingsService interface {
	// StoreFindings aggregates and upserts the request's findings in one
	// transaction. Returns the number of bucket rows written plus the
	// aggregates for notification fan-out.
	StoreFindings(ctx context.Context, req *models.PostFindingsRequest) (int, []FindingGroup, error)
	GetWebhookSettings(ctx context.Context, serverID string) (*models.WebhookSettings, error)
	ServerName(ctx context.Context, serverID string) (*string, error)
}

// PlayerStateService persists per-module player state across batches.
type PlayerStateService interface {
	Get(ctx context.Context, serverID string, playerUUID uuid.UUID, moduleName string) (json.RawMessage, *time.Time, error)
	Set(ctx context.Context, serverID string, playerUUID uuid.UUID, moduleName string, state json.RawMessage) error
	BatchGet(ctx context.Context, serverID string, playerUUIDs []uuid.UUID, moduleName string) ([]models.BatchPlayerState, error)
	BatchSet(ctx context.Context, serverID, moduleName string, states []models.PlayerStateEntry) (int, error)
}

// ModuleService manages module subscriptions and dispatch bookkeeping.
type ModuleService interface {
	Upsert(ctx context.Context, serverID string, req *models.UpsertModuleRequest) (*models.ServerModule, error)
	List(ctx context.Context, serverID string) ([]models.ServerModule, error)
	// EnabledForServer returns enabled modules ordered by name, for fan-out.
	EnabledForServer(ctx context.Context, serverID string) ([]models.ServerModule, error)
	// AllEnabled returns every enabled module across servers, for the
	// health loop.
	AllEnabled(ctx context.Context) ([]models.ServerModule, error)
	MarkHealthOK(ctx context.Context, moduleID uuid.UUID) error
	MarkHealthFailure(ctx context.Context, moduleID uuid.UUID, reason string) error
	RecordDispatch(ctx context.Context, batchID uuid.UUID, serverID string, moduleID uuid.UUID, status string, httpStatus *int, dispatchErr *string) error
	Toggle(ctx context.Context, serverID string, moduleID uuid.UUID, enabled bool) error
}

// ObservationService stores labeled gameplay recordings from in-game staff.
type ObservationService interface {
	Create(ctx context.Context, serverID string, obs *models.CreateObservation) (uuid.UUID, error)
}

// DashboardService serves the read-only dashboard surface.
type DashboardService interface {
	Servers(ctx context.Context) ([]models.ServerInfo, error)
	Stats(ctx context.Context, serverID string) (*models.DashboardStats, error)
	Findings(ctx context.Context, serverID string, limit, offset int64, severity *string) ([]models.FindingItem, int64, error)
	Players(ctx context.Context, serverID string) ([]models.PlayerItem, error)
	Modules(ctx context.Context, serverID string) ([]models.ModuleItem, error)
	Status(ctx context.Context, serverID string) (*models.ConnectionStatus, error)
}
