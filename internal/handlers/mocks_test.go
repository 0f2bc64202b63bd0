package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/asyncanticheat/ingest-api/internal/logic"
	"github.com/asyncanticheat/ingest-api/internal/models"
)

// MockRegistrationService
type MockRegistrationService struct {
	GateFunc                   func(ctx context.Context, serverID, token string, platform, callbackURL *string) (logic.GateStatus, error)
	HeartbeatFunc              func(ctx context.Context, serverID, token string) error
	AuthenticateRegisteredFunc func(ctx context.Context, serverID, token string) error
}

func (m *MockRegistrationService) Gate(ctx context.Context, serverID, token string, platform, callbackURL *string) (logic.GateStatus, error) {
	if m.GateFunc != nil {
		return m.GateFunc(ctx, serverID, token, platform, callbackURL)
	}
	return logic.GateRegistered, nil
}

func (m *MockRegistrationService) Heartbeat(ctx context.Context, serverID, token string) error {
	if m.HeartbeatFunc != nil {
		return m.HeartbeatFunc(ctx, serverID, token)
	}
	return nil
}

func (m *MockRegistrationService) AuthenticateRegistered(ctx context.Context, serverID, token string) error {
	if m.AuthenticateRegisteredFunc != nil {
		return m.AuthenticateRegisteredFunc(ctx, serverID, token)
	}
	return nil
}

// MockBatchService
type MockBatchService struct {
	RecordBatchFunc func(ctx context.Context, serverID, sessionID string, platform *string, batchID uuid.UUID, s3Key string, payloadBytes int32) error
}

func (m *MockBatchService) RecordBatch(ctx context.Context, serverID, sessionID string, platform *string, batchID uuid.UUID, s3Key string, payloadBytes int32) error {
	if m.RecordBatchFunc != nil {
		return m.RecordBatchFunc(ctx, serverID, sessionID, platform, batchID, s3Key, payloadBytes)
	}
	return nil
}

// MockPlayerService
type MockPlayerService struct {
	ExtractAndUpsertFunc func(ctx context.Context, serverID string, gzBody []byte) error
}

func (m *MockPlayerService) ExtractAndUpsert(ctx context.Context, serverID string, gzBody []byte) error {
	if m.ExtractAndUpsertFunc != nil {
		return m.ExtractAndUpsertFunc(ctx, serverID, gzBody)
	}
	return nil
}

// MockFindingsService
type MockFindingsService struct {
	StoreFindingsFunc      func(ctx context.Context, req *models.PostFindingsRequest) (int, []logic.FindingGroup, error)
	GetWebhookSettingsFunc func(ctx context.Context, serverID string) (*models.WebhookSettings, error)
	ServerNameFunc         func(ctx context.Context, serverID string) (*string, error)
}

func (m *MockFindingsService) StoreFindings(ctx context.Context, req *models.PostFindingsRequest) (int, []logic.FindingGroup, error) {
	if m.StoreFindingsFunc != nil {
		return m.StoreFindingsFunc(ctx, req)
	}
	return 0, nil, nil
}

func (m *MockFindingsService) GetWebhookSettings(ctx context.Context, serverID string) (*models.WebhookSettings, error) {
	if m.GetWebhookSettingsFunc != nil {
		return m.GetWebhookSettingsFunc(ctx, serverID)
	}
	return nil, nil
}

func (m *MockFindingsService) ServerName(ctx context.Context, serverID string) (*string, error) {
	if m.ServerNameFunc != nil {
		return m.ServerNameFunc(ctx, serverID)
	}
	return nil, nil
}

// MockPlayerStateService
type MockPlayerStateService struct {
	GetFunc      func(ctx context.Context, serverID string, playerUUID uuid.UUID, moduleName string) (json.RawMessage, *time.Time, error)
	SetFunc      func(ctx context.Context, serverID string, playerUUID uuid.UUID, moduleName string, state json.RawMessage) error
	BatchGetFunc func(ctx context.Context, serverID string, playerUUIDs []uuid.UUID, moduleName string) ([]models.BatchPlayerState, error)
	BatchSetFunc func(ctx context.Context, serverID, moduleName string, states []models.PlayerStateEntry) (int, error)
}

func (m *MockPlayerStateService) Get(ctx context.Context, serverID string, playerUUID uuid.UUID, moduleName string) (json.RawMessage, *time.Time, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, serverID, playerUUID, moduleName)
	}
	return nil, nil, nil
}

func (m *MockPlayerStateService) Set(ctx context.Context, serverID string, playerUUID uuid.UUID, moduleName string, state json.RawMessage) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, serverID, playerUUID, moduleName, state)
	}
	return nil
}

func (m *MockPlayerStateService) BatchGet(ctx context.Context, serverID string, playerUUIDs []uuid.UUID, moduleName string) ([]models.BatchPlayerState, error) {
	if m.BatchGetFunc != nil {
		return m.BatchGetFunc(ctx, serverID, playerUUIDs, moduleName)
	}
	return nil, nil
}

func (m *MockPlayerStateService) BatchSet(ctx context.Context, serverID, moduleName string, states []models.PlayerStateEntry) (int, error) {
	if m.BatchSetFunc != nil {
		return m.BatchSetFunc(ctx, serverID, moduleName, states)
	}
	return len(states), nil
}

// MockModuleService
type MockModuleService struct {
	UpsertFunc func(ctx context.Context, serverID string, req *models.UpsertModuleRequest) (*models.ServerModule, error)
	ListFunc   func(ctx context.Context, serverID string) ([]models.ServerModule, error)
	ToggleFunc func(ctx context.Context, serverID string, moduleID uuid.UUID, enabled bool) error
}

func (m *MockModuleService) Upsert(ctx context.Context, serverID string, req *models.UpsertModuleRequest) (*models.ServerModule, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, serverID, req)
	}
	return &models.ServerModule{ServerID: serverID, Name: req.Name, BaseURL: req.BaseURL}, nil
}

func (m *MockModuleService) List(ctx context.Context, serverID string) ([]models.ServerModule, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, serverID)
	}
	return nil, nil
}

func (m *MockModuleService) EnabledForServer(ctx context.Context, serverID string) ([]models.ServerModule, error) {
	return nil, nil
}

func (m *MockModuleService) AllEnabled(ctx context.Context) ([]models.ServerModule, error) {
	return nil, nil
}

func (m *MockModuleService) MarkHealthOK(ctx context.Context, moduleID uuid.UUID) error { return nil }

func (m *MockModuleService) MarkHealthFailure(ctx context.Context, moduleID uuid.UUID, reason string) error {
	return nil
}

func (m *MockModuleService) RecordDispatch(ctx context.Context, batchID uuid.UUID, serverID string, moduleID uuid.UUID, status string, httpStatus *int, dispatchErr *string) error {
	return nil
}

func (m *MockModuleService) Toggle(ctx context.Context, serverID string, moduleID uuid.UUID, enabled bool) error {
	if m.ToggleFunc != nil {
		return m.ToggleFunc(ctx, serverID, moduleID, enabled)
	}
	return nil
}

// MockObservationService
type MockObservationService struct {
	CreateFunc func(ctx context.Context, serverID string, obs *models.CreateObservation) (uuid.UUID, error)
}

func (m *MockObservationService) Create(ctx context.Context, serverID string, obs *models.CreateObservation) (uuid.UUID, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, serverID, obs)
	}
	return uuid.New(), nil
}

// MockDashboardService
type MockDashboardService struct {
	ServersFunc  func(ctx context.Context) ([]models.ServerInfo, error)
	StatsFunc    func(ctx context.Context, serverID string) (*models.DashboardStats, error)
	FindingsFunc func(ctx context.Context, serverID string, limit, offset int64, severity *string) ([]models.FindingItem, int64, error)
	PlayersFunc  func(ctx context.Context, serverID string) ([]models.PlayerItem, error)
	ModulesFunc  func(ctx context.Context, serverID string) ([]models.ModuleItem, error)
	StatusFunc   func(ctx context.Context, serverID string) (*models.ConnectionStatus, error)
}

func (m *MockDashboardService) Servers(ctx context.Context) ([]models.ServerInfo, error) {
	if m.ServersFunc != nil {
		return m.ServersFunc(ctx)
	}
	return nil, nil
}

func (m *MockDashboardService) Stats(ctx context.Context, serverID string) (*models.DashboardStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, serverID)
	}
	return &models.DashboardStats{}, nil
}

func (m *MockDashboardService) Findings(ctx context.Context, serverID string, limit, offset int64, severity *string) ([]models.FindingItem, int64, error) {
	if m.FindingsFunc != nil {
		return m.FindingsFunc(ctx, serverID, limit, offset, severity)
	}
	return nil, 0, nil
}

func (m *MockDashboardService) Players(ctx context.Context, serverID string) ([]models.PlayerItem, error) {
	if m.PlayersFunc != nil {
		return m.PlayersFunc(ctx, serverID)
	}
	return nil, nil
}

func (m *MockDashboardService) Modules(ctx context.Context, serverID string) ([]models.ModuleItem, error) {
	if m.ModulesFunc != nil {
		return m.ModulesFunc(ctx, serverID)
	}
	return nil, nil
}

func (m *MockDashboardService) Status(ctx context.Context, serverID string) (*models.ConnectionStatus, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, serverID)
	}
	return &models.ConnectionStatus{PluginLastSeenMS: -1}, nil
}

// MockObjectStore
type MockObjectStore struct {
	PutBatchFunc func(ctx context.Context, key string, data []byte) error
	GetBatchFunc func(ctx context.Context, key string) ([]byte, error)
}

func (m *MockObjectStore) PutBatch(ctx context.Context, key string, data []byte) error {
	if m.PutBatchFunc != nil {
		return m.PutBatchFunc(ctx, key, data)
	}
	return nil
}

func (m *MockObjectStore) GetBatch(ctx context.Context, key string) ([]byte, error) {
	if m.GetBatchFunc != nil {
		return m.GetBatchFunc(ctx, key)
	}
	return nil, nil
}

// MockDispatcher
type MockDispatcher struct {
	DispatchBatchFunc func(ctx context.Context, serverID, sessionID string, batchID uuid.UUID, s3Key string, rawGzNDJSON []byte) error
}

func (m *MockDispatcher) DispatchBatch(ctx context.Context, serverID, sessionID string, batchID uuid.UUID, s3Key string, rawGzNDJSON []byte) error {
	if m.DispatchBatchFunc != nil {
		return m.DispatchBatchFunc(ctx, serverID, sessionID, batchID, s3Key, rawGzNDJSON)
	}
	return nil
}
