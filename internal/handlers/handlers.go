package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asyncanticheat/ingest-api/internal/logic"
	"github.com/asyncanticheat/ingest-api/internal/store"
	"github.com/asyncanticheat/ingest-api/internal/webhooks"
)

// BatchDispatcher defines the interface for asynchronous module fan-out
type BatchDispatcher interface {
	DispatchBatch(ctx context.Context, serverID, sessionID string, batchID uuid.UUID, s3Key string, rawGzNDJSON []byte) error
}

type Config struct {
	Store      store.ObjectStore
	Dispatcher BatchDispatcher
	Notifier   *webhooks.Notifier
	Logger     *zap.Logger
	// Services
	Registration logic.RegistrationService
	Batches      logic.BatchService
	Players      logic.PlayerService
	Findings     logic.FindingsService
	PlayerState  logic.PlayerStateService
	Modules      logic.ModuleService
	Observations logic.ObservationService
	Dashboard    logic.DashboardService
	// Static tokens
	IngestToken         string
	ModuleCallbackToken string
	DashboardToken      string
	MaxBodyBytes        int64

	// CORS; empty means permissive.
	CORSAllowedOrigins []string
}

type Handler struct {
	store        store.ObjectStore
	dispatcher   BatchDispatcher
	notifier     *webhooks.Notifier
	logger       *zap.SugaredLogger
	validator    *validator.Validate
	registration logic.RegistrationService
	batches      logic.BatchService
	players      logic.PlayerService
	findings     logic.FindingsService
	playerState  logic.PlayerStateService
	modules      logic.ModuleService
	observations logic.ObservationService
	dashboard    logic.DashboardService

	ingestToken         string
	moduleCallbackToken string
	dashboardToken      string
	maxBodyBytes        int64
	corsAllowedOrigins  []string
}

func New(cfg Config) *Handler {
	return &Handler{
		store:        cfg.Store,
		dispatcher:   cfg.Dispatcher,
		notifier:     cfg.Notifier,
		logger:       cfg.Logger.Sugar(),
		validator:    validator.New(),
		registration: cfg.Registration,
		batches:      cfg.Batches,
		players:      cfg.Players,
		findings:     cfg.Findings,
		playerState:  cfg.PlayerState,
		modules:      cfg.Modules,
		observations: cfg.Observations,
		dashboard:    cfg.Dashboard,

		ingestToken:         cfg.IngestToken,
		moduleCallbackToken: cfg.ModuleCallbackToken,
		dashboardToken:      cfg.DashboardToken,
		maxBodyBytes:        cfg.MaxBodyBytes,
		corsAllowedOrigins:  cfg.CORSAllowedOrigins,
	}
}
