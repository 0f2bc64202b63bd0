package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/asyncanticheat/ingest-api/internal/config"
	"github.com/asyncanticheat/ingest-api/internal/database"
	"github.com/asyncanticheat/ingest-api/internal/handlers"
	"github.com/asyncanticheat/ingest-api/internal/logic"
	"github.com/asyncanticheat/ingest-api/internal/pipeline"
	"github.com/asyncanticheat/ingest-api/internal/store"
	"github.com/asyncanticheat/ingest-api/internal/webhooks"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		sugar.Warn("DATABASE_URL is empty; the service will fail to start without a database")
	}
	if cfg.IngestToken == "" {
		sugar.Warn("INGEST_TOKEN is empty; module registration endpoints will reject all requests")
	}
	if cfg.ModuleCallbackToken == "" {
		sugar.Warn("MODULE_CALLBACK_TOKEN is empty; module callbacks will reject all requests")
	}
	if cfg.S3Bucket == "" {
		sugar.Infow("S3_BUCKET is empty, using local object store", "dir", cfg.LocalStoreDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		sugar.Fatalw("migrations failed", "error", err)
	}
	pg, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		sugar.Fatalw("database connection failed", "error", err)
	}
	defer pg.Close()

	objects, err := store.NewFromConfig(cfg)
	if err != nil {
		sugar.Fatalw("object store init failed", "error", err)
	}

	var redisClient logic.RedisClient
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			sugar.Fatalw("invalid REDIS_URL", "error", err)
		}
		redisClient = redis.NewClient(opts)
	}

	httpc := &http.Client{Timeout: 10 * time.Second}

	registration := logic.NewRegistrationService(pg)
	batches := logic.NewBatchService(pg)
	players := logic.NewPlayerService(pg)
	findings := logic.NewFindingsService(pg)
	playerState := logic.NewPlayerStateService(pg)
	modules := logic.NewModuleService(pg, redisClient)
	observations := logic.NewObservationService(pg)
	dashboard := logic.NewDashboardService(pg)

	dispatcher := pipeline.NewDispatcher(modules, httpc, sugar)
	healthChecker := pipeline.NewHealthChecker(modules, httpc, sugar)
	notifier := webhooks.NewNotifier(httpc, sugar)

	go healthChecker.Run(ctx, time.Duration(cfg.ModuleHealthcheckIntervalSeconds)*time.Second)

	if cfg.ObjectStoreCleanupEnabled {
		objectTTL := pipeline.RetentionTTL(cfg.ObjectStoreTTLDays, cfg.ObjectStoreTTLSecondsOverride)
		indexTTL := pipeline.RetentionTTL(cfg.BatchIndexTTLDays, cfg.BatchIndexTTLSecondsOverride)
		sweeper := pipeline.NewSweeper(pg, objects, objectTTL, indexTTL, cfg.ObjectStoreCleanupDryRun, sugar)
		go sweeper.Run(ctx, time.Duration(cfg.ObjectStoreCleanupIntervalSeconds)*time.Second)
		sugar.Infow("retention sweeper enabled",
			"object_ttl", objectTTL,
			"index_ttl", indexTTL,
			"dry_run", cfg.ObjectStoreCleanupDryRun,
		)
	}

	corsOrigins := cfg.CORSAllowOrigins
	if cfg.CORSPermissiveDev {
		corsOrigins = nil
	}

	h := handlers.New(handlers.Config{
		Store:        objects,
		Dispatcher:   dispatcher,
		Notifier:     notifier,
		Logger:       logger,
		Registration: registration,
		Batches:      batches,
		Players:      players,
		Findings:     findings,
		PlayerState:  playerState,
		Modules:      modules,
		Observations: observations,
		Dashboard:    dashboard,

		IngestToken:         cfg.IngestToken,
		ModuleCallbackToken: cfg.ModuleCallbackToken,
		DashboardToken:      cfg.DashboardToken,
		MaxBodyBytes:        int64(cfg.MaxBodyBytes),
		CORSAllowedOrigins:  corsOrigins,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      h.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		sugar.Infow("ingest api listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("shutdown error", "error", err)
	}
}
