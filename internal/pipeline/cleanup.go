package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/asyncanticheat/ingest-api/internal/logic"
	"github.com/asyncanticheat/ingest-api/internal/store"
)

// RetentionTTL turns the configured retention knobs into a duration. A
// seconds override wins over the day count. The floor is one day, or one
// minute when an override is set.
func RetentionTTL(days, secondsOverride int64) time.Duration {
	if secondsOverride > 0 {
		if secondsOverride < 60 {
			secondsOverride = 60
		}
		return time.Duration(secondsOverride) * time.Second
	}
	if days < 1 {
		days = 1
	}
	return time.Duration(days) * 24 * time.Hour
}

// Sweeper deletes expired batch blobs and their batch_index rows. Retention
// is best-effort housekeeping: errors are logged and the next tick retries.
type Sweeper struct {
	pg        logic.PgPool
	objects   store.ObjectStore
	objectTTL time.Duration
	indexTTL  time.Duration
	dryRun    bool
	logger    *zap.SugaredLogger
}

func NewSweeper(pg logic.PgPool, objects store.ObjectStore, objectTTL, indexTTL time.Duration, dryRun bool, logger *zap.SugaredLogger) *Sweeper {
	return &Sweeper{
		pg:        pg,
		objects:   objects,
		objectTTL: objectTTL,
		indexTTL:  indexTTL,
		dryRun:    dryRun,
		logger:    logger,
	}
}

// Tick runs one retention sweep and emits a single summary log line.
func (s *Sweeper) Tick(ctx context.Context) {
	now := time.Now()
	objectCutoff := now.Add(-s.objectTTL)
	indexCutoff := now.Add(-s.indexTTL)

	var stats store.CleanupStats
	switch backend := s.objects.(type) {
	case *store.Local:
		got, err := store.CleanupLocal(backend.Root, objectCutoff, s.dryRun)
		if err != nil {
			s.logger.Warnw("object store sweep failed", "error", err)
		} else {
			stats = got
		}
	default:
		// Remote buckets expire via their own lifecycle rules; only the
		// index rows are swept here.
		s.logger.Debugw("remote object store, skipping blob sweep")
	}

	var rowsDeleted int64
	if s.dryRun {
		if err := s.pg.QueryRow(ctx,
			`SELECT COUNT(*) FROM batch_index WHERE received_at < $1`,
			indexCutoff).Scan(&rowsDeleted); err != nil {
			s.logger.Warnw("batch index count failed", "error", err)
		}
	} else {
		tag, err := s.pg.Exec(ctx,
			`DELETE FROM batch_index WHERE received_at < $1`,
			indexCutoff)
		if err != nil {
			s.logger.Warnw("batch index sweep failed", "error", err)
		} else {
			rowsDeleted = tag.RowsAffected()
		}
	}

	if !s.dryRun {
		cleanupFilesDeleted.Add(float64(stats.FilesDeleted))
		cleanupRowsDeleted.Add(float64(rowsDeleted))
	}

	s.logger.Infow("retention sweep finished",
		"dry_run", s.dryRun,
		"object_cutoff", objectCutoff.UTC().Format(time.RFC3339),
		"index_cutoff", indexCutoff.UTC().Format(time.RFC3339),
		"files_examined", stats.FilesExamined,
		"files_deleted", stats.FilesDeleted,
		"bytes_deleted", stats.BytesDeleted,
		"dirs_removed", stats.DirsRemoved,
		"index_rows_deleted", rowsDeleted,
	)
}

// Run ticks at the given interval until the context is canceled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}
