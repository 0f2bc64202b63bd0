package logic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// healthRow scans the server_id returned by a health-transition update.
type healthRow struct {
	serverID string
	err      error
}

func (r healthRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.serverID
	return nil
}

// healthPool serves QueryRow for the health-transition updates and rejects
// everything else.
type healthPool struct {
	serverID string
	rowErr   error
}

func (p *healthPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected Query")
}

func (p *healthPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return healthRow{serverID: p.serverID, err: p.rowErr}
}

func (p *healthPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (p *healthPool) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("unexpected Begin")
}

// recordingRedis records deleted keys; gets always miss.
type recordingRedis struct {
	deleted []string
}

func (r *recordingRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	return redis.NewStringResult("", redis.Nil)
}

func (r *recordingRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	return redis.NewStatusResult("OK", nil)
}

func (r *recordingRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	r.deleted = append(r.deleted, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestHealthTransitionsInvalidateModuleCache(t *testing.T) {
	rc := &recordingRedis{}
	svc := NewModuleService(&healthPool{serverID: "srv-1"}, rc)

	if err := svc.MarkHealthOK(context.Background(), uuid.New()); err != nil {
		t.Fatalf("MarkHealthOK: %v", err)
	}
	if err := svc.MarkHealthFailure(context.Background(), uuid.New(), "healthcheck failed"); err != nil {
		t.Fatalf("MarkHealthFailure: %v", err)
	}

	want := moduleCacheKey("srv-1")
	if len(rc.deleted) != 2 || rc.deleted[0] != want || rc.deleted[1] != want {
		t.Errorf("deleted cache keys = %v, want two deletions of %s", rc.deleted, want)
	}
}

func TestHealthTransitionsMissingModule(t *testing.T) {
	rc := &recordingRedis{}
	svc := NewModuleService(&healthPool{rowErr: pgx.ErrNoRows}, rc)

	if err := svc.MarkHealthOK(context.Background(), uuid.New()); err != nil {
		t.Fatalf("MarkHealthOK on missing module: %v", err)
	}
	if err := svc.MarkHealthFailure(context.Background(), uuid.New(), "gone"); err != nil {
		t.Fatalf("MarkHealthFailure on missing module: %v", err)
	}
	if len(rc.deleted) != 0 {
		t.Errorf("deleted cache keys = %v, want none", rc.deleted)
	}
}
