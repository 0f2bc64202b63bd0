package logic

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/klauspost/compress/gzip"
)

// execPool records Exec arguments; queries are rejected.
type execPool struct {
	execArgs [][]any
}

func (p *execPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected Query")
}

func (p *execPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return healthRow{err: errors.New("unexpected QueryRow")}
}

func (p *execPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.execArgs = append(p.execArgs, args)
	return pgconn.CommandTag{}, nil
}

func (p *execPool) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("unexpected Begin")
}

func gzLines(t *testing.T, lines ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	for _, l := range lines {
		gw.Write([]byte(l + "\n"))
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractAndUpsertSkipsMetadataLine(t *testing.T) {
	metaUUID := uuid.New()
	playerUUID := uuid.New()

	body := gzLines(t,
		`{"server":"srv-1","uuid":"`+metaUUID.String()+`","name":"BatchMeta"}`,
		`{"type":"position","uuid":"`+playerUUID.String()+`","name":"Steve"}`,
	)

	pool := &execPool{}
	svc := NewPlayerService(pool)
	if err := svc.ExtractAndUpsert(context.Background(), "srv-1", body); err != nil {
		t.Fatalf("ExtractAndUpsert: %v", err)
	}

	// One players upsert and one server_players upsert for the single
	// packet identity; nothing from the metadata line.
	if len(pool.execArgs) != 2 {
		t.Fatalf("exec calls = %d, want 2", len(pool.execArgs))
	}
	for _, args := range pool.execArgs {
		for _, a := range args {
			u, ok := a.(uuid.UUID)
			if !ok {
				continue
			}
			if u == metaUUID {
				t.Errorf("metadata identity was upserted: %v", args)
			}
			if u != playerUUID {
				t.Errorf("unexpected player uuid %s in %v", u, args)
			}
		}
	}
}

func TestExtractAndUpsertMalformedLines(t *testing.T) {
	playerUUID := uuid.New()

	body := gzLines(t,
		`{"server":"srv-1"}`,
		`not json`,
		`{"uuid":"not-a-uuid","name":"Ghost"}`,
		`{"uuid":"`+playerUUID.String()+`","name":""}`,
		`{"uuid":"`+playerUUID.String()+`","name":"Steve"}`,
	)

	pool := &execPool{}
	svc := NewPlayerService(pool)
	if err := svc.ExtractAndUpsert(context.Background(), "srv-1", body); err != nil {
		t.Fatalf("ExtractAndUpsert: %v", err)
	}
	if len(pool.execArgs) != 2 {
		t.Fatalf("exec calls = %d, want 2", len(pool.execArgs))
	}
}
