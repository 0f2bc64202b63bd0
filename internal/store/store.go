// Package store persists raw gzipped NDJSON batches. Two backends exist: a
// remote S3-compatible bucket and a local filesystem root. Keys are derived
// deterministically before any I/O so callers can record the index row first.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/asyncanticheat/ingest-api/internal/config"
)

const batchContentType = "application/x-ndjson"

// ErrInvalidKeyComponent is returned when a server or session id sanitizes
// to an empty string, which would otherwise allow path traversal.
var ErrInvalidKeyComponent = errors.New("server_id or session_id sanitizes to empty string")

// ObjectStore is the blob sink for raw batches.
type ObjectStore interface {
	PutBatch(ctx context.Context, key string, data []byte) error
	GetBatch(ctx context.Context, key string) ([]byte, error)
}

// BatchKey derives the deterministic object key for a batch:
//
//	events/{server_id}/{YYYY-MM-DD}/{session_id}/{batch_id}.ndjson.gz
//
// The layout keeps per-server lifecycle rules and session-level grouping
// cheap. Components are sanitized against traversal; an empty result is an
// error before any I/O happens.
func BatchKey(serverID, sessionID string, batchID uuid.UUID) (string, error) {
	server := sanitizeKeyComponent(serverID)
	session := sanitizeKeyComponent(sessionID)
	if server == "" || session == "" {
		return "", ErrInvalidKeyComponent
	}
	date := time.Now().UTC().Format("2006-01-02")
	return fmt.Sprintf("events/%s/%s/%s/%s.ndjson.gz", server, date, session, batchID), nil
}

// sanitizeKeyComponent strips path separators and leading dots so ids like
// "../../../etc" cannot escape the events/ prefix.
func sanitizeKeyComponent(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "\\", "")
	return strings.TrimLeft(s, ".")
}

// NewFromConfig builds the backend selected by the environment: a remote
// bucket when S3_BUCKET is set, the local filesystem root otherwise.
func NewFromConfig(cfg *config.Config) (ObjectStore, error) {
	if strings.TrimSpace(cfg.S3Bucket) == "" {
		return &Local{Root: cfg.LocalStoreDir}, nil
	}
	return newRemote(cfg)
}

// Remote stores batches in an S3-compatible bucket.
type Remote struct {
	client *minio.Client
	bucket string
}

func newRemote(cfg *config.Config) (*Remote, error) {
	endpoint := strings.TrimSpace(cfg.S3Endpoint)
	secure := true
	if endpoint == "" {
		endpoint = fmt.Sprintf("s3.%s.amazonaws.com", cfg.S3Region)
	} else {
		if strings.HasPrefix(endpoint, "http://") {
			endpoint = strings.TrimPrefix(endpoint, "http://")
			secure = false
		} else {
			endpoint = strings.TrimPrefix(endpoint, "https://")
		}
	}

	opts := &minio.Options{
		Region: cfg.S3Region,
		Secure: secure,
	}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		opts.Creds = credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, "")
	} else {
		opts.Creds = credentials.NewEnvAWS()
	}
	// AWS prefers virtual-hosted addressing; custom endpoints (MinIO, R2,
	// Supabase) need path-style.
	if strings.TrimSpace(cfg.S3Endpoint) != "" {
		opts.BucketLookup = minio.BucketLookupPath
	}

	client, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	return &Remote{client: client, bucket: cfg.S3Bucket}, nil
}

func (r *Remote) PutBatch(ctx context.Context, key string, data []byte) error {
	_, err := r.client.PutObject(ctx, r.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: batchContentType})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (r *Remote) GetBatch(ctx context.Context, key string) ([]byte, error) {
	obj, err := r.client.GetObject(ctx, r.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Local stores batches under a filesystem root, mirroring the key layout as
// directories.
type Local struct {
	Root string
}

func (l *Local) PutBatch(ctx context.Context, key string, data []byte) error {
	fullPath := filepath.Join(l.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", key, err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (l *Local) GetBatch(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.Root, filepath.FromSlash(key)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}
