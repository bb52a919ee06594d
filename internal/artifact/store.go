// Package artifact publishes finished session reports and returns a reference callers can fetch.
package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Store publishes a local file under key (owner/session/file) and returns its reference.
type Store interface {
	Publish(ctx context.Context, localPath, key string) (string, error)
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg common.StorageConfig, publicBaseURL string, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case "", "local":
		return NewLocal(publicBaseURL, logger), nil
	case "gcs":
		return NewGCS(ctx, cfg.Bucket, cfg.Prefix, logger)
	case "s3":
		return NewS3(ctx, S3Config{
			Bucket:     cfg.Bucket,
			Prefix:     cfg.Prefix,
			Region:     cfg.Region,
			Endpoint:   cfg.Endpoint,
			PresignTTL: cfg.PresignTTL,
		}, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", "unknown storage backend "+cfg.Backend, common.ErrInvalidInput)
	}
}

// Local leaves the report where it was written. With a public base URL the reference is the
// download route for the key; otherwise it is the local path.
type Local struct {
	baseURL string
	log     *slog.Logger
}

func NewLocal(publicBaseURL string, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{baseURL: strings.TrimRight(publicBaseURL, "/"), log: logger}
}

func (l *Local) Publish(_ context.Context, localPath, key string) (string, error) {
	if l.baseURL == "" {
		return localPath, nil
	}
	ref, err := url.JoinPath(l.baseURL, "download", key)
	if err != nil {
		return "", fmt.Errorf("build download url: %w", err)
	}
	l.log.Debug("artifact.local.published", "key", key, "url", ref)
	return ref, nil
}

func objectKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

const defaultPresignTTL = 24 * time.Hour

func contentType(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
