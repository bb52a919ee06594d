package artifact

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS uploads reports to a bucket and returns a gs:// reference.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
	log    *slog.Logger
}

func NewGCS(ctx context.Context, bucket, prefix string, logger *slog.Logger, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix, log: logger}, nil
}

func (g *GCS) Publish(ctx context.Context, localPath, key string) (string, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := objectKey(g.prefix, key)
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType(localPath)
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return "", fmt.Errorf("upload gs://%s/%s: %w", g.bucket, name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize gs://%s/%s: %w", g.bucket, name, err)
	}
	ref := fmt.Sprintf("gs://%s/%s", g.bucket, name)
	g.log.Info("artifact.gcs.published", "object", ref)
	return ref, nil
}

func (g *GCS) Close() error { return g.client.Close() }
