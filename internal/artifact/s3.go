package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Bucket     string
	Prefix     string
	Region     string
	Endpoint   string // S3-compatible endpoint such as LocalStack or MinIO
	PresignTTL time.Duration
}

// S3 uploads reports and returns a presigned GET URL.
type S3 struct {
	client    *s3.Client
	presigner *s3.PresignClient
	cfg       S3Config
	log       *slog.Logger
}

func NewS3(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = defaultPresignTTL
	}
	return &S3{client: client, presigner: s3.NewPresignClient(client), cfg: cfg, log: logger}, nil
}

func (s *S3) Publish(ctx context.Context, localPath, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	name := objectKey(s.cfg.Prefix, key)
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(name),
		Body:        f,
		ContentType: aws.String(contentType(localPath)),
	}); err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.cfg.Bucket, name, err)
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(name),
	}, s3.WithPresignExpires(s.cfg.PresignTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign get object: %w", err)
	}
	s.log.Info("artifact.s3.published", "bucket", s.cfg.Bucket, "key", name, "expires_in", s.cfg.PresignTTL)
	return req.URL, nil
}
