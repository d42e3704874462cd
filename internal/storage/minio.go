package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	TempDir   string
}

// MinioResolver downloads s3:// objects into a temp dir for extraction.
type MinioResolver struct {
	client  *minio.Client
	tempDir string
	logger  *slog.Logger
}

func NewMinioResolver(cfg MinioConfig, logger *slog.Logger) (*MinioResolver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	tmp := cfg.TempDir
	if tmp == "" {
		tmp = os.TempDir()
	}
	return &MinioResolver{client: client, tempDir: tmp, logger: logger}, nil
}

func (m *MinioResolver) Resolve(ctx context.Context, location string) (string, func(), error) {
	bucket, key, err := ParseS3(location)
	if err != nil {
		return "", noop, err
	}

	// keep the extension; the extractor dispatches on it
	local := filepath.Join(m.tempDir, "ca-"+uuid.NewString()+"-"+path.Base(key))
	if err := m.client.FGetObject(ctx, bucket, key, local, minio.GetObjectOptions{}); err != nil {
		_ = os.Remove(local)
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", noop, fmt.Errorf("%w: %s", ErrNotFound, location)
		}
		return "", noop, fmt.Errorf("failed to fetch object: %w", err)
	}

	m.logger.Debug("storage.minio.fetched", "bucket", bucket, "key", key)
	cleanup := func() {
		if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("storage.minio.cleanup_failed", "path", local, "error", err)
		}
	}
	return local, cleanup, nil
}

func (m *MinioResolver) Stat(ctx context.Context, location string) error {
	bucket, key, err := ParseS3(location)
	if err != nil {
		return err
	}
	if _, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return fmt.Errorf("%w: %s", ErrNotFound, location)
		}
		return fmt.Errorf("failed to stat object: %w", err)
	}
	return nil
}
