package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Fetcher downloads objects to local files so file-based loaders can read them.
type Fetcher struct {
	client *minio.Client
	logger *slog.Logger
}

// NewMinIOClient builds a client from a normalized config.
// Without static keys the AWS environment and IAM credential chain is used.
func NewMinIOClient(cfg Config) (*minio.Client, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	creds := credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	if cfg.AccessKey == "" {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.IAM{},
		})
	}
	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: *cfg.UseSSL,
		Region: cfg.Region,
	})
}

// NewFetcher creates a Fetcher for the given endpoint config.
func NewFetcher(cfg Config, logger *slog.Logger) (*Fetcher, error) {
	client, err := NewMinIOClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewFetcherWithClient(client, logger)
}

// NewFetcherWithClient wraps an existing client.
func NewFetcherWithClient(client *minio.Client, logger *slog.Logger) (*Fetcher, error) {
	if client == nil {
		return nil, fmt.Errorf("minio client is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{client: client, logger: logger}, nil
}

// Download copies the object at rawURL into dir, keeping the object's base
// name so format detection by extension still works. Returns the local path.
func (f *Fetcher) Download(ctx context.Context, rawURL, dir string) (string, error) {
	bucket, key, err := ParseURL(rawURL)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	local := filepath.Join(dir, path.Base(key))

	f.logger.Debug("downloading object", slog.String("bucket", bucket), slog.String("key", key), slog.String("dest", local))

	if err := f.client.FGetObject(ctx, bucket, key, local, minio.GetObjectOptions{}); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	return local, nil
}
