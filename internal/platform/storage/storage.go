package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"staffdesk/internal/platform/config"
)

// Bucket is a public object store. Uploaded objects are readable by anyone
// holding the URL returned from PublicURL.
type Bucket interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	PublicURL(key string) string
}

// New builds the bucket selected by STORAGE_BACKEND.
func New(cfg config.Config) (Bucket, error) {
	switch cfg.StorageBackend {
	case "", "local":
		base := cfg.StoragePublicBaseURL
		if base == "" {
			base = "/uploads"
		}
		return NewLocal(cfg.LocalStorageDir, base)
	case "s3":
		return NewS3(S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.StoragePublicBaseURL,
		})
	case "azure":
		return NewAzure(AzureConfig{
			Account:       cfg.AzureAccount,
			AccountKey:    cfg.AzureAccountKey,
			Container:     cfg.AzureContainer,
			PublicBaseURL: cfg.StoragePublicBaseURL,
		})
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
