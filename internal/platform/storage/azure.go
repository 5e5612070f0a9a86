package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
)

type AzureConfig struct {
	Account       string
	AccountKey    string
	Container     string
	PublicBaseURL string
}

// Azure uploads block blobs into one container.
type Azure struct {
	cred       *azblob.SharedKeyCredential
	serviceURL string
	container  string
	baseURL    string
}

func NewAzure(cfg AzureConfig) (*Azure, error) {
	if cfg.Account == "" || cfg.AccountKey == "" || cfg.Container == "" {
		return nil, errors.New("azure account, key and container are required")
	}
	cred, err := azblob.NewSharedKeyCredential(cfg.Account, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.Account)
	base := cfg.PublicBaseURL
	if base == "" {
		base = serviceURL + cfg.Container
	}
	return &Azure{cred: cred, serviceURL: serviceURL, container: cfg.Container, baseURL: base}, nil
}

func (b *Azure) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	client, err := blockblob.NewClientWithSharedKeyCredential(b.serviceURL+b.container+"/"+key, b.cred, nil)
	if err != nil {
		return fmt.Errorf("blob client for %s: %w", key, err)
	}
	_, err = client.UploadStream(ctx, body, &blockblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (b *Azure) PublicURL(key string) string {
	return joinURL(b.baseURL, key)
}
