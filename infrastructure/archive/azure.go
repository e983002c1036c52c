package archive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
)

// AzureConfig configures an Azure Blob Storage container.
type AzureConfig struct {
	Account   string
	Container string
	// ConnectionString replaces Account and DefaultAzureCredential when set.
	ConnectionString string
}

// AzureBucket stores objects as block blobs in one container.
type AzureBucket struct {
	client    *azblob.Client
	container string

	mu      sync.Mutex
	created bool
}

// NewAzureBucket creates a container client. The container is created on the
// first Put.
func NewAzureBucket(cfg AzureConfig) (*AzureBucket, error) {
	if cfg.Container == "" {
		return nil, fmt.Errorf("%w: container is required", ErrInvalidURL)
	}

	var client *azblob.Client
	var err error
	switch {
	case cfg.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	case cfg.Account != "":
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create default credential: %w", credErr)
		}
		serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.Account)
		client, err = azblob.NewClient(serviceURL, cred, nil)
	default:
		return nil, fmt.Errorf("%w: account or connection string is required", ErrInvalidURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &AzureBucket{client: client, container: cfg.Container}, nil
}

// Put uploads data as a block blob named key.
func (b *AzureBucket) Put(ctx context.Context, key string, data []byte, meta Metadata) error {
	if err := b.ensureContainer(ctx); err != nil {
		return err
	}

	opts := &azblob.UploadBufferOptions{}
	if meta.ContentType != "" {
		contentType := meta.ContentType
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}
	if meta.Checksum != "" {
		checksum := meta.Checksum
		opts.Metadata = map[string]*string{"sha256": &checksum}
	}

	if _, err := b.client.UploadBuffer(ctx, b.container, key, data, opts); err != nil {
		return fmt.Errorf("failed to upload blob: %w", err)
	}
	return nil
}

func (b *AzureBucket) ensureContainer(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.created {
		return nil
	}

	_, err := b.client.CreateContainer(ctx, b.container, nil)
	var respErr *azcore.ResponseError
	if err != nil && !(errors.As(err, &respErr) && respErr.StatusCode == http.StatusConflict) {
		return fmt.Errorf("failed to create container: %w", err)
	}
	b.created = true
	return nil
}

// Close is a no-op.
func (b *AzureBucket) Close() error { return nil }
