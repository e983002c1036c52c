package archive

import (
	"context"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSConfig configures a Google Cloud Storage bucket.
type GCSConfig struct {
	Bucket string
	// CredentialsFile is a service account JSON file. Application Default
	// Credentials are used when empty.
	CredentialsFile string
	// Endpoint overrides the storage endpoint, for emulators. No
	// authentication is used with a custom endpoint.
	Endpoint string
}

// GCSBucket stores objects in Google Cloud Storage.
type GCSBucket struct {
	client *gcs.Client
	bucket string
}

// NewGCSBucket creates a GCS bucket client.
func NewGCSBucket(ctx context.Context, cfg GCSConfig) (*GCSBucket, error) {
	var opts []option.ClientOption
	switch {
	case cfg.Endpoint != "":
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSBucket{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads data under key.
func (b *GCSBucket) Put(ctx context.Context, key string, data []byte, meta Metadata) error {
	w := b.client.Bucket(b.bucket).Object(key).NewWriter(ctx)
	w.ContentType = meta.ContentType
	if meta.Checksum != "" {
		w.Metadata = map[string]string{"sha256": meta.Checksum}
	}

	if _, err := w.Write(data); err != nil {
		w.Close() // #nosec G104 -- best-effort cleanup in error path
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object: %w", err)
	}
	return nil
}

// Close closes the GCS client.
func (b *GCSBucket) Close() error {
	return b.client.Close()
}
