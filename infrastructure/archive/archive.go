// Package archive exports finished session summaries to blob storage.
//
// A bucket is selected by URL:
//
//	file:///var/lib/taskloop/archive
//	s3://bucket/prefix
//	gs://bucket/prefix
//	azblob://container/prefix
//	mem://prefix
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	domainconfig "github.com/felixgeelhaar/taskloop/domain/config"
	"github.com/felixgeelhaar/taskloop/domain/history"
	"github.com/felixgeelhaar/taskloop/infrastructure/logging"
)

// Archive errors.
var (
	ErrInvalidURL        = errors.New("invalid archive URL")
	ErrUnsupportedScheme = errors.New("unsupported archive scheme")
)

// ContentType is the content type of archived summaries.
const ContentType = "application/json"

// Metadata accompanies an archived object.
type Metadata struct {
	ContentType string
	// Checksum is the hex SHA-256 of the object.
	Checksum string
}

// Bucket stores objects by key.
type Bucket interface {
	Put(ctx context.Context, key string, data []byte, meta Metadata) error
	Close() error
}

// Archiver writes summaries into a bucket under a key prefix.
type Archiver struct {
	bucket Bucket
	prefix string
}

// New creates an archiver over bucket.
func New(bucket Bucket, prefix string) *Archiver {
	return &Archiver{bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for s, partitioned by end date.
func (a *Archiver) Key(s history.Summary) string {
	return path.Join(a.prefix, s.EndedAt.UTC().Format("2006/01/02"), s.ID+".json")
}

// Archive writes s and returns its key.
func (a *Archiver) Archive(ctx context.Context, s history.Summary) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding summary: %w", err)
	}
	sum := sha256.Sum256(data)
	meta := Metadata{ContentType: ContentType, Checksum: hex.EncodeToString(sum[:])}

	key := a.Key(s)
	if err := a.bucket.Put(ctx, key, data, meta); err != nil {
		return "", fmt.Errorf("archiving %s: %w", s.ID, err)
	}

	logging.Info().
		Add(logging.Component("archive")).
		Add(logging.SessionID(s.ID)).
		Add(logging.Str("key", key)).
		Msg("session archived")
	return key, nil
}

// Close releases the bucket.
func (a *Archiver) Close() error {
	return a.bucket.Close()
}

// Open creates an archiver for the bucket named by cfg.URL.
func Open(ctx context.Context, cfg domainconfig.ArchiveConfig) (*Archiver, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	prefix := strings.Trim(u.Path, "/")

	switch u.Scheme {
	case "mem":
		return New(NewMemoryBucket(), path.Join(u.Host, prefix)), nil
	case "file":
		dir := u.Host + u.Path
		if dir == "" {
			return nil, fmt.Errorf("%w: directory is required", ErrInvalidURL)
		}
		b, err := NewFileBucket(dir)
		if err != nil {
			return nil, err
		}
		return New(b, ""), nil
	}

	if u.Host == "" {
		return nil, fmt.Errorf("%w: bucket is required", ErrInvalidURL)
	}

	var b Bucket
	switch u.Scheme {
	case "s3":
		b, err = NewS3Bucket(ctx, S3Config{
			Bucket:   u.Host,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
		})
	case "gs":
		b, err = NewGCSBucket(ctx, GCSConfig{Bucket: u.Host, Endpoint: cfg.Endpoint})
	case "azblob":
		b, err = NewAzureBucket(AzureConfig{Account: cfg.Account, Container: u.Host})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
	if err != nil {
		return nil, err
	}
	return New(b, prefix), nil
}
