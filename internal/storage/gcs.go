package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

// GCSStore reads objects from Google Cloud Storage.
type GCSStore struct {
	keyFile string
	client  *storage.Client
}

// NewGCSStore creates a GCSStore. An empty keyFile means unauthenticated
// access to public buckets.
func NewGCSStore(keyFile string) *GCSStore {
	return &GCSStore{keyFile: keyFile}
}

func (s *GCSStore) bucket(ctx context.Context, name string) (*storage.BucketHandle, error) {
	if s.client == nil {
		opt := option.WithoutAuthentication()
		if s.keyFile != "" {
			opt = option.WithAuthCredentialsFile(option.ServiceAccount, s.keyFile)
		}
		client, err := storage.NewClient(ctx, opt)
		if err != nil {
			return nil, fmt.Errorf("create GCS client: %w", err)
		}
		s.client = client
	}
	return s.client.Bucket(name), nil
}

// Open implements domain.ObjectStore.
func (s *GCSStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := parseGCSPath(location)
	if err != nil {
		return nil, err
	}
	b, err := s.bucket(ctx, bucket)
	if err != nil {
		return nil, err
	}
	r, err := b.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, domain.ErrNotFound("%s not found", location)
		}
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return r, nil
}

// Exists implements domain.ObjectStore. Prefixes of other objects exist.
func (s *GCSStore) Exists(ctx context.Context, location string) (bool, error) {
	bucket, key, err := parseGCSPath(location)
	if err != nil {
		return false, err
	}
	b, err := s.bucket(ctx, bucket)
	if err != nil {
		return false, err
	}
	_, err = b.Object(key).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, storage.ErrObjectNotExist) {
		return false, fmt.Errorf("stat %s: %w", location, err)
	}

	it := b.Objects(ctx, &storage.Query{Prefix: strings.TrimSuffix(key, "/") + "/"})
	_, err = it.Next()
	if errors.Is(err, iterator.Done) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("list %s: %w", location, err)
	}
	return true, nil
}

// parseGCSPath extracts bucket and key from a "gs://bucket/path/to/file" URI.
func parseGCSPath(path string) (bucket, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", fmt.Errorf("parse GCS path %q: %w", path, err)
	}
	if u.Scheme != "gs" && u.Scheme != "gcs" {
		return "", "", fmt.Errorf("expected gs:// scheme, got %q in %q", u.Scheme, path)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("empty key in GCS path %q", path)
	}
	return bucket, key, nil
}
