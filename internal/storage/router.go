// Package storage provides read access to local files and remote object
// stores (HTTP, S3, GCS, Azure Blob) behind a single location-based API.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/config"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

// Compile-time interface checks.
var (
	_ domain.ObjectStore = (*Router)(nil)
	_ domain.ObjectStore = (*LocalStore)(nil)
	_ domain.ObjectStore = (*HTTPStore)(nil)
	_ domain.ObjectStore = (*S3Store)(nil)
	_ domain.ObjectStore = (*GCSStore)(nil)
	_ domain.ObjectStore = (*AzureStore)(nil)
)

// Router dispatches each location to the store responsible for its scheme.
type Router struct {
	local *LocalStore
	http  *HTTPStore
	s3    *S3Store
	gcs   *GCSStore
	azure *AzureStore
}

// NewRouter creates a Router with every backend configured from cfg.
// Remote clients are created lazily on first use where the SDK requires it.
func NewRouter(cfg config.StorageConfig) *Router {
	return &Router{
		local: NewLocalStore(),
		http:  NewHTTPStore(cfg.HTTPTimeout, cfg.RemoteRPS, cfg.RemoteBurst),
		s3:    NewS3Store(cfg),
		gcs:   NewGCSStore(cfg.GCSKeyFile),
		azure: NewAzureStore(cfg.AzureAccountName, cfg.AzureAccountKey),
	}
}

// Open implements domain.ObjectStore.
func (r *Router) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	store, err := r.backend(location)
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, location)
}

// Exists implements domain.ObjectStore.
func (r *Router) Exists(ctx context.Context, location string) (bool, error) {
	store, err := r.backend(location)
	if err != nil {
		return false, err
	}
	return store.Exists(ctx, location)
}

func (r *Router) backend(location string) (domain.ObjectStore, error) {
	switch Scheme(location) {
	case "", "file":
		return r.local, nil
	case "http", "https":
		return r.http, nil
	case "s3", "s3a":
		return r.s3, nil
	case "gs", "gcs":
		return r.gcs, nil
	case "az", "abfs", "abfss":
		return r.azure, nil
	default:
		return nil, fmt.Errorf("location %q: %w: scheme %q", location, domain.ErrUnsupportedBackend, Scheme(location))
	}
}

// Scheme returns the lower-cased URL scheme of location, or "" for plain paths.
func Scheme(location string) string {
	idx := strings.Index(location, "://")
	if idx <= 0 {
		return ""
	}
	scheme := location[:idx]
	for _, c := range scheme {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.') {
			return ""
		}
	}
	return strings.ToLower(scheme)
}

// IsRemote reports whether location is served by a network store.
func IsRemote(location string) bool {
	s := Scheme(location)
	return s != "" && s != "file"
}

// Join appends path elements to a location, using filepath semantics for
// plain paths and slash semantics for URLs.
func Join(base string, elem ...string) string {
	if Scheme(base) == "" {
		return filepath.Join(append([]string{base}, elem...)...)
	}
	out := strings.TrimRight(base, "/")
	for _, e := range elem {
		e = strings.Trim(e, "/")
		if e == "" {
			continue
		}
		out += "/" + e
	}
	return out
}

// Dir returns the directory containing location with a trailing slash.
// Plain paths are made absolute.
func Dir(location string) (string, error) {
	if Scheme(location) == "" {
		abs, err := filepath.Abs(filepath.Dir(location))
		if err != nil {
			return "", fmt.Errorf("resolve directory of %s: %w", location, err)
		}
		return filepath.ToSlash(abs) + "/", nil
	}
	if Scheme(location) == "file" {
		return Dir(location[len("file://"):])
	}
	idx := strings.LastIndex(location, "/")
	if idx < len(Scheme(location))+3 {
		return location + "/", nil
	}
	return location[:idx+1], nil
}

// Stem returns the final path segment of location without its extension.
func Stem(location string) string {
	trimmed := strings.TrimRight(location, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.LastIndex(trimmed, "."); idx > 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}
