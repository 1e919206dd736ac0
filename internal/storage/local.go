package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/viant/afs"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

// LocalStore reads plain paths and file:// URLs through afs.
type LocalStore struct {
	fs afs.Service
}

// NewLocalStore creates a LocalStore.
func NewLocalStore() *LocalStore {
	return &LocalStore{fs: afs.New()}
}

// Open implements domain.ObjectStore. A missing file is a NotFoundError and
// a directory a ValidationError.
func (s *LocalStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	u, err := fileURL(location)
	if err != nil {
		return nil, err
	}
	ok, err := s.fs.Exists(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", location, err)
	}
	if !ok {
		return nil, domain.ErrNotFound("%s not found", location)
	}
	if obj, err := s.fs.Object(ctx, u); err == nil && obj.IsDir() {
		return nil, domain.ErrValidation("%s is a directory", location)
	}
	rc, err := s.fs.OpenURL(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", location, err)
	}
	return rc, nil
}

// Exists implements domain.ObjectStore. Directories exist.
func (s *LocalStore) Exists(ctx context.Context, location string) (bool, error) {
	u, err := fileURL(location)
	if err != nil {
		return false, err
	}
	ok, err := s.fs.Exists(ctx, u)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", location, err)
	}
	return ok, nil
}

// fileURL turns a plain or file:// location into an absolute file:// URL.
func fileURL(location string) (string, error) {
	p := location
	if Scheme(location) == "file" {
		p = location[len("file://"):]
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", location, err)
	}
	abs = filepath.ToSlash(abs)
	if !strings.HasPrefix(abs, "/") {
		abs = "/" + abs
	}
	return "file://" + abs, nil
}
