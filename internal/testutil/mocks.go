// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/legacy"
)

// === Object Store Mock ===

// MockObjectStore implements domain.ObjectStore over an in-memory file map.
// A location exists when it is a file or a prefix of one.
type MockObjectStore struct {
	Files    map[string][]byte
	OpenFn   func(ctx context.Context, location string) (io.ReadCloser, error)
	ExistsFn func(ctx context.Context, location string) (bool, error)
}

// Open implements the interface method for testing.
func (m *MockObjectStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if m.OpenFn != nil {
		return m.OpenFn(ctx, location)
	}
	b, ok := m.Files[location]
	if !ok {
		return nil, domain.ErrNotFound("%s not found", location)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// Exists implements the interface method for testing.
func (m *MockObjectStore) Exists(ctx context.Context, location string) (bool, error) {
	if m.ExistsFn != nil {
		return m.ExistsFn(ctx, location)
	}
	if _, ok := m.Files[location]; ok {
		return true, nil
	}
	prefix := strings.TrimRight(location, "/") + "/"
	for k := range m.Files {
		if strings.HasPrefix(k, prefix) {
			return true, nil
		}
	}
	return false, nil
}

var _ domain.ObjectStore = (*MockObjectStore)(nil)

// === Dataset Opener Mock ===

// MockDatasetOpener implements domain.DatasetOpener for testing.
type MockDatasetOpener struct {
	OpenFn func(ctx context.Context, e *domain.Entry) (*domain.Dataset, error)
	Opened []domain.Entry // copies of the descriptors passed to Open
}

// Open implements the interface method for testing.
func (m *MockDatasetOpener) Open(ctx context.Context, e *domain.Entry) (*domain.Dataset, error) {
	m.Opened = append(m.Opened, *e)
	if m.OpenFn != nil {
		return m.OpenFn(ctx, e)
	}
	panic("unexpected call to MockDatasetOpener.Open")
}

// Unsupported returns an OpenFn failing every open as unsupported.
func Unsupported() func(context.Context, *domain.Entry) (*domain.Dataset, error) {
	return func(_ context.Context, e *domain.Entry) (*domain.Dataset, error) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedBackend, e.Kind)
	}
}

var _ domain.DatasetOpener = (*MockDatasetOpener)(nil)

// === Legacy Opener Mock ===

// MockLegacyOpener serves legacy documents from YAML text keyed by
// location. Unknown locations are not catalogs.
type MockLegacyOpener struct {
	Documents map[string]string
	OpenFn    func(ctx context.Context, location string) (*legacy.Document, error)
	Calls     []string
}

// Open implements the interface method for testing.
func (m *MockLegacyOpener) Open(ctx context.Context, location string) (*legacy.Document, error) {
	m.Calls = append(m.Calls, location)
	if m.OpenFn != nil {
		return m.OpenFn(ctx, location)
	}
	text, ok := m.Documents[location]
	if !ok {
		return nil, fmt.Errorf("%s: %w", location, legacy.ErrNotCatalog)
	}
	return legacy.Parse([]byte(text), location)
}
