// Package dataset is the dataset access layer: adapters that open an entry
// descriptor by backend kind and report its attributes, variables and size.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/config"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

// Adapter opens descriptors of one backend kind.
type Adapter interface {
	Open(ctx context.Context, e *domain.Entry) (*domain.Dataset, error)
}

// AdapterFunc adapts a function to Adapter.
type AdapterFunc func(ctx context.Context, e *domain.Entry) (*domain.Dataset, error)

// Open calls f.
func (f AdapterFunc) Open(ctx context.Context, e *domain.Entry) (*domain.Dataset, error) {
	return f(ctx, e)
}

// Registry dispatches to the adapter registered for an entry's kind.
type Registry struct {
	adapters map[domain.BackendKind]Adapter
}

var _ domain.DatasetOpener = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: map[domain.BackendKind]Adapter{}}
}

// NewDefaultRegistry wires the built-in adapters over store.
func NewDefaultRegistry(store domain.ObjectStore, cfg config.StorageConfig, logger *slog.Logger) *Registry {
	r := NewRegistry()
	r.Register(domain.BackendChunkedArray, NewZarrAdapter(store))
	r.Register(domain.BackendGriddedFile, NewNetCDFAdapter(store))
	r.Register(domain.BackendTabularReference, NewParquetAdapter(store, cfg, logger))
	return r
}

// Register installs a for kind, replacing any earlier adapter.
func (r *Registry) Register(kind domain.BackendKind, a Adapter) {
	r.adapters[kind] = a
}

// Require checks that an adapter is registered for every kind.
func (r *Registry) Require(kinds ...domain.BackendKind) error {
	var missing []string
	for _, k := range kinds {
		if _, ok := r.adapters[k]; !ok {
			missing = append(missing, string(k))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("dataset registry: no adapter for %s", strings.Join(missing, ", "))
	}
	return nil
}

// Open opens e with the adapter registered for its kind.
func (r *Registry) Open(ctx context.Context, e *domain.Entry) (*domain.Dataset, error) {
	a, ok := r.adapters[e.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for %s entries", domain.ErrUnsupportedBackend, e.Kind)
	}
	if len(e.Locations) == 0 {
		return nil, domain.ErrValidation("entry %q has no locations", e.Name)
	}
	return a.Open(ctx, e)
}

// Close closes every adapter holding resources.
func (r *Registry) Close() error {
	var errs []error
	for _, a := range r.adapters {
		if c, ok := a.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
