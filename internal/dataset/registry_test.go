package dataset

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/config"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/storage"
)

func TestRegistry_Require(t *testing.T) {
	r := NewRegistry()
	r.Register(domain.BackendChunkedArray, AdapterFunc(func(context.Context, *domain.Entry) (*domain.Dataset, error) {
		return &domain.Dataset{}, nil
	}))

	require.NoError(t, r.Require(domain.BackendChunkedArray))
	err := r.Require(domain.BackendChunkedArray, domain.BackendTabularReference, domain.BackendGriddedFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gridded-file, tabular-reference")

	def := NewDefaultRegistry(storage.NewLocalStore(), config.StorageConfig{}, slog.New(slog.DiscardHandler))
	assert.NoError(t, def.Require(domain.BackendChunkedArray, domain.BackendGriddedFile, domain.BackendTabularReference))
	assert.NoError(t, def.Close())
}

func TestRegistry_Open(t *testing.T) {
	r := NewRegistry()
	var got *domain.Entry
	r.Register(domain.BackendChunkedArray, AdapterFunc(func(_ context.Context, e *domain.Entry) (*domain.Dataset, error) {
		got = e
		return &domain.Dataset{Attrs: map[string]any{"a": 1}}, nil
	}))

	e := &domain.Entry{Name: "x", Kind: domain.BackendChunkedArray, Locations: []string{"/x.zarr"}}
	ds, err := r.Open(context.Background(), e)
	require.NoError(t, err)
	assert.Same(t, e, got)
	assert.Equal(t, 1, ds.Attrs["a"])

	_, err = r.Open(context.Background(), &domain.Entry{Name: "n", Kind: domain.BackendNestedCatalog, Locations: []string{"/c.yaml"}})
	assert.ErrorIs(t, err, domain.ErrUnsupportedBackend)

	_, err = r.Open(context.Background(), &domain.Entry{Name: "e", Kind: domain.BackendChunkedArray})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}
