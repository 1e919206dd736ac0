package convert

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/catalog"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

func TestConvertInput_DirectStore(t *testing.T) {
	f := newFixture(t)
	f.addStore("/data/atmos.zarr")
	f.datasets.OpenFn = func(context.Context, *domain.Entry) (*domain.Dataset, error) {
		return &domain.Dataset{Attrs: map[string]any{"title": "ICON"}}, nil
	}

	b := catalog.NewBuilder(nil)
	res := f.conv.ConvertInput(context.Background(), b, "/data/atmos.zarr")
	require.NoError(t, res.Err)
	assert.Equal(t, InputPath, res.Kind)
	assert.False(t, res.Legacy)
	assert.Equal(t, []string{"atmos"}, res.Entries)

	e, ok := b.Catalog().Entry("atmos")
	require.True(t, ok)
	assert.Equal(t, domain.BackendChunkedArray, e.Kind)
	assert.Equal(t, map[string]any{"title": "ICON"}, e.Metadata)
	assert.Nil(t, e.StorageOptions)

	res = f.conv.ConvertInput(context.Background(), b, "renamed=/data/atmos.zarr")
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"atmos", "renamed"}, b.Catalog().Names())
}

func TestConvertInput_Reference(t *testing.T) {
	f := newFixture(t)
	b := catalog.NewBuilder(nil)

	res := f.conv.ConvertInput(context.Background(), b, "reference::parquet:https://host/refs.parq")
	require.NoError(t, res.Err)
	assert.Equal(t, InputReference, res.Kind)
	assert.Equal(t, []string{"refs_parquet_0", "refs"}, res.Entries)
	assert.Empty(t, f.docs.Calls, "reference inputs are never read as legacy catalogs")

	aux, ok := b.Catalog().Entry("refs_parquet_0")
	require.True(t, ok)
	assert.Equal(t, domain.BackendTabularReference, aux.Kind)
	assert.Equal(t, []string{"https://host/refs.parq"}, aux.Locations)
	assert.Equal(t, ParquetEngine, aux.Options.Engine)

	primary, _ := b.Catalog().Entry("refs")
	assert.Equal(t, 2, primary.Options.ZarrFormat)
	assert.Equal(t, domain.StorageOptions{
		"lazy":            true,
		"consolidated":    false,
		"remote_protocol": "file",
	}, primary.StorageOptions)
}

const referenceCatalog = `
sources:
  era5:
    driver: zarr
    args:
      urlpath:
        - reference::parquet:https://host/a.parq
        - reference::parquet:https://host/b.parq
      storage_options:
        remote_protocol: https
`

func TestConvertLegacy_ReferenceEntries(t *testing.T) {
	f := newFixture(t)
	f.addLegacy("/cat/main.yaml", referenceCatalog)
	b := catalog.NewBuilder(nil)

	res := f.conv.ConvertInput(context.Background(), b, "/cat/main.yaml")
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"era5_parquet_0", "era5_parquet_1", "era5"}, b.Catalog().Names())

	second, _ := b.Catalog().Entry("era5_parquet_1")
	assert.Equal(t, []string{"https://host/b.parq"}, second.Locations)

	primary, _ := b.Catalog().Entry("era5")
	assert.Len(t, primary.Locations, 2)
	assert.Equal(t, map[string]any{"asynchronous": true}, primary.StorageOptions["remote_options"])
	assert.Equal(t, "https", primary.StorageOptions["remote_protocol"])
}

func TestReferenceStorageOptions(t *testing.T) {
	tests := []struct {
		name string
		in   domain.StorageOptions
		want domain.StorageOptions
	}{
		{
			name: "unset",
			in:   nil,
			want: domain.StorageOptions{"lazy": true, "consolidated": false, "remote_protocol": "file"},
		},
		{
			name: "https",
			in:   domain.StorageOptions{"remote_protocol": "https"},
			want: domain.StorageOptions{"lazy": true, "consolidated": false, "remote_protocol": "https",
				"remote_options": map[string]any{"asynchronous": true}},
		},
		{
			name: "http_with_suffix",
			in:   domain.StorageOptions{"remote_protocol": "http:x"},
			want: domain.StorageOptions{"lazy": true, "consolidated": false, "remote_protocol": "http:x",
				"remote_options": map[string]any{"asynchronous": true}},
		},
		{
			name: "s3",
			in:   domain.StorageOptions{"remote_protocol": "s3", "consolidated": true},
			want: domain.StorageOptions{"lazy": true, "consolidated": false, "remote_protocol": "s3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReferenceStorageOptions(tt.in))
		})
	}
}

func TestTabularPath(t *testing.T) {
	assert.Equal(t, "https://host/refs.parq", TabularPath("reference::parquet:https://host/refs.parq"))
	assert.Equal(t, "file://a", TabularPath("reference::parquet:file://a"))
	assert.Equal(t, "/plain/path", TabularPath("/plain/path"))
	assert.Equal(t, "x_parquet_3", AuxiliaryName("x", 3))
}

func TestConvertInput_Invalid(t *testing.T) {
	f := newFixture(t)
	b := catalog.NewBuilder(nil)

	res := f.conv.ConvertInput(context.Background(), b, "/does/not/exist.zarr")
	var inv *domain.InvalidInputError
	require.ErrorAs(t, res.Err, &inv)
	assert.Equal(t, "/does/not/exist.zarr", inv.Input)
	assert.Equal(t, InputInvalid, res.Kind)
	assert.Equal(t, 0, b.Catalog().Len())
}
