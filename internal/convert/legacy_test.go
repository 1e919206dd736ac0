package convert

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/catalog"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

func TestClassifyDriver(t *testing.T) {
	tests := []struct {
		driver string
		want   domain.BackendKind
	}{
		{"yaml_file_cat", domain.BackendNestedCatalog},
		{"netcdf", domain.BackendGriddedFile},
		{"intake_xarray.netcdf.NetCDFSource", domain.BackendGriddedFile},
		{"zarr", domain.BackendChunkedArray},
		{"intake_xarray.xzarr.ZarrSource", domain.BackendChunkedArray},
		{"", domain.BackendChunkedArray},
		{"intake.catalog.local.YAMLFileCatalog", domain.BackendChunkedArray},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDriver(tt.driver))
		})
	}
}

const parameterCatalog = `
metadata:
  version: 1
  parameters:
    level:
      type: int
      default: 850
      description: pressure level
    model:
      type: str
      default: a
      allowed: [a, b]
      description: model name
    experiment:
      type: str
      default: "{{ exp }}"
      description: experiment id
    broken:
      type: str
      default: c
      allowed: [a, b]
sources: {}
`

func TestConvertLegacy_ParameterTypeFilter(t *testing.T) {
	f := newFixture(t)
	f.addLegacy("/pool/cat/main.yaml", parameterCatalog)

	b := catalog.NewBuilder(nil)
	res := f.conv.ConvertInput(context.Background(), b, "/pool/cat/main.yaml")
	require.NoError(t, res.Err)
	assert.True(t, res.Legacy)

	cat := b.Catalog()
	_, ok := cat.Parameter("level")
	assert.False(t, ok, "int parameter must be skipped")
	_, ok = cat.Parameter("broken")
	assert.False(t, ok, "default outside allowed values must be skipped")

	model, ok := cat.Parameter("model")
	require.True(t, ok)
	assert.Equal(t, domain.ParameterOptions, model.Kind)
	assert.Equal(t, []string{"a", "b"}, model.Allowed)
	assert.Equal(t, "a", model.Default)

	exp, ok := cat.Parameter("experiment")
	require.True(t, ok)
	assert.Equal(t, domain.ParameterSimple, exp.Kind)
	assert.Equal(t, "{ exp }", exp.Default)

	dir, ok := cat.Parameter(DirectoryVariable)
	require.True(t, ok)
	assert.Equal(t, "/pool/cat/", dir.Default)

	assert.Contains(t, f.logs.String(), "only string parameters are supported")
	assert.Contains(t, f.logs.String(), "parameter=level")
}

const sourcesCatalog = `
sources:
  atmos:
    driver: zarr
    args:
      urlpath: "{{ CATALOG_DIR }}/atmos.zarr"
      storage_options:
        remote_protocol: https
    metadata:
      title: "Atmosphere {{ model }}"
  ocean:
    driver: intake_xarray.netcdf.NetCDFSource
    args:
      urlpath:
        - /data/ocean_1.nc
        - /data/ocean_2.nc
      storage_options:
        anon: true
  nourl:
    driver: zarr
    args: {}
  templated:
    driver: zarr
    parameters:
      model:
        type: str
        allowed: [icon, ifs]
    args:
      urlpath: "/data/{{ model }}.zarr"
  broken:
    driver: zarr
    args: [1, 2]
`

func TestConvertLegacy_Sources(t *testing.T) {
	f := newFixture(t)
	f.addLegacy("/pool/cat/main.yaml", sourcesCatalog)

	b := catalog.NewBuilder(nil)
	res := f.conv.ConvertInput(context.Background(), b, "/pool/cat/main.yaml")
	require.NoError(t, res.Err)

	cat := b.Catalog()
	assert.Equal(t, []string{"atmos", "ocean", "templated"}, cat.Names())
	assert.Equal(t, cat.Names(), res.Entries)

	atmos, _ := cat.Entry("atmos")
	assert.Equal(t, domain.BackendChunkedArray, atmos.Kind)
	assert.Equal(t, []string{"{ CATALOG_DIR }/atmos.zarr"}, atmos.Locations)
	assert.Equal(t, domain.StorageOptions{"remote_protocol": "https"}, atmos.StorageOptions)
	assert.Equal(t, "Atmosphere { model }", atmos.Metadata["title"])
	assert.Equal(t, domain.DefaultChunks, atmos.Options.Chunks)
	assert.Zero(t, atmos.Options.ZarrFormat)

	ocean, _ := cat.Entry("ocean")
	assert.Equal(t, domain.BackendGriddedFile, ocean.Kind)
	assert.Equal(t, []string{"/data/ocean_1.nc", "/data/ocean_2.nc"}, ocean.Locations)
	assert.Equal(t, true, ocean.StorageOptions["anon"])

	templated, _ := cat.Entry("templated")
	assert.Equal(t, []string{"/data/{ model }.zarr"}, templated.Locations)
	assert.Contains(t, templated.Parameters, "model")

	logs := f.logs.String()
	assert.Contains(t, logs, "source has no urlpath, skipped")
	assert.Contains(t, logs, "entry=nourl")
	assert.Contains(t, logs, "skipping malformed declaration")
	assert.Contains(t, logs, "name=broken")
	assert.Contains(t, logs, "parameterized entries are not supported")

	// harvest was attempted with the directory variable expanded
	require.NotEmpty(t, f.datasets.Opened)
	assert.Equal(t, []string{"/pool/cat/atmos.zarr"}, f.datasets.Opened[0].Locations)
}

const mixedCatalog = `
sources:
  first:
    driver: zarr
    args:
      urlpath: /data/first.zarr
  mixed:
    driver: zarr
    args:
      urlpath:
        - reference::parquet:file://a
        - plain/path/b
`

func TestConvertLegacy_MixedReferenceAbortsInput(t *testing.T) {
	f := newFixture(t)
	f.addLegacy("/pool/cat/main.yaml", mixedCatalog)

	b := catalog.NewBuilder(nil)
	_, err := b.AddEntry(&domain.Entry{Name: "keep", Kind: domain.BackendChunkedArray, Locations: []string{"/k.zarr"}})
	require.NoError(t, err)

	res := f.conv.ConvertInput(context.Background(), b, "/pool/cat/main.yaml")
	var verr *domain.ValidationError
	require.ErrorAs(t, res.Err, &verr)
	assert.Contains(t, res.Err.Error(), "mixed reference and non-reference")
	assert.Contains(t, res.Err.Error(), `"mixed"`)

	assert.Equal(t, []string{"keep"}, b.Catalog().Names())
	assert.Empty(t, b.Catalog().Parameters())
	assert.Empty(t, res.Entries)
}
