package convert

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/catalog"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/config"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/dataset"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/legacy"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/storage"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/testutil"
)

func TestNewConverter_RequiresCollaborators(t *testing.T) {
	store := &testutil.MockObjectStore{}
	docs := &testutil.MockLegacyOpener{}
	datasets := &testutil.MockDatasetOpener{}

	_, err := NewConverter(nil, docs, datasets, Options{}, nil)
	assert.ErrorContains(t, err, "object store")
	_, err = NewConverter(store, nil, datasets, Options{}, nil)
	assert.ErrorContains(t, err, "legacy catalog opener")
	_, err = NewConverter(store, docs, nil, Options{}, nil)
	assert.ErrorContains(t, err, "dataset opener")

	c, err := NewConverter(store, docs, datasets, Options{Chunks: "none"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "none", c.chunks)
}

// newLocalConverter wires the real local components.
func newLocalConverter(t *testing.T) *Converter {
	t.Helper()
	store := storage.NewLocalStore()
	logger := slog.New(slog.DiscardHandler)
	c, err := NewConverter(store, legacy.NewOpener(store),
		dataset.NewDefaultRegistry(store, config.StorageConfig{}, logger), Options{}, logger)
	require.NoError(t, err)
	return c
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestRun_LegacyCatalogEndToEnd(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "atmos.zarr", ".zmetadata"), `{"metadata": {
		".zattrs": {"title": "harvested", "units": "K"},
		"tas/.zarray": {"shape": [2], "dtype": "<f4"}}}`)
	write(t, filepath.Join(dir, "main.yaml"), `
metadata:
  parameters:
    model: {type: str, default: icon, allowed: [icon, ifs]}
sources:
  atmos:
    driver: zarr
    args:
      urlpath: "{{ CATALOG_DIR }}/atmos.zarr"
    metadata:
      units: C
  ocean:
    driver: yaml_file_cat
    args:
      path: "{{ CATALOG_DIR }}/ocean/main.yaml"
`)
	out := filepath.Join(dir, "out", "intake2.yaml")

	report, err := newLocalConverter(t).Run(context.Background(), []string{filepath.Join(dir, "main.yaml")}, out, false)
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.True(t, report.Written)
	assert.False(t, report.Appended)
	assert.Equal(t, 2, report.Total)

	cat, exists, err := catalog.Load(out)
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, []string{"atmos", "ocean"}, cat.Names())

	p, ok := cat.Parameter(DirectoryVariable)
	require.True(t, ok)
	assert.Equal(t, filepath.ToSlash(dir)+"/", p.Default)

	atmos, _ := cat.Entry("atmos")
	assert.Equal(t, map[string]any{"title": "harvested", "units": "C"}, atmos.Metadata)
	assert.Equal(t, []string{"{ CATALOG_DIR }/atmos.zarr"}, atmos.Locations)

	ocean, _ := cat.Entry("ocean")
	assert.Equal(t, domain.BackendNestedCatalog, ocean.Kind)
	assert.Equal(t, []string{"{ CATALOG_DIR }/ocean/main2.yaml"}, ocean.Locations)
}

func TestRun_Additive(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b"} {
		write(t, filepath.Join(dir, name+".zarr", ".zattrs"), `{"title": "`+name+`"}`)
	}
	write(t, filepath.Join(dir, "a2.zarr", ".zattrs"), `{"title": "a again"}`)
	out := filepath.Join(dir, "intake2.yaml")
	c := newLocalConverter(t)
	ctx := context.Background()

	_, err := c.Run(ctx, []string{filepath.Join(dir, "a.zarr")}, out, false)
	require.NoError(t, err)

	report, err := c.Run(ctx, []string{filepath.Join(dir, "b.zarr")}, out, false)
	require.NoError(t, err)
	assert.True(t, report.Appended)

	cat, _, err := catalog.Load(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cat.Names())

	_, err = c.Run(ctx, []string{"a=" + filepath.Join(dir, "a2.zarr")}, out, false)
	require.NoError(t, err)

	cat, _, err = catalog.Load(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cat.Names())
	a, _ := cat.Entry("a")
	assert.Equal(t, "a again", a.Metadata["title"])
	b, _ := cat.Entry("b")
	assert.Equal(t, "b", b.Metadata["title"])
}

func TestRun_FailedInputs(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "ok.zarr", ".zattrs"), `{}`)
	inputs := []string{filepath.Join(dir, "missing.zarr"), filepath.Join(dir, "ok.zarr")}
	c := newLocalConverter(t)

	t.Run("lenient", func(t *testing.T) {
		out := filepath.Join(dir, "lenient.yaml")
		report, err := c.Run(context.Background(), inputs, out, false)
		require.NoError(t, err)
		require.Len(t, report.Failed(), 1)
		var inv *domain.InvalidInputError
		assert.ErrorAs(t, report.Err(), &inv)

		cat, exists, err := catalog.Load(out)
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, []string{"ok"}, cat.Names())
	})

	t.Run("strict", func(t *testing.T) {
		out := filepath.Join(dir, "strict.yaml")
		report, err := c.Run(context.Background(), inputs, out, true)
		require.Error(t, err)
		assert.False(t, report.Written)
		assert.NoFileExists(t, out)
	})
}

func TestRun_OutputFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "ok.zarr", ".zattrs"), `{}`)
	blocker := filepath.Join(dir, "blocker")
	write(t, blocker, "not a directory")

	_, err := newLocalConverter(t).Run(context.Background(),
		[]string{filepath.Join(dir, "ok.zarr")}, filepath.Join(blocker, "intake2.yaml"), false)
	assert.Error(t, err)
}
