package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

func zarrEntry(name string, locs ...string) *domain.Entry {
	return &domain.Entry{
		Name:      name,
		Kind:      domain.BackendChunkedArray,
		Locations: locs,
		Options:   domain.OpenOptions{Chunks: domain.DefaultChunks},
		Metadata:  map[string]any{},
	}
}

func TestBuilder_AddEntry_LastWriteWinsInPlace(t *testing.T) {
	b := NewBuilder(nil)

	for _, name := range []string{"a", "b", "c"} {
		replaced, err := b.AddEntry(zarrEntry(name, "/data/"+name+".zarr"))
		require.NoError(t, err)
		assert.False(t, replaced)
	}

	replaced, err := b.AddEntry(zarrEntry("b", "/other/b.zarr"))
	require.NoError(t, err)
	assert.True(t, replaced)

	assert.Equal(t, []string{"a", "b", "c"}, b.Catalog().Names())
	e, ok := b.Catalog().Entry("b")
	require.True(t, ok)
	assert.Equal(t, []string{"/other/b.zarr"}, e.Locations)
}

func TestBuilder_AddEntry_Invalid(t *testing.T) {
	b := NewBuilder(nil)

	tests := []struct {
		name  string
		entry *domain.Entry
	}{
		{"nil", nil},
		{"no_name", zarrEntry("", "/x.zarr")},
		{"no_locations", zarrEntry("x")},
		{"unknown_kind", &domain.Entry{Name: "x", Kind: "tape", Locations: []string{"/x"}}},
		{"opaque_without_reader", &domain.Entry{Name: "x", Kind: domain.BackendOpaque}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.AddEntry(tc.entry)
			var verr *domain.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
	assert.Equal(t, 0, b.Catalog().Len())
}

func TestBuilder_AddParameter(t *testing.T) {
	b := NewBuilder(nil)

	_, err := b.AddParameter(domain.Parameter{Name: "model", Kind: domain.ParameterOptions, Default: "icon", Allowed: []string{"icon", "ifs"}})
	require.NoError(t, err)
	_, err = b.AddParameter(domain.Parameter{Name: "exp", Default: "hist"})
	require.NoError(t, err)

	p, ok := b.Catalog().Parameter("exp")
	require.True(t, ok)
	assert.Equal(t, domain.ParameterSimple, p.Kind)

	_, err = b.AddParameter(domain.Parameter{Name: "bad", Kind: domain.ParameterOptions, Default: "x", Allowed: []string{"y"}})
	assert.Error(t, err)

	replaced, err := b.AddParameter(domain.Parameter{Name: "exp", Default: "ssp585"})
	require.NoError(t, err)
	assert.True(t, replaced)
	require.Len(t, b.Catalog().Parameters(), 2)
	assert.Equal(t, "model", b.Catalog().Parameters()[0].Name)
	assert.Equal(t, "ssp585", b.Catalog().Parameters()[1].Default)
}

func TestBuilder_DirectoryVariableAndExpand(t *testing.T) {
	b := NewBuilder(nil)
	require.NoError(t, b.AddDirectoryVariable("CATALOG_DIR", "/pool/catalogs/"))
	_, err := b.AddParameter(domain.Parameter{Name: "model", Default: "icon"})
	require.NoError(t, err)

	p, ok := b.Catalog().Parameter("CATALOG_DIR")
	require.True(t, ok)
	assert.Equal(t, "/pool/catalogs/", p.Default)

	assert.Equal(t, "/pool/catalogs/icon.zarr", b.Expand("{CATALOG_DIR}{model}.zarr"))
	assert.Equal(t, "/pool/catalogs/x.zarr", b.Expand("{ CATALOG_DIR }/x.zarr"))
	assert.Equal(t, "{unknown}/x", b.Expand("{unknown}/x"))
}

func TestBuilder_SnapshotRestore(t *testing.T) {
	b := NewBuilder(nil)
	_, err := b.AddEntry(zarrEntry("a", "/a.zarr"))
	require.NoError(t, err)

	snap := b.Snapshot()
	_, err = b.AddEntry(zarrEntry("b", "/b.zarr"))
	require.NoError(t, err)
	_, err = b.AddEntry(zarrEntry("a", "/a2.zarr"))
	require.NoError(t, err)
	require.NoError(t, b.AddDirectoryVariable("CATALOG_DIR", "/x/"))

	b.Restore(snap)
	assert.Equal(t, []string{"a"}, b.Catalog().Names())
	a, _ := b.Catalog().Entry("a")
	assert.Equal(t, []string{"/a.zarr"}, a.Locations)
	assert.Empty(t, b.Catalog().Parameters())
}
