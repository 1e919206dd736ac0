package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/config"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

func TestScheme(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/data/x.zarr", ""},
		{"relative/x.zarr", ""},
		{"file:///data/x.zarr", "file"},
		{"HTTPS://host/x", "https"},
		{"s3://bucket/key", "s3"},
		{"reference::parquet:file:///x", ""},
		{"not a scheme://x", ""},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Scheme(tc.in))
		})
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "x.zarr", ".zattrs"), Join("data/x.zarr", ".zattrs"))
	assert.Equal(t, "https://host/x.zarr/.zmetadata", Join("https://host/x.zarr/", ".zmetadata"))
	assert.Equal(t, "s3://b/k/zarr.json", Join("s3://b/k", "", "/zarr.json"))
}

func TestDir(t *testing.T) {
	got, err := Dir("https://host/catalogs/main.yaml")
	require.NoError(t, err)
	assert.Equal(t, "https://host/catalogs/", got)

	tmp := t.TempDir()
	got, err = Dir(filepath.Join(tmp, "main.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(tmp)+"/", got)

	got, err = Dir("file://" + filepath.Join(tmp, "sub", "main.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(filepath.Join(tmp, "sub"))+"/", got)
}

func TestStem(t *testing.T) {
	assert.Equal(t, "baz", Stem("bar/baz.zarr"))
	assert.Equal(t, "baz", Stem("bar/baz.zarr/"))
	assert.Equal(t, "refs", Stem("reference::parquet:https://host/refs.parq"))
	assert.Equal(t, "archive.tar", Stem("archive.tar.gz"))
	assert.Equal(t, ".hidden", Stem("dir/.hidden"))
}

func TestRouter_LocalRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources: {}\n"), 0o644))

	r := NewRouter(config.StorageConfig{})
	ctx := context.Background()

	ok, err := r.Exists(ctx, path)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Exists(ctx, path+".missing")
	require.NoError(t, err)
	assert.False(t, ok)

	rc, err := r.Open(ctx, "file://"+path)
	require.NoError(t, err)
	defer rc.Close() //nolint:errcheck
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "sources: {}\n", string(data))
}

func TestLocalStore_OpenErrors(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore()
	ctx := context.Background()

	_, err := s.Open(ctx, filepath.Join(dir, "missing.yaml"))
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = s.Open(ctx, dir)
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)

	ok, err := s.Exists(ctx, dir)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRouter_UnsupportedScheme(t *testing.T) {
	r := NewRouter(config.StorageConfig{})
	_, err := r.Open(context.Background(), "ftp://host/file")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedBackend)
}

func TestParseObjectPaths(t *testing.T) {
	t.Run("s3", func(t *testing.T) {
		b, k, err := parseS3Path("s3://bucket/a/b.zarr")
		require.NoError(t, err)
		assert.Equal(t, "bucket", b)
		assert.Equal(t, "a/b.zarr", k)

		_, _, err = parseS3Path("s3://bucket/")
		assert.Error(t, err)
		_, _, err = parseS3Path("gs://bucket/x")
		assert.Error(t, err)
	})

	t.Run("gcs", func(t *testing.T) {
		b, k, err := parseGCSPath("gs://bucket/a/b.nc")
		require.NoError(t, err)
		assert.Equal(t, "bucket", b)
		assert.Equal(t, "a/b.nc", k)
	})

	t.Run("azure abfss", func(t *testing.T) {
		acct, c, k, err := parseAzurePath("abfss://cont@acct.dfs.core.windows.net/dir/x.zarr", "")
		require.NoError(t, err)
		assert.Equal(t, "acct", acct)
		assert.Equal(t, "cont", c)
		assert.Equal(t, "dir/x.zarr", k)
	})

	t.Run("azure az uses default account", func(t *testing.T) {
		acct, c, k, err := parseAzurePath("az://cont/x.zarr", "configured")
		require.NoError(t, err)
		assert.Equal(t, "configured", acct)
		assert.Equal(t, "cont", c)
		assert.Equal(t, "x.zarr", k)

		_, _, _, err = parseAzurePath("az://cont/x.zarr", "")
		assert.Error(t, err)
	})
}
