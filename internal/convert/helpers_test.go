package convert

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/testutil"
)

type fixture struct {
	store    *testutil.MockObjectStore
	docs     *testutil.MockLegacyOpener
	datasets *testutil.MockDatasetOpener
	logs     *bytes.Buffer
	conv     *Converter
}

// newFixture wires a converter over mocks. Datasets fail as unsupported
// unless a test sets OpenFn.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    &testutil.MockObjectStore{Files: map[string][]byte{}},
		docs:     &testutil.MockLegacyOpener{Documents: map[string]string{}},
		datasets: &testutil.MockDatasetOpener{OpenFn: testutil.Unsupported()},
		logs:     &bytes.Buffer{},
	}
	logger := slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	conv, err := NewConverter(f.store, f.docs, f.datasets, Options{}, logger)
	require.NoError(t, err)
	f.conv = conv
	return f
}

// addLegacy registers a legacy document at location.
func (f *fixture) addLegacy(location, text string) {
	f.store.Files[location] = []byte(text)
	f.docs.Documents[location] = text
}

// addStore registers a directory-like array store at location.
func (f *fixture) addStore(location string) {
	f.store.Files[location+"/.zmetadata"] = []byte(`{"metadata": {}}`)
}
