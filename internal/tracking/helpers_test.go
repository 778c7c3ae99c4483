package tracking

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/blob"
	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/registry"
	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/testutil"
)

type testEnv struct {
	client *Client
	blobs  *blob.LocalStore
	dir    string
}

// newTestClient builds a client over a temp registry and local blob store
// with deterministic timestamps and run ids.
func newTestClient(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	reg, err := registry.Open(filepath.Join(dir, "registry.db"))
	require.NoError(t, err)

	store := blob.NewLocalStore(filepath.Join(dir, "blobs"), "artifacts")
	require.NoError(t, store.EnsureBucket(context.Background()))

	c := New(reg, store, filepath.Join(dir, "cache"),
		WithClock(testutil.NewDeterministicClock()),
		WithIDGenerator(testutil.NewSequentialIDs("run")),
		WithProject("nyc_airbnb"),
	)
	t.Cleanup(func() { c.Close() })
	return &testEnv{client: c, blobs: store, dir: dir}
}

// writeFile creates a file under the env dir and returns its path.
func (e *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, "src", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// seed publishes content as a new version of name outside any run.
func (e *testEnv) seed(t *testing.T, name, typ, content string) Version {
	t.Helper()
	a := NewArtifact(name, typ, "seeded by test")
	require.NoError(t, a.AddFile(e.writeFile(t, name, content)))
	v, err := e.client.PutArtifact(context.Background(), a)
	require.NoError(t, err)
	return v
}
