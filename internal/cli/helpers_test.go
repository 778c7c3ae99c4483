package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/config"
	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/testutil"
)

// workspace is a temp directory with a settings file pointing every store
// inside it.
type workspace struct {
	dir     string
	workDir string
	ids     *testutil.SequentialIDs
}

func setupWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()
	workDir := filepath.Join(dir, "work")
	require.NoError(t, os.MkdirAll(workDir, 0o755))

	settings := fmt.Sprintf(`project: nyc_airbnb
registry: %q
cache_dir: %q
work_dir: %q
log_level: info
blobs:
  backend: local
  root: %q
  bucket: artifacts
`, filepath.Join(dir, "registry.db"), filepath.Join(dir, "cache"), workDir, filepath.Join(dir, "blobs"))

	path := filepath.Join(dir, "tracking.yaml")
	require.NoError(t, os.WriteFile(path, []byte(settings), 0o644))
	t.Setenv(config.EnvConfigPath, path)

	return &workspace{dir: dir, workDir: workDir, ids: testutil.NewSequentialIDs("run")}
}

// execute runs the command tree with args and captures its output.
func (w *workspace) execute(args ...string) (string, string, error) {
	cmd := newRootCommand(&RootOptions{
		Clock: testutil.NewDeterministicClock(),
		IDs:   w.ids,
	})
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeFile creates a file in the workspace and returns its path.
func (w *workspace) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(w.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// seed publishes content as sample.csv.
func (w *workspace) seed(t *testing.T, content string) {
	t.Helper()
	_, _, err := w.execute("artifact", "put", "--name", "sample.csv", "--type", "raw_data",
		"--description", "Raw listings", w.writeFile(t, "sample1.csv", content))
	require.NoError(t, err)
}

func cleanArgs(input string, min, max string) []string {
	return []string{
		"--input_artifact", input,
		"--output_artifact", "clean_sample.csv",
		"--output_type", "clean_sample",
		"--output_description", "Data with outliers and null values removed",
		"--min_price", min,
		"--max_price", max,
	}
}
