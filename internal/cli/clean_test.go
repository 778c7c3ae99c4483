package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/cleaning"
)

const sampleCSV = "id,price,last_review\n" +
	"1,10,2019-01-01\n" +
	"2,50,2019-05-21\n" +
	"3,200,2018-07-07\n"

func TestClean_EndToEnd(t *testing.T) {
	ws := setupWorkspace(t)
	ws.seed(t, sampleCSV)

	stdout, stderr, err := ws.execute(cleanArgs("sample.csv:latest", "20", "100")...)
	require.NoError(t, err)

	assert.Equal(t, "Published clean_sample.csv:v0 (1 of 3 rows kept, run run-0001)\n", stdout)
	assert.Contains(t, stderr, "Downloading and reading artifact")
	assert.Contains(t, stderr, "Creating and logging artifact")

	data, err := os.ReadFile(filepath.Join(ws.workDir, cleaning.OutputFileName))
	require.NoError(t, err)
	assert.Equal(t, "id,price,last_review\n2,50,2019-05-21\n", string(data))
}

func TestClean_SecondRunCreatesNewVersion(t *testing.T) {
	ws := setupWorkspace(t)
	ws.seed(t, sampleCSV)

	_, _, err := ws.execute(cleanArgs("sample.csv:latest", "20", "100")...)
	require.NoError(t, err)
	stdout, _, err := ws.execute(cleanArgs("sample.csv:v0", "20", "100")...)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Published clean_sample.csv:v1")
}

func TestClean_UnknownInput(t *testing.T) {
	ws := setupWorkspace(t)

	_, _, err := ws.execute(cleanArgs("missing.csv:latest", "20", "100")...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "E_RESOLVE", ErrorCode(err))
	assert.True(t, cleaning.IsResolutionError(err))

	stdout, _, err := ws.execute("run", "show", "run-0001")
	require.NoError(t, err)
	assert.Contains(t, stdout, "State:   failed")
	assert.Contains(t, stdout, "Error:   resolve missing.csv:latest: ")
}

func TestClean_ParseErrorPublishesNothing(t *testing.T) {
	ws := setupWorkspace(t)
	ws.seed(t, "id,cost,last_review\n1,10,2019-01-01\n")

	_, _, err := ws.execute(cleanArgs("sample.csv:latest", "20", "100")...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "E_PARSE", ErrorCode(err))

	_, _, err = ws.execute("artifact", "get", "clean_sample.csv:latest")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestClean_TypeMismatchIsPublishError(t *testing.T) {
	ws := setupWorkspace(t)
	ws.seed(t, sampleCSV)

	args := cleanArgs("sample.csv:latest", "20", "100")
	args[3] = "sample.csv" // output_artifact collides with the raw_data input
	_, _, err := ws.execute(args...)
	require.Error(t, err)
	assert.Equal(t, "E_PUBLISH", ErrorCode(err))
}

func TestClean_InvalidSettings(t *testing.T) {
	ws := setupWorkspace(t)
	path := ws.writeFile(t, "bad.yaml", "log_level: loud\n")
	t.Setenv("BASIC_CLEANING_CONFIG", path)

	_, _, err := ws.execute(cleanArgs("sample.csv:latest", "20", "100")...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load settings")
}

func TestClean_EmptyDescription(t *testing.T) {
	ws := setupWorkspace(t)
	ws.seed(t, sampleCSV)

	args := cleanArgs("sample.csv:latest", "20", "100")
	args[7] = ""
	stdout, _, err := ws.execute(args...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Published clean_sample.csv:v0")

	stdout, _, err = ws.execute("run", "show", "run-0001")
	require.NoError(t, err)
	assert.Contains(t, stdout, `output_description = ""`)
}

func TestClean_InfiniteBound(t *testing.T) {
	ws := setupWorkspace(t)
	ws.seed(t, sampleCSV)

	stdout, _, err := ws.execute(cleanArgs("sample.csv:latest", "20", "inf")...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "(2 of 3 rows kept")

	stdout, _, err = ws.execute("run", "show", "run-0001")
	require.NoError(t, err)
	assert.Contains(t, stdout, `max_price = "+Inf"`)
	assert.Contains(t, stdout, "min_price = 20\n")
}
