package cleaning

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/tracking"
)

// JobType is recorded on every run of the step.
const JobType = "basic_cleaning"

// OutputFileName is the local file the cleaned table is written to.
const OutputFileName = "clean_sample.csv"

// Run is the part of an experiment-tracking run the step needs.
// *tracking.Run implements it.
type Run interface {
	UpdateConfig(ctx context.Context, cfg map[string]any) error
	UseArtifact(ctx context.Context, ref string) (string, error)
	LogArtifact(ctx context.Context, a *tracking.Artifact) (tracking.Version, error)
}

// Params are the inputs of one cleaning run.
type Params struct {
	InputArtifact     string
	OutputArtifact    string
	OutputType        string
	OutputDescription string
	MinPrice          float64
	MaxPrice          float64
}

// Config returns the parameters keyed by their command line flag names.
// Non-finite bounds are recorded as text ("+Inf", "-Inf", "NaN") since JSON
// has no number for them.
func (p Params) Config() map[string]any {
	return map[string]any{
		"input_artifact":     p.InputArtifact,
		"output_artifact":    p.OutputArtifact,
		"output_type":        p.OutputType,
		"output_description": p.OutputDescription,
		"min_price":          configFloat(p.MinPrice),
		"max_price":          configFloat(p.MaxPrice),
	}
}

func configFloat(v float64) any {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return v
}

// Validate checks that the artifact parameters are set. The description may
// be empty. Price bounds are not checked against each other: min_price >
// max_price selects no rows.
func (p Params) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"input_artifact", p.InputArtifact},
		{"output_artifact", p.OutputArtifact},
		{"output_type", p.OutputType},
	} {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%s is required", f.name)
		}
	}
	return nil
}

// Result summarizes a successful run.
type Result struct {
	RowsRead   int              `json:"rows_read"`
	RowsKept   int              `json:"rows_kept"`
	NullDates  int              `json:"null_dates"`
	OutputPath string           `json:"output_path"`
	Version    tracking.Version `json:"version"`
}

// Step runs the cleaning pipeline.
type Step struct {
	workDir string
	logger  *slog.Logger
}

// NewStep creates a step that writes its output file under workDir.
// A nil logger uses slog.Default().
func NewStep(workDir string, logger *slog.Logger) *Step {
	if logger == nil {
		logger = slog.Default()
	}
	return &Step{workDir: workDir, logger: logger}
}

// Run executes the step against run. It publishes exactly one artifact
// version on success and none on failure.
func (s *Step) Run(ctx context.Context, run Run, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, stepError(KindConfig, "", err)
	}
	if err := run.UpdateConfig(ctx, p.Config()); err != nil {
		return nil, stepError(KindConfig, "", err)
	}

	s.logger.Info("Downloading and reading artifact", "artifact", p.InputArtifact)
	path, err := run.UseArtifact(ctx, p.InputArtifact)
	if err != nil {
		return nil, stepError(KindResolve, p.InputArtifact, err)
	}
	table, err := LoadCSV(path)
	if err != nil {
		return nil, stepError(KindParse, p.InputArtifact, err)
	}

	s.logger.Info("Dropping outliers", "min_price", p.MinPrice, "max_price", p.MaxPrice, "rows", table.Len())
	cleaned := FilterPrice(table, p.MinPrice, p.MaxPrice)

	s.logger.Info("Converting last_review to datetime", "rows", cleaned.Len())
	nulls := NormalizeLastReview(cleaned)
	if nulls > 0 {
		s.logger.Debug("unparseable last_review values set to null", "count", nulls)
	}

	outPath := filepath.Join(s.workDir, OutputFileName)
	s.logger.Info("Saving cleaned data to csv", "path", outPath, "rows", cleaned.Len())
	if err := SaveCSV(outPath, cleaned); err != nil {
		return nil, stepError(KindSave, outPath, err)
	}

	s.logger.Info("Creating and logging artifact", "artifact", p.OutputArtifact, "type", p.OutputType)
	artifact := tracking.NewArtifact(p.OutputArtifact, p.OutputType, p.OutputDescription)
	if err := artifact.AddFile(outPath); err != nil {
		return nil, stepError(KindPublish, p.OutputArtifact, err)
	}
	version, err := run.LogArtifact(ctx, artifact)
	if err != nil {
		return nil, stepError(KindPublish, p.OutputArtifact, err)
	}

	return &Result{
		RowsRead:   table.Len(),
		RowsKept:   cleaned.Len(),
		NullDates:  nulls,
		OutputPath: outPath,
		Version:    version,
	}, nil
}
