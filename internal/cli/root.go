package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/cleaning"
	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/config"
	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/tracking"
)

// RootOptions holds the flags of the cleaning step.
type RootOptions struct {
	Params cleaning.Params

	// Clock and IDs override run timestamps and ids (for testing).
	Clock tracking.Clock
	IDs   tracking.IDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the basic-cleaning command. Run without a
// subcommand it executes the cleaning step.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "basic-cleaning",
		Short: "Drop price outliers and normalize review dates",
		Long: `Download the input artifact, keep the rows whose price lies within
[min_price, max_price], convert last_review to a date (unparseable values
become empty), write clean_sample.csv and publish it as a new version of the
output artifact.

Tracking settings are read from $BASIC_CLEANING_CONFIG (default tracking.yaml).

Example:
  basic-cleaning --input_artifact sample.csv:latest \
    --output_artifact clean_sample.csv --output_type clean_sample \
    --output_description "Data with outliers and null values removed" \
    --min_price 10 --max_price 350`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(opts, cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Params.InputArtifact, "input_artifact", "", "fully-qualified name of the input artifact (required)")
	f.StringVar(&opts.Params.OutputArtifact, "output_artifact", "", "name of the output artifact (required)")
	f.StringVar(&opts.Params.OutputType, "output_type", "", "type of the output artifact (required)")
	f.StringVar(&opts.Params.OutputDescription, "output_description", "", "description of the output artifact (required)")
	f.Float64Var(&opts.Params.MinPrice, "min_price", 0, "minimum price to keep, inclusive (required)")
	f.Float64Var(&opts.Params.MaxPrice, "max_price", 0, "maximum price to keep, inclusive (required)")
	for _, name := range []string{"input_artifact", "output_artifact", "output_type", "output_description", "min_price", "max_price"} {
		_ = cmd.MarkFlagRequired(name)
	}

	cmd.AddCommand(NewArtifactCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func checkFormat(format string) error {
	if !isValidFormat(format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", format, ValidFormats))
	}
	return nil
}

// newLogger installs a text logger on w as the default and returns it.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// session is what every command needs: settings, a logger and an open
// tracking client.
type session struct {
	settings config.Settings
	logger   *slog.Logger
	client   *tracking.Client
}

func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	settings, err := config.Load(config.Path())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load settings", err)
	}
	logger := newLogger(cmd.ErrOrStderr(), settings.Level())

	clientOpts := []tracking.Option{tracking.WithLogger(logger)}
	if opts.Clock != nil {
		clientOpts = append(clientOpts, tracking.WithClock(opts.Clock))
	}
	if opts.IDs != nil {
		clientOpts = append(clientOpts, tracking.WithIDGenerator(opts.IDs))
	}
	client, err := tracking.Open(cmd.Context(), settings, clientOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open artifact store", err)
	}
	return &session{settings: settings, logger: logger, client: client}, nil
}

func (s *session) close() {
	if err := s.client.Close(); err != nil {
		s.logger.Error("error closing registry", "error", err)
	}
}
