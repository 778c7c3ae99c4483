package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/canonical"
	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/tracking"
)

// RunOptions holds flags for the run subcommands.
type RunOptions struct {
	*RootOptions
	Format string
}

// NewRunCommand creates the run command group.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Inspect recorded runs",
	}
	cmd.AddCommand(newRunShowCommand(rootOpts))
	return cmd
}

func newRunShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run's configuration and lineage",
		Long: `Show the state of a recorded run, the configuration it ran with, the
artifact versions it consumed and the versions it produced.

Example:
  basic-cleaning run show 0190a5b2-7c1e-7000-8000-000000000000 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	return cmd
}

func runShow(opts *RunOptions, id string, cmd *cobra.Command) error {
	if err := checkFormat(opts.Format); err != nil {
		return err
	}
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	info, err := s.client.GetRun(cmd.Context(), id)
	if errors.Is(err, tracking.ErrNotFound) {
		return WrapExitError(ExitFailure, "run not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load run", err)
	}

	if opts.Format == "json" {
		return formatter(opts.Format, cmd).Success(info)
	}
	return printRun(cmd.OutOrStdout(), info)
}

func printRun(w io.Writer, info tracking.RunInfo) error {
	fmt.Fprintf(w, "Run:     %s\n", info.ID)
	fmt.Fprintf(w, "Job:     %s\n", info.JobType)
	fmt.Fprintf(w, "State:   %s\n", info.State)
	if info.Error != "" {
		fmt.Fprintf(w, "Error:   %s\n", info.Error)
	}
	fmt.Fprintf(w, "Digest:  %s\n", info.ConfigDigest)

	fmt.Fprintln(w, "Config:")
	for _, k := range canonical.SortedKeys(info.Config) {
		v, err := canonical.Marshal(info.Config[k])
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s = %s\n", k, v)
	}

	fmt.Fprintln(w, "Inputs:")
	for _, v := range info.Inputs {
		fmt.Fprintf(w, "  %s\n", v.Ref())
	}
	fmt.Fprintln(w, "Outputs:")
	for _, v := range info.Outputs {
		fmt.Fprintf(w, "  %s\n", v.Ref())
	}
	return nil
}
