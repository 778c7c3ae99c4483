package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/cleaning"
)

func runClean(opts *RootOptions, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx := cmd.Context()
	run, err := s.client.StartRun(ctx, cleaning.JobType)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start run", err)
	}
	s.logger.Debug("run started", "run_id", run.ID)

	step := cleaning.NewStep(s.settings.WorkDir, s.logger)
	res, stepErr := step.Run(ctx, run, opts.Params)
	if err := run.Finish(ctx, stepErr); err != nil {
		s.logger.Error("failed to record run state", "run_id", run.ID, "error", err)
	}
	if stepErr != nil {
		return WrapExitError(ExitFailure, "basic cleaning failed", stepErr)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Published %s (%d of %d rows kept, run %s)\n",
		res.Version.Ref(), res.RowsKept, res.RowsRead, run.ID)
	return nil
}
