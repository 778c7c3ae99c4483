package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/tracking"
)

// ArtifactOptions holds flags for the artifact subcommands.
type ArtifactOptions struct {
	*RootOptions
	Name        string
	Type        string
	Description string
	Alias       string
	Format      string
}

// NewArtifactCommand creates the artifact command group.
func NewArtifactCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifact",
		Short: "Publish and inspect artifact versions",
	}
	cmd.AddCommand(newArtifactPutCommand(rootOpts))
	cmd.AddCommand(newArtifactListCommand(rootOpts))
	cmd.AddCommand(newArtifactGetCommand(rootOpts))
	return cmd
}

func newArtifactPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArtifactOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Publish a file as a new artifact version",
		Long: `Publish a local file as the next version of an artifact, outside of any
run. Use it to seed the raw dataset a pipeline starts from.

Example:
  basic-cleaning artifact put --name sample.csv --type raw_data ./sample1.csv
  basic-cleaning artifact put --name sample.csv --type raw_data --alias reference ./sample1.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArtifactPut(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "artifact name (required)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "artifact type (required)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "artifact description")
	cmd.Flags().StringVar(&opts.Alias, "alias", "", "extra alias to point at the new version")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runArtifactPut(opts *ArtifactOptions, path string, cmd *cobra.Command) error {
	if err := checkFormat(opts.Format); err != nil {
		return err
	}
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	a := tracking.NewArtifact(opts.Name, opts.Type, opts.Description)
	if err := a.AddFile(path); err != nil {
		return WrapExitError(ExitCommandError, "invalid artifact file", err)
	}
	v, err := s.client.PutArtifact(cmd.Context(), a)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to publish artifact", err)
	}
	if opts.Alias != "" {
		v, err = s.client.SetAlias(cmd.Context(), v.Ref(), opts.Alias)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to set alias", err)
		}
	}

	if opts.Format == "json" {
		return formatter(opts.Format, cmd).Success(v)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Published %s (%s, %d bytes)\n", v.Ref(), v.Type, v.Size)
	return nil
}

func newArtifactListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArtifactOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list [name]",
		Short: "List artifacts, or every version of one artifact",
		Long: `Without arguments, list the latest version of every artifact. With a name,
list every version of that artifact in version order.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runArtifactList(opts, name, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	return cmd
}

func runArtifactList(opts *ArtifactOptions, name string, cmd *cobra.Command) error {
	if err := checkFormat(opts.Format); err != nil {
		return err
	}
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	var versions []tracking.Version
	if name == "" {
		versions, err = s.client.ListArtifacts(cmd.Context())
	} else {
		versions, err = s.client.ListVersions(cmd.Context(), name)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list artifacts", err)
	}

	if opts.Format == "json" {
		return formatter(opts.Format, cmd).Success(versions)
	}
	w := cmd.OutOrStdout()
	if len(versions) == 0 {
		fmt.Fprintln(w, "No artifacts.")
		return nil
	}
	for _, v := range versions {
		printVersionLine(w, v)
	}
	return nil
}

func newArtifactGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArtifactOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "get <ref>",
		Short:         "Show one artifact version",
		Long:          `Resolve a reference of the form [project/]name[:version|alias] and show the version it points to.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArtifactGet(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	return cmd
}

func runArtifactGet(opts *ArtifactOptions, ref string, cmd *cobra.Command) error {
	if err := checkFormat(opts.Format); err != nil {
		return err
	}
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	v, err := s.client.GetArtifact(cmd.Context(), ref)
	if errors.Is(err, tracking.ErrNotFound) {
		return WrapExitError(ExitFailure, "artifact not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to resolve artifact", err)
	}

	if opts.Format == "json" {
		return formatter(opts.Format, cmd).Success(v)
	}
	printVersion(cmd.OutOrStdout(), v)
	return nil
}

func printVersionLine(w io.Writer, v tracking.Version) {
	fmt.Fprintf(w, "%-32s %-16s %s\n", v.Ref(), v.Type, shortDigest(v.Digest))
}

func printVersion(w io.Writer, v tracking.Version) {
	fmt.Fprintf(w, "Artifact:    %s\n", v.Ref())
	fmt.Fprintf(w, "Type:        %s\n", v.Type)
	if v.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", v.Description)
	}
	if len(v.Aliases) > 0 {
		fmt.Fprintf(w, "Aliases:     %v\n", v.Aliases)
	}
	fmt.Fprintf(w, "File:        %s (%d bytes)\n", v.FileName, v.Size)
	fmt.Fprintf(w, "Digest:      %s\n", v.Digest)
	if v.RunID != "" {
		fmt.Fprintf(w, "Run:         %s\n", v.RunID)
	}
	fmt.Fprintf(w, "Created:     %s\n", v.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func formatter(format string, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
}
