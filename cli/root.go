package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes returned by the siteimg binary.
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
	ExitPanic   = 3
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "siteimg",
		Short: "Derived WebP images for static sites",
		Long: `siteimg turns the PNG and JPEG images referenced by a site's content records
into resized, cropped WebP derivatives under a generated directory.

Derivatives are named by a signature of the source (path, size, mtime) and the
transform profile, so unchanged images are never re-encoded and edited images
get a fresh URL.

Run without a subcommand to generate every derivative the content references.

Exit Codes:
  0  - Success
  1  - General error (a source failed to transform or write)
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          noArgs,
		RunE:          runGenerate,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Config file (default siteimg.yaml if present)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Log every processed image")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Log warnings and errors only")
	addGenerateFlags(cmd)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	cmd.AddCommand(
		newGenerateCmd(),
		newResolveCmd(),
		newServeCmd(),
		newWatchCmd(),
		newBuildCmd(),
	)
	return cmd
}

// usageError marks errors caused by bad arguments.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

// ExitCodeForError maps an error returned by Execute to a process exit code.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ue usageError
	if errors.As(err, &ue) {
		return ExitUsage
	}
	return ExitError
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError{err}
	}
	return nil
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return ExecuteArgs(ctx, os.Args[1:])
}

// ExecuteArgs runs a fresh command tree with args.
func ExecuteArgs(ctx context.Context, args []string) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
