package cli

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"siteimg/profile"
)

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <src> [profile]",
		Short: "Print the derivative URL of one image, generating it if needed",
		Long: `Resolve a root-relative image path to its WebP derivative URL. The profile
defaults to cover-1x. Use --gallery to print the sm/lg/lb URLs as JSON.

Remote URLs, SVG files, already generated images and missing files are
printed unchanged.

Profiles:
  ` + fmt.Sprint(profile.Names()),
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.RangeArgs(1, 2)(cmd, args); err != nil {
				return usageError{err}
			}
			return nil
		},
		RunE: runResolve,
	}
	cmd.Flags().Bool("gallery", false, "Print the gallery URL set as JSON")
	return cmd
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	r := a.resolver()
	src := args[0]
	out := cmd.OutOrStdout()

	if g, _ := cmd.Flags().GetBool("gallery"); g {
		urls, ok := r.Gallery(src)
		if !ok {
			return fmt.Errorf("no gallery derivatives for %s", src)
		}
		data, err := json.Marshal(urls)
		if err != nil {
			return fmt.Errorf("failed to encode gallery urls: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	name := "cover-1x"
	if len(args) == 2 {
		name = args[1]
	}
	if _, ok := profile.Lookup(name); !ok {
		return usageError{fmt.Errorf("unknown profile %q", name)}
	}
	_, err = fmt.Fprintln(out, r.ResolveNamed(src, name))
	return err
}
