package cli

import (
	"context"

	"github.com/spf13/cobra"

	"siteimg/batch"
	"siteimg/builder"
)

func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build [-- command args...]",
		Short: "Generate images, then run the site build command",
		Long: `Generate every derivative, then run the site build command from
site.build_command in the config, or the command given after --.

  siteimg build -- npx astro build`,
		RunE: runBuild,
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	command := a.cfg.Site.BuildCommand
	if len(args) > 0 {
		command = args
	}
	opts := a.batchOptions()
	b := builder.NewSiteBuilder(func(ctx context.Context) (*batch.Summary, error) {
		return batch.Run(ctx, opts)
	}, command, a.cfg.Paths.Root)
	return b.Build(cmd.Context())
}
