package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"siteimg/batch"
	"siteimg/logging"
	"siteimg/watcher"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Generate, then regenerate whenever content or images change",
		Args:  noArgs,
		RunE:  runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	opts := a.batchOptions()

	if _, err := batch.Run(ctx, opts); err != nil {
		logging.Error().Err(err).Msg("initial generation failed")
	}

	w, err := watcher.NewWatcher(watcher.Options{
		Roots:      []string{a.cfg.ContentPath(), a.cfg.PublicPath()},
		Ignore:     a.cfg.GeneratedPath(),
		Extensions: a.cfg.Content.Extensions,
		Debounce:   time.Duration(a.cfg.Watch.DebounceMs) * time.Millisecond,
		OnChange: func(ctx context.Context) error {
			_, err := batch.Run(ctx, opts)
			return err
		},
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.Start(); err != nil {
		return err
	}
	logging.Info().Msg("watching for changes, press Ctrl+C to stop")
	return w.Run(ctx)
}
