package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"siteimg/batch"
	"siteimg/config"
	"siteimg/logging"
	"siteimg/metrics"
	"siteimg/pipeline"
	"siteimg/resolver"
	"siteimg/store"
	"siteimg/transform"
)

// app is the wiring shared by every command.
type app struct {
	cfg      *config.Config
	metrics  *metrics.Metrics
	pipeline *pipeline.Pipeline
}

// setup loads .env, the config file and the environment overrides, then
// initialises logging and the pipeline.
func setup(cmd *cobra.Command) (*app, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if v, _ := cmd.Flags().GetBool("verbose"); v {
		cfg.Log.Verbose = true
	}
	if q, _ := cmd.Flags().GetBool("quiet"); q {
		cfg.Log.Quiet = true
	}
	level := cfg.Log.Level
	if cfg.Log.Verbose || cfg.Log.Quiet {
		level = logging.LevelFor(cfg.Log.Verbose, cfg.Log.Quiet)
	}
	logging.Init(logging.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})

	m := metrics.New()
	return &app{
		cfg:     cfg,
		metrics: m,
		pipeline: &pipeline.Pipeline{
			PublicDir:    cfg.PublicPath(),
			GeneratedDir: cfg.GeneratedPath(),
			GeneratedURL: cfg.GeneratedURL(),
			Engine:       transform.NewEngine(),
			Store:        store.New(),
			Metrics:      m,
		},
	}, nil
}

func (a *app) batchOptions() batch.Options {
	return batch.Options{
		Pipeline:           a.pipeline,
		ContentDir:         a.cfg.ContentPath(),
		Extensions:         a.cfg.Content.Extensions,
		Logo:               a.cfg.Logo,
		IncludeEditionDirs: a.cfg.Gallery.IncludeEditionDirs,
		EditionsDir:        a.cfg.Gallery.EditionsDir,
		Workers:            a.cfg.Workers,
	}
}

func (a *app) resolver() *resolver.Resolver {
	return resolver.New(a.pipeline)
}
