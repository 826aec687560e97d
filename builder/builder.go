// Package builder runs image generation as the prebuild step of a site
// build.
package builder

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"siteimg/batch"
	"siteimg/logging"
)

// RunFunc executes one generation pass.
type RunFunc func(ctx context.Context) (*batch.Summary, error)

// SiteBuilder runs the generator and then the site build command
type SiteBuilder struct {
	generate RunFunc
	command  []string
	dir      string
}

// NewSiteBuilder creates a builder. An empty command only generates images.
func NewSiteBuilder(generate RunFunc, command []string, dir string) *SiteBuilder {
	return &SiteBuilder{generate: generate, command: command, dir: dir}
}

// Build generates images and, if that succeeds, builds the site.
func (b *SiteBuilder) Build(ctx context.Context) error {
	summary, err := b.generate(ctx)
	if err != nil {
		return fmt.Errorf("image generation failed: %w", err)
	}
	if summary != nil {
		logging.Info().
			Int64("generated", summary.Generated()).
			Int64("skipped", summary.Skipped()).
			Int("missing", len(summary.Missing)).
			Msg("images ready")
	}
	if len(b.command) == 0 {
		return nil
	}
	return b.buildSite(ctx)
}

// buildSite runs the configured build command
func (b *SiteBuilder) buildSite(ctx context.Context) error {
	dir := b.dir
	if dir == "" {
		dir = "."
	}
	siteDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to get absolute site path: %w", err)
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, b.command[0], b.command[1:]...)
	cmd.Dir = siteDir
	output, err := cmd.CombinedOutput()
	if err != nil {
		logging.Error().Str("output", string(output)).Msg("site build error")
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("site build failed with exit code %d: %w", exitErr.ExitCode(), err)
		}
		return fmt.Errorf("site build failed: %w", err)
	}
	logging.Info().Strs("command", b.command).Dur("took", time.Since(start)).Msg("site build successful")
	return nil
}
