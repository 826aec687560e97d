// Package batch pre-generates every derivative the site references.
//
// A run scans the content records, adds the logo, and derives the role
// profiles for each discovered source. Missing sources are recorded and
// skipped; transform and write failures are collected and returned once
// every asset has been attempted.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"siteimg/discovery"
	"siteimg/logging"
	"siteimg/metrics"
	"siteimg/pipeline"
	"siteimg/profile"
	"siteimg/signature"
)

// MissingPreviewLimit caps how many missing sources the summary prints.
const MissingPreviewLimit = 20

// progressEvery controls how often progress is logged outside verbose mode.
const progressEvery = 25

// Options configure one run.
type Options struct {
	Pipeline *pipeline.Pipeline

	// ContentDir is scanned recursively for records. A missing directory is
	// not an error.
	ContentDir string
	// Extensions selects record files; empty means the content defaults.
	Extensions []string

	// Logo is always derived with the logo profile.
	Logo string

	// IncludeEditionDirs adds per-edition gallery folders to the photo set.
	IncludeEditionDirs bool
	EditionsDir        string

	// Workers bounds how many source assets are processed at once.
	Workers int
}

// Counts tallies derivative outcomes.
type Counts struct {
	Generated int64
	Skipped   int64
}

// Summary reports the result of a run.
type Summary struct {
	ContentFiles int
	Hero         int
	Cover        int
	Photos       int
	Misc         int
	Webp         Counts
	Gallery      Counts
	// Missing lists each missing source once, sorted.
	Missing []string
	Elapsed time.Duration
}

// Generated is the total number of derivatives written.
func (s *Summary) Generated() int64 { return s.Webp.Generated + s.Gallery.Generated }

// Skipped is the total number of derivatives already present.
func (s *Summary) Skipped() int64 { return s.Webp.Skipped + s.Gallery.Skipped }

// MissingPreview returns at most n missing sources.
func (s *Summary) MissingPreview(n int) []string {
	if len(s.Missing) <= n {
		return s.Missing
	}
	return s.Missing[:n]
}

// counters is shared by workers.
type counters struct {
	webpGenerated, webpSkipped       atomic.Int64
	galleryGenerated, gallerySkipped atomic.Int64
}

func (c *counters) add(kind string, o pipeline.Outcome) {
	gallery := kind == metrics.KindGallery
	switch {
	case o == pipeline.Failed:
	case gallery && o == pipeline.Generated:
		c.galleryGenerated.Add(1)
	case gallery:
		c.gallerySkipped.Add(1)
	case o == pipeline.Generated:
		c.webpGenerated.Add(1)
	default:
		c.webpSkipped.Add(1)
	}
}

// missingSet deduplicates missing sources across workers.
type missingSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func (m *missingSet) add(src string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paths == nil {
		m.paths = make(map[string]struct{})
	}
	if _, ok := m.paths[src]; ok {
		return false
	}
	m.paths[src] = struct{}{}
	return true
}

func (m *missingSet) sorted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.paths))
	for p := range m.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Run executes one batch. The returned summary is valid even when err is
// non-nil, as long as the content scan succeeded.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Pipeline == nil {
		return nil, errors.New("batch: pipeline is required")
	}
	start := time.Now()
	logging.Info().Str("public", opts.Pipeline.PublicDir).Msg("generate-images start")

	acc := discovery.NewAccumulator()
	if opts.Logo != "" {
		acc.Misc.Add(opts.Logo)
	}

	summary := &Summary{}
	if discovery.DirExists(opts.ContentDir) {
		n, err := discovery.ScanDir(opts.ContentDir, opts.Extensions, acc)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		summary.ContentFiles = n
		logging.Info().Int("files", n).Str("dir", opts.ContentDir).Msg("scanned content records")
	} else {
		logging.Info().Str("dir", opts.ContentDir).Msg("content directory missing, skipping record scan")
	}

	if opts.IncludeEditionDirs {
		editions := opts.EditionsDir
		if editions == "" {
			editions = discovery.DefaultEditionsDir
		}
		added, err := discovery.AddEditionPhotos(opts.Pipeline.PublicDir, editions, acc)
		if err != nil {
			return nil, fmt.Errorf("failed to list edition photos: %w", err)
		}
		logging.Debug().Int("added", added).Msg("edition folder photos")
	}

	summary.Hero, summary.Cover = acc.Hero.Len(), acc.Cover.Len()
	summary.Photos, summary.Misc = acc.Photos.Len(), acc.Misc.Len()
	logging.Info().
		Int("hero", summary.Hero).
		Int("cover", summary.Cover).
		Int("photos", summary.Photos).
		Int("misc", summary.Misc).
		Msg("discovered source images")

	r := &runner{opts: opts, acc: acc}
	webpErr := r.each(ctx, metrics.KindWebp, acc.WebpSources(), r.webp)
	galleryErr := r.each(ctx, metrics.KindGallery, acc.Photos.Items(), r.gallery)

	summary.Webp = Counts{Generated: r.counts.webpGenerated.Load(), Skipped: r.counts.webpSkipped.Load()}
	summary.Gallery = Counts{Generated: r.counts.galleryGenerated.Load(), Skipped: r.counts.gallerySkipped.Load()}
	summary.Missing = r.missing.sorted()
	summary.Elapsed = time.Since(start)

	report(summary)
	return summary, errors.Join(webpErr, galleryErr)
}

type runner struct {
	opts    Options
	acc     *discovery.Accumulator
	counts  counters
	missing missingSet
}

// each processes sources with at most Workers in flight. Every source is
// attempted; errors are joined.
func (r *runner) each(ctx context.Context, kind string, sources []string, fn func(string) error) error {
	total := len(sources)
	logging.Info().Int("sources", total).Msgf("generating %s variants", kind)

	workers := r.opts.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
		done atomic.Int64
	)
	g.SetLimit(workers)

	for _, src := range sources {
		if ctx.Err() != nil {
			mu.Lock()
			errs = append(errs, ctx.Err())
			mu.Unlock()
			break
		}
		g.Go(func() error {
			if err := fn(src); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			n := done.Add(1)
			if logging.DebugEnabled() {
				logging.Debug().Int64("n", n).Int("total", total).Str("src", src).Msgf("%s processed", kind)
			} else if n%progressEvery == 0 || n == int64(total) {
				logging.Info().Int64("n", n).Int("total", total).Msgf("%s sources processed", kind)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// stat returns ok=false when src is missing, recording it.
func (r *runner) stat(src string) (signature.Source, bool, error) {
	source, err := r.opts.Pipeline.Stat(src)
	if errors.Is(err, pipeline.ErrMissing) {
		if r.missing.add(src) {
			r.opts.Pipeline.Metrics.IncMissing()
		}
		logging.Debug().Str("src", src).Msg("missing input (skipped)")
		return source, false, nil
	}
	return source, err == nil, err
}

// profilesFor returns the profiles src is derived with. The logo takes only
// the logo profile; hero and cover sets are independent.
func (r *runner) profilesFor(src string) []profile.Profile {
	if r.acc.Misc.Has(src) {
		return profile.ForRole(profile.RoleLogo)
	}
	var profiles []profile.Profile
	if r.acc.Hero.Has(src) {
		profiles = append(profiles, profile.ForRole(profile.RoleHero)...)
	}
	if r.acc.Cover.Has(src) {
		profiles = append(profiles, profile.ForRole(profile.RoleCover)...)
	}
	return profiles
}

func (r *runner) webp(src string) error {
	source, ok, err := r.stat(src)
	if !ok {
		return err
	}
	var errs []error
	for _, p := range r.profilesFor(src) {
		outcome, _, err := r.opts.Pipeline.Webp(source, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.counts.add(metrics.KindWebp, outcome)
	}
	return errors.Join(errs...)
}

func (r *runner) gallery(src string) error {
	source, ok, err := r.stat(src)
	if !ok {
		return err
	}
	outcomes, _, err := r.opts.Pipeline.Gallery(source)
	for _, o := range outcomes {
		r.counts.add(metrics.KindGallery, o)
	}
	return err
}

func report(s *Summary) {
	if len(s.Missing) > 0 {
		ev := logging.Warn().Int("count", len(s.Missing)).Strs("missing", s.MissingPreview(MissingPreviewLimit))
		ev.Msgf("%d referenced image(s) not found under the public directory (showing up to %d)", len(s.Missing), MissingPreviewLimit)
	}
	logging.Info().
		Dur("elapsed", s.Elapsed).
		Int64("webp_generated", s.Webp.Generated).
		Int64("webp_skipped", s.Webp.Skipped).
		Int64("gallery_generated", s.Gallery.Generated).
		Int64("gallery_skipped", s.Gallery.Skipped).
		Msg("generate-images done")
}
