// Package pipeline holds the derivation logic shared by the batch generator
// and the request-time resolver: stat the source, sign it, check the store,
// and transform on a miss.
package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"siteimg/metrics"
	"siteimg/profile"
	"siteimg/signature"
	"siteimg/transform"
)

// ErrMissing is returned when a referenced source is not on disk.
var ErrMissing = errors.New("source image not found")

// Default layout of the generated tree.
const (
	DefaultGeneratedURL = "/_generated"
	WebpSubdir          = "img"
	GallerySubdir       = "photos"
)

// Outcome reports what happened to one derivative.
type Outcome int

const (
	Skipped Outcome = iota
	Generated
	// Failed marks a derivative whose transform or write returned an error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Generated:
		return "generated"
	case Failed:
		return "failed"
	}
	return "skipped"
}

// Store is the derivative cache.
type Store interface {
	Exists(path string) (bool, error)
	Write(path string, data []byte) error
	EnsureDir(dir string) error
}

// Transformer renders one derivative from a source file.
type Transformer interface {
	Transform(srcPath string, opts transform.Options) ([]byte, error)
}

// Pipeline derives images under a generated root.
type Pipeline struct {
	// PublicDir is the filesystem directory root-relative paths resolve against.
	PublicDir string
	// GeneratedDir is the filesystem directory derivatives are written to.
	GeneratedDir string
	// GeneratedURL is the public URL prefix of GeneratedDir.
	GeneratedURL string

	Engine  Transformer
	Store   Store
	Metrics *metrics.Metrics
}

// SourcePath maps a root-relative path to the filesystem.
func (p *Pipeline) SourcePath(src string) string {
	return filepath.Join(p.PublicDir, filepath.FromSlash(src))
}

// Stat snapshots the source at src. It returns ErrMissing when the file
// does not exist, is a directory, or src climbs out of the public directory.
func (p *Pipeline) Stat(src string) (signature.Source, error) {
	if escapesRoot(src) {
		return signature.Source{}, fmt.Errorf("%w: %s is outside the public directory", ErrMissing, src)
	}
	info, err := os.Stat(p.SourcePath(src))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return signature.Source{}, fmt.Errorf("%w: %s", ErrMissing, src)
		}
		return signature.Source{}, fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if info.IsDir() {
		return signature.Source{}, fmt.Errorf("%w: %s is a directory", ErrMissing, src)
	}
	return signature.FromFileInfo(src, info), nil
}

// escapesRoot reports whether src has a ".." segment. Sources are
// root-relative URLs, so no legitimate reference needs one.
func escapesRoot(src string) bool {
	for _, seg := range strings.FieldsFunc(src, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}

// IsGenerated reports whether src already points at a generated WebP.
func (p *Pipeline) IsGenerated(src string) bool {
	return strings.HasPrefix(src, p.urlPrefix()+"/") && strings.HasSuffix(src, ".webp")
}

func (p *Pipeline) urlPrefix() string {
	if p.GeneratedURL == "" {
		return DefaultGeneratedURL
	}
	return strings.TrimRight(p.GeneratedURL, "/")
}

// WebpPaths returns the filesystem path and public URL of a generic derivative.
func (p *Pipeline) WebpPaths(hash, variant string) (fsPath, url string) {
	name := signature.Filename(hash, variant)
	return filepath.Join(p.GeneratedDir, WebpSubdir, name), path.Join(p.urlPrefix(), WebpSubdir, name)
}

// GalleryPaths returns the filesystem path and public URL of a gallery derivative.
func (p *Pipeline) GalleryPaths(hash, variant string) (fsPath, url string) {
	name := signature.Filename(hash, variant)
	return filepath.Join(p.GeneratedDir, GallerySubdir, name), path.Join(p.urlPrefix(), GallerySubdir, name)
}

// Webp ensures the generic derivative of src under prof exists and returns
// its public URL.
func (p *Pipeline) Webp(src signature.Source, prof profile.Profile) (Outcome, string, error) {
	hash, err := signature.Compute(src, prof)
	if err != nil {
		return Failed, "", err
	}
	out, url := p.WebpPaths(hash, prof.Variant)
	outcome, err := p.ensure(metrics.KindWebp, src, out, prof)
	return outcome, url, err
}

// GalleryURLs are the public URLs of a photo's gallery derivatives.
type GalleryURLs struct {
	Small    string `json:"sm"`
	Large    string `json:"lg"`
	Lightbox string `json:"lb"`
}

// Gallery ensures the sm/lg/lb derivatives of src exist. The three variants
// run concurrently; a failing variant does not stop its siblings and all
// failures are returned joined.
func (p *Pipeline) Gallery(src signature.Source) ([]Outcome, GalleryURLs, error) {
	hash := signature.Gallery(src)
	profiles := profile.Gallery()

	outcomes := make([]Outcome, len(profiles))
	urls := make([]string, len(profiles))
	errs := make([]error, len(profiles))

	var g errgroup.Group
	for i, prof := range profiles {
		out, url := p.GalleryPaths(hash, prof.Variant)
		urls[i] = url
		g.Go(func() error {
			outcomes[i], errs[i] = p.ensure(metrics.KindGallery, src, out, prof)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, GalleryURLs{Small: urls[0], Large: urls[1], Lightbox: urls[2]}, errors.Join(errs...)
}

// ensure transforms src into out unless out already exists.
func (p *Pipeline) ensure(kind string, src signature.Source, out string, prof profile.Profile) (Outcome, error) {
	exists, err := p.Store.Exists(out)
	if err != nil {
		return Failed, err
	}
	if exists {
		p.Metrics.IncSkipped(kind)
		return Skipped, nil
	}

	if err := p.Store.EnsureDir(filepath.Dir(out)); err != nil {
		return Failed, err
	}

	start := time.Now()
	data, err := p.Engine.Transform(p.SourcePath(src.Path), transform.OptionsFor(prof))
	if err != nil {
		return Failed, fmt.Errorf("failed to transform %s (%s): %w", src.Path, prof.Variant, err)
	}
	p.Metrics.ObserveTransform(kind, time.Since(start))

	if err := p.Store.Write(out, data); err != nil {
		return Failed, err
	}
	p.Metrics.IncGenerated(kind)
	return Generated, nil
}
