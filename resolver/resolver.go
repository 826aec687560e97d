// Package resolver maps a source image reference to its WebP derivative at
// request time, generating the derivative on first use.
package resolver

import (
	"errors"
	"path"
	"strings"
	"time"

	"siteimg/discovery"
	"siteimg/logging"
	"siteimg/metrics"
	"siteimg/pipeline"
	"siteimg/profile"
)

// Resolver wraps a pipeline for template use. Resolve never fails: any
// problem degrades to returning the input unchanged.
type Resolver struct {
	p *pipeline.Pipeline
}

// New returns a resolver over p.
func New(p *pipeline.Pipeline) *Resolver {
	return &Resolver{p: p}
}

// passThrough reports whether src is returned unchanged without touching disk.
func (r *Resolver) passThrough(src string) bool {
	if src == "" || !discovery.IsLocalPath(src) {
		return true
	}
	if r.p.IsGenerated(src) {
		return true
	}
	return strings.EqualFold(path.Ext(src), ".svg")
}

// Resolve returns the public URL of src rendered with prof. Empty, remote,
// SVG and already-generated references come back as-is, as do missing
// sources and any source that fails to transform.
func (r *Resolver) Resolve(src string, prof profile.Profile) string {
	if r.passThrough(src) {
		r.p.Metrics.IncResolve(metrics.ResolvePassthrough)
		return src
	}
	start := time.Now()

	source, err := r.p.Stat(src)
	if err != nil {
		r.degrade(src, prof.Name, err)
		return src
	}
	outcome, url, err := r.p.Webp(source, prof)
	if err != nil {
		r.degrade(src, prof.Name, err)
		return src
	}

	result := metrics.ResolveHit
	if outcome == pipeline.Generated {
		result = metrics.ResolveGenerated
	}
	r.p.Metrics.IncResolve(result)
	logging.Debug().Str("src", src).Str("profile", prof.Name).Str("url", url).Dur("took", time.Since(start)).Msg("resolved")
	return url
}

// ResolveNamed resolves src with the profile called name. An unknown name
// passes src through.
func (r *Resolver) ResolveNamed(src, name string) string {
	prof, ok := profile.Lookup(name)
	if !ok {
		logging.Warn().Str("src", src).Str("profile", name).Msg("unknown profile, passing source through")
		r.p.Metrics.IncResolve(metrics.ResolvePassthrough)
		return src
	}
	return r.Resolve(src, prof)
}

// Gallery returns the sm/lg/lb URLs of a photo. ok is false when src passes
// through or any variant could not be produced.
func (r *Resolver) Gallery(src string) (pipeline.GalleryURLs, bool) {
	if r.passThrough(src) {
		r.p.Metrics.IncResolve(metrics.ResolvePassthrough)
		return pipeline.GalleryURLs{}, false
	}
	source, err := r.p.Stat(src)
	if err != nil {
		r.degrade(src, "gallery", err)
		return pipeline.GalleryURLs{}, false
	}
	outcomes, urls, err := r.p.Gallery(source)
	if err != nil {
		r.degrade(src, "gallery", err)
		return pipeline.GalleryURLs{}, false
	}
	result := metrics.ResolveHit
	for _, o := range outcomes {
		if o == pipeline.Generated {
			result = metrics.ResolveGenerated
		}
	}
	r.p.Metrics.IncResolve(result)
	return urls, true
}

func (r *Resolver) degrade(src, prof string, err error) {
	if errors.Is(err, pipeline.ErrMissing) {
		r.p.Metrics.IncResolve(metrics.ResolvePassthrough)
		logging.Debug().Str("src", src).Msg("source missing, passing through")
		return
	}
	r.p.Metrics.IncResolve(metrics.ResolveDegraded)
	logging.Warn().Err(err).Str("src", src).Str("profile", prof).Msg("image resolve failed, using original")
}
