// Package transform resizes, crops and re-encodes source rasters into WebP
// derivatives.
//
// Fit modes:
//   - cover: fill the box, cropping around the most salient region
//   - contain: fit in the box, pad the remainder with transparent pixels
//   - inside: fit within the bounds, no crop, no pad
//
// None of the modes upscale: a source smaller than the box keeps its own
// dimension. The engine holds no per-call state and is safe for concurrent use.
package transform

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/webp"
	"github.com/muesli/smartcrop"
	"github.com/muesli/smartcrop/nfnt"

	"siteimg/profile"
)

// Options are the transform parameters for one derivative.
type Options struct {
	Width int
	// Height of the box. Zero means the 16:9 default for cover and contain,
	// and unbounded for inside.
	Height  int
	Fit     profile.FitMode
	Quality int
}

// OptionsFor converts a profile into transform options.
func OptionsFor(p profile.Profile) Options {
	opts := Options{Width: p.Width, Fit: p.Fit, Quality: p.Quality}
	if p.Height != nil {
		opts.Height = *p.Height
	}
	return opts
}

// CropAnalyzer picks the crop window for cover. The returned rectangle has
// the aspect ratio width:height and lies within img.Bounds().
type CropAnalyzer interface {
	FindBestCrop(img image.Image, width, height int) (image.Rectangle, error)
}

// Engine applies transforms.
type Engine struct {
	analyzer CropAnalyzer
	filter   imaging.ResampleFilter
	method   int
}

// NewEngine returns an engine that anchors cover crops with a saliency
// analyzer.
func NewEngine() *Engine {
	return NewEngineWithAnalyzer(smartcrop.NewAnalyzer(nfnt.NewDefaultResizer()))
}

// NewEngineWithAnalyzer returns an engine using a custom crop analyzer. A
// nil analyzer crops around the centre.
func NewEngineWithAnalyzer(a CropAnalyzer) *Engine {
	return &Engine{analyzer: a, filter: imaging.Lanczos, method: 4}
}

// Transform decodes the source at srcPath and returns the encoded WebP
// derivative.
func (e *Engine) Transform(srcPath string, opts Options) ([]byte, error) {
	if !opts.Fit.Valid() {
		return nil, fmt.Errorf("unknown fit mode %q", opts.Fit)
	}
	img, err := DecodeFile(srcPath)
	if err != nil {
		return nil, err
	}
	return e.Encode(e.Render(img, opts), opts.Quality)
}

// Render applies the fit mode to img.
func (e *Engine) Render(img image.Image, opts Options) image.Image {
	b := img.Bounds()
	layout := Plan(b.Dx(), b.Dy(), opts)
	if layout.Width == 0 || layout.Height == 0 {
		return img
	}

	switch {
	case layout.Crop:
		return e.cover(img, layout)
	case layout.Pad:
		scaled := imaging.Resize(img, layout.ScaledWidth, layout.ScaledHeight, e.filter)
		canvas := imaging.New(layout.Width, layout.Height, color.NRGBA{})
		return imaging.PasteCenter(canvas, scaled)
	case layout.Width == b.Dx() && layout.Height == b.Dy():
		return imaging.Clone(img)
	default:
		return imaging.Resize(img, layout.Width, layout.Height, e.filter)
	}
}

// cover crops the source to the output aspect around the analyzer's window
// and scales the window down to the output size.
func (e *Engine) cover(img image.Image, layout Layout) image.Image {
	if e.analyzer != nil {
		rect, err := e.analyzer.FindBestCrop(img, layout.Width, layout.Height)
		rect = rect.Intersect(img.Bounds())
		if err == nil && !rect.Empty() {
			cropped := imaging.Crop(img, rect)
			return imaging.Resize(cropped, layout.Width, layout.Height, e.filter)
		}
	}
	return imaging.Fill(img, layout.Width, layout.Height, imaging.Center, e.filter)
}

// Encode writes img as lossy WebP at quality.
func (e *Engine) Encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, webp.Options{Quality: quality, Method: e.method}); err != nil {
		return nil, fmt.Errorf("failed to encode webp: %w", err)
	}
	return buf.Bytes(), nil
}
