package transform

import (
	"math"

	"siteimg/profile"
)

// Layout is the result of fitting a source into a target box.
type Layout struct {
	// Width and Height are the final output dimensions.
	Width, Height int
	// ScaledWidth and ScaledHeight are the dimensions the source is resized
	// to before cropping (cover) or padding (contain).
	ScaledWidth, ScaledHeight int
	// Crop is set when the source must be cropped to the output aspect.
	Crop bool
	// Pad is set when the scaled image is centred on a transparent canvas.
	Pad bool
}

// Plan computes output dimensions for a sw×sh source. It never returns
// dimensions that would upscale the source.
//
// cover: scale to cover the box, clamped to 1, then crop to at most the box.
// contain: scale to fit the box; when shrinking, pad to exactly the box,
// otherwise keep the source size.
// inside: scale to fit, clamped to 1. A zero height means unbounded.
func Plan(sw, sh int, opts Options) Layout {
	if sw <= 0 || sh <= 0 {
		return Layout{}
	}
	w, h := opts.Width, opts.Height

	switch opts.Fit {
	case profile.FitCover:
		if h <= 0 {
			h = profile.DefaultHeight(w)
		}
		scale := math.Min(1, math.Max(ratio(w, sw), ratio(h, sh)))
		rw, rh := scaled(sw, scale), scaled(sh, scale)
		out := Layout{
			Width:        min(w, rw),
			Height:       min(h, rh),
			ScaledWidth:  rw,
			ScaledHeight: rh,
		}
		out.Crop = out.Width != rw || out.Height != rh
		return out

	case profile.FitContain:
		if h <= 0 {
			h = profile.DefaultHeight(w)
		}
		scale := math.Min(ratio(w, sw), ratio(h, sh))
		if scale >= 1 {
			return Layout{Width: sw, Height: sh, ScaledWidth: sw, ScaledHeight: sh}
		}
		rw, rh := min(w, scaled(sw, scale)), min(h, scaled(sh, scale))
		return Layout{
			Width:        w,
			Height:       h,
			ScaledWidth:  rw,
			ScaledHeight: rh,
			Pad:          rw != w || rh != h,
		}

	default:
		scale := ratio(w, sw)
		if h > 0 {
			scale = math.Min(scale, ratio(h, sh))
		}
		scale = math.Min(1, scale)
		rw, rh := scaled(sw, scale), scaled(sh, scale)
		return Layout{Width: rw, Height: rh, ScaledWidth: rw, ScaledHeight: rh}
	}
}

func ratio(target, source int) float64 {
	return float64(target) / float64(source)
}

func scaled(n int, scale float64) int {
	v := int(math.Round(float64(n) * scale))
	if v < 1 {
		return 1
	}
	return v
}
