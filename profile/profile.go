// Package profile defines the transform profiles applied to source images
// and the fixed role-to-profile table.
//
// The table values are part of the on-disk contract: changing any of them
// changes derivative signatures and orphans every generated file.
package profile

import (
	"fmt"
	"math"
)

// FitMode controls how a source aspect ratio is reconciled with the target box.
type FitMode string

const (
	// FitCover crops to fill the box, anchored on the most salient region.
	FitCover FitMode = "cover"
	// FitContain fits inside the box and pads with transparent pixels.
	FitContain FitMode = "contain"
	// FitInside shrinks to fit the bounds without cropping or padding.
	FitInside FitMode = "inside"
)

// Valid reports whether f is one of the supported fit modes.
func (f FitMode) Valid() bool {
	switch f {
	case FitCover, FitContain, FitInside:
		return true
	}
	return false
}

// Role is the semantic purpose of an image reference within content.
type Role string

const (
	RoleLogo  Role = "logo"
	RoleHero  Role = "hero"
	RoleCover Role = "cover"
	RolePhoto Role = "photo"
)

// Profile is a named transform configuration.
type Profile struct {
	// Name identifies the profile for request-time lookup. It is not part of
	// the signature.
	Name    string
	Width   int
	Height  *int
	Fit     FitMode
	Quality int
	// Variant is appended to the derivative filename.
	Variant string
}

// H returns a pointer to h, for building profiles with a fixed height.
func H(h int) *int {
	return &h
}

// DefaultHeight is the 16:9 height used by cover and contain when no height is set.
func DefaultHeight(width int) int {
	return int(math.Round(float64(width) * 9 / 16))
}

// EffectiveHeight returns the box height used by the transform. For inside
// without a height it returns 0, meaning unbounded.
func (p Profile) EffectiveHeight() int {
	if p.Height != nil {
		return *p.Height
	}
	if p.Fit == FitInside {
		return 0
	}
	return DefaultHeight(p.Width)
}

// Validate checks the profile can be handed to the transform engine.
func (p Profile) Validate() error {
	if p.Width <= 0 {
		return fmt.Errorf("profile %q: width must be positive, got %d", p.Name, p.Width)
	}
	if p.Height != nil && *p.Height <= 0 {
		return fmt.Errorf("profile %q: height must be positive, got %d", p.Name, *p.Height)
	}
	if !p.Fit.Valid() {
		return fmt.Errorf("profile %q: unknown fit mode %q", p.Name, p.Fit)
	}
	if p.Quality < 0 || p.Quality > 100 {
		return fmt.Errorf("profile %q: quality must be 0-100, got %d", p.Name, p.Quality)
	}
	if p.Variant == "" {
		return fmt.Errorf("profile %q: variant is required", p.Name)
	}
	return nil
}

var (
	Logo = Profile{Name: "logo", Width: 80, Height: H(80), Fit: FitCover, Quality: 82, Variant: "logo"}

	Hero1x = Profile{Name: "hero-1x", Width: 1600, Height: H(900), Fit: FitCover, Quality: 82, Variant: "hero-1x"}
	Hero2x = Profile{Name: "hero-2x", Width: 2400, Height: H(1350), Fit: FitCover, Quality: 82, Variant: "hero-2x"}

	// Cover is used on edition pages, Card on listing cards. The variant
	// labels repeat; the dimensions keep the hashes apart.
	Cover1x = Profile{Name: "cover-1x", Width: 1200, Height: H(675), Fit: FitCover, Quality: 78, Variant: "1x"}
	Cover2x = Profile{Name: "cover-2x", Width: 2400, Height: H(1350), Fit: FitCover, Quality: 78, Variant: "2x"}
	Card1x  = Profile{Name: "card-1x", Width: 640, Height: H(360), Fit: FitCover, Quality: 72, Variant: "1x"}
	Card2x  = Profile{Name: "card-2x", Width: 1280, Height: H(720), Fit: FitCover, Quality: 72, Variant: "2x"}

	GallerySmall    = Profile{Name: "gallery-sm", Width: 240, Height: H(180), Fit: FitCover, Quality: 45, Variant: "sm"}
	GalleryLarge    = Profile{Name: "gallery-lg", Width: 480, Height: H(360), Fit: FitCover, Quality: 70, Variant: "lg"}
	GalleryLightbox = Profile{Name: "gallery-lb", Width: 1600, Fit: FitInside, Quality: 82, Variant: "lb"}
)

// ForRole returns the profiles applied to a role, in generation order.
func ForRole(r Role) []Profile {
	switch r {
	case RoleLogo:
		return []Profile{Logo}
	case RoleHero:
		return []Profile{Hero1x, Hero2x}
	case RoleCover:
		return []Profile{Cover1x, Cover2x, Card1x, Card2x}
	case RolePhoto:
		return Gallery()
	}
	return nil
}

// Gallery returns the fixed sm/lg/lb gallery set.
func Gallery() []Profile {
	return []Profile{GallerySmall, GalleryLarge, GalleryLightbox}
}

var byName = func() map[string]Profile {
	m := make(map[string]Profile)
	for _, r := range []Role{RoleLogo, RoleHero, RoleCover, RolePhoto} {
		for _, p := range ForRole(r) {
			m[p.Name] = p
		}
	}
	return m
}()

// Lookup finds a profile by name.
func Lookup(name string) (Profile, bool) {
	p, ok := byName[name]
	return p, ok
}

// Names returns every registered profile name.
func Names() []string {
	names := make([]string, 0, len(byName))
	for _, r := range []Role{RoleLogo, RoleHero, RoleCover, RolePhoto} {
		for _, p := range ForRole(r) {
			names = append(names, p.Name)
		}
	}
	return names
}
