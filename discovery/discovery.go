// Package discovery collects the local image paths referenced by content
// records, grouped by the role they play on the site.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"siteimg/content"
	"siteimg/profile"
)

// Keys naming image roles in content records.
const (
	KeyHero   = "heroImage"
	KeyCover  = "coverImage"
	KeyPhotos = "photos"
)

// IsLocalImagePath reports whether v is a root-relative PNG or JPEG path
// served from the public directory.
func IsLocalImagePath(v string) bool {
	return IsLocalPath(v) && HasRasterExt(v)
}

// IsLocalPath reports whether v is root-relative and not a URL. Browsers
// read a leading "/\\" like "//", so it is rejected too.
func IsLocalPath(v string) bool {
	return strings.HasPrefix(v, "/") &&
		!strings.HasPrefix(v, "//") &&
		!strings.HasPrefix(v, "/\\") &&
		!strings.Contains(v, "://")
}

// HasRasterExt reports whether v ends in .png, .jpg or .jpeg, ignoring case.
func HasRasterExt(v string) bool {
	switch strings.ToLower(filepath.Ext(v)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// Set is an insertion-ordered set of paths.
type Set struct {
	order []string
	seen  map[string]struct{}
}

// Add inserts p. It returns false if p was already present.
func (s *Set) Add(p string) bool {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[p]; ok {
		return false
	}
	s.seen[p] = struct{}{}
	s.order = append(s.order, p)
	return true
}

// Has reports whether p is in the set.
func (s *Set) Has(p string) bool {
	_, ok := s.seen[p]
	return ok
}

// Len returns the number of paths.
func (s *Set) Len() int { return len(s.order) }

// Items returns the paths in insertion order.
func (s *Set) Items() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Accumulator holds discovered paths partitioned by role. A path lands in
// every role it is referenced under.
type Accumulator struct {
	Hero   Set
	Cover  Set
	Photos Set
	Misc   Set
}

// NewAccumulator returns an accumulator with the given misc paths (the logo).
func NewAccumulator(misc ...string) *Accumulator {
	acc := &Accumulator{}
	for _, m := range misc {
		acc.Misc.Add(m)
	}
	return acc
}

// Role returns the set backing r.
func (a *Accumulator) Role(r profile.Role) *Set {
	switch r {
	case profile.RoleHero:
		return &a.Hero
	case profile.RoleCover:
		return &a.Cover
	case profile.RolePhoto:
		return &a.Photos
	default:
		return &a.Misc
	}
}

// WebpSources returns the union of cover, hero and misc paths, deduplicated,
// in that order.
func (a *Accumulator) WebpSources() []string {
	var all Set
	for _, s := range []*Set{&a.Cover, &a.Hero, &a.Misc} {
		for _, p := range s.order {
			all.Add(p)
		}
	}
	return all.order
}

// VisitEntry classifies one key/value pair. It implements content.Visitor.
func (a *Accumulator) VisitEntry(key string, value *content.Node) {
	switch key {
	case KeyHero:
		if s, ok := value.StringValue(); ok && IsLocalImagePath(s) {
			a.Hero.Add(s)
		}
	case KeyCover:
		if s, ok := value.StringValue(); ok && IsLocalImagePath(s) {
			a.Cover.Add(s)
		}
	case KeyPhotos:
		if value == nil || value.Kind != content.KindSequence {
			return
		}
		for _, item := range value.Items {
			if s, ok := item.StringValue(); ok && IsLocalImagePath(s) {
				a.Photos.Add(s)
			}
		}
	}
}

// Collect walks a decoded record and merges its image references into acc.
func Collect(n *content.Node, acc *Accumulator) {
	content.Walk(n, acc)
}

// ContentFiles lists every record file under root whose extension is in
// exts, sorted. A missing root yields no files and no error.
func ContentFiles(root string, exts []string) ([]string, error) {
	if len(exts) == 0 {
		exts = content.DefaultExtensions
	}
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[strings.ToLower(e)] = true
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if want[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk content directory %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// ScanDir decodes every record under root and merges the references into
// acc. It returns the number of files scanned. The first record that fails
// to decode aborts the scan.
func ScanDir(root string, exts []string, acc *Accumulator) (int, error) {
	files, err := ContentFiles(root, exts)
	if err != nil {
		return 0, err
	}
	for _, f := range files {
		n, err := content.DecodeFile(f)
		if err != nil {
			return 0, err
		}
		Collect(n, acc)
	}
	return len(files), nil
}

// DirExists reports whether dir exists and is a directory.
func DirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
