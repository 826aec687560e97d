package discovery

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultEditionsDir is where per-year gallery folders live under the
// public directory.
const DefaultEditionsDir = "/assets/editions"

var galleryExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// EditionPhotos lists the images dropped into one edition's folder,
// returned as root-relative paths in natural order (2.jpg before 10.jpg).
// A missing folder yields nil.
func EditionPhotos(publicDir, editionsDir, year string) []string {
	dir := filepath.Join(publicDir, filepath.FromSlash(editionsDir), year)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if galleryExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.SliceStable(names, func(i, j int) bool { return NaturalLess(names[i], names[j]) })

	out := make([]string, len(names))
	for i, n := range names {
		out[i] = path.Join(editionsDir, year, n)
	}
	return out
}

// EditionYears lists the edition folders present under editionsDir.
func EditionYears(publicDir, editionsDir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(publicDir, filepath.FromSlash(editionsDir)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var years []string
	for _, e := range entries {
		if e.IsDir() {
			years = append(years, e.Name())
		}
	}
	sort.SliceStable(years, func(i, j int) bool { return NaturalLess(years[i], years[j]) })
	return years, nil
}

// AddEditionPhotos merges every rasterizable edition photo into the photo set.
// It returns the number of paths added.
func AddEditionPhotos(publicDir, editionsDir string, acc *Accumulator) (int, error) {
	years, err := EditionYears(publicDir, editionsDir)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, y := range years {
		for _, p := range EditionPhotos(publicDir, editionsDir, y) {
			if IsLocalImagePath(p) && acc.Photos.Add(p) {
				added++
			}
		}
	}
	return added, nil
}

// NaturalLess compares strings case-insensitively, treating runs of digits
// as numbers.
func NaturalLess(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	for a != "" && b != "" {
		da, db := isDigit(a[0]), isDigit(b[0])
		switch {
		case da && db:
			na, ra := leadingDigits(a)
			nb, rb := leadingDigits(b)
			if na != nb {
				return na < nb
			}
			a, b = ra, rb
		case a[0] != b[0]:
			return a[0] < b[0]
		default:
			a, b = a[1:], b[1:]
		}
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func leadingDigits(s string) (uint64, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	n, err := strconv.ParseUint(s[:i], 10, 64)
	if err != nil {
		n = ^uint64(0)
	}
	return n, s[i:]
}
