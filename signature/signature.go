// Package signature computes the content signatures that name derivative
// files.
//
// A signature is the canonical serialization of a source snapshot plus the
// transform parameters, hashed with SHA-1 and truncated to 16 hex chars.
// Serialization matches the format the site templates already use, so
// derivatives generated earlier keep their names.
package signature

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"siteimg/profile"
)

// HashLen is the number of hex characters kept from the digest.
const HashLen = 16

// Source is an immutable snapshot of a source asset taken when the
// signature is computed.
type Source struct {
	// Path is root-relative, e.g. /assets/editions/2024/cover.jpg.
	Path    string
	Size    int64
	ModTime time.Time
}

// FromFileInfo snapshots a stat result for the asset at path.
func FromFileInfo(path string, fi os.FileInfo) Source {
	return Source{Path: path, Size: fi.Size(), ModTime: fi.ModTime()}
}

// MtimeMs returns the modification time in fractional milliseconds, computed
// as seconds*1e3 + nanoseconds/1e6.
func (s Source) MtimeMs() float64 {
	return float64(s.ModTime.Unix())*1e3 + float64(s.ModTime.Nanosecond())/1e6
}

// record fixes the field order of the serialized signature.
type record struct {
	Src     string          `json:"src"`
	Size    int64           `json:"size"`
	MtimeMs float64         `json:"mtimeMs"`
	W       int             `json:"w"`
	H       *int            `json:"h"`
	Fit     profile.FitMode `json:"fit"`
	Q       int             `json:"q"`
	V       string          `json:"v"`
}

// Canonical returns the serialized signature for src under p.
func Canonical(src Source, p profile.Profile) (string, error) {
	rec := record{
		Src:     src.Path,
		Size:    src.Size,
		MtimeMs: src.MtimeMs(),
		W:       p.Width,
		H:       p.Height,
		Fit:     p.Fit,
		Q:       p.Quality,
		V:       p.Variant,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return "", fmt.Errorf("failed to serialize signature for %s: %w", src.Path, err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Compute returns the 16-char hash naming the derivative of src under p.
func Compute(src Source, p profile.Profile) (string, error) {
	canon, err := Canonical(src, p)
	if err != nil {
		return "", err
	}
	return Hash(canon), nil
}

// Gallery returns the hash shared by the sm/lg/lb gallery derivatives of
// src. The gallery profiles are fixed, so only the source snapshot is hashed.
func Gallery(src Source) string {
	return Hash(GalleryCanonical(src))
}

// GalleryCanonical returns the pipe-delimited gallery signature.
func GalleryCanonical(src Source) string {
	return src.Path + "|" + strconv.FormatInt(src.Size, 10) + "|" + FormatNumber(src.MtimeMs())
}

// Hash returns the first HashLen hex chars of the SHA-1 of s.
func Hash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:HashLen]
}

// Filename returns the derivative filename for hash and variant.
func Filename(hash, variant string) string {
	return hash + "-" + variant + ".webp"
}

// FormatNumber renders f the way a JavaScript number prints: shortest
// round-trip digits, no exponent for ordinary magnitudes.
func FormatNumber(f float64) string {
	if f != 0 && (abs(f) < 1e-6 || abs(f) >= 1e21) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
