package transform

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
)

// ErrUndecodable is returned when no usable image data can be recovered.
var ErrUndecodable = errors.New("image is not decodable")

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// DecodeFile reads and decodes the image at path leniently.
func DecodeFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source image: %w", err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Decode decodes PNG or JPEG data, applying EXIF orientation.
//
// Bytes after the end-of-image marker are ignored by the decoders. A JPEG
// whose entropy-coded data is cut short is retried with zero padding and a
// synthetic EOI, which yields the rows that were present and flat fill for
// the rest.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}
	firstErr := err

	if bytes.HasPrefix(data, jpegSOI) {
		if img, err := imaging.Decode(bytes.NewReader(padJPEG(data)), imaging.AutoOrientation(true)); err == nil {
			return img, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrUndecodable, firstErr)
}

// padJPEG appends zero bytes and an EOI marker to a truncated JPEG. Zero
// bits decode as short Huffman codes, so every remaining MCU completes and
// the decoder skips the extra padding before it reaches the marker.
func padJPEG(data []byte) []byte {
	padding := len(data)
	if padding < 64<<10 {
		padding = 64 << 10
	}
	out := make([]byte, 0, len(data)+padding+len(jpegEOI))
	out = append(out, data...)
	out = append(out, make([]byte, padding)...)
	return append(out, jpegEOI...)
}
