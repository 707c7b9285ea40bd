// Package imageio decodes and encodes image files to and from pixel buffers.
package imageio

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/imageadjust/internal/pixbuf"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // register webp decoder
)

// ErrUnsupportedFormat is returned for formats that cannot be written.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// DefaultQuality is used for lossy formats when no quality is given.
const DefaultQuality = 90

// Formats lists the formats Encode can write.
var Formats = []string{"png", "jpeg", "tiff", "bmp"}

// Decode reads an image and returns its pixels together with the format name
// reported by the decoder.
func Decode(r io.Reader) (*pixbuf.Buffer, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	buf, err := pixbuf.FromImage(img)
	if err != nil {
		return nil, "", err
	}
	return buf, format, nil
}

// Open decodes the image file at path.
func Open(path string) (*pixbuf.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	buf, format, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return buf, format, nil
}

// NormalizeFormat maps aliases like "jpg" or ".TIF" to the names in Formats.
func NormalizeFormat(format string) (string, error) {
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "png":
		return "png", nil
	case "jpg", "jpeg":
		return "jpeg", nil
	case "tif", "tiff":
		return "tiff", nil
	case "bmp":
		return "bmp", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// FormatFromPath derives the output format from a file extension.
func FormatFromPath(path string) (string, error) {
	return NormalizeFormat(filepath.Ext(path))
}

// Encode writes buf in the given format. quality applies to jpeg only and is
// clamped to [1,100]; 0 selects DefaultQuality.
func Encode(w io.Writer, buf *pixbuf.Buffer, format string, quality int) error {
	format, err := NormalizeFormat(format)
	if err != nil {
		return err
	}

	img := buf.ToImage()
	switch format {
	case "png":
		err = png.Encode(w, img)
	case "jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: clampQuality(quality)})
	case "tiff":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case "bmp":
		err = bmp.Encode(w, img)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return nil
}

// Save encodes buf to path. An empty format is derived from the extension.
func Save(path string, buf *pixbuf.Buffer, format string, quality int) error {
	if format == "" {
		f, err := FormatFromPath(path)
		if err != nil {
			return err
		}
		format = f
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	bw := bufio.NewWriter(f)
	if err := Encode(bw, buf, format, quality); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func clampQuality(q int) int {
	if q <= 0 {
		return DefaultQuality
	}
	if q > 100 {
		return 100
	}
	return q
}

// ContentType returns the MIME type for a normalized format.
func ContentType(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "tiff":
		return "image/tiff"
	case "bmp":
		return "image/bmp"
	default:
		return "image/png"
	}
}
