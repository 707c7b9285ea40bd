package adjust

import (
	"fmt"

	"github.com/MeKo-Tech/imageadjust/internal/pixbuf"
)

// Grayscale conversion weights.
const (
	grayRed   = 0.222
	grayGreen = 0.707
	grayBlue  = 0.071
)

// ApplyUniform applies the same brightness/contrast transform to every channel
// and returns a new buffer; buf is left untouched.
func ApplyUniform(buf *pixbuf.Buffer, brightness int, contrast float64) (*pixbuf.Buffer, error) {
	t := Uniform(brightness, contrast)
	transforms := make([]Transform, buf.Channels())
	for i := range transforms {
		transforms[i] = t
	}
	return ApplyPerChannel(buf, transforms)
}

// ApplyPerChannel applies transforms[i] to plane i and returns a new buffer.
// All transforms are validated before any pixel is touched.
func ApplyPerChannel(buf *pixbuf.Buffer, transforms []Transform) (*pixbuf.Buffer, error) {
	n := buf.Channels()
	if len(transforms) != n {
		return nil, fmt.Errorf("%w: %d transforms for %d channels", ErrChannelMismatch, len(transforms), n)
	}

	luts := make([][256]uint8, n)
	for i, t := range transforms {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%s channel: %w", buf.ChannelList()[i], err)
		}
		luts[i] = t.LUT()
	}

	dst := buf.Clone()
	pix := dst.Samples()
	for p := 0; p < len(pix); p += n {
		for c := 0; c < n; c++ {
			pix[p+c] = luts[c][pix[p+c]]
		}
	}
	return dst, nil
}

func grayLevel(r, g, b uint8) uint8 {
	return pixbuf.RoundClamp(grayRed*float64(r) + grayGreen*float64(g) + grayBlue*float64(b))
}

// ToGrayscale converts an RGB buffer in place, writing the gray level into all
// three channels. Single-channel buffers are left as they are.
func ToGrayscale(buf *pixbuf.Buffer) {
	if buf.IsGray() {
		return
	}
	pix := buf.Samples()
	for p := 0; p < len(pix); p += 3 {
		v := grayLevel(pix[p], pix[p+1], pix[p+2])
		pix[p], pix[p+1], pix[p+2] = v, v, v
	}
}

// CollapseGray returns a single-channel copy of buf.
func CollapseGray(buf *pixbuf.Buffer) *pixbuf.Buffer {
	if buf.IsGray() {
		return buf.Clone()
	}
	src := buf.Samples()
	out := make([]uint8, buf.Pixels())
	for i := range out {
		p := i * 3
		out[i] = grayLevel(src[p], src[p+1], src[p+2])
	}
	dst, err := pixbuf.Load(out, buf.Width(), buf.Height(), 1)
	if err != nil {
		// geometry comes from a valid buffer
		panic(err)
	}
	return dst
}
