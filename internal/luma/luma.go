// Package luma estimates the overall brightness of a pixel buffer.
package luma

import (
	"github.com/MeKo-Tech/imageadjust/internal/pixbuf"
	"github.com/MeKo-Tech/imageadjust/internal/stats"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Luma weights (ITU-R BT.601).
const (
	WeightRed   = 0.299
	WeightGreen = 0.587
	WeightBlue  = 0.114
)

// EstimateBrightness returns the mean luma of buf, in [0,255].
func EstimateBrightness(buf *pixbuf.Buffer) float64 {
	n := buf.Channels()
	pix := buf.Samples()

	var sum float64
	if n == 1 {
		for _, v := range pix {
			sum += float64(v)
		}
	} else {
		for i := 0; i < len(pix); i += n {
			sum += WeightRed*float64(pix[i]) + WeightGreen*float64(pix[i+1]) + WeightBlue*float64(pix[i+2])
		}
	}
	return clamp(sum/float64(buf.Pixels()), 0, 255)
}

// EstimateLightness returns the mean CIE L* of buf, in [0,100].
// Pixels are interpreted as sRGB.
func EstimateLightness(buf *pixbuf.Buffer) float64 {
	var lut [256]float64
	for i := range lut {
		v := float64(i) / 255
		l, _, _ := colorful.Color{R: v, G: v, B: v}.Lab()
		lut[i] = l
	}

	l := stats.Mean(buf, func(px []uint8) float64 {
		if len(px) == 1 {
			return lut[px[0]]
		}
		c := colorful.Color{
			R: float64(px[0]) / 255,
			G: float64(px[1]) / 255,
			B: float64(px[2]) / 255,
		}
		l, _, _ := c.Lab()
		return l
	})
	return clamp(l*100, 0, 100)
}

// clamp guards against accumulated float error pushing a mean just outside its range.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
