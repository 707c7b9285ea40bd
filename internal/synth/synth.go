// Package synth generates deterministic test images.
package synth

import (
	"math"

	"github.com/MeKo-Tech/imageadjust/internal/pixbuf"
	"github.com/aquilax/go-perlin"
)

func mustNew(width, height, channels int) *pixbuf.Buffer {
	buf, err := pixbuf.New(width, height, channels)
	if err != nil {
		panic(err)
	}
	return buf
}

// Flat returns a buffer with every sample set to value.
// It panics on invalid geometry.
func Flat(width, height, channels int, value uint8) *pixbuf.Buffer {
	buf := mustNew(width, height, channels)
	pix := buf.Samples()
	for i := range pix {
		pix[i] = value
	}
	return buf
}

// Gradient returns a horizontal ramp from black to white. For RGB buffers the
// green and blue planes are offset so the channels have distinct statistics.
func Gradient(width, height, channels int) *pixbuf.Buffer {
	buf := mustNew(width, height, channels)
	den := width - 1
	if den == 0 {
		den = 1
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := x * 255 / den
			if channels == 1 {
				buf.Set(x, y, 0, v)
				continue
			}
			buf.Set(x, y, 0, v)
			buf.Set(x, y, 1, v*3/4+32)
			buf.Set(x, y, 2, 255-v)
		}
	}
	return buf
}

// PerlinNoise returns a Perlin noise texture.
// scale controls the frequency of the noise (smaller = more detail) and seed
// makes the output deterministic. RGB planes are sampled at offset positions.
func PerlinNoise(width, height int, scale float64, seed int64, channels int) *pixbuf.Buffer {
	if scale <= 0 {
		scale = 1
	}
	// alpha: persistence, beta: lacunarity, n: octaves
	p := perlin.NewPerlin(2.0, 2.0, 3, seed)

	buf := mustNew(width, height, channels)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			for c := 0; c < channels; c++ {
				nx := float64(x)/scale + float64(c)*17.3
				ny := float64(y)/scale + float64(c)*5.1

				// Noise2D is roughly in [-1, 1]
				val := p.Noise2D(nx, ny)
				normalized := (val + 1.0) / 2.0
				buf.Set(x, y, c, int(math.Round(normalized*255)))
			}
		}
	}
	return buf
}
