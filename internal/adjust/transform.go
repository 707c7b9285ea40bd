// Package adjust applies per-channel affine intensity transforms.
package adjust

import (
	"errors"
	"fmt"
	"math"

	"github.com/MeKo-Tech/imageadjust/internal/pixbuf"
)

var (
	// ErrOutOfRangeParameter is returned for non-finite or negative scale factors
	// and non-finite offsets.
	ErrOutOfRangeParameter = errors.New("parameter out of range")
	// ErrChannelMismatch is returned when the number of transforms does not
	// match the buffer's channel count.
	ErrChannelMismatch = errors.New("transform count does not match channels")
)

// MidGray is the pivot of brightness/contrast adjustments.
const MidGray = 128

// Transform maps an intensity v to (v-Pivot)*Scale + Pivot + Offset.
type Transform struct {
	Scale  float64 `json:"scale"`
	Offset float64 `json:"offset"`
	Pivot  float64 `json:"pivot"`
}

// Identity leaves intensities unchanged.
func Identity() Transform {
	return Transform{Scale: 1}
}

// Uniform is the brightness/contrast transform centred at mid-gray.
func Uniform(brightness int, contrast float64) Transform {
	return Transform{Scale: contrast, Offset: float64(brightness), Pivot: MidGray}
}

// Affine is the plain v*scale + offset transform.
func Affine(scale, offset float64) Transform {
	return Transform{Scale: scale, Offset: offset}
}

// Validate checks that the transform is applicable.
func (t Transform) Validate() error {
	if math.IsNaN(t.Scale) || math.IsInf(t.Scale, 0) || t.Scale < 0 {
		return fmt.Errorf("%w: scale %v", ErrOutOfRangeParameter, t.Scale)
	}
	if math.IsNaN(t.Offset) || math.IsInf(t.Offset, 0) {
		return fmt.Errorf("%w: offset %v", ErrOutOfRangeParameter, t.Offset)
	}
	if math.IsNaN(t.Pivot) || math.IsInf(t.Pivot, 0) {
		return fmt.Errorf("%w: pivot %v", ErrOutOfRangeParameter, t.Pivot)
	}
	return nil
}

// Eval returns the unclamped result for intensity v.
func (t Transform) Eval(v float64) float64 {
	return (v-t.Pivot)*t.Scale + t.Pivot + t.Offset
}

// LUT precomputes the rounded and clamped output for every 8-bit input.
func (t Transform) LUT() [256]uint8 {
	var lut [256]uint8
	for i := range lut {
		lut[i] = pixbuf.RoundClamp(t.Eval(float64(i)))
	}
	return lut
}

// ContrastCorrectionFactor converts a contrast amount in [-255,255] into a
// multiplicative contrast factor. An amount of 0 yields 1.
func ContrastCorrectionFactor(amount float64) float64 {
	return 259 * (amount + 255) / (255 * (259 - amount))
}

// SliderContrast is the contrast factor for a slider position given in tenths.
func SliderContrast(step int) float64 {
	return float64(step)/10 + 0.05
}
