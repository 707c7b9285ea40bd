package pixbuf

import "math"

// ClampU8 clamps an int value to the uint8 range [0, 255].
func ClampU8(x int) uint8 {
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return uint8(x)
}

// RoundClamp rounds half away from zero and clamps to [0, 255].
// NaN maps to 0.
func RoundClamp(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Round(v)
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
