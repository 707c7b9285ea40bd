package stats

import (
	"github.com/MeKo-Tech/imageadjust/internal/pixbuf"
	"gonum.org/v1/gonum/stat"
)

// Histogram is the frequency distribution of one channel's 8-bit samples.
type Histogram [256]int

// ComputeHistogram counts the samples of ch in buf.
func ComputeHistogram(buf *pixbuf.Buffer, ch pixbuf.Channel) (Histogram, error) {
	var h Histogram
	i, err := buf.ChannelIndex(ch)
	if err != nil {
		return h, err
	}
	n := buf.Channels()
	pix := buf.Samples()
	for p := i; p < len(pix); p += n {
		h[pix[p]]++
	}
	return h, nil
}

// Count returns the number of samples in the histogram.
func (h *Histogram) Count() int {
	total := 0
	for _, c := range h {
		total += c
	}
	return total
}

func (h *Histogram) weights() (levels, weights []float64) {
	levels = make([]float64, len(h))
	weights = make([]float64, len(h))
	for i, c := range h {
		levels[i] = float64(i)
		weights[i] = float64(c)
	}
	return levels, weights
}

// Mean returns the weighted mean intensity. An empty histogram yields NaN.
func (h *Histogram) Mean() float64 {
	levels, weights := h.weights()
	return stat.Mean(levels, weights)
}

// StdDev returns the population standard deviation of the intensities.
func (h *Histogram) StdDev() float64 {
	levels, weights := h.weights()
	_, std := stat.PopMeanStdDev(levels, weights)
	return std
}

// Min returns the lowest populated level, or -1 when empty.
func (h *Histogram) Min() int {
	for i, c := range h {
		if c > 0 {
			return i
		}
	}
	return -1
}

// Max returns the highest populated level, or -1 when empty.
func (h *Histogram) Max() int {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i] > 0 {
			return i
		}
	}
	return -1
}

// Peak returns the most frequent level and its count. Ties go to the lower level.
func (h *Histogram) Peak() (level, count int) {
	level = -1
	for i, c := range h {
		if c > count {
			level, count = i, c
		}
	}
	return level, count
}
