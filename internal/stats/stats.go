// Package stats computes per-channel intensity statistics over a pixel buffer.
//
// Every function performs a complete scan of the buffer it is given. Nothing
// is cached, so statistics must be recomputed after any buffer change.
package stats

import (
	"github.com/MeKo-Tech/imageadjust/internal/pixbuf"
	"gonum.org/v1/gonum/stat"
)

// Selector maps one pixel's samples to the scalar being measured.
type Selector func(px []uint8) float64

// Plane selects the sample at plane index i.
func Plane(i int) Selector {
	return func(px []uint8) float64 { return float64(px[i]) }
}

var (
	SelectRed   = Plane(0)
	SelectGreen = Plane(1)
	SelectBlue  = Plane(2)
	SelectGray  = Plane(0)
)

// SelectLuma combines RGB with the standard luma weights. Single-channel
// pixels are returned as is.
func SelectLuma(px []uint8) float64 {
	if len(px) == 1 {
		return float64(px[0])
	}
	return 0.299*float64(px[0]) + 0.587*float64(px[1]) + 0.114*float64(px[2])
}

// ChannelSelector returns the selector for ch in buf.
func ChannelSelector(buf *pixbuf.Buffer, ch pixbuf.Channel) (Selector, error) {
	i, err := buf.ChannelIndex(ch)
	if err != nil {
		return nil, err
	}
	return Plane(i), nil
}

func values(buf *pixbuf.Buffer, sel Selector) []float64 {
	n := buf.Channels()
	pix := buf.Samples()
	out := make([]float64, 0, buf.Pixels())
	for i := 0; i < len(pix); i += n {
		out = append(out, sel(pix[i:i+n:i+n]))
	}
	return out
}

// Mean is the arithmetic mean of sel over all pixels.
func Mean(buf *pixbuf.Buffer, sel Selector) float64 {
	return stat.Mean(values(buf, sel), nil)
}

// StdDeviation is the population standard deviation of sel over all pixels.
func StdDeviation(buf *pixbuf.Buffer, sel Selector) float64 {
	_, std := stat.PopMeanStdDev(values(buf, sel), nil)
	return std
}

// ChannelStats describes one channel of a buffer snapshot.
type ChannelStats struct {
	Channel pixbuf.Channel `json:"channel"`
	Mean    float64        `json:"mean"`
	StdDev  float64        `json:"stdDev"`
}

// ForChannel computes mean and standard deviation of one channel.
func ForChannel(buf *pixbuf.Buffer, ch pixbuf.Channel) (ChannelStats, error) {
	sel, err := ChannelSelector(buf, ch)
	if err != nil {
		return ChannelStats{}, err
	}
	mean, std := stat.PopMeanStdDev(values(buf, sel), nil)
	return ChannelStats{Channel: ch, Mean: mean, StdDev: std}, nil
}

// Compute returns the statistics of every channel in buf, in plane order.
func Compute(buf *pixbuf.Buffer) []ChannelStats {
	chans := buf.ChannelList()
	out := make([]ChannelStats, len(chans))
	for i, ch := range chans {
		mean, std := stat.PopMeanStdDev(values(buf, Plane(i)), nil)
		out[i] = ChannelStats{Channel: ch, Mean: mean, StdDev: std}
	}
	return out
}
