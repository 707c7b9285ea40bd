// Package pixbuf provides the 8-bit pixel buffer the adjustment engine works on.
package pixbuf

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry is returned when dimensions or sample counts don't describe a valid buffer.
var ErrInvalidGeometry = errors.New("invalid buffer geometry")

// Channel identifies a single intensity plane.
type Channel int

const (
	Red Channel = iota
	Green
	Blue
	Gray
)

func (c Channel) String() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	case Gray:
		return "gray"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// ParseChannel parses a channel name as printed by Channel.String.
func ParseChannel(s string) (Channel, error) {
	switch s {
	case "red", "r":
		return Red, nil
	case "green", "g":
		return Green, nil
	case "blue", "b":
		return Blue, nil
	case "gray", "grey", "l":
		return Gray, nil
	}
	return 0, fmt.Errorf("unknown channel %q", s)
}

// Buffer holds width*height pixels of 1 (gray) or 3 (RGB) interleaved samples.
type Buffer struct {
	pix      []uint8
	width    int
	height   int
	channels int
}

// New allocates a zeroed buffer.
func New(width, height, channels int) (*Buffer, error) {
	if err := checkGeometry(width, height, channels); err != nil {
		return nil, err
	}
	return &Buffer{
		pix:      make([]uint8, width*height*channels),
		width:    width,
		height:   height,
		channels: channels,
	}, nil
}

// Load builds a buffer from decoded samples. The samples are copied so the
// caller may reuse its slice.
func Load(samples []uint8, width, height, channels int) (*Buffer, error) {
	if err := checkGeometry(width, height, channels); err != nil {
		return nil, err
	}
	if want := width * height * channels; len(samples) != want {
		return nil, fmt.Errorf("%w: %d samples for %dx%dx%d (want %d)",
			ErrInvalidGeometry, len(samples), width, height, channels, want)
	}
	return &Buffer{
		pix:      append([]uint8(nil), samples...),
		width:    width,
		height:   height,
		channels: channels,
	}, nil
}

func checkGeometry(width, height, channels int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidGeometry, width, height)
	}
	if channels != 1 && channels != 3 {
		return fmt.Errorf("%w: %d channels (want 1 or 3)", ErrInvalidGeometry, channels)
	}
	return nil
}

func (b *Buffer) Width() int    { return b.width }
func (b *Buffer) Height() int   { return b.height }
func (b *Buffer) Channels() int { return b.channels }

// Pixels returns width*height.
func (b *Buffer) Pixels() int { return b.width * b.height }

// IsGray reports whether the buffer has a single channel.
func (b *Buffer) IsGray() bool { return b.channels == 1 }

func (b *Buffer) offset(x, y int) int {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		panic(fmt.Sprintf("pixbuf: (%d,%d) outside %dx%d", x, y, b.width, b.height))
	}
	return (y*b.width + x) * b.channels
}

// At returns the sample of plane c at (x, y).
func (b *Buffer) At(x, y, c int) uint8 {
	return b.pix[b.offset(x, y)+c]
}

// Set writes v to plane c at (x, y), clamping it to [0,255].
func (b *Buffer) Set(x, y, c, v int) {
	b.pix[b.offset(x, y)+c] = ClampU8(v)
}

// Pixel returns the samples of the pixel at (x, y). The slice aliases the
// buffer and must not be written to.
func (b *Buffer) Pixel(x, y int) []uint8 {
	i := b.offset(x, y)
	return b.pix[i : i+b.channels : i+b.channels]
}

// Samples returns the backing slice, row-major with interleaved channels.
// Callers that own the buffer may write through it.
func (b *Buffer) Samples() []uint8 { return b.pix }

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	return &Buffer{
		pix:      append([]uint8(nil), b.pix...),
		width:    b.width,
		height:   b.height,
		channels: b.channels,
	}
}

// Equal reports whether both buffers have the same geometry and samples.
func (b *Buffer) Equal(o *Buffer) bool {
	if b.width != o.width || b.height != o.height || b.channels != o.channels {
		return false
	}
	for i := range b.pix {
		if b.pix[i] != o.pix[i] {
			return false
		}
	}
	return true
}

// ChannelList returns the channels stored in the buffer, in plane order.
func (b *Buffer) ChannelList() []Channel {
	if b.channels == 1 {
		return []Channel{Gray}
	}
	return []Channel{Red, Green, Blue}
}

// ChannelIndex maps a channel to its plane index in this buffer.
func (b *Buffer) ChannelIndex(ch Channel) (int, error) {
	if b.channels == 1 {
		if ch == Gray {
			return 0, nil
		}
		return 0, fmt.Errorf("%s channel not present in gray buffer", ch)
	}
	switch ch {
	case Red, Green, Blue:
		return int(ch), nil
	}
	return 0, fmt.Errorf("%s channel not present in RGB buffer", ch)
}

// MarshalText implements encoding.TextMarshaler.
func (c Channel) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Channel) UnmarshalText(text []byte) error {
	ch, err := ParseChannel(string(text))
	if err != nil {
		return err
	}
	*c = ch
	return nil
}
