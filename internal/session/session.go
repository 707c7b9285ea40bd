// Package session keeps an original image and re-derives adjusted versions of
// it on demand, the way an interactive editor re-applies slider values.
package session

import (
	"sync"

	"github.com/MeKo-Tech/imageadjust/internal/adjust"
	"github.com/MeKo-Tech/imageadjust/internal/luma"
	"github.com/MeKo-Tech/imageadjust/internal/match"
	"github.com/MeKo-Tech/imageadjust/internal/pixbuf"
	"github.com/MeKo-Tech/imageadjust/internal/stats"
)

// ChangeFunc is called with the new result after every successful adjustment.
type ChangeFunc func(result *pixbuf.Buffer)

// Summary is a snapshot of the current result's statistics.
type Summary struct {
	Width      int                  `json:"width"`
	Height     int                  `json:"height"`
	Channels   []stats.ChannelStats `json:"channels"`
	Brightness float64              `json:"brightness"`
	Lightness  float64              `json:"lightness"`
}

// Session owns an original buffer and the latest adjusted result.
// Every adjustment starts from the original, so the last call wins and
// repeated adjustments never accumulate rounding error.
type Session struct {
	original *pixbuf.Buffer
	current  *pixbuf.Buffer
	onChange ChangeFunc
	mu       sync.RWMutex
}

// New creates a session. The session takes ownership of original.
func New(original *pixbuf.Buffer, onChange ChangeFunc) *Session {
	return &Session{
		original: original,
		current:  original,
		onChange: onChange,
	}
}

// Adjust applies brightness and a multiplicative contrast factor.
func (s *Session) Adjust(brightness int, contrast float64) (*pixbuf.Buffer, error) {
	return s.update(func(orig *pixbuf.Buffer) (*pixbuf.Buffer, error) {
		return adjust.ApplyUniform(orig, brightness, contrast)
	})
}

// AdjustAmount applies brightness and a contrast amount in [-255,255],
// converted with adjust.ContrastCorrectionFactor.
func (s *Session) AdjustAmount(brightness int, amount float64) (*pixbuf.Buffer, error) {
	return s.Adjust(brightness, adjust.ContrastCorrectionFactor(amount))
}

// ApplyTransforms applies one transform per channel.
func (s *Session) ApplyTransforms(transforms []adjust.Transform) (*pixbuf.Buffer, error) {
	return s.update(func(orig *pixbuf.Buffer) (*pixbuf.Buffer, error) {
		return adjust.ApplyPerChannel(orig, transforms)
	})
}

// Match rewrites the original so its channels approximate targets.
func (s *Session) Match(targets []match.Target, linked bool) (*pixbuf.Buffer, error) {
	return s.update(func(orig *pixbuf.Buffer) (*pixbuf.Buffer, error) {
		return match.MatchStatistics(orig, targets, linked)
	})
}

// Grayscale converts a copy of the original to gray.
func (s *Session) Grayscale() (*pixbuf.Buffer, error) {
	return s.update(func(orig *pixbuf.Buffer) (*pixbuf.Buffer, error) {
		out := orig.Clone()
		adjust.ToGrayscale(out)
		return out, nil
	})
}

// Reset discards the current result.
func (s *Session) Reset() *pixbuf.Buffer {
	out, _ := s.update(func(orig *pixbuf.Buffer) (*pixbuf.Buffer, error) {
		return orig, nil
	})
	return out
}

func (s *Session) update(fn func(orig *pixbuf.Buffer) (*pixbuf.Buffer, error)) (*pixbuf.Buffer, error) {
	s.mu.Lock()
	out, err := fn(s.original)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.current = out
	onChange := s.onChange
	s.mu.Unlock()

	if onChange != nil {
		onChange(out)
	}
	return out, nil
}

// Original returns the buffer the session was created with. It must not be modified.
func (s *Session) Original() *pixbuf.Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.original
}

// Current returns the latest result. It must not be modified.
func (s *Session) Current() *pixbuf.Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Brightness estimates the luma of the current result.
func (s *Session) Brightness() float64 {
	return luma.EstimateBrightness(s.Current())
}

// Stats computes fresh statistics for the current result.
func (s *Session) Stats() Summary {
	cur := s.Current()
	return Summary{
		Width:      cur.Width(),
		Height:     cur.Height(),
		Channels:   stats.Compute(cur),
		Brightness: luma.EstimateBrightness(cur),
		Lightness:  luma.EstimateLightness(cur),
	}
}

// Clone starts a new session whose original is a copy of this session's
// current result.
func (s *Session) Clone(onChange ChangeFunc) *Session {
	return New(s.Current().Clone(), onChange)
}
