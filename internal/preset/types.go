// Package preset stores named adjustment settings in a SQLite database.
package preset

import (
	"errors"
	"fmt"
	"time"

	"github.com/MeKo-Tech/imageadjust/internal/adjust"
	"github.com/MeKo-Tech/imageadjust/internal/match"
	"github.com/MeKo-Tech/imageadjust/internal/pixbuf"
)

// ErrNotFound is returned when no preset has the requested name.
var ErrNotFound = errors.New("preset not found")

// Kind selects how a preset is applied.
type Kind string

const (
	KindUniform Kind = "uniform" // brightness/contrast
	KindMatch   Kind = "match"   // statistics matching
)

// Preset is a named, reusable adjustment.
type Preset struct {
	CreatedAt  time.Time      `json:"createdAt"`
	Name       string         `json:"name"`
	Kind       Kind           `json:"kind"`
	Targets    []match.Target `json:"targets,omitempty"`
	Brightness int            `json:"brightness"`
	Contrast   float64        `json:"contrast"`
	Linked     bool           `json:"linked"`
}

// Validate checks that the preset is complete for its kind.
func (p Preset) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("preset name is required")
	}
	switch p.Kind {
	case KindUniform:
		return adjust.Uniform(p.Brightness, p.Contrast).Validate()
	case KindMatch:
		if err := match.ValidateTargets(p.Targets); err != nil {
			return fmt.Errorf("match preset %q: %w", p.Name, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown preset kind %q", p.Kind)
	}
}

// Apply runs the preset against buf and returns the adjusted copy.
func (p Preset) Apply(buf *pixbuf.Buffer) (*pixbuf.Buffer, error) {
	switch p.Kind {
	case KindUniform:
		return adjust.ApplyUniform(buf, p.Brightness, p.Contrast)
	case KindMatch:
		return match.MatchStatistics(buf, p.Targets, p.Linked)
	default:
		return nil, fmt.Errorf("unknown preset kind %q", p.Kind)
	}
}
