// Package match derives affine transforms that move each channel's mean and
// standard deviation onto requested targets.
package match

import (
	"errors"
	"fmt"
	"math"

	"github.com/MeKo-Tech/imageadjust/internal/adjust"
	"github.com/MeKo-Tech/imageadjust/internal/pixbuf"
	"github.com/MeKo-Tech/imageadjust/internal/stats"
)

var (
	// ErrDegenerateStatistics is returned when a channel has zero standard
	// deviation, so no scale can reach a target deviation.
	ErrDegenerateStatistics = errors.New("degenerate channel statistics: standard deviation is zero")
	// ErrTargetCount is returned when the number of targets fits neither a
	// single shared target nor one target per channel.
	ErrTargetCount = errors.New("target count does not match channels")
)

// Target is the desired mean and standard deviation of one channel.
type Target struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

func (t Target) validate() error {
	if math.IsNaN(t.Mean) || math.IsInf(t.Mean, 0) {
		return fmt.Errorf("%w: target mean %v", adjust.ErrOutOfRangeParameter, t.Mean)
	}
	if math.IsNaN(t.StdDev) || math.IsInf(t.StdDev, 0) || t.StdDev < 0 {
		return fmt.Errorf("%w: target deviation %v", adjust.ErrOutOfRangeParameter, t.StdDev)
	}
	return nil
}

// ComputeAlpha returns the scale that maps currentStdDev onto desiredStdDev.
func ComputeAlpha(currentStdDev, desiredStdDev float64) (float64, error) {
	if currentStdDev == 0 {
		return 0, ErrDegenerateStatistics
	}
	return desiredStdDev / currentStdDev, nil
}

// ComputeBias returns the offset that, after scaling by alpha, moves
// currentMean onto desiredMean.
func ComputeBias(currentMean, desiredMean, alpha float64) float64 {
	return desiredMean - currentMean*alpha
}

// ChannelPlan is the solved transform for one channel.
type ChannelPlan struct {
	Current   stats.ChannelStats `json:"current"`
	Target    Target             `json:"target"`
	Transform adjust.Transform   `json:"transform"`
}

// Plan holds one ChannelPlan per channel of the buffer, in plane order.
type Plan []ChannelPlan

// Transforms returns the per-channel transforms in plane order.
func (p Plan) Transforms() []adjust.Transform {
	out := make([]adjust.Transform, len(p))
	for i, cp := range p {
		out[i] = cp.Transform
	}
	return out
}

// ValidateTargets checks a target list independently of any buffer: one
// shared target or one per RGB channel, each finite with a non-negative
// deviation.
func ValidateTargets(targets []Target) error {
	if len(targets) != 1 && len(targets) != 3 {
		return fmt.Errorf("%w: expected 1 or 3 targets, got %d", ErrTargetCount, len(targets))
	}
	for _, t := range targets {
		if err := t.validate(); err != nil {
			return err
		}
	}
	return nil
}

// ExpandTargets resolves targets to exactly one per channel. A single target
// is shared by all channels; with linked set, the first target (red, or gray)
// is copied onto every channel and the rest are ignored.
func ExpandTargets(channels int, targets []Target, linked bool) ([]Target, error) {
	switch {
	case len(targets) == 0:
		return nil, fmt.Errorf("%w: no targets", ErrTargetCount)
	case !linked && len(targets) != 1 && len(targets) != channels:
		return nil, fmt.Errorf("%w: %d targets for %d channels", ErrTargetCount, len(targets), channels)
	}

	out := make([]Target, channels)
	for i := range out {
		if linked || len(targets) == 1 {
			out[i] = targets[0]
		} else {
			out[i] = targets[i]
		}
	}
	return out, nil
}

// Solve computes the current statistics of buf and the transform for each
// channel that reaches its target.
func Solve(buf *pixbuf.Buffer, targets []Target, linked bool) (Plan, error) {
	expanded, err := ExpandTargets(buf.Channels(), targets, linked)
	if err != nil {
		return nil, err
	}
	for _, t := range expanded {
		if err := t.validate(); err != nil {
			return nil, err
		}
	}

	current := stats.Compute(buf)
	plan := make(Plan, len(current))
	for i, cs := range current {
		alpha, err := ComputeAlpha(cs.StdDev, expanded[i].StdDev)
		if err != nil {
			return nil, fmt.Errorf("%s channel: %w", cs.Channel, err)
		}
		plan[i] = ChannelPlan{
			Current:   cs,
			Target:    expanded[i],
			Transform: adjust.Affine(alpha, ComputeBias(cs.Mean, expanded[i].Mean, alpha)),
		}
	}
	return plan, nil
}

// MatchStatistics returns a new buffer whose channels approximate the
// requested targets.
func MatchStatistics(buf *pixbuf.Buffer, targets []Target, linked bool) (*pixbuf.Buffer, error) {
	plan, err := Solve(buf, targets, linked)
	if err != nil {
		return nil, err
	}
	return adjust.ApplyPerChannel(buf, plan.Transforms())
}
