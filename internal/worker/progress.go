package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const barWidth = 30

// Progress tracks batch progress and renders it as a single terminal line.
type Progress struct {
	startTime time.Time
	output    io.Writer
	total     int
	completed int
	failed    int
	mu        sync.RWMutex
	enabled   bool
}

// NewProgress creates a progress tracker writing to stderr.
func NewProgress(total int, enabled bool) *Progress {
	return &Progress{
		total:     total,
		startTime: time.Now(),
		output:    os.Stderr,
		enabled:   enabled,
	}
}

// Update records the completion of a task.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	p.completed = completed
	p.total = total
	p.failed = failed
	p.mu.Unlock()

	if p.enabled {
		p.Print()
	}
}

// Callback returns a ProgressFunc suitable for use with Pool.Config.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

type snapshot struct {
	completed, total, failed int
	elapsed                  time.Duration
}

func (p *Progress) snapshot() snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return snapshot{
		completed: p.completed,
		total:     p.total,
		failed:    p.failed,
		elapsed:   time.Since(p.startTime),
	}
}

func (s snapshot) rate() float64 {
	if s.elapsed.Seconds() <= 0 {
		return 0
	}
	return float64(s.completed) / s.elapsed.Seconds()
}

// Print writes the current progress line.
func (p *Progress) Print() {
	s := p.snapshot()
	rate := s.rate()

	filled := 0
	if s.total > 0 {
		filled = s.completed * barWidth / s.total
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	var line strings.Builder
	fmt.Fprintf(&line, "\r[%s] %d/%d images", bar, s.completed, s.total)
	if s.failed > 0 {
		fmt.Fprintf(&line, " (%d failed)", s.failed)
	}
	fmt.Fprintf(&line, " - %.1f images/sec", rate)
	if s.completed < s.total && rate > 0 {
		eta := time.Duration(float64(s.total-s.completed)/rate) * time.Second
		fmt.Fprintf(&line, " - ETA: %s", formatDuration(eta))
	}
	if s.completed == s.total {
		fmt.Fprintf(&line, " - Done in %s", formatDuration(s.elapsed))
	}
	// pad over leftovers of a longer previous line
	line.WriteString("          ")

	fmt.Fprint(p.output, line.String())
}

// Done prints the final progress and a newline.
func (p *Progress) Done() {
	if p.enabled {
		p.Print()
		fmt.Fprintln(p.output)
	}
}

// Summary returns a one-line summary of the completed work.
func (p *Progress) Summary() string {
	s := p.snapshot()
	return fmt.Sprintf("Processed %d/%d images (%d failed) in %s (%.1f images/sec)",
		s.completed-s.failed, s.total, s.failed, formatDuration(s.elapsed), s.rate())
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
