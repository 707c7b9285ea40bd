package cmd

import (
	"fmt"
	"io"

	"github.com/MeKo-Tech/imageadjust/internal/match"
	"github.com/MeKo-Tech/imageadjust/internal/pixbuf"
	"github.com/MeKo-Tech/imageadjust/internal/session"
	"github.com/MeKo-Tech/imageadjust/internal/stats"
	"github.com/fatih/color"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold).SprintFunc()
	successColor = color.New(color.FgGreen).SprintFunc()
	warningColor = color.New(color.FgYellow).SprintFunc()
	errorColor   = color.New(color.FgRed).SprintFunc()

	channelColors = map[pixbuf.Channel]func(a ...interface{}) string{
		pixbuf.Red:   color.New(color.FgRed).SprintFunc(),
		pixbuf.Green: color.New(color.FgGreen).SprintFunc(),
		pixbuf.Blue:  color.New(color.FgBlue).SprintFunc(),
		pixbuf.Gray:  color.New(color.FgWhite).SprintFunc(),
	}
)

func channelLabel(ch pixbuf.Channel) string {
	label := fmt.Sprintf("%-6s", ch)
	if c, ok := channelColors[ch]; ok {
		return c(label)
	}
	return label
}

// printStats writes the per-channel table and the luma summary of buf.
func printStats(w io.Writer, name string, buf *pixbuf.Buffer) error {
	sum := session.New(buf, nil).Stats()

	fmt.Fprintf(w, "%s  %dx%d, %d channel(s)\n", headerColor(name), sum.Width, sum.Height, buf.Channels())
	fmt.Fprintf(w, "  %s\n", headerColor(fmt.Sprintf("%-6s %8s %8s %5s %5s %5s", "chan", "mean", "stddev", "min", "max", "peak")))

	for _, cs := range sum.Channels {
		h, err := stats.ComputeHistogram(buf, cs.Channel)
		if err != nil {
			return err
		}
		peak, _ := h.Peak()
		fmt.Fprintf(w, "  %s %8.2f %8.2f %5d %5d %5d\n",
			channelLabel(cs.Channel), cs.Mean, cs.StdDev, h.Min(), h.Max(), peak)
	}

	fmt.Fprintf(w, "  brightness %s  lightness %s\n",
		successColor(fmt.Sprintf("%.2f", sum.Brightness)),
		successColor(fmt.Sprintf("%.2f", sum.Lightness)))
	return nil
}

// printPlan writes the solved per-channel matching transforms.
func printPlan(w io.Writer, plan match.Plan) {
	fmt.Fprintf(w, "%s\n", headerColor(fmt.Sprintf("%-6s %8s %8s %8s %8s %8s %8s",
		"chan", "mean", "stddev", "target", "tstddev", "alpha", "bias")))
	for _, cp := range plan {
		fmt.Fprintf(w, "%s %8.2f %8.2f %8.2f %8.2f %8.4f %8.2f\n",
			channelLabel(cp.Current.Channel),
			cp.Current.Mean, cp.Current.StdDev,
			cp.Target.Mean, cp.Target.StdDev,
			cp.Transform.Scale, cp.Transform.Offset)
	}
}
