package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/imageadjust/internal/adjust"
	"github.com/MeKo-Tech/imageadjust/internal/imageio"
	"github.com/MeKo-Tech/imageadjust/internal/match"
	"github.com/MeKo-Tech/imageadjust/internal/pixbuf"
	"github.com/MeKo-Tech/imageadjust/internal/preset"
)

// operation turns an input buffer into an adjusted copy.
type operation func(buf *pixbuf.Buffer) (*pixbuf.Buffer, error)

// contrastOptions holds the three ways of expressing contrast on the command line.
// At most one of Amount and Step may be set; both override Factor.
type contrastOptions struct {
	Amount *float64
	Step   *int
	Factor float64
}

func (o contrastOptions) resolve() (float64, error) {
	switch {
	case o.Amount != nil && o.Step != nil:
		return 0, fmt.Errorf("--contrast-amount and --contrast-step are mutually exclusive")
	case o.Amount != nil:
		if *o.Amount <= -255 || *o.Amount > 255 {
			return 0, fmt.Errorf("%w: contrast amount %v must be within (-255,255]", adjust.ErrOutOfRangeParameter, *o.Amount)
		}
		return adjust.ContrastCorrectionFactor(*o.Amount), nil
	case o.Step != nil:
		return adjust.SliderContrast(*o.Step), nil
	default:
		return o.Factor, nil
	}
}

// operationOptions selects one of the supported operations.
type operationOptions struct {
	Preset     string
	PresetsDB  string
	Targets    string
	Contrast   contrastOptions
	Brightness int
	Linked     bool
	Grayscale  bool
	Collapse   bool
}

// build validates the options up front so batch runs fail before touching any file.
func (o operationOptions) build() (operation, string, error) {
	selected := 0
	for _, set := range []bool{o.Preset != "", o.Targets != "", o.Grayscale} {
		if set {
			selected++
		}
	}
	if selected > 1 {
		return nil, "", fmt.Errorf("--preset, --targets and --grayscale are mutually exclusive")
	}

	switch {
	case o.Preset != "":
		p, err := loadPreset(o.PresetsDB, o.Preset)
		if err != nil {
			return nil, "", err
		}
		return p.Apply, "preset " + p.Name, nil

	case o.Targets != "":
		targets, err := parseTargets(o.Targets)
		if err != nil {
			return nil, "", err
		}
		linked := o.Linked
		return func(buf *pixbuf.Buffer) (*pixbuf.Buffer, error) {
			return match.MatchStatistics(buf, targets, linked)
		}, "match", nil

	case o.Grayscale:
		collapse := o.Collapse
		return func(buf *pixbuf.Buffer) (*pixbuf.Buffer, error) {
			return grayscale(buf, collapse), nil
		}, "grayscale", nil

	default:
		contrast, err := o.Contrast.resolve()
		if err != nil {
			return nil, "", err
		}
		if err := adjust.Uniform(o.Brightness, contrast).Validate(); err != nil {
			return nil, "", err
		}
		brightness := o.Brightness
		return func(buf *pixbuf.Buffer) (*pixbuf.Buffer, error) {
			return adjust.ApplyUniform(buf, brightness, contrast)
		}, "adjust", nil
	}
}

func grayscale(buf *pixbuf.Buffer, collapse bool) *pixbuf.Buffer {
	out := buf.Clone()
	adjust.ToGrayscale(out)
	if collapse {
		return adjust.CollapseGray(out)
	}
	return out
}

func loadPreset(dbPath, name string) (preset.Preset, error) {
	store, err := preset.Open(dbPath)
	if err != nil {
		return preset.Preset{}, err
	}
	defer store.Close()
	return store.Get(name)
}

// parseTargets parses "mean:std[,mean:std...]" into match targets.
func parseTargets(s string) ([]match.Target, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("no targets given")
	}

	parts := strings.Split(s, ",")
	targets := make([]match.Target, 0, len(parts))
	for i, part := range parts {
		meanStr, stdStr, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("target %d: expected mean:std, got %q", i, part)
		}
		mean, err := strconv.ParseFloat(strings.TrimSpace(meanStr), 64)
		if err != nil {
			return nil, fmt.Errorf("target %d: invalid mean: %w", i, err)
		}
		std, err := strconv.ParseFloat(strings.TrimSpace(stdStr), 64)
		if err != nil {
			return nil, fmt.Errorf("target %d: invalid standard deviation: %w", i, err)
		}
		if std < 0 {
			return nil, fmt.Errorf("target %d: standard deviation must be non-negative", i)
		}
		targets = append(targets, match.Target{Mean: mean, StdDev: std})
	}
	if len(targets) != 1 && len(targets) != 3 {
		return nil, fmt.Errorf("expected 1 or 3 targets, got %d", len(targets))
	}
	return targets, nil
}

// outputFormat picks the encoder: an explicit format wins, then the output
// extension, then the format the input was decoded from.
func outputFormat(explicit, outputPath, inputFormat string) (string, error) {
	if explicit != "" {
		return imageio.NormalizeFormat(explicit)
	}
	if f, err := imageio.FormatFromPath(outputPath); err == nil {
		return f, nil
	}
	if f, err := imageio.NormalizeFormat(inputFormat); err == nil {
		return f, nil
	}
	return "png", nil
}

// processFile runs op on one image file and writes the result.
func processFile(op operation, input, output, format string, quality int) (string, error) {
	buf, inFormat, err := imageio.Open(input)
	if err != nil {
		return "", err
	}

	out, err := op(buf)
	if err != nil {
		return "", fmt.Errorf("%s: %w", input, err)
	}

	format, err = outputFormat(format, output, inFormat)
	if err != nil {
		return "", err
	}
	if err := imageio.Save(output, out, format, quality); err != nil {
		return "", err
	}
	return output, nil
}
