package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/imageadjust/internal/adjust"
	"github.com/MeKo-Tech/imageadjust/internal/imageio"
	"github.com/MeKo-Tech/imageadjust/internal/match"
	"github.com/MeKo-Tech/imageadjust/internal/pixbuf"
	"github.com/MeKo-Tech/imageadjust/internal/preset"
	"github.com/MeKo-Tech/imageadjust/internal/synth"
	"github.com/fatih/color"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestParseTargets(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []match.Target
		wantErr bool
	}{
		{
			name:  "single target",
			input: "110:40",
			want:  []match.Target{{Mean: 110, StdDev: 40}},
		},
		{
			name:  "three targets with spaces",
			input: "100:30, 105.5:32 ,120:45",
			want:  []match.Target{{Mean: 100, StdDev: 30}, {Mean: 105.5, StdDev: 32}, {Mean: 120, StdDev: 45}},
		},
		{
			name:  "zero deviation",
			input: "128:0",
			want:  []match.Target{{Mean: 128, StdDev: 0}},
		},
		{
			name:    "two targets",
			input:   "1:1,2:2",
			wantErr: true,
		},
		{
			name:    "missing colon",
			input:   "110",
			wantErr: true,
		},
		{
			name:    "invalid mean",
			input:   "abc:40",
			wantErr: true,
		},
		{
			name:    "invalid deviation",
			input:   "110:x",
			wantErr: true,
		},
		{
			name:    "negative deviation",
			input:   "110:-4",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTargets(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseTargets(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("parseTargets(%q) unexpected error: %v", tt.input, err)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContrastOptions(t *testing.T) {
	amount := 0.0
	step := 10
	bad := 300.0

	got, err := contrastOptions{Factor: 1.5}.resolve()
	require.NoError(t, err)
	assert.Equal(t, 1.5, got)

	got, err = contrastOptions{Factor: 1.5, Amount: &amount}.resolve()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-12)

	got, err = contrastOptions{Step: &step}.resolve()
	require.NoError(t, err)
	assert.InDelta(t, 1.05, got, 1e-12)

	_, err = contrastOptions{Amount: &amount, Step: &step}.resolve()
	assert.Error(t, err)

	_, err = contrastOptions{Amount: &bad}.resolve()
	assert.ErrorIs(t, err, adjust.ErrOutOfRangeParameter)
}

func TestOperationOptions_Build(t *testing.T) {
	buf := synth.Gradient(16, 2, 3)

	op, label, err := operationOptions{Brightness: 10, Contrast: contrastOptions{Factor: 1}}.build()
	require.NoError(t, err)
	assert.Equal(t, "adjust", label)
	out, err := op(buf)
	require.NoError(t, err)
	assert.Equal(t, uint8(10), out.At(0, 0, 0))

	op, label, err = operationOptions{Grayscale: true, Collapse: true}.build()
	require.NoError(t, err)
	assert.Equal(t, "grayscale", label)
	out, err = op(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Channels())
	assert.Equal(t, 3, buf.Channels(), "input must not be modified")

	op, label, err = operationOptions{Targets: "100:10"}.build()
	require.NoError(t, err)
	assert.Equal(t, "match", label)
	_, err = op(synth.Flat(4, 4, 3, 9))
	assert.ErrorIs(t, err, match.ErrDegenerateStatistics)

	_, _, err = operationOptions{Targets: "100:10", Grayscale: true}.build()
	assert.Error(t, err)

	_, _, err = operationOptions{Contrast: contrastOptions{Factor: -2}}.build()
	assert.ErrorIs(t, err, adjust.ErrOutOfRangeParameter)
}

func TestOperationOptions_Preset(t *testing.T) {
	db := filepath.Join(t.TempDir(), "presets.db")
	store, err := preset.Open(db)
	require.NoError(t, err)
	require.NoError(t, store.Save(preset.Preset{Name: "dim", Kind: preset.KindUniform, Brightness: -20, Contrast: 1}))
	require.NoError(t, store.Close())

	op, label, err := operationOptions{Preset: "dim", PresetsDB: db}.build()
	require.NoError(t, err)
	assert.Equal(t, "preset dim", label)

	out, err := op(synth.Flat(2, 2, 3, 100))
	require.NoError(t, err)
	assert.Equal(t, uint8(80), out.At(1, 1, 2))

	_, _, err = operationOptions{Preset: "missing", PresetsDB: db}.build()
	assert.ErrorIs(t, err, preset.ErrNotFound)
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		explicit, output, input string
		want                    string
		wantErr                 bool
	}{
		{explicit: "jpg", output: "out.png", want: "jpeg"},
		{output: "out.tif", input: "png", want: "tiff"},
		{output: "out", input: "bmp", want: "bmp"},
		{output: "out", input: "webp", want: "png"},
		{explicit: "gif", wantErr: true},
	}
	for _, tt := range tests {
		got, err := outputFormat(tt.explicit, tt.output, tt.input)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestPlanBatch(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.jpg", "c.webp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	tasks, err := planBatch(dir, "*", "out", "")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, filepath.Join(dir, "a.jpg"), tasks[0].Input)
	assert.Equal(t, filepath.Join("out", "a.jpg"), tasks[0].Output)
	assert.Equal(t, filepath.Join("out", "c.png"), tasks[2].Output)

	tasks, err = planBatch(dir, "*.png", "out", "tiff")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, filepath.Join("out", "b.tiff"), tasks[0].Output)

	_, err = planBatch(dir, "[", "out", "")
	assert.Error(t, err)
}

func TestPlanBatch_RejectsCollidingOutputs(t *testing.T) {
	tests := []struct {
		name   string
		files  []string
		format string
	}{
		{name: "forced format", files: []string{"a.png", "a.jpg"}, format: "png"},
		{name: "webp falls back to png", files: []string{"a.png", "a.webp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, name := range tt.files {
				require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
			}

			tasks, err := planBatch(dir, "*", "out", tt.format)
			require.Error(t, err)
			assert.Nil(t, tasks)
			assert.Contains(t, err.Error(), filepath.Join("out", "a.png"))
		})
	}

	dir := t.TempDir()
	for _, name := range []string{"a.png", "a.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	tasks, err := planBatch(dir, "*", "out", "")
	require.NoError(t, err, "distinct extensions are kept when the format is not forced")
	assert.Len(t, tasks, 2)
}

func TestInitConfig_EnvOverridesNestedKeys(t *testing.T) {
	t.Setenv("IMAGEADJUST_SERVE_MAX_SESSIONS", "5")
	t.Setenv("IMAGEADJUST_BATCH_QUALITY", "70")
	initConfig()

	assert.Equal(t, 5, viper.GetInt("serve.max_sessions"))
	assert.Equal(t, 70, viper.GetInt("batch.quality"))
}

func TestMakePattern(t *testing.T) {
	buf, err := makePattern("flat", 3, 2, 1, 0, 0, 300)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), buf.At(2, 1, 0))

	buf, err = makePattern("perlin", 8, 8, 3, 7, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, buf.Channels())

	_, err = makePattern("gradient", 0, 2, 3, 0, 0, 0)
	assert.ErrorIs(t, err, pixbuf.ErrInvalidGeometry)

	_, err = makePattern("gradient", 2, 2, 4, 0, 0, 0)
	assert.ErrorIs(t, err, pixbuf.ErrInvalidGeometry)

	_, err = makePattern("checker", 2, 2, 3, 0, 0, 0)
	assert.Error(t, err)
}

func TestPrintStats(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printStats(&out, "flat.png", synth.Flat(2, 2, 3, 100)))

	text := out.String()
	assert.Contains(t, text, "flat.png  2x2, 3 channel(s)")
	assert.Contains(t, text, "red      100.00     0.00   100   100   100")
	assert.Contains(t, text, "brightness 100.00")
}

func TestPrintPlan(t *testing.T) {
	plan, err := match.Solve(synth.Gradient(64, 2, 3), []match.Target{{Mean: 100, StdDev: 20}}, true)
	require.NoError(t, err)

	var out bytes.Buffer
	printPlan(&out, plan)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "red"))
	assert.Contains(t, lines[3], "100.00")
}

func TestDescribePreset(t *testing.T) {
	assert.Equal(t, "brightness=10 contrast=1.2",
		describePreset(preset.Preset{Kind: preset.KindUniform, Brightness: 10, Contrast: 1.2}))
	assert.Equal(t, "90:30,95:31 linked",
		describePreset(preset.Preset{Kind: preset.KindMatch, Linked: true,
			Targets: []match.Target{{Mean: 90, StdDev: 30}, {Mean: 95, StdDev: 31}}}))
}

// execute runs the root command with args and returns its standard output.
func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestCommands_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	pattern := filepath.Join(dir, "in", "gradient.png")
	adjusted := filepath.Join(dir, "adjusted.png")
	gray := filepath.Join(dir, "gray.bmp")
	db := filepath.Join(dir, "presets.db")

	execute(t, "testpattern", "--kind", "gradient", "--width", "32", "--height", "4", "-o", pattern)

	execute(t, "adjust", "-i", pattern, "-o", adjusted, "--brightness", "10")
	buf, format, err := imageio.Open(adjusted)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, uint8(10), buf.At(0, 0, 0))

	execute(t, "grayscale", "-i", pattern, "-o", gray, "--collapse")
	buf, _, err = imageio.Open(gray)
	require.NoError(t, err)
	px := buf.Pixel(31, 0)
	assert.Equal(t, px[0], px[len(px)-1])

	out := execute(t, "stats", pattern)
	assert.Contains(t, out, "32x4, 3 channel(s)")

	out = execute(t, "brightness", pattern)
	assert.True(t, strings.HasPrefix(out, pattern+"\t"))

	execute(t, "preset", "save", "dusk", "--targets", "90:20", "--presets-db", db)
	out = execute(t, "preset", "list", "--presets-db", db)
	assert.Contains(t, out, "dusk")
	out = execute(t, "preset", "show", "dusk", "--presets-db", db)
	assert.Contains(t, out, `"kind": "match"`)

	outDir := filepath.Join(dir, "out")
	execute(t, "batch", "--presets-db", db,
		"--input-dir", filepath.Join(dir, "in"), "--output-dir", outDir,
		"--preset", "dusk", "--progress=false", "--workers", "2")
	buf, _, err = imageio.Open(filepath.Join(outDir, "gradient.png"))
	require.NoError(t, err)
	assert.Equal(t, 32, buf.Width())

	execute(t, "preset", "delete", "dusk", "--presets-db", db)
	out = execute(t, "preset", "list", "--presets-db", db)
	assert.Contains(t, out, "no presets")
}
