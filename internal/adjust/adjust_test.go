package adjust

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/MeKo-Tech/imageadjust/internal/pixbuf"
	"github.com/MeKo-Tech/imageadjust/internal/stats"
	"github.com/MeKo-Tech/imageadjust/internal/synth"
)

func load(t *testing.T, samples []uint8, w, h, ch int) *pixbuf.Buffer {
	t.Helper()
	buf, err := pixbuf.Load(samples, w, h, ch)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return buf
}

func scenarioBuffer(t *testing.T) *pixbuf.Buffer {
	t.Helper()
	return load(t, []uint8{
		0, 0, 0, 255, 255, 255,
		128, 128, 128, 64, 64, 64,
	}, 2, 2, 3)
}

// checkPixels compares the pixels of buf against want, in row-major order.
func checkPixels(t *testing.T, buf *pixbuf.Buffer, want [][]uint8) {
	t.Helper()
	for i, px := range want {
		x, y := i%buf.Width(), i/buf.Width()
		if got := buf.Pixel(x, y); !bytes.Equal(got, px) {
			t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, px)
		}
	}
}

func TestApplyUniformIdentity(t *testing.T) {
	buffers := []*pixbuf.Buffer{
		scenarioBuffer(t),
		synth.Gradient(64, 4, 3),
		synth.PerlinNoise(32, 32, 6, 11, 3),
		synth.PerlinNoise(20, 10, 3, 5, 1),
	}
	for i, buf := range buffers {
		out, err := ApplyUniform(buf, 0, 1.0)
		if err != nil {
			t.Fatalf("buffer %d: ApplyUniform failed: %v", i, err)
		}
		if !out.Equal(buf) {
			t.Errorf("buffer %d: identity adjustment changed samples", i)
		}
		if out == buf {
			t.Errorf("buffer %d: expected a new buffer", i)
		}
	}
}

func TestApplyUniformScenario(t *testing.T) {
	buf := scenarioBuffer(t)
	orig := buf.Clone()

	out, err := ApplyUniform(buf, 10, 1.0)
	if err != nil {
		t.Fatalf("ApplyUniform failed: %v", err)
	}

	checkPixels(t, out, [][]uint8{
		{10, 10, 10},
		{255, 255, 255},
		{138, 138, 138},
		{74, 74, 74},
	})

	if !buf.Equal(orig) {
		t.Error("input buffer was mutated")
	}
}

func TestApplyUniformContrast(t *testing.T) {
	buf := load(t, []uint8{100, 128, 150, 0}, 4, 1, 1)

	out, err := ApplyUniform(buf, 0, 2.0)
	if err != nil {
		t.Fatalf("ApplyUniform failed: %v", err)
	}
	// (100-128)*2+128 = 72, 128 stays, (150-128)*2+128 = 172, (0-128)*2+128 clamps.
	if want := []uint8{72, 128, 172, 0}; !bytes.Equal(out.Samples(), want) {
		t.Errorf("contrast 2: samples = %v, want %v", out.Samples(), want)
	}

	flat, err := ApplyUniform(buf, 0, 0)
	if err != nil {
		t.Fatalf("ApplyUniform failed: %v", err)
	}
	if want := []uint8{128, 128, 128, 128}; !bytes.Equal(flat.Samples(), want) {
		t.Errorf("contrast 0: samples = %v, want %v", flat.Samples(), want)
	}
}

func TestApplyUniformClampsEverything(t *testing.T) {
	buf := synth.PerlinNoise(24, 24, 5, 99, 3)
	params := []struct {
		brightness int
		contrast   float64
	}{
		{0, 1}, {255, 1}, {-255, 1}, {1000, 3.5}, {-1000, 0.1}, {40, 25}, {0, 0},
	}
	for _, p := range params {
		out, err := ApplyUniform(buf, p.brightness, p.contrast)
		if err != nil {
			t.Fatalf("ApplyUniform(%d, %v) failed: %v", p.brightness, p.contrast, err)
		}
		if len(out.Samples()) != len(buf.Samples()) {
			t.Errorf("sample count changed: %d -> %d", len(buf.Samples()), len(out.Samples()))
		}
		// uint8 storage guarantees [0,255]; check saturation went the right way
		for _, v := range out.Samples() {
			if p.brightness >= 1000 && v != 255 {
				t.Fatalf("brightness %d: sample %d, want 255", p.brightness, v)
			}
			if p.brightness <= -1000 && v != 0 {
				t.Fatalf("brightness %d: sample %d, want 0", p.brightness, v)
			}
		}
	}
}

func TestContrastMonotonicity(t *testing.T) {
	// Keep samples close to mid-gray so no contrast below 2 saturates.
	src := synth.PerlinNoise(32, 32, 4, 3, 3)
	squeezed, err := ApplyUniform(src, 0, 0.25)
	if err != nil {
		t.Fatalf("ApplyUniform failed: %v", err)
	}

	for i := range squeezed.ChannelList() {
		sel := stats.Plane(i)
		prev := stats.StdDeviation(squeezed, sel)
		if prev <= 0 {
			t.Fatalf("channel %d is flat", i)
		}
		for _, c := range []float64{1.0, 1.25, 1.5, 2.0} {
			out, err := ApplyUniform(squeezed, 0, c)
			if err != nil {
				t.Fatalf("ApplyUniform(0, %v) failed: %v", c, err)
			}
			std := stats.StdDeviation(out, sel)
			if std < prev {
				t.Errorf("channel %d contrast %.2f: std %.3f dropped below %.3f", i, c, std, prev)
			}
			prev = std
		}
	}
}

func TestApplyRejectsBadParameters(t *testing.T) {
	buf := scenarioBuffer(t)
	for _, c := range []float64{-0.5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := ApplyUniform(buf, 0, c); !errors.Is(err, ErrOutOfRangeParameter) {
			t.Errorf("contrast %v: error = %v, want ErrOutOfRangeParameter", c, err)
		}
	}

	_, err := ApplyPerChannel(buf, []Transform{Identity(), Identity(), Affine(1, math.NaN())})
	if !errors.Is(err, ErrOutOfRangeParameter) {
		t.Errorf("NaN offset: error = %v, want ErrOutOfRangeParameter", err)
	}
}

func TestApplyPerChannel(t *testing.T) {
	buf := scenarioBuffer(t)

	out, err := ApplyPerChannel(buf, []Transform{
		Identity(),
		Affine(0.5, 0),
		Uniform(-20, 1),
	})
	if err != nil {
		t.Fatalf("ApplyPerChannel failed: %v", err)
	}

	checkPixels(t, out, [][]uint8{
		{0, 0, 0},
		{255, 128, 235},
		{128, 64, 108},
		{64, 32, 44},
	})

	if _, err := ApplyPerChannel(buf, []Transform{Identity()}); !errors.Is(err, ErrChannelMismatch) {
		t.Errorf("one transform for rgb: error = %v, want ErrChannelMismatch", err)
	}
}

func TestToGrayscaleInPlace(t *testing.T) {
	buf := load(t, []uint8{
		255, 0, 0,
		0, 255, 0,
		0, 0, 255,
		10, 10, 10,
	}, 4, 1, 3)

	ToGrayscale(buf)

	checkPixels(t, buf, [][]uint8{
		{57, 57, 57},
		{180, 180, 180},
		{18, 18, 18},
		{10, 10, 10},
	})
}

func TestCollapseGray(t *testing.T) {
	buf := load(t, []uint8{255, 0, 0, 0, 255, 0}, 2, 1, 3)

	gray := CollapseGray(buf)
	if gray.Channels() != 1 {
		t.Fatalf("channels = %d, want 1", gray.Channels())
	}
	if want := []uint8{57, 180}; !bytes.Equal(gray.Samples(), want) {
		t.Errorf("samples = %v, want %v", gray.Samples(), want)
	}
	if buf.Channels() != 3 {
		t.Error("input buffer was modified")
	}

	if again := CollapseGray(gray); !again.Equal(gray) {
		t.Error("collapsing a gray buffer changed it")
	}
}

func TestContrastCorrectionFactor(t *testing.T) {
	tests := []struct {
		amount float64
		want   float64
	}{
		{0, 1},
		{-255, 0},
		{128, 259.0 * 383 / (255 * 131)},
	}
	for _, tt := range tests {
		if got := ContrastCorrectionFactor(tt.amount); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("ContrastCorrectionFactor(%v) = %v, want %v", tt.amount, got, tt.want)
		}
	}
	if ContrastCorrectionFactor(100) <= ContrastCorrectionFactor(50) {
		t.Error("factor must grow with the amount")
	}
}

func TestSliderContrast(t *testing.T) {
	if got := SliderContrast(10); math.Abs(got-1.05) > 1e-12 {
		t.Errorf("SliderContrast(10) = %v, want 1.05", got)
	}
	if got := SliderContrast(0); math.Abs(got-0.05) > 1e-12 {
		t.Errorf("SliderContrast(0) = %v, want 0.05", got)
	}
}

func TestTransformLUT(t *testing.T) {
	lut := Uniform(0, 1.5).LUT()
	tests := map[int]uint8{
		0:   0,
		128: 128,
		255: 255,
		138: 143, // (10*1.5)+128
	}
	for in, want := range tests {
		if lut[in] != want {
			t.Errorf("lut[%d] = %d, want %d", in, lut[in], want)
		}
	}
}
