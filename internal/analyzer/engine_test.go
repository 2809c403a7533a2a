package analyzer

import (
	"math"
	"testing"
)

func sine(n, bin int, amplitude float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amplitude * math.Sin(2*math.Pi*float64(bin)*float64(i)/float64(n)))
	}
	return out
}

func TestNextPow2(t *testing.T) {
	cases := map[int]int{
		0:    1,
		1:    1,
		3:    4,
		257:  512,
		2048: 2048,
		2049: 4096,
	}
	for input, want := range cases {
		if got := nextPow2(input); got != want {
			t.Fatalf("nextPow2(%d)=%d want=%d", input, got, want)
		}
	}
}

func TestClamp(t *testing.T) {
	if clamp(300, 0, 255) != 255 {
		t.Fatalf("expected clamp high to be 255")
	}
	if clamp(-1, 0, 255) != 0 {
		t.Fatalf("expected clamp low to be 0")
	}
}

func TestEngineSizes(t *testing.T) {
	e := NewEngine()
	if e.Size() != TransformSize || e.Bins() != BinCount {
		t.Fatalf("size=%d bins=%d", e.Size(), e.Bins())
	}
}

func TestTimeDomainEncoding(t *testing.T) {
	e := NewEngine()
	samples := []float32{0, 1, -1, 0.5, -0.5}
	dst := make(AmplitudeSnapshot, 6)
	e.TimeDomain(samples, dst)

	want := []uint8{128, 255, 0, 192, 64, ZeroPoint}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst[%d]=%d want=%d (all=%v)", i, dst[i], want[i], dst)
		}
	}
}

func TestFrequencySilence(t *testing.T) {
	e := NewEngine()
	dst := make(FrequencySnapshot, BinCount)
	e.Frequency(make([]float32, TransformSize), dst)
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("bin %d=%d want 0 for silence", i, v)
		}
	}
}

func TestFrequencyPeaksAtToneBin(t *testing.T) {
	e := NewEngine()
	dst := make(FrequencySnapshot, BinCount)
	const bin = 64
	e.Frequency(sine(TransformSize, bin, 0.8), dst)

	got := Extract(dst, 44_100, TransformSize)
	want := int(math.Round(bin * 44_100.0 / TransformSize))
	if got.PeakFrequencyHz != want {
		t.Fatalf("peak=%d want=%d", got.PeakFrequencyHz, want)
	}
	if dst[bin] <= dst[bin+8] {
		t.Fatalf("expected tone bin above distant bins: %d vs %d", dst[bin], dst[bin+8])
	}
}

func TestFrequencySmoothingIsPerEngine(t *testing.T) {
	e := NewEngine()
	quiet := sine(TransformSize, 100, 0.001)

	first := make(FrequencySnapshot, BinCount)
	second := make(FrequencySnapshot, BinCount)
	e.Frequency(quiet, first)
	e.Frequency(quiet, second)
	if second[100] <= first[100] {
		t.Fatalf("smoothing should rise toward the input: first=%d second=%d", first[100], second[100])
	}

	again := make(FrequencySnapshot, BinCount)
	NewEngine().Frequency(quiet, again)
	if again[100] != first[100] {
		t.Fatalf("a new engine should start without history: got=%d want=%d", again[100], first[100])
	}
}
