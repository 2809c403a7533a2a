package analyzer

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/window"
)

// Fixed transform resolution.
const (
	TransformSize = 2048
	BinCount      = TransformSize / 2

	// MaxMagnitude is the largest value a snapshot sample can hold.
	MaxMagnitude = 255
	// ZeroPoint is the amplitude sample value of a silent input.
	ZeroPoint = 128

	smoothing   = 0.8
	minDecibels = -100.0
	maxDecibels = -30.0
)

// FrequencySnapshot holds one byte magnitude per frequency bin.
type FrequencySnapshot []uint8

// AmplitudeSnapshot holds time-domain samples centred on ZeroPoint.
type AmplitudeSnapshot []uint8

// Engine turns a window of mono samples into byte snapshots the way a
// browser AnalyserNode does: Blackman window, real FFT, temporal smoothing,
// decibel scaling into 0..255.
type Engine struct {
	size     int
	window   []float64
	input    []float64
	smoothed []float64
}

// NewEngine allocates an engine with the fixed TransformSize.
func NewEngine() *Engine {
	return newEngine(TransformSize)
}

func newEngine(size int) *Engine {
	size = nextPow2(size)
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1
	}
	window.Blackman(coeffs)
	return &Engine{
		size:     size,
		window:   coeffs,
		input:    make([]float64, size),
		smoothed: make([]float64, size/2),
	}
}

// Size returns the transform size.
func (e *Engine) Size() int { return e.size }

// Bins returns the number of usable frequency bins.
func (e *Engine) Bins() int { return e.size / 2 }

// Frequency transforms the newest Size() samples into dst (length Bins()).
// Each call advances the smoothing history by one step.
func (e *Engine) Frequency(samples []float32, dst FrequencySnapshot) {
	sampleCount := len(samples)
	for i := range e.input {
		if i < sampleCount {
			e.input[i] = float64(samples[i]) * e.window[i]
			continue
		}
		e.input[i] = 0
	}

	spectrum := fft.FFTReal(e.input)

	scale := 1.0 / float64(e.size)
	rangeScale := MaxMagnitude / (maxDecibels - minDecibels)
	for k := range e.smoothed {
		mag := cmag(spectrum[k]) * scale
		e.smoothed[k] = smoothing*e.smoothed[k] + (1-smoothing)*mag
		if k >= len(dst) {
			continue
		}
		if e.smoothed[k] <= 0 {
			dst[k] = 0
			continue
		}
		db := 20 * math.Log10(e.smoothed[k])
		dst[k] = uint8(clamp(math.Floor(rangeScale*(db-minDecibels)), 0, MaxMagnitude))
	}
}

// TimeDomain writes the first len(dst) of the newest Size() samples into dst.
func (e *Engine) TimeDomain(samples []float32, dst AmplitudeSnapshot) {
	for i := range dst {
		if i >= len(samples) {
			dst[i] = ZeroPoint
			continue
		}
		v := math.Floor(ZeroPoint * (1 + float64(samples[i])))
		dst[i] = uint8(clamp(v, 0, MaxMagnitude))
	}
}

func cmag(c complex128) float64 {
	return math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
}

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
