package render

import (
	"image/color"

	"github.com/guidoenr/tonescope/internal/analyzer"
	"github.com/lucasb-eyer/go-colorful"
)

// Op identifies a draw primitive.
type Op uint8

const (
	OpFillRect Op = iota + 1
	OpStrokePath
)

// Point is a position in CSS pixels.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in CSS pixels.
type Rect struct {
	X, Y, W, H float64
}

// Command is one draw primitive. Rect is used by OpFillRect, Path and Width
// by OpStrokePath.
type Command struct {
	Op    Op
	Rect  Rect
	Path  []Point
	Color color.NRGBA
	Width float64
}

var (
	Background = color.NRGBA{R: 0x0f, G: 0x17, B: 0x2a, A: 0xff}
	Trace      = color.NRGBA{R: 0x60, G: 0xa5, B: 0xfa, A: 0xff}
)

const (
	barWidthFactor = 2.5
	barGap         = 1.0
	barSaturation  = 0.7
	barLightness   = 0.5
	traceWidth     = 2.0
)

// barAlpha is 80% opacity.
const barAlpha uint8 = 204

// Projection builds the draw commands of a frame. Its buffers are reused
// between builds, so the returned commands are only valid until the next
// Build.
type Projection struct {
	cmds []Command
	path []Point
	hues []color.NRGBA
}

// Render is the stateless form of Projection.Build.
func Render(mode ViewMode, freq analyzer.FrequencySnapshot, amp analyzer.AmplitudeSnapshot, width, height float64) []Command {
	var p Projection
	return p.Build(mode, freq, amp, width, height)
}

// Build returns the background fill followed by either one bar per bin
// (Frequency) or a single polyline across the amplitude samples (Time).
//
// Bars are (width/N)*2.5 wide with a one pixel gap, so the run of bars is
// wider than the surface; bars past the right edge are left to surface
// clipping.
func (p *Projection) Build(mode ViewMode, freq analyzer.FrequencySnapshot, amp analyzer.AmplitudeSnapshot, width, height float64) []Command {
	cmds := p.cmds[:0]
	cmds = append(cmds, Command{
		Op:    OpFillRect,
		Rect:  Rect{W: width, H: height},
		Color: Background,
	})

	switch mode {
	case Time:
		cmds = append(cmds, p.trace(amp, width, height))
	default:
		cmds = p.bars(cmds, freq, width, height)
	}

	p.cmds = cmds
	return cmds
}

func (p *Projection) bars(cmds []Command, freq analyzer.FrequencySnapshot, width, height float64) []Command {
	n := len(freq)
	if n == 0 {
		return cmds
	}
	colors := p.barColors(n)
	barWidth := width / float64(n) * barWidthFactor

	x := 0.0
	for i, mag := range freq {
		barHeight := float64(mag) / analyzer.MaxMagnitude * height
		cmds = append(cmds, Command{
			Op:    OpFillRect,
			Rect:  Rect{X: x, Y: height - barHeight, W: barWidth, H: barHeight},
			Color: colors[i],
		})
		x += barWidth + barGap
	}
	return cmds
}

// barColors sweeps the hue wheel once across n bins.
func (p *Projection) barColors(n int) []color.NRGBA {
	if len(p.hues) == n {
		return p.hues
	}
	p.hues = make([]color.NRGBA, n)
	for i := range p.hues {
		hue := float64(i) / float64(n) * 360
		r, g, b := colorful.Hsl(hue, barSaturation, barLightness).Clamped().RGB255()
		p.hues[i] = color.NRGBA{R: r, G: g, B: b, A: barAlpha}
	}
	return p.hues
}

// trace maps samples to y = sample/128 * height/2 and ends the line at the
// right edge on the centre line.
func (p *Projection) trace(amp analyzer.AmplitudeSnapshot, width, height float64) Command {
	path := p.path[:0]
	if n := len(amp); n > 0 {
		slice := width / float64(n)
		x := 0.0
		for _, sample := range amp {
			v := float64(sample) / analyzer.ZeroPoint
			path = append(path, Point{X: x, Y: v * height / 2})
			x += slice
		}
	}
	path = append(path, Point{X: width, Y: height / 2})
	p.path = path

	return Command{
		Op:    OpStrokePath,
		Path:  path,
		Color: Trace,
		Width: traceWidth,
	}
}
