// Package render turns analysis snapshots into draw commands and applies them
// to a terminal, an SDL window or an in-memory recorder.
package render

import (
	"github.com/guidoenr/tonescope/internal/analyzer"
)

// Renderer draws frames onto one surface.
type Renderer struct {
	surface Surface
	proj    Projection
}

// NewRenderer binds a renderer to s.
func NewRenderer(s Surface) *Renderer {
	return &Renderer{surface: s}
}

// Frame resizes the backing store to the current size and pixel ratio,
// scales drawing back to CSS pixels, then draws the selected view.
func (r *Renderer) Frame(mode ViewMode, freq analyzer.FrequencySnapshot, amp analyzer.AmplitudeSnapshot) error {
	size := r.surface.Size()
	width, height := size.Backing()
	r.surface.Resize(width, height)
	if size.PixelRatio > 0 {
		r.surface.Scale(size.PixelRatio)
	}

	cmds := r.proj.Build(mode, freq, amp, size.Width, size.Height)
	Draw(r.surface, cmds)
	return r.surface.Present()
}

// Clear blanks the surface.
func (r *Renderer) Clear() error {
	r.surface.Clear()
	return r.surface.Present()
}
