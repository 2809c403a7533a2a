//go:build !sdl

package render

import (
	"errors"
	"image/color"
)

// ErrSDLUnavailable is returned by NewWindow in builds without the sdl tag.
var ErrSDLUnavailable = errors.New("SDL surface not enabled; rebuild with -tags sdl")

// WindowConfig configures an SDL window surface.
type WindowConfig struct {
	Title  string
	Width  int
	Height int
	OnKey  func(key rune)
}

// Window is a placeholder in builds without SDL.
type Window struct{}

func NewWindow(WindowConfig) (*Window, error) {
	return nil, ErrSDLUnavailable
}

func (w *Window) Size() Size {
	return Size{PixelRatio: 1}
}

func (w *Window) Resize(int, int) {}

func (w *Window) Scale(float64) {}

func (w *Window) Clear() {}

func (w *Window) FillRect(Rect, color.NRGBA) {}

func (w *Window) StrokePath([]Point, color.NRGBA, float64) {}

func (w *Window) SetStatus(string) {}

func (w *Window) Present() error {
	return ErrSDLUnavailable
}

func (w *Window) Close() error {
	return nil
}

// SupportsSDL reports whether the binary was built with the sdl tag.
func SupportsSDL() bool {
	return false
}
