//go:build sdl

package render

import (
	"fmt"
	"image/color"
	"runtime"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"
)

// SDL calls must come from the main thread; the run loop stays on the main
// goroutine.
func init() { runtime.LockOSThread() }

// WindowConfig configures an SDL window surface.
type WindowConfig struct {
	Title  string
	Width  int
	Height int
	// OnKey receives printable key presses and Tab/Escape from the event
	// loop. It runs on the presenting goroutine.
	OnKey func(key rune)
}

// Window rasterises into a streaming texture and presents it in an SDL
// window. Closing the window makes Present return ErrSurfaceClosed.
type Window struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	title    string
	onKey    func(rune)

	canvas canvas
	pixels []byte
	texW   int
	texH   int
	closed bool
}

// NewWindow opens the window and its accelerated renderer.
func NewWindow(cfg WindowConfig) (*Window, error) {
	if cfg.Width <= 0 {
		cfg.Width = 960
	}
	if cfg.Height <= 0 {
		cfg.Height = 540
	}
	if cfg.Title == "" {
		cfg.Title = "tonescope"
	}
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("sdl init: %w", err)
	}
	window, err := sdl.CreateWindow(
		cfg.Title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(cfg.Width), int32(cfg.Height),
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE|sdl.WINDOW_ALLOW_HIGHDPI,
	)
	if err != nil {
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return nil, fmt.Errorf("sdl window: %w", err)
	}
	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return nil, fmt.Errorf("sdl renderer: %w", err)
	}
	return &Window{
		window:   window,
		renderer: renderer,
		title:    cfg.Title,
		onKey:    cfg.OnKey,
	}, nil
}

// Size reports the window size in points and the ratio of drawable pixels
// to points.
func (w *Window) Size() Size {
	pw, ph := w.window.GetSize()
	ratio := 1.0
	if ow, _, err := w.renderer.GetOutputSize(); err == nil && pw > 0 && ow > 0 {
		ratio = float64(ow) / float64(pw)
	}
	return Size{Width: float64(pw), Height: float64(ph), PixelRatio: ratio}
}

func (w *Window) Resize(width, height int) {
	w.canvas.resize(width, height)
}

func (w *Window) Scale(factor float64) { w.canvas.setScale(factor) }

func (w *Window) Clear() { w.canvas.clear() }

func (w *Window) FillRect(r Rect, c color.NRGBA) { w.canvas.fillRect(r, c) }

func (w *Window) StrokePath(path []Point, c color.NRGBA, width float64) {
	w.canvas.strokePath(path, c, width)
}

// SetStatus shows text in the window title.
func (w *Window) SetStatus(text string) {
	if text == "" || text == w.title {
		return
	}
	w.window.SetTitle(text)
	w.title = text
}

// Present uploads the raster, flips and drains pending window events.
func (w *Window) Present() error {
	if w.closed {
		return ErrSurfaceClosed
	}
	if err := w.ensureTexture(); err != nil {
		return err
	}
	if w.texture != nil {
		w.pixels = w.canvas.rgba8(w.pixels)
		if len(w.pixels) < w.texW*w.texH*4 {
			return nil
		}
		if err := w.texture.Update(nil, unsafe.Pointer(&w.pixels[0]), w.texW*4); err != nil {
			return fmt.Errorf("sdl texture update: %w", err)
		}
	}
	if err := w.renderer.SetDrawColor(0, 0, 0, 255); err != nil {
		return err
	}
	if err := w.renderer.Clear(); err != nil {
		return err
	}
	if w.texture != nil {
		if err := w.renderer.Copy(w.texture, nil, nil); err != nil {
			return err
		}
	}
	w.renderer.Present()

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			w.closed = true
			return ErrSurfaceClosed
		case *sdl.KeyboardEvent:
			if e.Type != sdl.KEYDOWN || w.onKey == nil {
				continue
			}
			w.onKey(keyRune(e.Keysym.Sym))
		}
	}
	return nil
}

func keyRune(sym sdl.Keycode) rune {
	switch sym {
	case sdl.K_ESCAPE:
		return 0x1b
	case sdl.K_TAB:
		return '\t'
	case sdl.K_SPACE:
		return ' '
	}
	return rune(sym)
}

func (w *Window) ensureTexture() error {
	width, height := w.canvas.width, w.canvas.height
	if width == 0 || height == 0 {
		return nil
	}
	if w.texture != nil && w.texW == width && w.texH == height {
		return nil
	}
	if w.texture != nil {
		w.texture.Destroy()
		w.texture = nil
	}
	tex, err := w.renderer.CreateTexture(
		sdl.PIXELFORMAT_ABGR8888,
		sdl.TEXTUREACCESS_STREAMING,
		int32(width), int32(height),
	)
	if err != nil {
		return fmt.Errorf("sdl texture: %w", err)
	}
	w.texture = tex
	w.texW = width
	w.texH = height
	return nil
}

// Close destroys the window and releases the video subsystem.
func (w *Window) Close() error {
	if w.texture != nil {
		w.texture.Destroy()
		w.texture = nil
	}
	if w.renderer != nil {
		w.renderer.Destroy()
		w.renderer = nil
	}
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	w.pixels = nil
	sdl.QuitSubSystem(sdl.INIT_VIDEO)
	return nil
}

// SupportsSDL reports whether the binary was built with the sdl tag.
func SupportsSDL() bool { return true }
