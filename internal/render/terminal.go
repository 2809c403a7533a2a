package render

import (
	"image/color"
	"io"
	"math"
	"os"
	"strconv"
	"unicode/utf8"

	"golang.org/x/term"
)

var (
	resetANSI       = "\x1b[0m"
	precomputedANSI [256]string
)

func init() {
	for i := range precomputedANSI {
		precomputedANSI[i] = "\x1b[38;5;" + strconv.Itoa(i) + "m"
	}
}

const (
	defaultCellRatio = 2.0
	fallbackCols     = 80
	fallbackRows     = 24
)

// TerminalConfig configures a Terminal surface.
type TerminalConfig struct {
	Out io.Writer
	// Width and Height fix the size in cells; zero follows the terminal.
	Width  int
	Height int
	// PixelRatio is the number of backing pixels per cell edge.
	PixelRatio float64
	Palette    string
	UseANSI    bool
	ShowStatus bool
}

// Terminal draws into a software raster and presents it as coloured glyphs,
// one cell per PixelRatio×PixelRatio block of backing pixels.
type Terminal struct {
	out        io.Writer
	fd         int
	fixedW     int
	fixedH     int
	ratio      float64
	palette    []rune
	useANSI    bool
	showStatus bool
	status     string

	canvas canvas
	cols   int
	rows   int
	buf    []byte
}

// NewTerminal creates a terminal surface. Out defaults to stdout.
func NewTerminal(cfg TerminalConfig) *Terminal {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.PixelRatio <= 0 {
		cfg.PixelRatio = defaultCellRatio
	}
	fd := -1
	if f, ok := cfg.Out.(*os.File); ok {
		fd = int(f.Fd())
	}
	return &Terminal{
		out:        cfg.Out,
		fd:         fd,
		fixedW:     cfg.Width,
		fixedH:     cfg.Height,
		ratio:      cfg.PixelRatio,
		palette:    Palette(cfg.Palette),
		useANSI:    cfg.UseANSI,
		showStatus: cfg.ShowStatus,
	}
}

// Open switches to the alternate screen and hides the cursor.
func (t *Terminal) Open() error {
	_, err := io.WriteString(t.out, "\x1b[?1049h\x1b[2J\x1b[?25l")
	return err
}

// Close restores the cursor and the main screen.
func (t *Terminal) Close() error {
	_, err := io.WriteString(t.out, "\x1b[?25h\x1b[?1049l"+resetANSI)
	return err
}

// SetStatus sets the text of the bottom status line.
func (t *Terminal) SetStatus(text string) { t.status = text }

// Size reports the drawable area in cells, leaving a row for the status line.
func (t *Terminal) Size() Size {
	cols, rows := t.fixedW, t.fixedH
	if cols <= 0 || rows <= 0 {
		w, h := fallbackCols, fallbackRows
		if t.fd >= 0 && term.IsTerminal(t.fd) {
			if tw, th, err := term.GetSize(t.fd); err == nil && tw > 0 && th > 0 {
				w, h = tw, th
			}
		}
		if cols <= 0 {
			cols = w
		}
		if rows <= 0 {
			rows = h
		}
	}
	if t.showStatus && rows > 1 {
		rows--
	}
	return Size{Width: float64(cols), Height: float64(rows), PixelRatio: t.ratio}
}

func (t *Terminal) Resize(width, height int) {
	t.canvas.resize(width, height)
	t.cols = int(math.Round(float64(width) / t.ratio))
	t.rows = int(math.Round(float64(height) / t.ratio))
}

func (t *Terminal) Scale(factor float64) { t.canvas.setScale(factor) }

func (t *Terminal) Clear() { t.canvas.clear() }

func (t *Terminal) FillRect(r Rect, c color.NRGBA) { t.canvas.fillRect(r, c) }

func (t *Terminal) StrokePath(path []Point, c color.NRGBA, width float64) {
	t.canvas.strokePath(path, c, width)
}

// Present writes the whole raster in one write, homing the cursor first.
func (t *Terminal) Present() error {
	buf := append(t.buf[:0], "\x1b[H"...)
	last := len(t.palette) - 1

	for cy := 0; cy < t.rows; cy++ {
		y0 := int(math.Floor(float64(cy) * t.ratio))
		y1 := int(math.Floor(float64(cy+1) * t.ratio))
		code := -1
		for cx := 0; cx < t.cols; cx++ {
			x0 := int(math.Floor(float64(cx) * t.ratio))
			x1 := int(math.Floor(float64(cx+1) * t.ratio))
			p := t.canvas.average(x0, y0, x1, y1)
			if p.a <= 0 || last < 0 {
				buf = append(buf, ' ')
				continue
			}
			r := float64(p.r / p.a)
			g := float64(p.g / p.a)
			b := float64(p.b / p.a)
			level := math.Max(r, math.Max(g, b)) * float64(p.a)
			glyph := t.palette[clampInt(int(level*float64(last)+0.5), 0, last)]
			if t.useANSI {
				if c := rgbToANSI(r, g, b); c != code {
					buf = append(buf, colorCode(c)...)
					code = c
				}
			}
			buf = utf8.AppendRune(buf, glyph)
		}
		if t.useANSI {
			buf = append(buf, resetANSI...)
		}
		buf = append(buf, '\n')
	}
	if t.showStatus {
		buf = append(buf, statusBar(t.status, t.cols)...)
	}
	t.buf = buf

	_, err := t.out.Write(buf)
	return err
}

func colorCode(index int) string {
	if index < 0 {
		index = 0
	} else if index >= len(precomputedANSI) {
		index = len(precomputedANSI) - 1
	}
	return precomputedANSI[index]
}

func rgbToANSI(r, g, b float64) int {
	r = clamp01(r)
	g = clamp01(g)
	b = clamp01(b)

	// grayscale ramp for near-neutral colours
	if math.Abs(r-g) < 0.02 && math.Abs(g-b) < 0.02 {
		gray := int(clampFloat(math.Round(r*23), 0, 23))
		return 232 + gray
	}

	ri := int(clampFloat(r*5+0.5, 0, 5))
	gi := int(clampFloat(g*5+0.5, 0, 5))
	bi := int(clampFloat(b*5+0.5, 0, 5))

	return 16 + 36*ri + 6*gi + bi
}

func statusBar(text string, width int) string {
	if width <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) >= width {
		return string(runes[:width])
	}
	buf := make([]rune, width)
	copy(buf, runes)
	for i := len(runes); i < width; i++ {
		buf[i] = ' '
	}
	return string(buf)
}
