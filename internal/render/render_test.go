package render

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/guidoenr/tonescope/internal/analyzer"
)

func flatAmplitude(n int, v uint8) analyzer.AmplitudeSnapshot {
	out := make(analyzer.AmplitudeSnapshot, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestParseViewMode(t *testing.T) {
	cases := map[string]ViewMode{
		"frequency": Frequency,
		"freq":      Frequency,
		" Time ":    Time,
	}
	for input, want := range cases {
		got, err := ParseViewMode(input)
		if err != nil || got != want {
			t.Fatalf("ParseViewMode(%q)=%v,%v want %v", input, got, err, want)
		}
	}
	if _, err := ParseViewMode("waterfall"); err == nil {
		t.Fatalf("expected error for unknown view")
	}
	if Frequency.Label() != "Frequency Spectrum" || Time.Label() != "Time Domain Oscilloscope" {
		t.Fatalf("unexpected labels %q %q", Frequency.Label(), Time.Label())
	}
	if Frequency.Next() != Time || Time.Next() != Frequency {
		t.Fatalf("Next should toggle between the two views")
	}
}

func TestFrequencyProjection(t *testing.T) {
	const width, height = 800.0, 400.0
	freq := make(analyzer.FrequencySnapshot, analyzer.BinCount)
	freq[0] = 255
	freq[1] = 51

	cmds := Render(Frequency, freq, nil, width, height)
	if len(cmds) != 1+analyzer.BinCount {
		t.Fatalf("commands=%d want %d", len(cmds), 1+analyzer.BinCount)
	}

	bg := cmds[0]
	if bg.Op != OpFillRect || bg.Color != Background || bg.Rect != (Rect{W: width, H: height}) {
		t.Fatalf("first command should clear to the background, got %+v", bg)
	}

	barWidth := width / analyzer.BinCount * 2.5
	full := cmds[1]
	if full.Rect.X != 0 || full.Rect.Y != 0 || full.Rect.H != height || full.Rect.W != barWidth {
		t.Fatalf("full-scale bar geometry %+v", full.Rect)
	}
	if full.Color.A != 204 || full.Color.R <= full.Color.G || full.Color.G != full.Color.B {
		t.Fatalf("bin 0 should be a translucent red, got %+v", full.Color)
	}

	second := cmds[2]
	if math.Abs(second.Rect.X-(barWidth+1)) > 1e-9 {
		t.Fatalf("second bar x=%v want %v", second.Rect.X, barWidth+1)
	}
	if math.Abs(second.Rect.H-80) > 1e-9 || math.Abs(second.Rect.Y-320) > 1e-9 {
		t.Fatalf("second bar geometry %+v", second.Rect)
	}

	silent := cmds[100]
	if silent.Rect.H != 0 || silent.Rect.Y != height {
		t.Fatalf("silent bin should have zero height, got %+v", silent.Rect)
	}

	for i, cmd := range cmds[1:] {
		if cmd.Color.A != 204 {
			t.Fatalf("bar %d alpha=%d want 204", i, cmd.Color.A)
		}
	}
}

func TestFrequencyProjectionEmpty(t *testing.T) {
	cmds := Render(Frequency, nil, nil, 100, 100)
	if len(cmds) != 1 {
		t.Fatalf("expected only the background for empty data, got %d", len(cmds))
	}
}

func TestTimeProjection(t *testing.T) {
	const width, height = 512.0, 200.0
	amp := flatAmplitude(analyzer.BinCount, analyzer.ZeroPoint)

	cmds := Render(Time, nil, amp, width, height)
	if len(cmds) != 2 {
		t.Fatalf("commands=%d want 2", len(cmds))
	}
	line := cmds[1]
	if line.Op != OpStrokePath || line.Color != Trace || line.Width != 2 {
		t.Fatalf("unexpected stroke %+v", line)
	}
	if len(line.Path) != analyzer.BinCount+1 {
		t.Fatalf("path points=%d want %d", len(line.Path), analyzer.BinCount+1)
	}
	for i, p := range line.Path {
		if p.Y != height/2 {
			t.Fatalf("point %d y=%v want centre line", i, p.Y)
		}
	}
	if end := line.Path[len(line.Path)-1]; end != (Point{X: width, Y: height / 2}) {
		t.Fatalf("path should end at the right edge centre, got %+v", end)
	}
	if step := line.Path[1].X - line.Path[0].X; step != width/analyzer.BinCount {
		t.Fatalf("x step=%v want %v", step, width/analyzer.BinCount)
	}
}

func TestTimeProjectionExtremes(t *testing.T) {
	amp := analyzer.AmplitudeSnapshot{0, 255}
	cmds := Render(Time, nil, amp, 100, 100)
	path := cmds[1].Path
	if path[0].Y != 0 {
		t.Fatalf("sample 0 should map to the top edge, got %v", path[0].Y)
	}
	if want := 255.0 / 128 * 50; path[1].Y != want {
		t.Fatalf("sample 255 y=%v want %v", path[1].Y, want)
	}
}

func TestProjectionReusesBuffers(t *testing.T) {
	var p Projection
	freq := make(analyzer.FrequencySnapshot, analyzer.BinCount)
	amp := flatAmplitude(analyzer.BinCount, 100)
	p.Build(Frequency, freq, amp, 640, 480)
	p.Build(Time, freq, amp, 640, 480)

	allocs := testing.AllocsPerRun(20, func() {
		p.Build(Frequency, freq, amp, 640, 480)
		p.Build(Time, freq, amp, 640, 480)
	})
	if allocs > 0 {
		t.Errorf("expected warmed projection to be allocation free, got %.1f", allocs)
	}
}

func TestBackingSize(t *testing.T) {
	cases := []struct {
		size  Size
		wantW int
		wantH int
	}{
		{Size{Width: 800, Height: 600, PixelRatio: 2}, 1600, 1200},
		{Size{Width: 333.5, Height: 10, PixelRatio: 1.5}, 500, 15},
		{Size{Width: 80, Height: 24}, 80, 24},
	}
	for _, tc := range cases {
		w, h := tc.size.Backing()
		if w != tc.wantW || h != tc.wantH {
			t.Fatalf("%+v backing=%dx%d want %dx%d", tc.size, w, h, tc.wantW, tc.wantH)
		}
	}
}

func TestRendererFrameScalesToPixelRatio(t *testing.T) {
	rec := NewRecorder(800, 600, 2)
	r := NewRenderer(rec)
	freq := make(analyzer.FrequencySnapshot, analyzer.BinCount)

	for i := 0; i < 2; i++ {
		if err := r.Frame(Frequency, freq, nil); err != nil {
			t.Fatalf("frame: %v", err)
		}
	}
	if rec.BackingWidth != 1600 || rec.BackingHeight != 1200 {
		t.Fatalf("backing=%dx%d want 1600x1200", rec.BackingWidth, rec.BackingHeight)
	}
	if rec.ScaleFactor != 2 {
		t.Fatalf("scale=%v want 2 (resize must reset the transform)", rec.ScaleFactor)
	}
	if rec.Resizes != 2 || rec.Presents != 2 {
		t.Fatalf("resizes=%d presents=%d", rec.Resizes, rec.Presents)
	}
	if len(rec.Commands) != 1+analyzer.BinCount {
		t.Fatalf("recorded %d commands", len(rec.Commands))
	}
	if rec.Commands[0].Rect != (Rect{W: 800, H: 600}) {
		t.Fatalf("drawing should use CSS pixels, got %+v", rec.Commands[0].Rect)
	}
}

func TestRendererClear(t *testing.T) {
	rec := NewRecorder(100, 100, 1)
	r := NewRenderer(rec)
	if err := r.Frame(Time, nil, flatAmplitude(8, 128)); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if err := r.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if rec.Clears != 1 || len(rec.Commands) != 0 || rec.Presents != 2 {
		t.Fatalf("clears=%d commands=%d presents=%d", rec.Clears, len(rec.Commands), rec.Presents)
	}
}

func TestRendererPropagatesPresentError(t *testing.T) {
	rec := NewRecorder(10, 10, 1)
	rec.PresentErr = ErrSurfaceClosed
	err := NewRenderer(rec).Frame(Frequency, nil, nil)
	if !errors.Is(err, ErrSurfaceClosed) {
		t.Fatalf("err=%v want ErrSurfaceClosed", err)
	}
}

func TestCanvasBlendsAndClips(t *testing.T) {
	var c canvas
	c.resize(4, 4)
	c.fillRect(Rect{X: -10, Y: -10, W: 100, H: 100}, Background)
	c.fillRect(Rect{X: 0, Y: 0, W: 2, H: 2}, Trace)

	if got := c.pix[0]; math.Abs(float64(got.a)-1) > 1e-6 {
		t.Fatalf("opaque fill alpha=%v", got.a)
	}
	if got := c.pix[0].b; math.Abs(float64(got)-float64(0xfa)/255) > 1e-6 {
		t.Fatalf("top-left blue=%v want trace colour", got)
	}
	if got := c.pix[3*4+3].b; math.Abs(float64(got)-float64(0x2a)/255) > 1e-6 {
		t.Fatalf("bottom-right blue=%v want background", got)
	}

	c.setScale(2)
	c.clear()
	c.fillRect(Rect{X: 1, Y: 1, W: 1, H: 1}, Trace)
	if c.pix[2*4+2].a == 0 || c.pix[0].a != 0 {
		t.Fatalf("scaled fill landed in the wrong place")
	}
}

func TestCanvasRGBA8Layout(t *testing.T) {
	var c canvas
	if got := c.rgba8(nil); len(got) != 0 {
		t.Fatalf("empty canvas should export no bytes, got %d", len(got))
	}

	c.resize(3, 2)
	c.fillRect(Rect{W: 3, H: 2}, Trace)
	buf := c.rgba8(nil)
	if len(buf) != 3*2*4 {
		t.Fatalf("len=%d want %d", len(buf), 3*2*4)
	}
	want := []byte{Trace.R, Trace.G, Trace.B, Trace.A}
	for i, w := range want {
		if d := int(buf[i]) - int(w); d < -1 || d > 1 {
			t.Fatalf("byte %d=%d want %d", i, buf[i], w)
		}
	}

	again := c.rgba8(buf)
	if &again[0] != &buf[0] {
		t.Fatalf("rgba8 should reuse a large enough buffer")
	}
}

func TestTerminalPresent(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(TerminalConfig{
		Out:        &out,
		Width:      10,
		Height:     4,
		PixelRatio: 2,
		ShowStatus: true,
	})
	term.SetStatus("hi")

	size := term.Size()
	if size.Width != 10 || size.Height != 3 {
		t.Fatalf("size=%+v want 10x3 after the status row", size)
	}

	r := NewRenderer(term)
	if err := r.Frame(Time, nil, flatAmplitude(16, 128)); err != nil {
		t.Fatalf("frame: %v", err)
	}

	text := out.String()
	if !strings.HasPrefix(text, "\x1b[H") {
		t.Fatalf("frame should start by homing the cursor: %q", text)
	}
	lines := strings.Split(strings.TrimPrefix(text, "\x1b[H"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines=%d want 3 rows plus status: %q", len(lines), text)
	}
	for i, line := range lines[:3] {
		if n := utf8.RuneCountInString(line); n != 10 {
			t.Fatalf("row %d has %d cells: %q", i, n, line)
		}
	}
	if lines[3] != "hi        " {
		t.Fatalf("status=%q", lines[3])
	}
}

func TestTerminalANSIColours(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(TerminalConfig{Out: &out, Width: 8, Height: 2, UseANSI: true})
	freq := make(analyzer.FrequencySnapshot, 4)
	for i := range freq {
		freq[i] = 255
	}
	if err := NewRenderer(term).Frame(Frequency, freq, nil); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if !strings.Contains(out.String(), "\x1b[38;5;") || !strings.Contains(out.String(), resetANSI) {
		t.Fatalf("expected 256-colour escapes in %q", out.String())
	}
}

func TestRGBToANSI(t *testing.T) {
	cases := map[[3]float64]int{
		{0, 0, 0}: 232,
		{1, 1, 1}: 255,
		{1, 0, 0}: 196,
		{0, 0, 1}: 21,
	}
	for rgb, want := range cases {
		if got := rgbToANSI(rgb[0], rgb[1], rgb[2]); got != want {
			t.Fatalf("rgbToANSI(%v)=%d want %d", rgb, got, want)
		}
	}
}

func TestStatusBar(t *testing.T) {
	if got := statusBar("abc", 5); got != "abc  " {
		t.Fatalf("pad=%q", got)
	}
	if got := statusBar("abcdef", 3); got != "abc" {
		t.Fatalf("truncate=%q", got)
	}
	if got := statusBar("abc", 0); got != "abc" {
		t.Fatalf("zero width=%q", got)
	}
}
