package render

import (
	"errors"
	"image/color"
	"math"
)

// ErrSurfaceClosed is returned by Present once the user closed the surface.
var ErrSurfaceClosed = errors.New("render surface closed")

// Size is the displayed size of a surface in CSS pixels plus the device pixel
// ratio.
type Size struct {
	Width      float64
	Height     float64
	PixelRatio float64
}

// Backing returns the pixel dimensions of the backing store,
// floor(css * ratio) on each axis.
func (s Size) Backing() (int, int) {
	ratio := s.PixelRatio
	if ratio <= 0 {
		ratio = 1
	}
	return int(math.Floor(s.Width * ratio)), int(math.Floor(s.Height * ratio))
}

// Surface is a 2D drawing target. Coordinates passed to FillRect and
// StrokePath are scaled by the factor set with Scale; Resize resets that
// factor to 1.
type Surface interface {
	Size() Size
	Resize(width, height int)
	Scale(factor float64)
	Clear()
	FillRect(r Rect, c color.NRGBA)
	StrokePath(path []Point, c color.NRGBA, width float64)
	Present() error
}

// Draw applies commands to s in order.
func Draw(s Surface, cmds []Command) {
	for i := range cmds {
		cmd := &cmds[i]
		switch cmd.Op {
		case OpFillRect:
			s.FillRect(cmd.Rect, cmd.Color)
		case OpStrokePath:
			s.StrokePath(cmd.Path, cmd.Color, cmd.Width)
		}
	}
}

// Recorder is an in-memory Surface that keeps the commands drawn since the
// last Resize or Clear.
type Recorder struct {
	Logical       Size
	BackingWidth  int
	BackingHeight int
	ScaleFactor   float64
	Commands      []Command

	Resizes  int
	Clears   int
	Presents int
	// PresentErr is returned from every Present when set.
	PresentErr error
}

// NewRecorder returns a recorder reporting the given CSS size and ratio.
func NewRecorder(width, height, ratio float64) *Recorder {
	return &Recorder{
		Logical:     Size{Width: width, Height: height, PixelRatio: ratio},
		ScaleFactor: 1,
	}
}

func (r *Recorder) Size() Size { return r.Logical }

func (r *Recorder) Resize(width, height int) {
	r.BackingWidth = width
	r.BackingHeight = height
	r.ScaleFactor = 1
	r.Commands = r.Commands[:0]
	r.Resizes++
}

func (r *Recorder) Scale(factor float64) { r.ScaleFactor *= factor }

func (r *Recorder) Clear() {
	r.Commands = r.Commands[:0]
	r.Clears++
}

func (r *Recorder) FillRect(rect Rect, c color.NRGBA) {
	r.Commands = append(r.Commands, Command{Op: OpFillRect, Rect: rect, Color: c})
}

func (r *Recorder) StrokePath(path []Point, c color.NRGBA, width float64) {
	r.Commands = append(r.Commands, Command{
		Op:    OpStrokePath,
		Path:  append([]Point(nil), path...),
		Color: c,
		Width: width,
	})
}

func (r *Recorder) Present() error {
	r.Presents++
	return r.PresentErr
}
