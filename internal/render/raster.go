package render

import (
	"image/color"
	"math"
)

// pixel holds premultiplied colour in 0..1.
type pixel struct {
	r, g, b, a float32
}

// canvas is a software raster shared by the terminal and window surfaces.
// Drawing is clipped to the backing store.
type canvas struct {
	width, height int
	scale         float64
	pix           []pixel
}

func (c *canvas) resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	n := width * height
	if cap(c.pix) < n {
		c.pix = make([]pixel, n)
	}
	c.pix = c.pix[:n]
	c.width = width
	c.height = height
	c.scale = 1
	c.clear()
}

func (c *canvas) setScale(factor float64) {
	if c.scale == 0 {
		c.scale = 1
	}
	c.scale *= factor
}

func (c *canvas) clear() {
	for i := range c.pix {
		c.pix[i] = pixel{}
	}
}

func premultiply(col color.NRGBA) pixel {
	a := float32(col.A) / 255
	return pixel{
		r: float32(col.R) / 255 * a,
		g: float32(col.G) / 255 * a,
		b: float32(col.B) / 255 * a,
		a: a,
	}
}

// blend composites src over the pixel at index i.
func (c *canvas) blend(i int, src pixel) {
	dst := &c.pix[i]
	k := 1 - src.a
	dst.r = src.r + dst.r*k
	dst.g = src.g + dst.g*k
	dst.b = src.b + dst.b*k
	dst.a = src.a + dst.a*k
}

func (c *canvas) fillRect(r Rect, col color.NRGBA) {
	s := c.scale
	x0 := clampInt(int(math.Round(r.X*s)), 0, c.width)
	y0 := clampInt(int(math.Round(r.Y*s)), 0, c.height)
	x1 := clampInt(int(math.Round((r.X+r.W)*s)), 0, c.width)
	y1 := clampInt(int(math.Round((r.Y+r.H)*s)), 0, c.height)
	if x0 >= x1 || y0 >= y1 {
		return
	}
	src := premultiply(col)
	for y := y0; y < y1; y++ {
		row := y * c.width
		for x := x0; x < x1; x++ {
			c.blend(row+x, src)
		}
	}
}

// strokePath stamps a square brush of the scaled line width along each
// segment. Overlapping stamps within one segment are not blended twice.
func (c *canvas) strokePath(path []Point, col color.NRGBA, width float64) {
	if len(path) < 2 || c.width == 0 || c.height == 0 {
		return
	}
	src := premultiply(col)
	s := c.scale
	brush := math.Max(1, width*s)
	half := brush / 2

	for i := 1; i < len(path); i++ {
		ax, ay := path[i-1].X*s, path[i-1].Y*s
		bx, by := path[i].X*s, path[i].Y*s
		steps := int(math.Ceil(math.Max(math.Abs(bx-ax), math.Abs(by-ay))))
		if steps < 1 {
			steps = 1
		}
		lastX, lastY := math.MinInt, math.MinInt
		for step := 0; step <= steps; step++ {
			t := float64(step) / float64(steps)
			px := ax + (bx-ax)*t
			py := ay + (by-ay)*t
			cx, cy := int(math.Floor(px-half)), int(math.Floor(py-half))
			if cx == lastX && cy == lastY {
				continue
			}
			lastX, lastY = cx, cy
			c.stamp(cx, cy, int(math.Ceil(brush)), src)
		}
	}
}

func (c *canvas) stamp(x0, y0, size int, src pixel) {
	x1 := clampInt(x0+size, 0, c.width)
	y1 := clampInt(y0+size, 0, c.height)
	x0 = clampInt(x0, 0, c.width)
	y0 = clampInt(y0, 0, c.height)
	for y := y0; y < y1; y++ {
		row := y * c.width
		for x := x0; x < x1; x++ {
			c.blend(row+x, src)
		}
	}
}

// average returns the mean premultiplied pixel of the block [x0,x1)×[y0,y1).
func (c *canvas) average(x0, y0, x1, y1 int) pixel {
	x0 = clampInt(x0, 0, c.width)
	y0 = clampInt(y0, 0, c.height)
	x1 = clampInt(x1, x0, c.width)
	y1 = clampInt(y1, y0, c.height)
	n := (x1 - x0) * (y1 - y0)
	if n == 0 {
		return pixel{}
	}
	var sum pixel
	for y := y0; y < y1; y++ {
		row := y * c.width
		for x := x0; x < x1; x++ {
			p := c.pix[row+x]
			sum.r += p.r
			sum.g += p.g
			sum.b += p.b
			sum.a += p.a
		}
	}
	inv := 1 / float32(n)
	return pixel{r: sum.r * inv, g: sum.g * inv, b: sum.b * inv, a: sum.a * inv}
}

// rgba8 writes the canvas as straight-alpha RGBA bytes.
func (c *canvas) rgba8(dst []byte) []byte {
	n := len(c.pix) * 4
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for i, p := range c.pix {
		o := i * 4
		if p.a <= 0 {
			dst[o], dst[o+1], dst[o+2], dst[o+3] = 0, 0, 0, 0
			continue
		}
		dst[o+0] = byte(clampFloat(float64(p.r/p.a)*255, 0, 255))
		dst[o+1] = byte(clampFloat(float64(p.g/p.a)*255, 0, 255))
		dst[o+2] = byte(clampFloat(float64(p.b/p.a)*255, 0, 255))
		dst[o+3] = byte(clampFloat(float64(p.a)*255, 0, 255))
	}
	return dst
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
