package viz

import (
	"math"
	"strings"
)

// Braille patterns give a 2x4 sub-pixel grid per character cell:
//
//	1 4
//	2 5
//	3 6
//	7 8
//
// Unicode offset 0x2800.
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		for j := range c.Grid[i] {
			c.Grid[i][j] = 0x2800
		}
	}
	return c
}

// Set lights the sub-pixel at (x, y). The canvas spans (Width*2) x
// (Height*4) sub-pixels; out-of-range coordinates are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}

	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return
	}

	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = 0x2800
		}
	}
}

// Line draws a sub-pixel line with Bresenham's algorithm.
func (c *Canvas) Line(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// XYPlot maps data coordinates onto a braille canvas, autoscaled with a
// small margin. It draws closed or open polylines, which is what a
// pressure-volume loop needs.
type XYPlot struct {
	canvas                 *Canvas
	xmin, xmax, ymin, ymax float64
	hasRange               bool
}

func NewXYPlot(w, h int) *XYPlot {
	return &XYPlot{canvas: NewCanvas(w, h)}
}

// Fit widens the data range to cover the given series. Call it for
// every series before drawing so all of them share one scale.
func (p *XYPlot) Fit(xs, ys []float64) {
	for i := range xs {
		if !p.hasRange {
			p.xmin, p.xmax = xs[i], xs[i]
			p.ymin, p.ymax = ys[i], ys[i]
			p.hasRange = true
			continue
		}
		p.xmin = math.Min(p.xmin, xs[i])
		p.xmax = math.Max(p.xmax, xs[i])
		p.ymin = math.Min(p.ymin, ys[i])
		p.ymax = math.Max(p.ymax, ys[i])
	}
}

func (p *XYPlot) project(x, y float64) (int, int) {
	cw := float64(p.canvas.Width*2 - 1)
	ch := float64(p.canvas.Height*4 - 1)

	dx := p.xmax - p.xmin
	if dx == 0 {
		dx = 1
	}
	dy := p.ymax - p.ymin
	if dy == 0 {
		dy = 1
	}

	// 5% margin on each side.
	px := (x - p.xmin) / dx
	py := (y - p.ymin) / dy
	return int(math.Round((0.05 + 0.9*px) * cw)),
		int(math.Round((0.05 + 0.9*(1-py)) * ch))
}

// Polyline draws the series; closed joins the last point back to the
// first, tracing one full loop.
func (p *XYPlot) Polyline(xs, ys []float64, closed bool) {
	if len(xs) < 2 || len(xs) != len(ys) {
		return
	}
	for i := 1; i < len(xs); i++ {
		x0, y0 := p.project(xs[i-1], ys[i-1])
		x1, y1 := p.project(xs[i], ys[i])
		p.canvas.Line(x0, y0, x1, y1)
	}
	if closed {
		x0, y0 := p.project(xs[len(xs)-1], ys[len(ys)-1])
		x1, y1 := p.project(xs[0], ys[0])
		p.canvas.Line(x0, y0, x1, y1)
	}
}

func (p *XYPlot) String() string {
	return p.canvas.String()
}

// Range reports the fitted data window.
func (p *XYPlot) Range() (xmin, xmax, ymin, ymax float64) {
	return p.xmin, p.xmax, p.ymin, p.ymax
}
