// Package export renders recorded traces as standalone SVG documents.
package export

import (
	"fmt"
	"strings"
)

// Point is one sample of an XY series.
type Point struct {
	X, Y float64
}

// TraceToSVG draws a time series as a polyline, autoscaled with 10%
// padding. closed joins the last point back to the first, which is the
// right rendering for a pressure-volume loop.
func TraceToSVG(points []Point, width, height int, strokeColor string, closed bool) string {
	if len(points) < 2 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#ffffff"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	if closed {
		sb.WriteString(" Z")
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

// SeriesToSVG plots y(t) against a uniform time axis.
func SeriesToSVG(times, values []float64, width, height int, strokeColor string) string {
	if len(times) != len(values) {
		return ""
	}
	points := make([]Point, len(times))
	for i := range times {
		points[i] = Point{X: times[i], Y: values[i]}
	}
	return TraceToSVG(points, width, height, strokeColor, false)
}

// LoopToSVG plots one closed orbit, e.g. ventricular pressure against
// ventricular volume.
func LoopToSVG(xs, ys []float64, width, height int, strokeColor string) string {
	if len(xs) != len(ys) {
		return ""
	}
	points := make([]Point, len(xs))
	for i := range xs {
		points[i] = Point{X: xs[i], Y: ys[i]}
	}
	return TraceToSVG(points, width, height, strokeColor, true)
}
