// Package viz renders circulation results in the terminal: line charts
// of pressure and flow traces via asciigraph, and braille-canvas
// pressure-volume loops.
package viz
