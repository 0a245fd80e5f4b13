package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	axisStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	legendStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// Trace renders one time series as a line chart.
func Trace(values []float64, title string, width, height int) string {
	if len(values) < 2 {
		return titleStyle.Render(title) + "\n(not enough samples)\n"
	}
	chart := asciigraph.Plot(values,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Precision(3),
	)
	return titleStyle.Render(title) + "\n" + chart + "\n"
}

// Traces renders several series on a shared chart with a legend, e.g.
// the four chamber pressures of one run.
func Traces(series [][]float64, legends []string, title string, width, height int) string {
	kept := make([][]float64, 0, len(series))
	names := make([]string, 0, len(series))
	for i, s := range series {
		if len(s) >= 2 {
			kept = append(kept, s)
			names = append(names, legends[i])
		}
	}
	if len(kept) == 0 {
		return titleStyle.Render(title) + "\n(not enough samples)\n"
	}

	chart := asciigraph.PlotMany(kept,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Precision(3),
		asciigraph.SeriesColors(asciigraph.Red, asciigraph.Green, asciigraph.Blue, asciigraph.Yellow),
	)

	var b strings.Builder
	b.WriteString(titleStyle.Render(title) + "\n")
	b.WriteString(chart + "\n")
	b.WriteString(legendStyle.Render(strings.Join(names, "  ")) + "\n")
	return b.String()
}

// Loop renders a closed orbit of y against x (volume on the abscissa,
// pressure on the ordinate for a ventricular work loop).
func Loop(xs, ys []float64, title, xlabel, ylabel string, width, height int) string {
	p := NewXYPlot(width, height)
	p.Fit(xs, ys)
	p.Polyline(xs, ys, true)

	xmin, xmax, ymin, ymax := p.Range()
	var b strings.Builder
	b.WriteString(titleStyle.Render(title) + "\n")
	b.WriteString(p.String())
	b.WriteString(axisStyle.Render(fmt.Sprintf("%s: %.4g .. %.4g   %s: %.4g .. %.4g",
		xlabel, xmin, xmax, ylabel, ymin, ymax)) + "\n")
	return b.String()
}

// Summary renders the run outcome line shown after a simulation.
func Summary(model string, steps, cycles int, cycleErr float64, periodic bool) string {
	state := "not periodic"
	if periodic {
		state = "periodic"
	}
	return legendStyle.Render(fmt.Sprintf("%s: %d steps, %d cycles, cycle error %.3g (%s)",
		model, steps, cycles, cycleErr, state))
}
