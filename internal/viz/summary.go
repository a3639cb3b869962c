package viz

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/flocksim/internal/sim"
)

// Summary renders a panel with the parameters and order of a snapshot.
func Summary(s sim.Simulation) string {
	p := s.Params()
	lines := []string{
		Title.Render("Flock"),
		row("time", fmt.Sprintf("%.2f", float64(s.Time()))),
		row("particles", fmt.Sprintf("%d", s.Len())),
		row("boundary", fmt.Sprintf("%g", float64(p.Boundary))),
		row("timestep", fmt.Sprintf("%g", float64(p.Timestep))),
		row("noise", fmt.Sprintf("%g", float64(p.Noise))),
		row("speed", fmt.Sprintf("%g", float64(p.Speed))),
		row("threshold", fmt.Sprintf("%g", float64(p.Threshold))),
		row("order", fmt.Sprintf("%.4f", s.Order())),
	}
	return Panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// MetricsPanel lists metric values sorted by name.
func MetricsPanel(metrics map[string]float64) string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	slices.Sort(names)

	lines := []string{Title.Render("Metrics")}
	for _, name := range names {
		lines = append(lines, row(name, fmt.Sprintf("%.4f", metrics[name])))
	}
	return Panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// OrderChart plots a series on a fixed [0, 1] axis.
func OrderChart(series []float64, caption string, width, height int) string {
	if len(series) == 0 {
		return Subtle.Render("no data")
	}
	return asciigraph.Plot(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(1),
		asciigraph.Precision(2),
		asciigraph.Caption(caption))
}

// Chart plots an arbitrary series with an automatic axis.
func Chart(series []float64, caption string, width, height int) string {
	if len(series) == 0 {
		return Subtle.Render("no data")
	}
	return asciigraph.Plot(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption))
}

// Table renders rows of columns left-aligned with a header.
func Table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, r := range rows {
		for i, c := range r {
			if i < len(widths) {
				widths[i] = max(widths[i], len(c))
			}
		}
	}

	format := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			w := 0
			if i < len(widths) {
				w = widths[i]
			}
			parts[i] = fmt.Sprintf("%-*s", w, c)
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	var b strings.Builder
	b.WriteString(Title.Render(format(header)))
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(format(r))
		b.WriteString("\n")
	}
	return b.String()
}
