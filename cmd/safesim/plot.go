package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/alexshd/safeband"
	"github.com/charmbracelet/lipgloss"
)

// PlotOptions sizes each panel's chart area.
type PlotOptions struct {
	Width  int
	Height int
}

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2a3850")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4db6ac"))
	bandStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	axisStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#d6dae0"))
)

const (
	barCell  = "█"
	bandCell = "┄"
)

// RenderHistory draws F history (with the band edges) above the
// volatility history.
func RenderHistory(e *safeband.Engine, opts PlotOptions) string {
	band := e.Band()
	top := renderPanel("F history", e.History(), opts, &band)
	bottom := renderPanel("Volatility |F - F0|", e.VolatilityHistory(), opts, nil)
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
}

func renderPanel(title string, series []float64, opts PlotOptions, band *safeband.Band) string {
	body := strings.Join(chartRows(series, opts, band), "\n")
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), body))
}

// chartRows renders a column chart, top row first. Each row is prefixed
// with a fixed-width axis label.
func chartRows(series []float64, opts PlotOptions, band *safeband.Band) []string {
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 60
	}
	if height < 2 {
		height = 2
	}
	if len(series) == 0 {
		return []string{axisStyle.Render("(no data)")}
	}

	points := resample(series, width)

	lo, hi := points[0], points[0]
	for _, v := range points {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if band != nil {
		lo = math.Min(lo, band.Low)
		hi = math.Max(hi, band.High)
	}
	if hi == lo {
		hi = lo + 1
	}

	level := func(v float64) int {
		l := int(math.Round((v - lo) / (hi - lo) * float64(height-1)))
		return max(0, min(height-1, l))
	}

	bandRows := map[int]bool{}
	if band != nil {
		bandRows[level(band.Low)] = true
		bandRows[level(band.High)] = true
	}

	rows := make([]string, 0, height)
	for r := height - 1; r >= 0; r-- {
		label := "       "
		switch r {
		case height - 1:
			label = fmt.Sprintf("%7.3f", hi)
		case 0:
			label = fmt.Sprintf("%7.3f", lo)
		}

		var b strings.Builder
		b.WriteString(axisStyle.Render(label + " │"))
		for _, v := range points {
			switch {
			case level(v) >= r:
				b.WriteString(barStyle.Render(barCell))
			case bandRows[r]:
				b.WriteString(bandStyle.Render(bandCell))
			default:
				b.WriteByte(' ')
			}
		}
		rows = append(rows, b.String())
	}
	return rows
}

// resample averages series into at most width buckets.
func resample(series []float64, width int) []float64 {
	if len(series) <= width {
		return series
	}
	out := make([]float64, width)
	for i := range out {
		start := i * len(series) / width
		end := (i + 1) * len(series) / width
		out[i] = safeband.Mean(series[start:end])
	}
	return out
}
