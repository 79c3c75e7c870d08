package report

import (
	"math"

	"github.com/guptarohit/asciigraph"
)

// SeriesColors cycles through terminal colors, in the same order as Palette.
var SeriesColors = []asciigraph.AnsiColor{
	asciigraph.Blue,
	asciigraph.Orange,
	asciigraph.Green,
	asciigraph.Red,
	asciigraph.Purple,
	asciigraph.Brown,
	asciigraph.Pink,
	asciigraph.Gray,
	asciigraph.Olive,
	asciigraph.Cyan,
}

// RenderASCII plots series as a terminal line chart.
func RenderASCII(series []Series, width, height int, caption string) string {
	if len(series) == 0 {
		return ""
	}
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	data := make([][]float64, len(series))
	colors := make([]asciigraph.AnsiColor, len(series))
	for i, s := range series {
		data[i] = fillGaps(s.Values)
		colors[i] = SeriesColors[i%len(SeriesColors)]
	}

	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors...),
	)
}

// fillGaps carries the last value over months without data, starting from 0.
func fillGaps(values []float64) []float64 {
	out := make([]float64, len(values))
	last := 0.0
	for i, v := range values {
		if !math.IsNaN(v) {
			last = v
		}
		out[i] = last
	}
	if len(out) == 0 {
		out = []float64{0}
	}
	return out
}
