// Package plot renders ledger dose series as terminal line charts and
// PNG images.
package plot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cmcc2001/quexian/internal/ledger"
	"github.com/guptarohit/asciigraph"
	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNoSeries is returned when there is nothing to draw.
var ErrNoSeries = errors.New("no series to plot")

// Terminal renders each series as an ASCII line chart, one chart per
// column, with the dose labels listed below it. width and height are
// in character cells.
func Terminal(series []ledger.Series, width, height int) (string, error) {
	if len(series) == 0 {
		return "", ErrNoSeries
	}

	var sb strings.Builder
	for i, s := range series {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		values := s.Values
		// asciigraph needs two points to draw a line.
		if len(values) == 1 {
			values = []float64{values[0], values[0]}
		}
		sb.WriteString(asciigraph.Plot(values,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Precision(3),
			asciigraph.Caption(fmt.Sprintf("%s vs dose (krad)", s.Column)),
		))
		sb.WriteString("\n")
		sb.WriteString("  dose: " + strings.Join(doseLabels(s.Labels), ", "))
	}
	return sb.String(), nil
}

// SavePNG draws every series on one chart and writes it to path. The
// x axis is the dose label, in ledger order. widthIn and heightIn are
// in inches.
func SavePNG(series []ledger.Series, title, path string, widthIn, heightIn float64) error {
	if len(series) == 0 {
		return ErrNoSeries
	}

	p := gplot.New()
	p.Title.Text = title
	p.X.Label.Text = "Dose (krad)"
	p.Y.Label.Text = "Value"

	var lines []any
	for _, s := range series {
		pts := make(plotter.XYs, len(s.Values))
		for i, v := range s.Values {
			pts[i].X = float64(i)
			pts[i].Y = v
		}
		lines = append(lines, s.Column, pts)
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return fmt.Errorf("building plot: %w", err)
	}
	p.NominalX(doseLabels(series[0].Labels)...)

	if err := p.Save(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch, path); err != nil {
		return fmt.Errorf("saving plot: %w", err)
	}
	return nil
}

// doseLabels substitutes a row marker for blank dose labels.
func doseLabels(labels []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		if strings.TrimSpace(l) == "" {
			out[i] = fmt.Sprintf("#%d", i+1)
			continue
		}
		out[i] = l
	}
	return out
}
