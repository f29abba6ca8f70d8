// Package plot renders diagnostics for highly variable gene selection.
package plot

import (
	"fmt"
	"io"
	"math"
	"path"
	"strings"

	"github.com/carbocation/scgenomisc/preprocess"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RendererForPath picks PNG or SVG output from the file extension.
func RendererForPath(p string) (chart.RendererProvider, error) {
	switch ext := strings.ToLower(path.Ext(p)); ext {
	case ".png":
		return chart.PNG, nil
	case ".svg":
		return chart.SVG, nil
	default:
		return nil, fmt.Errorf("Cannot plot to %s: extension %q is not one of .png, .svg", p, ext)
	}
}

// HVG draws normalized dispersion against mean expression for every gene,
// highlighting the highly variable ones, and renders it to w.
func HVG(w io.Writer, genes []preprocess.GeneRecord, rp chart.RendererProvider) error {
	var hvX, hvY, otherX, otherY []float64
	for _, g := range genes {
		if !finite(g.Means) || !finite(g.DispersionsNorm) {
			continue
		}

		if g.HighlyVariable {
			hvX = append(hvX, g.Means)
			hvY = append(hvY, g.DispersionsNorm)
		} else {
			otherX = append(otherX, g.Means)
			otherY = append(otherY, g.DispersionsNorm)
		}
	}

	if len(hvX)+len(otherX) == 0 {
		return fmt.Errorf("No gene has a finite mean and normalized dispersion to plot")
	}

	series := make([]chart.Series, 0, 2)
	if len(hvX) > 0 {
		series = append(series, scatter("highly variable genes", drawing.ColorBlack, hvX, hvY))
	}
	if len(otherX) > 0 {
		series = append(series, scatter("other genes", drawing.ColorFromHex("bdbdbd"), otherX, otherY))
	}

	graph := chart.Chart{
		Width:  640,
		Height: 480,
		XAxis: chart.XAxis{
			Name:  "mean expressions of genes",
			Range: paddedRange(append(hvX, otherX...)),
		},
		YAxis: chart.YAxis{
			Name:  "dispersions of genes (normalized)",
			Range: paddedRange(append(hvY, otherY...)),
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(rp, w)
}

func scatter(name string, color drawing.Color, x, y []float64) chart.ContinuousSeries {
	return chart.ContinuousSeries{
		Name: name,
		Style: chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    2,
			DotColor:    color,
		},
		XValues: x,
		YValues: y,
	}
}

// paddedRange keeps a 5% margin around the data and never collapses to a
// zero-width range.
func paddedRange(values []float64) *chart.ContinuousRange {
	mn, mx := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		mn = math.Min(mn, v)
		mx = math.Max(mx, v)
	}

	pad := 0.05 * (mx - mn)
	if pad == 0 {
		pad = 1
	}

	return &chart.ContinuousRange{Min: mn - pad, Max: mx + pad}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
