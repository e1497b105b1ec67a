package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"quicperf/internal/core"
	"quicperf/internal/stats"
)

// Plotter renders a CDF curve to an image file.
type Plotter interface {
	PlotCDF(path string, kind core.Kind, title string, curve stats.Curve) error
}

// GonumPlotter draws step-function CDFs as PNG (or any extension gonum
// supports) using gonum/plot.
type GonumPlotter struct {
	Width  vg.Length
	Height vg.Length
}

// NewGonumPlotter returns a plotter with an 8x4 inch canvas.
func NewGonumPlotter() *GonumPlotter {
	return &GonumPlotter{Width: 8 * vg.Inch, Height: 4 * vg.Inch}
}

func (g *GonumPlotter) PlotCDF(path string, kind core.Kind, title string, curve stats.Curve) error {
	if len(curve) == 0 {
		return stats.ErrEmptyDataset
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = axisLabel(kind)
	p.Y.Label.Text = "fraction of samples"
	p.Y.Min = 0
	p.Y.Max = 1
	p.Add(plotter.NewGrid())

	// Start the step at zero so the first jump is visible.
	xs, ys := curve.XY()
	pts := make(plotter.XYs, 0, len(xs)+1)
	pts = append(pts, plotter.XY{X: xs[0], Y: 0})
	for i := range xs {
		pts = append(pts, plotter.XY{X: xs[i], Y: ys[i]})
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("building cdf line: %w", err)
	}
	line.StepStyle = plotter.PostStep
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	line.Width = vg.Points(2)

	points, err := plotter.NewScatter(pts[1:])
	if err != nil {
		return fmt.Errorf("building cdf points: %w", err)
	}
	points.Color = line.Color
	points.Radius = vg.Points(2)

	p.Add(line, points)
	p.Legend.Add(string(kind), line)
	p.Legend.Top = false
	p.Legend.Left = false

	w, h := g.Width, g.Height
	if w == 0 || h == 0 {
		w, h = 8*vg.Inch, 4*vg.Inch
	}
	return p.Save(w, h, path)
}

func axisLabel(kind core.Kind) string {
	if unit := kind.Unit(); unit != "" {
		return fmt.Sprintf("%s (%s)", kind, unit)
	}
	return string(kind)
}
