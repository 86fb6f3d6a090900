// Package diag renders convergence diagnostics for tuning the
// orientation solver. The output is advisory; downstream consumers of
// the field never depend on it.
package diag

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// residualFloor keeps exact zeros representable on the log axis.
const residualFloor = 1e-12

// PlotResiduals writes an SVG plot of per-pass maximum angular change
// to w, one line per hierarchy level, log-scale Y. residuals is
// indexed like solver.Residuals (0 = finest level).
func PlotResiduals(w io.Writer, residuals [][]float64) error {
	p := plot.New()
	p.Title.Text = "orientation solver convergence"
	p.X.Label.Text = "pass"
	p.Y.Label.Text = "max angular change (rad)"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	plotted := 0
	for level, hist := range residuals {
		if len(hist) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(hist))
		for i, r := range hist {
			if r < residualFloor {
				r = residualFloor
			}
			xys[i] = plotter.XY{X: float64(i + 1), Y: r}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("diag: plotting level %d: %w", level, err)
		}
		line.Color = plotutil.Color(level)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("level %d", level), line)
		plotted++
	}
	if plotted == 0 {
		return fmt.Errorf("diag: no residual history to plot")
	}

	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "svg")
	if err != nil {
		return fmt.Errorf("diag: rendering plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
