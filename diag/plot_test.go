package diag_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rastertail/flowguide/diag"
)

func TestPlotResiduals(t *testing.T) {
	residuals := [][]float64{
		{0.5, 0.2, 0.05, 0.01, 0.002},
		{0.3, 0.04, 0.001},
		{0.7, 0.0}, // exact zero must survive the log axis
	}
	var b bytes.Buffer
	if err := diag.PlotResiduals(&b, residuals); err != nil {
		t.Fatal(err)
	}
	if b.Len() == 0 {
		t.Fatal("empty plot output")
	}
	if !strings.Contains(b.String(), "<svg") {
		t.Fatal("output does not look like SVG")
	}
}

func TestPlotResidualsEmpty(t *testing.T) {
	var b bytes.Buffer
	if err := diag.PlotResiduals(&b, nil); err == nil {
		t.Fatal("expected error for empty residual history")
	}
	if err := diag.PlotResiduals(&b, [][]float64{{}, {}}); err == nil {
		t.Fatal("expected error for all-empty residual history")
	}
}
