// Package report renders cohort summary charts.
package report

import (
	"fmt"
	"io"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"

	"github.com/inodb/hetcount/internal/cohort"
)

// Page and box dimensions.
const (
	PageWidth  = 10 * vg.Inch
	PageHeight = 5 * vg.Inch
	BoxWidth   = 40 // points
)

// BoxPlotRenderer draws a two-panel PDF: the Age distribution and the
// Het_Count distribution of a cohort.
type BoxPlotRenderer struct {
	width, height vg.Length
}

// NewBoxPlotRenderer creates a renderer with the default page size.
func NewBoxPlotRenderer() *BoxPlotRenderer {
	return &BoxPlotRenderer{width: PageWidth, height: PageHeight}
}

// RenderReport writes the chart to the cohort's chart path.
func (r *BoxPlotRenderer) RenderReport(c cohort.Cohort, s *cohort.Summary) (string, error) {
	path := c.ChartPath()

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create chart: %w", err)
	}

	if err := r.Render(f, c.Name, s); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close chart: %w", err)
	}
	return path, nil
}

// Render writes the chart for s as PDF to w, labelling the x axis with name.
func (r *BoxPlotRenderer) Render(w io.Writer, name string, s *cohort.Summary) error {
	age, err := boxPanel("Age Summary", "Age", name, s.Ages())
	if err != nil {
		return err
	}
	het, err := boxPanel("Heterozygous Count", "Count", name, s.HetCounts())
	if err != nil {
		return err
	}

	pdf := vgpdf.New(r.width, r.height)
	dc := draw.New(pdf)

	tiles := draw.Tiles{
		Rows:      1,
		Cols:      2,
		PadX:      vg.Millimeter * 8,
		PadTop:    vg.Millimeter * 4,
		PadBottom: vg.Millimeter * 4,
		PadLeft:   vg.Millimeter * 4,
		PadRight:  vg.Millimeter * 4,
	}
	plots := [][]*plot.Plot{{age, het}}
	canvases := plot.Align(plots, tiles, dc)
	for j, p := range plots[0] {
		p.Draw(canvases[0][j])
	}

	if _, err := pdf.WriteTo(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// boxPanel builds one panel. An empty value set yields an empty panel.
func boxPanel(title, ylabel, name string, values []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = ylabel

	if len(values) == 0 {
		p.X.Min, p.X.Max = -0.5, 0.5
		p.Y.Min, p.Y.Max = 0, 1
	} else {
		box, err := plotter.NewBoxPlot(vg.Points(BoxWidth), 0, plotter.Values(values))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", title, err)
		}
		p.Add(box)
	}
	p.NominalX(name)
	return p, nil
}
