package display

import (
	"fmt"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// PlotTarget lays panels out on a grid and saves them as a PNG file.
type PlotTarget struct {
	Path       string
	Columns    int       // panels per row, default 4
	PanelWidth vg.Length // default 4 inches
}

// NewPlotTarget creates a PlotTarget writing to path.
func NewPlotTarget(path string) *PlotTarget {
	return &PlotTarget{Path: path, Columns: 4, PanelWidth: 4 * vg.Inch}
}

// Render draws the sheet and writes the PNG.
func (t *PlotTarget) Render(sheet Sheet) error {
	if len(sheet.Panels) == 0 {
		return ErrNoPanels
	}
	cols := t.Columns
	if cols <= 0 {
		cols = 4
	}
	cols = min(cols, len(sheet.Panels))
	rows := (len(sheet.Panels) + cols - 1) / cols
	width := t.PanelWidth
	if width <= 0 {
		width = 4 * vg.Inch
	}

	// Panel height follows the aspect ratio of the first image, plus room
	// for the title.
	b := sheet.Panels[0].Image.Bounds()
	height := width*vg.Length(b.Dy())/vg.Length(b.Dx()) + 0.4*vg.Inch

	plots := make([][]*plot.Plot, rows)
	for j := range plots {
		plots[j] = make([]*plot.Plot, cols)
	}
	for i, panel := range sheet.Panels {
		p := plot.New()
		p.Title.Text = panel.Title
		p.HideAxes()
		pb := panel.Image.Bounds()
		p.Add(plotter.NewImage(panel.Image, 0, 0, float64(pb.Dx()), float64(pb.Dy())))
		plots[i/cols][i%cols] = p
	}

	img := vgimg.New(width*vg.Length(cols), height*vg.Length(rows))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: rows,
		Cols: cols,
		PadX: vg.Millimeter,
		PadY: vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		for i, p := range plots[j] {
			if p != nil {
				p.Draw(canvases[j][i])
			}
		}
	}

	f, err := os.Create(t.Path)
	if err != nil {
		return fmt.Errorf("failed to create sheet file: %w", err)
	}

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write sheet: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close sheet: %w", err)
	}
	return nil
}
