package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/cloudmesh/internal/mesh"
)

var (
	edgeColor    = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	flaggedColor = color.RGBA{R: 220, G: 30, B: 30, A: 255}
	vertexColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
)

// Wireframe builds a top-down (X/Y) plot of m. Faces whose entry in flags is
// true are drawn in red; flags may be nil.
func Wireframe(m *mesh.Mesh, flags []bool, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	for i, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		line, err := plotter.NewLine(plotter.XYs{{X: a.X, Y: a.Y}, {X: b.X, Y: b.Y}, {X: c.X, Y: c.Y}, {X: a.X, Y: a.Y}})
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}
		line.Color = edgeColor
		line.Width = vg.Points(0.5)
		if i < len(flags) && flags[i] {
			line.Color = flaggedColor
			line.Width = vg.Points(1)
		}
		p.Add(line)
	}

	if len(m.Vertices) > 0 {
		pts := make(plotter.XYs, len(m.Vertices))
		for i, v := range m.Vertices {
			pts[i] = plotter.XY{X: v.X, Y: v.Y}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = vertexColor
		sc.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(sc)
		p.Legend.Add(fmt.Sprintf("vertices (%d)", len(m.Vertices)), sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// SaveWireframe renders the wireframe to path. The image format follows the
// extension (png, svg, pdf, ...).
func SaveWireframe(path string, m *mesh.Mesh, flags []bool, title string) error {
	p, err := Wireframe(m, flags, title)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save wireframe %s: %w", path, err)
	}
	return nil
}

// WriteWireframe renders the wireframe to w in the given format.
func WriteWireframe(w io.Writer, format string, m *mesh.Mesh, flags []bool, title string) error {
	p, err := Wireframe(m, flags, title)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
