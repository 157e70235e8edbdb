package export

import (
	"fmt"
	"math"

	"github.com/snow-ghost/wolfpack/problems/wsn"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Series is one named convergence curve.
type Series struct {
	Name    string
	History []float64
}

// PlotConvergence draws best fitness per generation for every series.
func PlotConvergence(path, title string, series ...Series) error {
	if len(series) == 0 {
		return fmt.Errorf("plot convergence: no series")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = "Best fitness"

	for i, s := range series {
		pts := make(plotter.XYs, len(s.History))
		for g, v := range s.History {
			pts[g].X = float64(g + 1)
			pts[g].Y = v
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("plot convergence %q: %w", s.Name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

// PlotClusters draws the sensor nodes coloured by cluster and the heads as
// crosses.
func PlotClusters(path, title string, nodes, heads []wsn.Point, labels []int) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	groups := make([]plotter.XYs, len(heads))
	for i, n := range nodes {
		k := labels[i]
		groups[k] = append(groups[k], plotter.XY{X: n.X, Y: n.Y})
	}
	for k, pts := range groups {
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = plotutil.Color(k)
		s.GlyphStyle.Radius = vg.Points(2.5)
		p.Add(s)
	}

	hpts := make(plotter.XYs, len(heads))
	for k, h := range heads {
		hpts[k] = plotter.XY{X: h.X, Y: h.Y}
	}
	hs, err := plotter.NewScatter(hpts)
	if err != nil {
		return err
	}
	hs.GlyphStyle.Shape = draw.CrossGlyph{}
	hs.GlyphStyle.Radius = vg.Points(6)
	p.Add(hs)
	p.Legend.Add("cluster heads", hs)

	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

// Marker is a labelled vertical reference line.
type Marker struct {
	Name string
	X    float64
}

// PlotBeampattern draws a normalized pattern in dB against angle with
// vertical markers, clamped to [floor, 0] dB.
func PlotBeampattern(path, title string, thetas, db []float64, floor float64, markers ...Marker) error {
	if len(thetas) != len(db) {
		return fmt.Errorf("plot beampattern: %d angles, %d values", len(thetas), len(db))
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Angle (deg)"
	p.Y.Label.Text = "Normalized gain (dB)"

	pts := make(plotter.XYs, len(thetas))
	for i := range thetas {
		pts[i] = plotter.XY{X: thetas[i], Y: math.Max(db[i], floor)}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = plotutil.Color(0)
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("pattern", line)

	for i, m := range markers {
		ml, err := plotter.NewLine(plotter.XYs{{X: m.X, Y: floor}, {X: m.X, Y: 0}})
		if err != nil {
			return err
		}
		ml.Color = plotutil.Color(i + 1)
		ml.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(ml)
		p.Legend.Add(m.Name, ml)
	}
	p.Y.Min, p.Y.Max = floor, 0
	p.Add(plotter.NewGrid())

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
