package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/banshee-data/calo-impact/internal/impact"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var regionColors = map[impact.Region]color.Color{
	impact.RegionBarrel:         color.RGBA{R: 31, G: 119, B: 180, A: 255},
	impact.RegionPositiveEndcap: color.RGBA{R: 44, G: 160, B: 44, A: 255},
	impact.RegionNegativeEndcap: color.RGBA{R: 214, G: 39, B: 40, A: 255},
}

var (
	clusterColor = color.RGBA{R: 80, G: 80, B: 80, A: 255}
	linkColor    = color.RGBA{R: 160, G: 160, B: 160, A: 255}
)

// WritePNG saves an eta-phi scatter of impacts and clusters with a line
// from each impact to its matched cluster. The file format follows the
// extension of path.
func WritePNG(path string, events []Event) error {
	l := collect(events)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Calorimeter impacts (%d events, %d impacts, %d clusters)", len(events), l.impactCount(), len(l.clusters))
	p.X.Label.Text = "eta"
	p.Y.Label.Text = "phi (rad)"
	p.Add(plotter.NewGrid())

	for _, link := range l.links {
		line, err := plotter.NewLine(plotter.XYs{
			{X: link[0].eta, Y: link[0].phi},
			{X: link[1].eta, Y: link[1].phi},
		})
		if err != nil {
			return fmt.Errorf("match line: %w", err)
		}
		line.Color = linkColor
		line.Width = vg.Points(0.5)
		p.Add(line)
	}

	if len(l.clusters) > 0 {
		sc, err := plotter.NewScatter(toXYs(l.clusters))
		if err != nil {
			return fmt.Errorf("cluster scatter: %w", err)
		}
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		sc.GlyphStyle.Color = clusterColor
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)
		p.Legend.Add("clusters", sc)
	}

	for _, region := range regions {
		pts := l.impacts[region]
		if len(pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(toXYs(pts))
		if err != nil {
			return fmt.Errorf("%s scatter: %w", region, err)
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Color = regionColors[region]
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add(string(region), sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save eta-phi plot: %w", err)
	}
	return nil
}

func toXYs(pts []etaPhi) plotter.XYs {
	xys := make(plotter.XYs, len(pts))
	for i, p := range pts {
		xys[i] = plotter.XY{X: p.eta, Y: p.phi}
	}
	return xys
}
