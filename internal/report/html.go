package report

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderHTML writes an interactive eta-phi scatter page to w. Each point
// carries its event and track or cluster index as the tooltip name.
func RenderHTML(w io.Writer, events []Event) error {
	l := collect(events)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Calorimeter impacts", Width: "1100px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Calorimeter impacts", Subtitle: fmt.Sprintf("events=%d impacts=%d clusters=%d", len(events), l.impactCount(), len(l.clusters))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "eta", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -3.2, Max: 3.2, Name: "phi (rad)", NameLocation: "middle", NameGap: 30}),
	)

	scatter.AddSeries("clusters", scatterData(l.clusters), charts.WithScatterChartOpts(opts.ScatterChart{Symbol: "diamond", SymbolSize: 6}))
	for _, region := range regions {
		scatter.AddSeries(string(region), scatterData(l.impacts[region]), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		return fmt.Errorf("render eta-phi chart: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteHTML renders the page to path.
func WriteHTML(path string, events []Event) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create html file: %w", err)
	}
	if err := RenderHTML(f, events); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func scatterData(pts []etaPhi) []opts.ScatterData {
	data := make([]opts.ScatterData, 0, len(pts))
	for _, p := range pts {
		data = append(data, opts.ScatterData{Name: p.label, Value: []interface{}{p.eta, p.phi}})
	}
	return data
}
