// Package visualiser renders clustering results as interactive HTML charts.
package visualiser

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/triplclust/internal/cloud"
	"github.com/banshee-data/triplclust/internal/palette"
)

// Options configures the rendered page.
type Options struct {
	Title  string
	Width  string
	Height string
	Theme  string
	// AssetsHost overrides the URL the echarts scripts are loaded from.
	AssetsHost string
}

// DefaultOptions returns the options used by the command line tool.
func DefaultOptions() Options {
	return Options{
		Title:  "TriplClust",
		Width:  "900px",
		Height: "900px",
		Theme:  "dark",
	}
}

// Render writes an HTML page with one scatter series per cluster plus a grey
// noise series. 3D clouds use a rotatable 3D scatter; 2D clouds a flat one.
// Points shared by several clusters are drawn once per cluster.
func Render(w io.Writer, labels *cloud.ClusterPointCloud, o Options) error {
	if labels == nil || labels.Cloud == nil {
		return fmt.Errorf("render: no clustering result")
	}
	init := opts.Initialization{
		PageTitle:  o.Title,
		Theme:      o.Theme,
		Width:      o.Width,
		Height:     o.Height,
		AssetsHost: o.AssetsHost,
	}
	title := opts.Title{
		Title:    o.Title,
		Subtitle: fmt.Sprintf("points=%d curves=%d noise=%d", labels.Len(), labels.NumClusters(), labels.NoiseCount()),
	}
	if labels.Cloud.Is2D() {
		return render2D(w, labels, init, title)
	}
	return render3D(w, labels, init, title)
}

func render3D(w io.Writer, labels *cloud.ClusterPointCloud, init opts.Initialization, title opts.Title) error {
	chart := charts.NewScatter3D()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(init),
		charts.WithTitleOpts(title),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "X"}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "Y"}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "Z"}),
	)

	for _, s := range buildSeries(labels) {
		data := make([]opts.Chart3DData, len(s.points))
		for k, i := range s.points {
			p := labels.Cloud.At(i)
			data[k] = opts.Chart3DData{Value: []interface{}{p.X, p.Y, p.Z}}
		}
		chart.AddSeries(s.name, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: s.color}))
	}
	return chart.Render(w)
}

func render2D(w io.Writer, labels *cloud.ClusterPointCloud, init opts.Initialization, title opts.Title) error {
	chart := charts.NewScatter()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(init),
		charts.WithTitleOpts(title),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y", NameLocation: "middle", NameGap: 30}),
	)

	for _, s := range buildSeries(labels) {
		data := make([]opts.ScatterData, len(s.points))
		for k, i := range s.points {
			p := labels.Cloud.At(i)
			data[k] = opts.ScatterData{Value: []interface{}{p.X, p.Y}}
		}
		chart.AddSeries(s.name, data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: s.color}))
	}
	return chart.Render(w)
}

type series struct {
	name   string
	color  string
	points []int
}

// buildSeries groups point indices by cluster, noise last.
func buildSeries(labels *cloud.ClusterPointCloud) []series {
	ids := labels.ClusterIDs()
	colors := palette.Generate(len(ids))
	out := make([]series, 0, len(ids)+1)
	for k, id := range ids {
		out = append(out, series{
			name:   fmt.Sprintf("curve %d", id),
			color:  palette.Hex(colors[k]),
			points: labels.Members(id),
		})
	}

	var noise []int
	for i := 0; i < labels.Len(); i++ {
		if labels.IsNoise(i) {
			noise = append(noise, i)
		}
	}
	if len(noise) > 0 {
		out = append(out, series{name: "noise", color: palette.Hex(palette.Noise), points: noise})
	}
	return out
}
