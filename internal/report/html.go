package report

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/cloudmesh/internal/pipeline"
	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

// MaxScatterPoints caps the points drawn per scatter series; larger clouds
// are strided.
const MaxScatterPoints = 20000

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

func scatterData(points pointcloud.PointSet) ([]opts.ScatterData, int) {
	stride := 1
	if len(points) > MaxScatterPoints {
		stride = (len(points) + MaxScatterPoints - 1) / MaxScatterPoints
	}
	data := make([]opts.ScatterData, 0, len(points)/stride+1)
	for i := 0; i < len(points); i += stride {
		p := points[i]
		data = append(data, opts.ScatterData{Value: []interface{}{p.X, p.Y, p.Z}})
	}
	return data, stride
}

// cloudScatter plots X/Y with Z mapped to colour.
func cloudScatter(title string, points pointcloud.PointSet) *charts.Scatter {
	data, stride := scatterData(points)
	zMin, zMax := 0.0, 0.0
	if len(points) > 0 {
		lo, hi := points.Bounds()
		zMin, zMax = lo.Z, hi.Z
	}
	if zMax == zMin {
		zMax = zMin + 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "cloudmesh", Theme: "dark", Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("points=%d stride=%d", len(points), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(zMin),
			Max:        float32(zMax),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("points", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter
}

func stageBar(res *pipeline.Result) *charts.Bar {
	names := make([]string, 0, len(res.Timings))
	durations := make([]opts.BarData, 0, len(res.Timings))
	for _, t := range res.Timings {
		names = append(names, string(t.Stage))
		ms := float64(t.Duration.Microseconds()) / 1000
		durations = append(durations, opts.BarData{Value: math.Round(ms*1000) / 1000})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Stage timings (ms)", Subtitle: fmt.Sprintf("run=%s total=%v", res.RunID, res.Elapsed)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).AddSeries("duration", durations,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}

// RenderHTML writes a single page with the input cloud, the cloud handed to
// reconstruction and the stage timings of res.
func RenderHTML(w io.Writer, res *pipeline.Result) error {
	page := components.NewPage()
	page.PageTitle = "cloudmesh run " + res.RunID
	page.AddCharts(
		cloudScatter("Input", res.Input),
		cloudScatter("Reconstruction input", res.MeshInput()),
		stageBar(res),
	)
	return page.Render(w)
}

// WriteHTML renders res to path.
func WriteHTML(path string, res *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := RenderHTML(f, res); err != nil {
		f.Close()
		return fmt.Errorf("failed to render report: %w", err)
	}
	return f.Close()
}
