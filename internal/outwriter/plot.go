package outwriter

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/huangsam/casetrend/schema"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNothingToPlot is returned when no region reaches the plot threshold.
var ErrNothingToPlot = errors.New("no region has enough cases to plot")

// PlotOptions controls chart rendering.
type PlotOptions struct {
	Title    string
	Width    int
	Height   int
	MinCount int  // Regions whose maximum stays below this are left out
	LogScale bool // Plot log10 of the counts
}

// DefaultPlotOptions returns the options used by the plot command.
func DefaultPlotOptions() PlotOptions {
	return PlotOptions{
		Title:    "SARS-CoV-2 infections per state (data from Robert Koch Institut)",
		Width:    1280,
		Height:   800,
		MinCount: 5,
	}
}

// pointStyle renders points only, no connecting line.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: drawing.ColorTransparent,
		DotWidth:    4,
		DotColor:    col,
	}
}

// curveStyle renders a line only.
func curveStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor:     col,
		StrokeWidth:     2,
		StrokeDashArray: []float64{5, 3},
	}
}

// PlotFile renders the chart into a PNG file at path.
func PlotFile(path string, series []schema.TimeSeries, trends []schema.RegionTrend, opts PlotOptions) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	if err := RenderPlot(file, series, trends, opts); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close chart file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "💾 Wrote chart to %s\n", path)
	return nil
}

// RenderPlot draws the observed points of every series that reaches
// opts.MinCount, plus the fitted curve of the regions that have one, as PNG.
func RenderPlot(w io.Writer, series []schema.TimeSeries, trends []schema.RegionTrend, opts PlotOptions) error {
	curves := make(map[schema.Region][]schema.CurvePoint, len(trends))
	for _, tr := range trends {
		curves[tr.Fit.Region] = tr.Curve
	}

	transform := func(v float64) (float64, bool) { return v, true }
	yName := "cases"
	if opts.LogScale {
		yName = "cases (log10)"
		transform = func(v float64) (float64, bool) {
			if v <= 0 {
				return 0, false
			}
			return math.Log10(v), true
		}
	}

	var chartSeries []chart.Series
	yMin, yMax := math.Inf(1), math.Inf(-1)
	track := func(ys []float64) {
		for _, y := range ys {
			yMin, yMax = math.Min(yMin, y), math.Max(yMax, y)
		}
	}
	plotted := 0
	for _, ts := range series {
		if ts.MaxCount() < opts.MinCount {
			continue
		}
		col := chart.GetDefaultColor(plotted)
		plotted++

		var xs []time.Time
		var ys []float64
		for _, p := range ts.Points {
			if y, ok := transform(float64(p.Count)); ok {
				xs = append(xs, p.Timestamp)
				ys = append(ys, y)
			}
		}
		if len(xs) == 0 {
			continue
		}
		xs, ys = padSinglePoint(xs, ys)
		track(ys)
		chartSeries = append(chartSeries, chart.TimeSeries{Name: string(ts.Region), XValues: xs, YValues: ys, Style: pointStyle(col)})

		curve := curves[ts.Region]
		if len(curve) < 2 {
			continue
		}
		xs, ys = nil, nil
		for _, c := range curve {
			if y, ok := transform(c.Value); ok {
				xs = append(xs, c.Timestamp)
				ys = append(ys, y)
			}
		}
		if len(xs) >= 2 {
			track(ys)
			chartSeries = append(chartSeries, chart.TimeSeries{Name: string(ts.Region) + " (fit)", XValues: xs, YValues: ys, Style: curveStyle(col)})
		}
	}
	if len(chartSeries) == 0 {
		return ErrNothingToPlot
	}

	ch := chart.Chart{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 220, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "date", ValueFormatter: chart.TimeDateValueFormatter},
		YAxis:      chart.YAxis{Name: yName, Range: yRange(yMin, yMax, opts.LogScale)},
		Series:     chartSeries,
	}
	ch.Elements = []chart.Renderable{chart.LegendLeft(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// yRange pads the data range so that a flat chart still has a height.
func yRange(lo, hi float64, logScale bool) *chart.ContinuousRange {
	if !logScale {
		lo = 0
	}
	lo, hi = math.Floor(lo), math.Ceil(hi*1.05)
	if hi <= lo {
		hi = lo + 1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

// padSinglePoint duplicates a lone point one minute later; the chart
// library cannot compute a range from a single X value.
func padSinglePoint(xs []time.Time, ys []float64) ([]time.Time, []float64) {
	if len(xs) != 1 {
		return xs, ys
	}
	return []time.Time{xs[0], xs[0].Add(time.Minute)}, []float64{ys[0], ys[0]}
}
