package exporter

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"playlistpulse/pkg/contracts/domain"
)

// ErrEmptyChart is returned for a chart with nothing to plot.
var ErrEmptyChart = errors.New("chart has no data")

// Default image size.
const (
	DefaultChartWidth  = 1024
	DefaultChartHeight = 600
)

var seriesColors = []drawing.Color{
	chart.ColorBlue,
	chart.ColorGreen,
	chart.ColorOrange,
}

// ChartRenderer draws chart specs with go-chart.
type ChartRenderer struct {
	width  int
	height int
}

// NewChartRenderer creates a renderer producing images of the given size.
func NewChartRenderer(width, height int) *ChartRenderer {
	if width <= 0 {
		width = DefaultChartWidth
	}
	if height <= 0 {
		height = DefaultChartHeight
	}
	return &ChartRenderer{width: width, height: height}
}

// Render writes spec to out as PNG or SVG.
func (c *ChartRenderer) Render(out io.Writer, spec *domain.ChartSpec, format Format) error {
	if spec.Empty() {
		return ErrEmptyChart
	}

	var provider chart.RendererProvider
	switch format {
	case FormatPNG:
		provider = chart.PNG
	case FormatSVG:
		provider = chart.SVG
	default:
		return fmt.Errorf("unsupported chart format %q", format)
	}

	var err error
	switch spec.Kind {
	case domain.ChartBar:
		err = c.barChart(spec).Render(provider, out)
	case domain.ChartScatter:
		ch := c.scatterChart(spec)
		err = ch.Render(provider, out)
	case domain.ChartLine:
		ch := c.lineChart(spec)
		err = ch.Render(provider, out)
	default:
		return fmt.Errorf("unsupported chart kind %q", spec.Kind)
	}
	if err != nil {
		return fmt.Errorf("failed to render %s chart: %w", spec.Kind, err)
	}
	return nil
}

// barChart draws ranking bars. go-chart only draws vertical bars, so
// categories run along the x axis with rotated labels.
func (c *ChartRenderer) barChart(spec *domain.ChartSpec) chart.BarChart {
	var values []int64
	if len(spec.Series) > 0 {
		values = spec.Series[0].Values
	}

	bars := make([]chart.Value, len(spec.Categories))
	var maxY float64
	for i, label := range spec.Categories {
		var v float64
		if i < len(values) {
			v = float64(values[i])
		}
		if v > maxY {
			maxY = v
		}
		bars[i] = chart.Value{
			Label: truncateLabel(label, 24),
			Value: v,
			Style: chart.Style{
				FillColor:   seriesColors[0],
				StrokeColor: seriesColors[0],
			},
		}
	}

	slot := (c.width - 120) / len(bars)
	if slot < 8 {
		slot = 8
	}

	return chart.BarChart{
		Title:      spec.Title,
		Width:      c.width,
		Height:     c.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 120}},
		BarWidth:   slot * 2 / 3,
		BarSpacing: slot / 3,
		XAxis:      chart.Style{TextRotationDegrees: 45},
		YAxis: chart.YAxis{
			Name:  spec.XLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: axisMax(maxY)},
		},
		Bars: bars,
	}
}

func (c *ChartRenderer) scatterChart(spec *domain.ChartSpec) chart.Chart {
	xs := make([]float64, len(spec.Points))
	ys := make([]float64, len(spec.Points))
	var maxX, maxY float64
	for i, p := range spec.Points {
		xs[i] = float64(p.X)
		ys[i] = float64(p.Y)
		if xs[i] > maxX {
			maxX = xs[i]
		}
		if ys[i] > maxY {
			maxY = ys[i]
		}
	}
	// Pad to at least two X values for go-chart
	if len(xs) == 1 {
		xs = append(xs, xs[0])
		ys = append(ys, ys[0])
	}

	ch := chart.Chart{
		Title:      spec.Title,
		Width:      c.width,
		Height:     c.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  spec.XLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: axisMax(maxX)},
		},
		YAxis: chart.YAxis{
			Name:  spec.YLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: axisMax(maxY)},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    spec.YLabel,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    5,
					DotColor:    seriesColors[0].WithAlpha(180),
				},
			},
		},
	}
	return ch
}

func (c *ChartRenderer) lineChart(spec *domain.ChartSpec) chart.Chart {
	dates := spec.Dates
	minT, maxT := dates[0], dates[len(dates)-1]
	// A single day is drawn as a dot centred in a one day axis
	if len(dates) == 1 {
		minT, maxT = minT.Add(-12*time.Hour), maxT.Add(12*time.Hour)
	}

	var maxY float64
	series := make([]chart.Series, 0, len(spec.Series))
	for i, s := range spec.Series {
		xs := append([]time.Time(nil), dates...)
		ys := make([]float64, len(dates))
		for j := range dates {
			if j < len(s.Values) {
				ys[j] = float64(s.Values[j])
			}
			if ys[j] > maxY {
				maxY = ys[j]
			}
		}
		color := seriesColors[i%len(seriesColors)]
		series = append(series, chart.TimeSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotColor:    color,
				DotWidth:    3,
			},
		})
	}

	ch := chart.Chart{
		Title:      spec.Title,
		Width:      c.width,
		Height:     c.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           spec.XLabel,
			ValueFormatter: chart.TimeValueFormatterWithFormat(domain.DateLayout),
			Range: &chart.ContinuousRange{
				Min: chart.TimeToFloat64(minT),
				Max: chart.TimeToFloat64(maxT),
			},
		},
		YAxis: chart.YAxis{
			Name:  spec.YLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: axisMax(maxY)},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch
}

// axisMax leaves headroom above the largest value and keeps the range non-zero.
func axisMax(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v * 1.1
}

func truncateLabel(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
