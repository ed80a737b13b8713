package domain

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ViewKind selects which computation and chart a view shows.
type ViewKind string

const (
	ViewTopByStreams       ViewKind = "top_streams"
	ViewTopByListeners     ViewKind = "top_listeners"
	ViewStreamsVsListeners ViewKind = "streams_vs_listeners"
	ViewTimeSeries         ViewKind = "time_series"
)

// ViewKinds lists every supported view.
var ViewKinds = []ViewKind{
	ViewTopByStreams,
	ViewTopByListeners,
	ViewStreamsVsListeners,
	ViewTimeSeries,
}

// Valid reports whether k is a known view.
func (k ViewKind) Valid() bool {
	for _, v := range ViewKinds {
		if v == k {
			return true
		}
	}
	return false
}

// RankMetric returns the metric a ranking view sorts by.
func (k ViewKind) RankMetric() (Metric, bool) {
	switch k {
	case ViewTopByStreams:
		return MetricStreams, true
	case ViewTopByListeners:
		return MetricListeners, true
	default:
		return "", false
	}
}

// DisplayMode selects chart, table or both.
type DisplayMode string

const (
	DisplayChart DisplayMode = "chart"
	DisplayTable DisplayMode = "table"
	DisplayBoth  DisplayMode = "both"
)

// ShowsChart reports whether a chart should be produced.
func (m DisplayMode) ShowsChart() bool {
	return m == DisplayChart || m == DisplayBoth || m == ""
}

// ShowsTable reports whether a table should be produced.
func (m DisplayMode) ShowsTable() bool {
	return m == DisplayTable || m == DisplayBoth
}

// FilterState is the transient artist and date range selection.
type FilterState struct {
	Artist string     `json:"artist"`
	Start  *time.Time `json:"start,omitempty"`
	End    *time.Time `json:"end,omitempty"`
}

// AllArtistsSelected reports whether the artist filter is a pass-through.
func (f FilterState) AllArtistsSelected() bool {
	return f.Artist == "" || f.Artist == AllArtists
}

// ArtistLabel is the artist text used in chart titles.
func (f FilterState) ArtistLabel() string {
	if f.AllArtistsSelected() {
		return AllArtists
	}
	return f.Artist
}

// HasDateRange reports whether either date bound is set.
func (f FilterState) HasDateRange() bool {
	return f.Start != nil || f.End != nil
}

// ViewSelection is the transient choice of view and presentation.
type ViewSelection struct {
	Kind    ViewKind    `json:"view"`
	Mode    DisplayMode `json:"mode"`
	TopN    int         `json:"top_n"`
	ShowRaw bool        `json:"raw"`
}

// ChartKind is the shape of a chart.
type ChartKind string

const (
	ChartBar     ChartKind = "bar"
	ChartScatter ChartKind = "scatter"
	ChartLine    ChartKind = "line"
)

// Orientation applies to bar charts.
type Orientation string

const (
	OrientationHorizontal Orientation = "horizontal"
	OrientationVertical   Orientation = "vertical"
)

// ChartSeries is one named sequence of values aligned with the chart's
// categories (bar) or dates (line).
type ChartSeries struct {
	Name   string  `json:"name"`
	Values []int64 `json:"values"`
}

// ScatterPoint is a single scatter point with inspectable metadata.
type ScatterPoint struct {
	X      int64  `json:"x"`
	Y      int64  `json:"y"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// ChartSpec is a renderer agnostic chart description.
type ChartSpec struct {
	Kind        ChartKind      `json:"kind"`
	Title       string         `json:"title"`
	Orientation Orientation    `json:"orientation,omitempty"`
	XLabel      string         `json:"x_label"`
	YLabel      string         `json:"y_label"`
	Categories  []string       `json:"categories,omitempty"`
	Dates       []time.Time    `json:"dates,omitempty"`
	Series      []ChartSeries  `json:"series,omitempty"`
	Points      []ScatterPoint `json:"points,omitempty"`
}

// Empty reports whether the chart has nothing to plot.
func (c *ChartSpec) Empty() bool {
	if c == nil {
		return true
	}
	switch c.Kind {
	case ChartScatter:
		return len(c.Points) == 0
	case ChartLine:
		return len(c.Dates) == 0
	default:
		return len(c.Categories) == 0
	}
}

// TableProjection is an ordered set of columns and rows for tabular display.
type TableProjection struct {
	Title   string   `json:"title,omitempty"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Records renders the table as strings, header first.
func (t *TableProjection) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, append([]string(nil), t.Columns...))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = FormatCell(v)
		}
		out = append(out, cells)
	}
	return out
}

// FormatCell renders a table value as text.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case time.Time:
		return val.Format(DateLayout)
	case *time.Time:
		if val == nil {
			return ""
		}
		return val.Format(DateLayout)
	default:
		return fmt.Sprint(val)
	}
}

// DailyTotal is the per day sum of streams and listeners.
type DailyTotal struct {
	Date      time.Time `json:"date"`
	Streams   int64     `json:"streams"`
	Listeners int64     `json:"listeners"`
}

// Summary carries totals across the filtered records.
type Summary struct {
	Records        int   `json:"records"`
	TotalStreams   int64 `json:"total_streams"`
	TotalListeners int64 `json:"total_listeners"`
}

// ViewStatus describes the state of a computed view.
type ViewStatus string

const (
	ViewStatusOK          ViewStatus = "ok"
	ViewStatusEmpty       ViewStatus = "empty"
	ViewStatusUnavailable ViewStatus = "unavailable"
	ViewStatusNoInput     ViewStatus = "no_input"
)

// ViewResult is everything a renderer needs for one interaction.
type ViewResult struct {
	Status     ViewStatus       `json:"status"`
	Message    string           `json:"message,omitempty"`
	Selection  ViewSelection    `json:"selection"`
	Filter     FilterState      `json:"filter"`
	Summary    Summary          `json:"summary"`
	Chart      *ChartSpec       `json:"chart,omitempty"`
	Table      *TableProjection `json:"table,omitempty"`
	Raw        *TableProjection `json:"raw,omitempty"`
	Artists    []string         `json:"artists"`
	DateBounds *DateRange       `json:"date_bounds"`
	DateFilter bool             `json:"date_filter_applied"`
}
