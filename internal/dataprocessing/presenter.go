package dataprocessing

import (
	"fmt"
	"time"

	"playlistpulse/pkg/contracts/domain"
)

// DefaultTopN is used when a selection does not name a ranking size.
const DefaultTopN = 10

// Messages attached to non-ok views.
const (
	MessageNoDates   = "no date information available"
	MessageNoMatches = "no records match the current filters"
)

// Present shapes filtered records into the chart and table for sel. Totals,
// artist options and date bounds are always filled. ds supplies the raw table
// and the selector options; filtered must come from Filter(ds, filter).
func Present(ds *domain.Dataset, filter domain.FilterState, sel domain.ViewSelection, filtered []domain.Record) *domain.ViewResult {
	if sel.Kind == "" {
		sel.Kind = domain.ViewTopByStreams
	}
	if sel.Mode == "" {
		sel.Mode = domain.DisplayChart
	}
	if sel.TopN <= 0 {
		sel.TopN = DefaultTopN
	}
	if filter.Artist == "" {
		filter.Artist = domain.AllArtists
	}

	result := &domain.ViewResult{
		Status:     domain.ViewStatusOK,
		Selection:  sel,
		Filter:     filter,
		Summary:    Totals(filtered),
		Artists:    ds.ArtistOptions(),
		DateBounds: ds.DateBounds(),
		DateFilter: DateFilterApplies(ds, filter),
	}
	if sel.ShowRaw {
		result.Raw = RawTable(ds)
	}

	label := filter.ArtistLabel()

	switch sel.Kind {
	case domain.ViewStreamsVsListeners:
		result.Chart, result.Table = scatterView(filtered, label)
	case domain.ViewTimeSeries:
		daily, ok := DailyAggregate(filtered)
		if !ok && (len(filtered) > 0 || !ds.HasDates()) {
			result.Status = domain.ViewStatusUnavailable
			result.Message = MessageNoDates
			return result
		}
		result.Chart, result.Table = timeSeriesView(daily, label)
	default:
		metric, _ := sel.Kind.RankMetric()
		result.Chart, result.Table = rankingView(TopN(filtered, metric, sel.TopN), metric, sel.TopN, label)
	}

	if len(filtered) == 0 {
		result.Status = domain.ViewStatusEmpty
		result.Message = MessageNoMatches
	}
	if !sel.Mode.ShowsChart() {
		result.Chart = nil
	}
	if !sel.Mode.ShowsTable() {
		result.Table = nil
	}
	return result
}

// RankingTitle is the chart title of a Top-N view.
func RankingTitle(n int, metric domain.Metric, artist string) string {
	return fmt.Sprintf("Top %d Playlists by %s (%s)", n, metric.Label(), artist)
}

func rankingView(top []domain.Record, metric domain.Metric, n int, artist string) (*domain.ChartSpec, *domain.TableProjection) {
	title := RankingTitle(n, metric, artist)

	categories := make([]string, len(top))
	values := make([]int64, len(top))
	rows := make([][]any, len(top))
	for i, r := range top {
		categories[i] = r.Title
		values[i] = r.Metric(metric)
		rows[i] = []any{r.Title, r.Metric(metric), r.Artist}
	}

	chart := &domain.ChartSpec{
		Kind:        domain.ChartBar,
		Title:       title,
		Orientation: domain.OrientationHorizontal,
		XLabel:      metric.Label(),
		YLabel:      "Playlist",
		Categories:  categories,
		Series:      []domain.ChartSeries{{Name: metric.Label(), Values: values}},
	}
	table := &domain.TableProjection{
		Title:   title,
		Columns: []string{ColumnTitle, string(metric), ColumnArtist},
		Rows:    rows,
	}
	return chart, table
}

func scatterView(records []domain.Record, artist string) (*domain.ChartSpec, *domain.TableProjection) {
	title := fmt.Sprintf("Streams vs. Listeners (%s)", artist)

	points := make([]domain.ScatterPoint, len(records))
	for i, r := range records {
		points[i] = domain.ScatterPoint{X: r.Listeners, Y: r.Streams, Title: r.Title, Artist: r.Artist}
	}

	chart := &domain.ChartSpec{
		Kind:   domain.ChartScatter,
		Title:  title,
		XLabel: domain.MetricListeners.Label(),
		YLabel: domain.MetricStreams.Label(),
		Points: points,
	}
	table := recordTable(title, records, nil)
	return chart, table
}

func timeSeriesView(daily []domain.DailyTotal, artist string) (*domain.ChartSpec, *domain.TableProjection) {
	title := fmt.Sprintf("Streams and Listeners Over Time (%s)", artist)

	dates := make([]time.Time, len(daily))
	streams := make([]int64, len(daily))
	listeners := make([]int64, len(daily))
	rows := make([][]any, len(daily))
	for i, d := range daily {
		dates[i] = d.Date
		streams[i] = d.Streams
		listeners[i] = d.Listeners
		rows[i] = []any{d.Date.Format(domain.DateLayout), d.Streams, d.Listeners}
	}

	chart := &domain.ChartSpec{
		Kind:   domain.ChartLine,
		Title:  title,
		XLabel: "Date",
		YLabel: "Count",
		Dates:  dates,
		Series: []domain.ChartSeries{
			{Name: domain.MetricStreams.Label(), Values: streams},
			{Name: domain.MetricListeners.Label(), Values: listeners},
		},
	}
	table := &domain.TableProjection{
		Title:   title,
		Columns: []string{"date", ColumnStreams, ColumnListeners},
		Rows:    rows,
	}
	return chart, table
}

// RawTable projects every record of ds, including extra source columns.
func RawTable(ds *domain.Dataset) *domain.TableProjection {
	if ds == nil {
		return recordTable("Raw Data", nil, nil)
	}
	return recordTable("Raw Data", ds.Records, ds.ExtraColumns)
}

func recordTable(title string, records []domain.Record, extra []string) *domain.TableProjection {
	columns := []string{ColumnTitle, ColumnStreams, ColumnListeners, ColumnArtist, ColumnDateAdded}
	columns = append(columns, extra...)

	rows := make([][]any, len(records))
	for i, r := range records {
		row := make([]any, 0, len(columns))
		row = append(row, r.Title, r.Streams, r.Listeners, r.Artist, dateCell(r.DateAdded))
		for _, name := range extra {
			row = append(row, r.Extra[name])
		}
		rows[i] = row
	}
	return &domain.TableProjection{Title: title, Columns: columns, Rows: rows}
}

func dateCell(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(domain.DateLayout)
}
