package domain

import (
	"sort"
	"time"
)

// AllArtists is the artist selection that disables artist filtering.
const AllArtists = "All"

// Upload is one user supplied file: its original name and raw bytes.
type Upload struct {
	Name    string `json:"name" validate:"required"`
	Content []byte `json:"-"`
}

// RawRecord is a playlist observation as read from a source, before cleaning.
// Nil numeric fields mean the value was missing or unreadable.
type RawRecord struct {
	Title     string            `json:"title"`
	Streams   *int64            `json:"streams"`
	Listeners *int64            `json:"listeners"`
	Artist    string            `json:"artist"`
	DateAdded *time.Time        `json:"date_added"`
	Source    string            `json:"source"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Record is one cleaned playlist observation.
type Record struct {
	Title     string            `json:"title" validate:"required"`
	Streams   int64             `json:"streams" validate:"gte=0"`
	Listeners int64             `json:"listeners" validate:"gte=0"`
	Artist    string            `json:"artist"`
	DateAdded *time.Time        `json:"date_added,omitempty"`
	Source    string            `json:"source,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Metric returns the value of the named numeric field.
func (r Record) Metric(m Metric) int64 {
	if m == MetricListeners {
		return r.Listeners
	}
	return r.Streams
}

// Metric names a numeric Record field.
type Metric string

const (
	MetricStreams   Metric = "streams"
	MetricListeners Metric = "listeners"
)

// Label returns the human readable metric name.
func (m Metric) Label() string {
	if m == MetricListeners {
		return "Listeners"
	}
	return "Streams"
}

// Dataset is the cleaned concatenation of every uploaded source.
// It is never mutated after being built.
type Dataset struct {
	Records      []Record  `json:"records"`
	ExtraColumns []string  `json:"extra_columns,omitempty"`
	Fingerprint  string    `json:"fingerprint"`
	BuiltAt      time.Time `json:"built_at"`
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// HasDates reports whether at least one record carries a date.
func (d *Dataset) HasDates() bool {
	if d == nil {
		return false
	}
	return AnyDated(d.Records)
}

// Artists returns the distinct artists in sorted order.
func (d *Dataset) Artists() []string {
	if d == nil {
		return []string{}
	}
	seen := make(map[string]struct{})
	artists := make([]string, 0)
	for _, r := range d.Records {
		if _, ok := seen[r.Artist]; ok {
			continue
		}
		seen[r.Artist] = struct{}{}
		artists = append(artists, r.Artist)
	}
	sort.Strings(artists)
	return artists
}

// ArtistOptions returns AllArtists followed by the distinct artists.
func (d *Dataset) ArtistOptions() []string {
	return append([]string{AllArtists}, d.Artists()...)
}

// DateBounds returns the earliest and latest record dates, or nil when
// no record has a date.
func (d *Dataset) DateBounds() *DateRange {
	if d == nil {
		return nil
	}
	var bounds *DateRange
	for _, r := range d.Records {
		if r.DateAdded == nil {
			continue
		}
		day := *r.DateAdded
		if bounds == nil {
			bounds = &DateRange{Start: day, End: day}
			continue
		}
		if day.Before(bounds.Start) {
			bounds.Start = day
		}
		if day.After(bounds.End) {
			bounds.End = day
		}
	}
	return bounds
}

// AnyDated reports whether any record in records has a date.
func AnyDated(records []Record) bool {
	for _, r := range records {
		if r.DateAdded != nil {
			return true
		}
	}
	return false
}

// DateRange is an inclusive calendar date range.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FileReport summarizes how one upload was read.
type FileReport struct {
	Name          string   `json:"name"`
	Artist        string   `json:"artist"`
	Format        string   `json:"format"`
	Columns       []string `json:"columns"`
	Rows          int      `json:"rows"`
	Kept          int      `json:"kept"`
	Dropped       int      `json:"dropped"`
	UnparsedDates int      `json:"unparsed_dates"`
	HasDateColumn bool     `json:"has_date_column"`
}

// IngestReport summarizes a whole upload batch.
type IngestReport struct {
	Files         []FileReport `json:"files"`
	TotalRows     int          `json:"total_rows"`
	KeptRows      int          `json:"kept_rows"`
	DroppedRows   int          `json:"dropped_rows"`
	UnparsedDates int          `json:"unparsed_dates"`
}
