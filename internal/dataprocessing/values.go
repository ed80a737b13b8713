package dataprocessing

import (
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Known column names after header normalization.
const (
	ColumnTitle     = "title"
	ColumnStreams   = "streams"
	ColumnListeners = "listeners"
	ColumnDateAdded = "date_added"
	ColumnArtist    = "artist"
)

// DefaultDateLayouts are tried in order when no layouts are configured.
// Slash dates are read month first.
var DefaultDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1/2/06",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
}

var nullTokens = map[string]struct{}{
	"":      {},
	"nan":   {},
	"na":    {},
	"n/a":   {},
	"null":  {},
	"none":  {},
	"<nil>": {},
	"-":     {},
	"#n/a":  {},
}

// isNull reports whether a cell holds no value.
func isNull(v string) bool {
	_, ok := nullTokens[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// ArtistFromFilename returns the part of the file name before its first '-',
// or the whole name when there is none.
func ArtistFromFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		base = ""
	}
	artist, _, _ := strings.Cut(base, "-")
	return strings.TrimSpace(artist)
}

// NormalizeHeader lowercases a column name and joins words with underscores.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.FieldsFunc(h, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '\t'
	}), "_")
}

// ParseCount reads a non-negative count. Thousands separators are accepted and
// fractional values are rounded. Missing, negative or unreadable values yield nil.
func ParseCount(v string) *int64 {
	if isNull(v) {
		return nil
	}
	s := strings.NewReplacer(",", "", "_", "", " ", "").Replace(strings.TrimSpace(v))

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return nil
		}
		return &n
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt64 {
		return nil
	}
	n := int64(math.Round(f))
	return &n
}

// DateParser parses calendar dates against a list of layouts.
type DateParser struct {
	layouts     []string
	excelSerial bool
}

// NewDateParser returns a parser for layouts, falling back to DefaultDateLayouts.
// When excelSerial is set, bare numbers are read as Excel serial dates.
func NewDateParser(layouts []string, excelSerial bool) *DateParser {
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	return &DateParser{layouts: layouts, excelSerial: excelSerial}
}

// Parse returns the calendar date in v at UTC midnight. ok is false when v
// is empty or matches no layout.
func (p *DateParser) Parse(v string) (time.Time, bool) {
	s := strings.TrimSpace(v)
	if isNull(s) {
		return time.Time{}, false
	}

	for _, layout := range p.layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), true
		}
	}

	if p.excelSerial {
		if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return truncateDay(t), true
			}
		}
	}

	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
