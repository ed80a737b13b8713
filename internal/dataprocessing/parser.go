package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	apierrors "playlistpulse/internal/errors"
	"playlistpulse/pkg/contracts/domain"
)

// Source formats accepted by Parser.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var (
	errEmptyFile         = errors.New("file is empty")
	errUnsupportedFormat = errors.New("unsupported file format")
	errNoSheets          = errors.New("workbook has no sheets")
)

// Parser reads uploaded tables into raw playlist records.
type Parser struct {
	dates  *DateParser
	serial *DateParser
	logger *slog.Logger
}

// NewParser creates a parser. Empty layouts select DefaultDateLayouts.
func NewParser(layouts []string, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		dates:  NewDateParser(layouts, false),
		serial: NewDateParser(layouts, true),
		logger: logger,
	}
}

// FormatOf returns the source format implied by a file name.
func FormatOf(name string) (string, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, true
	case ".xlsx", ".xlsm":
		return FormatXLSX, true
	default:
		return "", false
	}
}

// zipMagic opens every xlsx workbook.
var zipMagic = []byte("PK\x03\x04")

// DetectFormat is FormatOf, except that a name without an extension is
// sniffed from its content: a zip archive is a workbook and anything else
// is read as delimited text.
func DetectFormat(name string, content []byte) (string, bool) {
	if filepath.Ext(name) != "" {
		return FormatOf(name)
	}
	if bytes.HasPrefix(content, zipMagic) {
		return FormatXLSX, true
	}
	return FormatCSV, true
}

// Parse reads one upload. Every data row yields a RawRecord tagged with the
// artist derived from the file name; cells that cannot be read become nil.
// Only a file that cannot be read as a table returns an error.
func (p *Parser) Parse(u domain.Upload) ([]domain.RawRecord, domain.FileReport, error) {
	report := domain.FileReport{
		Name:   u.Name,
		Artist: ArtistFromFilename(u.Name),
	}

	format, ok := DetectFormat(u.Name, u.Content)
	if !ok {
		return nil, report, apierrors.NewMalformedInputError(u.Name, errUnsupportedFormat)
	}
	report.Format = format

	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatXLSX:
		rows, err = readWorkbook(u.Content)
	default:
		rows, err = readDelimited(u.Content)
	}
	if err != nil {
		return nil, report, apierrors.NewMalformedInputError(u.Name, err)
	}

	header, body, err := shapeTable(rows)
	if err != nil {
		return nil, report, apierrors.NewMalformedInputError(u.Name, err)
	}
	report.Columns = header
	report.HasDateColumn = contains(header, ColumnDateAdded)
	report.Rows = len(body)
	if len(body) == 0 {
		return []domain.RawRecord{}, report, nil
	}

	df := dataframe.LoadRecords(
		append([][]string{header}, body...),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, report, apierrors.NewMalformedInputError(u.Name, df.Err)
	}

	dates := p.dates
	if format == FormatXLSX {
		dates = p.serial
	}

	records := p.toRecords(df, u.Name, report.Artist, dates, &report)

	p.logger.Debug("parsed upload",
		slog.String("file", u.Name),
		slog.String("format", format),
		slog.String("artist", report.Artist),
		slog.Int("rows", report.Rows),
		slog.Int("unparsed_dates", report.UnparsedDates))

	return records, report, nil
}

func (p *Parser) toRecords(df dataframe.DataFrame, source, artist string, dates *DateParser, report *domain.FileReport) []domain.RawRecord {
	names := df.Names()
	column := func(name string) []string {
		if !contains(names, name) {
			return nil
		}
		return df.Col(name).Records()
	}

	titles := column(ColumnTitle)
	streams := column(ColumnStreams)
	listeners := column(ColumnListeners)
	added := column(ColumnDateAdded)

	extras := make(map[string][]string)
	for _, name := range names {
		if isKnownColumn(name) {
			continue
		}
		extras[name] = df.Col(name).Records()
	}

	records := make([]domain.RawRecord, df.Nrow())
	for i := range records {
		rec := domain.RawRecord{Artist: artist, Source: source}
		if titles != nil && !isNull(titles[i]) {
			rec.Title = strings.TrimSpace(titles[i])
		}
		if streams != nil {
			rec.Streams = ParseCount(streams[i])
		}
		if listeners != nil {
			rec.Listeners = ParseCount(listeners[i])
		}
		if added != nil && !isNull(added[i]) {
			if day, ok := dates.Parse(added[i]); ok {
				rec.DateAdded = &day
			} else {
				report.UnparsedDates++
			}
		}
		if len(extras) > 0 {
			rec.Extra = make(map[string]string, len(extras))
			for name, values := range extras {
				if !isNull(values[i]) {
					rec.Extra[name] = values[i]
				}
			}
		}
		records[i] = rec
	}
	return records
}

func readDelimited(content []byte) ([][]string, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, errEmptyFile
	}

	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

func readWorkbook(content []byte) ([][]string, error) {
	if len(content) == 0 {
		return nil, errEmptyFile
	}

	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errNoSheets
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// shapeTable normalizes the header and pads every data row to its width.
// Blank rows are skipped. A row with more non-empty cells than the header
// has columns makes the table unreadable.
func shapeTable(rows [][]string) ([]string, [][]string, error) {
	rows = dropBlankRows(rows)
	if len(rows) == 0 {
		return nil, nil, errEmptyFile
	}

	header := normalizeHeaders(rows[0])
	body := make([][]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) > len(header) {
			for _, cell := range row[len(header):] {
				if strings.TrimSpace(cell) != "" {
					return nil, nil, fmt.Errorf("line %d: expected %d fields, saw %d", i+2, len(header), len(row))
				}
			}
			row = row[:len(header)]
		}
		padded := make([]string, len(header))
		copy(padded, row)
		body = append(body, padded)
	}
	return header, body, nil
}

func normalizeHeaders(raw []string) []string {
	header := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		name := NormalizeHeader(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		header[i] = name
	}
	return header
}

func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

func isKnownColumn(name string) bool {
	switch name {
	case ColumnTitle, ColumnStreams, ColumnListeners, ColumnDateAdded, ColumnArtist:
		return true
	}
	return false
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
