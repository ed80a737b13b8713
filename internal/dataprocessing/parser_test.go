package dataprocessing

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apierrors "playlistpulse/internal/errors"
	"playlistpulse/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParser_ParseCSV(t *testing.T) {
	p := NewParser(nil, testLogger())

	content := "title,streams,listeners,date_added,genre\n" +
		"Chill Mix,\"1,200\",300,2024-01-01,lofi\n" +
		"Gym,50,,2024-01-02,\n" +
		"Road Trip,75,20,not a date,rock\n"

	records, report, err := p.Parse(domain.Upload{Name: "Nova-export.csv", Content: []byte(content)})
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Nova", report.Artist)
	assert.Equal(t, FormatCSV, report.Format)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 1, report.UnparsedDates)
	assert.True(t, report.HasDateColumn)

	first := records[0]
	assert.Equal(t, "Chill Mix", first.Title)
	require.NotNil(t, first.Streams)
	assert.Equal(t, int64(1200), *first.Streams)
	require.NotNil(t, first.DateAdded)
	assert.True(t, day(2024, 1, 1).Equal(*first.DateAdded))
	assert.Equal(t, "Nova", first.Artist)
	assert.Equal(t, "Nova-export.csv", first.Source)
	assert.Equal(t, map[string]string{"genre": "lofi"}, first.Extra)

	assert.Nil(t, records[1].Listeners)
	assert.Empty(t, records[1].Extra)
	assert.Nil(t, records[2].DateAdded)
}

func TestParser_HeaderVariants(t *testing.T) {
	p := NewParser(nil, testLogger())

	content := "\ufeffTitle, Streams ,Listeners,Date Added,Artist\n" +
		"A,10,5,2024-03-01,Someone Else\n"

	records, report, err := p.Parse(domain.Upload{Name: "Real-file.csv", Content: []byte(content)})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, report.HasDateColumn)
	assert.Equal(t, "A", records[0].Title)
	assert.Equal(t, "Real", records[0].Artist, "file name wins over an artist column")
	assert.Empty(t, records[0].Extra)
}

func TestParser_MissingColumns(t *testing.T) {
	p := NewParser(nil, testLogger())

	records, report, err := p.Parse(domain.Upload{Name: "x.csv", Content: []byte("title,plays\nA,10\n")})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, report.HasDateColumn)
	assert.Nil(t, records[0].Streams)
	assert.Nil(t, records[0].Listeners)
	assert.Nil(t, records[0].DateAdded)
}

func TestParser_HeaderOnlyAndBlankRows(t *testing.T) {
	p := NewParser(nil, testLogger())

	records, report, err := p.Parse(domain.Upload{Name: "x.csv", Content: []byte("title,streams,listeners\n,,\n\n")})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 0, report.Rows)
}

func TestParser_ShortRowsArePadded(t *testing.T) {
	p := NewParser(nil, testLogger())

	records, _, err := p.Parse(domain.Upload{Name: "x.csv", Content: []byte("title,streams,listeners\nA,10\nB,1,2,\n")})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Nil(t, records[0].Listeners)
	require.NotNil(t, records[1].Listeners)
	assert.Equal(t, int64(2), *records[1].Listeners)
}

func TestParser_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		upload  domain.Upload
		wantMsg string
	}{
		{
			name:    "unsupported extension",
			upload:  domain.Upload{Name: "notes.pdf", Content: []byte("title\nA\n")},
			wantMsg: "unsupported file format",
		},
		{
			name:    "empty file",
			upload:  domain.Upload{Name: "empty.csv", Content: []byte("  \n")},
			wantMsg: "file is empty",
		},
		{
			name:    "bare quote",
			upload:  domain.Upload{Name: "bad.csv", Content: []byte("title,streams\n\"A,1\nB\"x,2\n")},
			wantMsg: "read csv",
		},
		{
			name:    "row wider than header",
			upload:  domain.Upload{Name: "wide.csv", Content: []byte("title,streams\nA,1,extra\n")},
			wantMsg: "expected 2 fields",
		},
		{
			name:    "not a workbook",
			upload:  domain.Upload{Name: "fake.xlsx", Content: []byte("title,streams\n")},
			wantMsg: "open workbook",
		},
	}

	p := NewParser(nil, testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, report, err := p.Parse(tt.upload)
			require.Error(t, err)
			assert.True(t, apierrors.IsType(err, apierrors.ErrTypeMalformedInput))
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Contains(t, err.Error(), tt.upload.Name)
			assert.Equal(t, tt.upload.Name, report.Name)
		})
	}
}

func TestParser_ParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Title", "Streams", "Listeners", "Date Added"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Focus", 500, 120, "2024-02-10"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"Sleep", 40, 9, 45293}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	p := NewParser(nil, testLogger())
	records, report, err := p.Parse(domain.Upload{Name: "Luna-2024.xlsx", Content: buf.Bytes()})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, FormatXLSX, report.Format)
	assert.Equal(t, "Luna", records[0].Artist)
	assert.Equal(t, "Focus", records[0].Title)
	require.NotNil(t, records[0].Streams)
	assert.Equal(t, int64(500), *records[0].Streams)
	require.NotNil(t, records[0].DateAdded)
	assert.True(t, day(2024, 2, 10).Equal(*records[0].DateAdded))

	require.NotNil(t, records[1].DateAdded)
	assert.True(t, day(2024, 1, 2).Equal(*records[1].DateAdded))
	assert.Equal(t, 0, report.UnparsedDates)
}

func TestFormatOf(t *testing.T) {
	f, ok := FormatOf("a.CSV")
	assert.True(t, ok)
	assert.Equal(t, FormatCSV, f)

	f, ok = FormatOf("a.xlsx")
	assert.True(t, ok)
	assert.Equal(t, FormatXLSX, f)

	_, ok = FormatOf("a.json")
	assert.False(t, ok)
}

func TestParser_NameWithoutExtension(t *testing.T) {
	p := NewParser(nil, testLogger())

	records, report, err := p.Parse(domain.Upload{Name: "Z", Content: []byte("title,streams,listeners\nA,1,2\n")})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, FormatCSV, report.Format)
	assert.Equal(t, "Z", records[0].Artist)

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow(f.GetSheetName(0), "A1", &[]any{"Title", "Streams", "Listeners"}))
	require.NoError(t, f.SetSheetRow(f.GetSheetName(0), "A2", &[]any{"Focus", 500, 120}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	records, report, err = p.Parse(domain.Upload{Name: "Luna", Content: buf.Bytes()})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, FormatXLSX, report.Format)
	assert.Equal(t, "Focus", records[0].Title)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		ok      bool
	}{
		{"Artist-export.csv", "", FormatCSV, true},
		{"Artist-export.xlsx", "", FormatXLSX, true},
		{"Artist", "title,streams\n", FormatCSV, true},
		{"Artist", "PK\x03\x04rest", FormatXLSX, true},
		{"Artist-notes.pdf", "title,streams\n", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectFormat(tt.name, []byte(tt.content))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
