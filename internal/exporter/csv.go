package exporter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"playlistpulse/pkg/contracts/domain"
)

var errNoColumns = errors.New("table has no columns")

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger.With(slog.String("component", "csv_writer"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// Write writes table to out, header first.
func (w *CSVWriter) Write(out io.Writer, table *domain.TableProjection, options WriteOptions) error {
	df, err := tableFrame(table)
	if err != nil {
		return err
	}

	if options.BOMPrefix {
		if _, err := out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	if err := df.WriteCSV(out); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// WriteFile writes table to filePath, creating parent directories.
func (w *CSVWriter) WriteFile(filePath string, table *domain.TableProjection, options WriteOptions) error {
	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(table.Rows)))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if err := w.Write(file, table, options); err != nil {
		return err
	}
	return file.Close()
}

// tableFrame converts a projection into a string typed data frame.
func tableFrame(table *domain.TableProjection) (dataframe.DataFrame, error) {
	if table == nil || len(table.Columns) == 0 {
		return dataframe.DataFrame{}, errNoColumns
	}

	columns := make([]series.Series, len(table.Columns))
	for j, name := range table.Columns {
		values := make([]string, len(table.Rows))
		for i, row := range table.Rows {
			if j < len(row) {
				values[i] = domain.FormatCell(row[j])
			}
		}
		columns[j] = series.New(values, series.String, name)
	}

	df := dataframe.New(columns...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to build table: %w", df.Err)
	}
	return df, nil
}
