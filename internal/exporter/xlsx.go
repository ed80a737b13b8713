package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"playlistpulse/pkg/contracts/domain"
)

// Workbook sheet names.
const (
	SheetSummary = "Summary"
	SheetView    = "View"
	SheetRaw     = "Raw Data"
)

// XLSXWriter writes views as Excel workbooks.
type XLSXWriter struct {
	logger *slog.Logger
}

// NewXLSXWriter creates a workbook writer.
func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{logger: logger.With(slog.String("component", "xlsx_writer"))}
}

// Write writes the summary, the view table and, when present, the raw table.
func (x *XLSXWriter) Write(out io.Writer, view *domain.ViewResult) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeSheet(f, SheetSummary, header, summaryTable(view)); err != nil {
		return err
	}

	if view.Table != nil {
		if _, err := f.NewSheet(SheetView); err != nil {
			return fmt.Errorf("failed to add sheet: %w", err)
		}
		if err := writeSheet(f, SheetView, header, view.Table); err != nil {
			return err
		}
	}

	if view.Raw != nil {
		if _, err := f.NewSheet(SheetRaw); err != nil {
			return fmt.Errorf("failed to add sheet: %w", err)
		}
		if err := writeSheet(f, SheetRaw, header, view.Raw); err != nil {
			return err
		}
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	x.logger.Debug("workbook written",
		slog.String("view", string(view.Selection.Kind)),
		slog.Int("sheets", f.SheetCount))
	return nil
}

func summaryTable(view *domain.ViewResult) *domain.TableProjection {
	rows := [][]any{
		{"view", string(view.Selection.Kind)},
		{"artist", view.Filter.ArtistLabel()},
		{"status", string(view.Status)},
		{"records", int64(view.Summary.Records)},
		{"total_streams", view.Summary.TotalStreams},
		{"total_listeners", view.Summary.TotalListeners},
	}
	if view.Filter.Start != nil {
		rows = append(rows, []any{"start", view.Filter.Start.Format(domain.DateLayout)})
	}
	if view.Filter.End != nil {
		rows = append(rows, []any{"end", view.Filter.End.Format(domain.DateLayout)})
	}
	if view.Message != "" {
		rows = append(rows, []any{"message", view.Message})
	}
	return &domain.TableProjection{Columns: []string{"field", "value"}, Rows: rows}
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, table *domain.TableProjection) error {
	if len(table.Columns) == 0 {
		return nil
	}

	head := make([]any, len(table.Columns))
	for i, c := range table.Columns {
		head[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}

	last, err := excelize.CoordinatesToCellName(len(table.Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for i, row := range table.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			if v == nil {
				v = ""
			}
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
