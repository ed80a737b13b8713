// Package exporter renders computed dashboard views to files.
//
// This package contains three main components:
//
// CSVWriter: writes a table projection as CSV, optionally with a UTF-8 BOM for
// Excel compatibility.
//
// XLSXWriter: writes a workbook with a summary sheet, the view table and,
// when requested, the raw dataset.
//
// ChartRenderer: draws a chart spec as PNG or SVG.
//
// Example usage:
//
//	csvWriter := exporter.NewCSVWriter(logger)
//	err := csvWriter.Write(w, view.Table, exporter.WriteOptions{BOMPrefix: true})
//
//	renderer := exporter.NewChartRenderer(1024, 600)
//	err = renderer.Render(w, view.Chart, exporter.FormatPNG)
package exporter
