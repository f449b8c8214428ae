package reports

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const (
	heatmapSheet = "Staffing"
	dailySheet   = "Daily"
)

// WriteHeatmapWorkbook renders the heatmap grid with a colour scale plus a per-day sheet.
func WriteHeatmapWorkbook(path string, h Heatmap) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	wb := excelize.NewFile()
	defer wb.Close()

	// 1. Grid sheet
	if err := wb.SetSheetName(wb.GetSheetName(wb.GetActiveSheetIndex()), heatmapSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	header := []any{"Week"}
	for _, d := range Weekdays {
		header = append(header, d)
	}
	if err := wb.SetSheetRow(heatmapSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write heatmap header: %w", err)
	}
	for i, r := range h.Rows {
		row := []any{r.Week}
		for _, u := range r.Units {
			row = append(row, u)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := wb.SetSheetRow(heatmapSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write heatmap row: %w", err)
		}
	}

	if len(h.Rows) > 0 {
		from, _ := excelize.CoordinatesToCellName(2, 2)
		to, _ := excelize.CoordinatesToCellName(1+len(Weekdays), len(h.Rows)+1)
		err := wb.SetConditionalFormat(heatmapSheet, from+":"+to, []excelize.ConditionalFormatOptions{{
			Type:     "3_color_scale",
			Criteria: "=",
			MinType:  "min",
			MidType:  "percentile",
			MidValue: "50",
			MaxType:  "max",
			MinColor: "#F7FCFD",
			MidColor: "#8C96C6",
			MaxColor: "#4D004B",
		}})
		if err != nil {
			return fmt.Errorf("failed to apply colour scale: %w", err)
		}
	}

	footer := len(h.Rows) + 3
	benchCell, _ := excelize.CoordinatesToCellName(1, footer)
	if err := wb.SetCellValue(heatmapSheet, benchCell, fmt.Sprintf("Benchmark: %s (%.1f units)", h.BenchmarkName, h.Benchmark)); err != nil {
		return fmt.Errorf("failed to write benchmark: %w", err)
	}

	// 2. Daily sheet
	if _, err := wb.NewSheet(dailySheet); err != nil {
		return fmt.Errorf("failed to add daily sheet: %w", err)
	}
	dailyHeader := []any{"Date", "Units", "High Traffic"}
	if err := wb.SetSheetRow(dailySheet, "A1", &dailyHeader); err != nil {
		return fmt.Errorf("failed to write daily header: %w", err)
	}
	for i, d := range h.Daily {
		row := []any{d.Date, d.Units, d.HighTraffic}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := wb.SetSheetRow(dailySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write daily row: %w", err)
		}
	}

	tmpPath := path + ".tmp.xlsx"
	if err := wb.SaveAs(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename workbook: %w", err)
	}
	return nil
}
