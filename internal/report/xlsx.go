package report

import (
	"fmt"
	"io"

	"github.com/tomorrownow/PyFCM/internal/sensitivity"
	"github.com/xuri/excelize/v2"
)

// SensitivitySheet is the sheet name used by WriteSensitivityXLSX.
const SensitivitySheet = "Sensitivity"

// WriteSensitivityXLSX writes r as a single-sheet workbook with the same
// layout as WriteSensitivityCSV.
func WriteSensitivityXLSX(w io.Writer, r *sensitivity.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SensitivitySheet); err != nil {
		return fmt.Errorf("report: rename sheet: %w", err)
	}

	header := make([]any, 0, len(r.Series)+1)
	header = append(header, "level")
	for _, s := range r.Series {
		header = append(header, SeriesName(s))
	}
	if err := f.SetSheetRow(SensitivitySheet, "A1", &header); err != nil {
		return fmt.Errorf("report: write header: %w", err)
	}

	for li, level := range r.Levels {
		row := make([]any, 0, len(r.Series)+1)
		row = append(row, level)
		for _, s := range r.Series {
			row = append(row, s.Deltas[li])
		}
		cell, err := excelize.CoordinatesToCellName(1, li+2)
		if err != nil {
			return fmt.Errorf("report: cell name: %w", err)
		}
		if err := f.SetSheetRow(SensitivitySheet, cell, &row); err != nil {
			return fmt.Errorf("report: write level %g: %w", level, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("report: write xlsx: %w", err)
	}
	return nil
}
