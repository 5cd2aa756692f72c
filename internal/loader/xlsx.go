package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tomorrownow/PyFCM/internal/fcm"
	"github.com/xuri/excelize/v2"
)

// LoadXLSX reads a map from an XLSX workbook, using the first sheet unless
// WithSheet names another.
func LoadXLSX(path string, opts ...Option) (*fcm.Map, error) {
	o := buildOptions(opts)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer f.Close()

	sheet := o.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("loader: %s has no sheets: %w", path, fcm.ErrInvalidArgument)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("loader: read sheet %q of %s: %w", sheet, path, err)
	}
	source := fmt.Sprintf("%s[%s]", path, sheet)
	if len(rows) == 0 || len(rows[0]) < 2 {
		return nil, fmt.Errorf("loader: %s has no concept header: %w", source, fcm.ErrInvalidArgument)
	}

	header := rows[0]
	n := len(header) - 1
	t := &table{header: header[1:]}
	for r, row := range rows[1:] {
		if allBlank(row) {
			continue
		}
		if len(row) > len(header) {
			return nil, fmt.Errorf("loader: %s row %d has %d cells, header has %d: %w",
				source, r+2, len(row), len(header), fcm.ErrInvalidArgument)
		}
		t.labels = append(t.labels, row[0])
		weights := make([]float64, n)
		// GetRows trims trailing empty cells, so short rows are zero-padded.
		for c := 1; c < len(row); c++ {
			cell := strings.TrimSpace(row[c])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("loader: %s row %q column %q: %q is not a number: %w",
					source, row[0], header[c], cell, fcm.ErrInvalidArgument)
			}
			weights[c-1] = v
		}
		t.rows = append(t.rows, weights)
	}

	return t.toMap(o, source)
}

func allBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
