package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"labsight/internal/domain"
)

const markerSheet = "Markers"

// markersXLSX renders the result's markers as an XLSX workbook with a single
// Markers sheet mirroring the CSV layout.
func markersXLSX(result *domain.AnalysisResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(markerSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	for i, h := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(markerSheet, cell, h); err != nil {
			return nil, err
		}
	}

	for r := range result.Markers {
		row := markerToRow(&result.Markers[r])
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(markerSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	// Widen the name and range columns so values are readable without resizing.
	_ = f.SetColWidth(markerSheet, "A", "A", 28)
	_ = f.SetColWidth(markerSheet, "D", "D", 22)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
