package office

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// CreateXlsx writes a spreadsheet from a row-major grid. The first row is
// treated as a header and rendered bold.
func (w *Writer) CreateXlsx(path, sheetName string, data [][]any) (string, error) {
	p, err := resolvePath(path)
	if err != nil {
		return "", err
	}
	if sheetName == "" {
		sheetName = "Sheet1"
	}

	f := excelize.NewFile()
	defer f.Close()

	if sheetName != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheetName); err != nil {
			return "", fmt.Errorf("naming sheet %q: %w", sheetName, err)
		}
	}

	for ri, row := range data {
		for ci, val := range row {
			cell, err := excelize.CoordinatesToCellName(ci+1, ri+1)
			if err != nil {
				return "", fmt.Errorf("cell (%d,%d): %w", ri+1, ci+1, err)
			}
			if err := f.SetCellValue(sheetName, cell, val); err != nil {
				return "", fmt.Errorf("setting %s: %w", cell, err)
			}
		}
	}

	if len(data) > 0 && len(data[0]) > 0 {
		styleID, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return "", fmt.Errorf("creating header style: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(data[0]), 1)
		if err != nil {
			return "", err
		}
		if err := f.SetCellStyle(sheetName, "A1", last, styleID); err != nil {
			return "", fmt.Errorf("styling header row: %w", err)
		}
	}

	if err := f.SaveAs(p); err != nil {
		return "", fmt.Errorf("saving %s: %w", p, err)
	}

	w.logger.Info("spreadsheet written",
		zap.String("path", p),
		zap.Int("rows", len(data)),
	)
	return fmt.Sprintf("XLSX created: %s (%d rows)", p, len(data)), nil
}
