package services

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"casetrack/storage"
)

// ErrorRow is one rejected-or-flagged file row destined for the error
// artifact: the original raw cells plus the names of the fields that failed.
type ErrorRow struct {
	Raw    map[string]string
	Fields []string
}

// GenerateErrorArtifact renders the error rows into an xlsx mirroring the
// input schema, with an added ERROR_FIELDS column listing the failing field
// names per row, and stores it. No error rows means no artifact: the empty
// string comes back instead of an empty file.
func GenerateErrorArtifact(store storage.Store, fileName string, headers []string, rows []ErrorRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Errors"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DC2626"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	columns := append(append([]string{}, headers...), "ERROR_FIELDS")
	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)

		name, _ := excelize.ColumnNumberToName(i + 1)
		width := float64(len(h)) * 1.3
		if width < 14 {
			width = 14
		}
		f.SetColWidth(sheet, name, name, width)
	}

	for r, row := range rows {
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			f.SetCellValue(sheet, cell, row.Raw[h])
		}
		cell, _ := excelize.CoordinatesToCellName(len(headers)+1, r+2)
		f.SetCellValue(sheet, cell, strings.Join(row.Fields, ", "))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return "", fmt.Errorf("write error artifact: %w", err)
	}

	url, err := store.Save(errorArtifactName(fileName), buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("store error artifact: %w", err)
	}
	return url, nil
}

func errorArtifactName(fileName string) string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if base == "" {
		base = "batch"
	}
	return base + "_errors.xlsx"
}
