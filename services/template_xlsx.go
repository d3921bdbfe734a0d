package services

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// GenerateUploadTemplate creates a downloadable .xlsx template for the
// resolved (process, product) field contract. Required columns get the " *"
// marker and a highlighted header; a hidden Instructions sheet describes
// each field's type and format.
func GenerateUploadTemplate(tpl *ResolvedTemplate) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Cases"
	f.SetSheetName(f.GetSheetName(0), sheetName)

	requiredHeaderStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1D4ED8"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	optionalHeaderStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#6B7280"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})

	for i, field := range tpl.Fields {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s1", col)

		headerText := field.Label
		if field.Required {
			headerText += " *"
		}
		f.SetCellValue(sheetName, cell, headerText)

		if field.Required {
			f.SetCellStyle(sheetName, cell, cell, requiredHeaderStyle)
		} else {
			f.SetCellStyle(sheetName, cell, cell, optionalHeaderStyle)
		}

		width := float64(len(field.Label)) * 1.3
		if width < 15 {
			width = 15
		}
		f.SetColWidth(sheetName, col, col, width)
	}

	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	addInstructionsSheet(f, tpl)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write upload template: %w", err)
	}
	return buf.Bytes(), nil
}

// addInstructionsSheet creates a hidden sheet describing each field.
func addInstructionsSheet(f *excelize.File, tpl *ResolvedTemplate) {
	instSheet := "Instructions"
	f.NewSheet(instSheet)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E5E7EB"}, Pattern: 1},
	})

	f.SetCellValue(instSheet, "A1",
		fmt.Sprintf("%s / %s Case Upload - Instructions", tpl.ProcessTitle, tpl.ProductTitle))
	f.SetCellStyle(instSheet, "A1", "A1", titleStyle)

	headers := []string{"Field Name", "Required?", "Expected Value"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		f.SetCellValue(instSheet, cell, h)
		f.SetCellStyle(instSheet, cell, cell, headerStyle)
	}

	for i, field := range tpl.Fields {
		row := i + 4
		reqLabel := "Optional"
		if field.Required {
			reqLabel = "Required"
		}
		f.SetCellValue(instSheet, fmt.Sprintf("A%d", row), field.Label)
		f.SetCellValue(instSheet, fmt.Sprintf("B%d", row), reqLabel)
		f.SetCellValue(instSheet, fmt.Sprintf("C%d", row), describeFieldType(field))
	}

	widths := []float64{26, 12, 50}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(instSheet, col, col, w)
	}

	f.SetSheetVisible(instSheet, false)
}

// describeFieldType renders a field's constraint bundle for the uploader.
func describeFieldType(field MappedField) string {
	switch t := field.Spec.Type.(type) {
	case TextType:
		switch t.Format {
		case FormatEmail:
			return "Email address"
		case FormatPhone:
			return "10-digit mobile number starting with 6-9"
		default:
			return fmt.Sprintf("Text, up to %d characters", t.MaxLen)
		}
	case IntegerType:
		return "Whole number"
	case DecimalType:
		return fmt.Sprintf("Amount, up to %d digits with %d decimal places",
			t.MaxDigits, t.DecimalPlaces)
	case DateType:
		if field.DateFormat != "" {
			return "Date in format " + field.DateFormat
		}
		return "Date (YYYY-MM-DD preferred)"
	case ReferenceType:
		switch t.LookupKey {
		case LookupCycle:
			return "A configured monthly cycle title"
		case LookupPincode:
			return "A configured pincode"
		}
	}
	return ""
}
