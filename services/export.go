package services

import (
	"bytes"
	"fmt"

	"github.com/pocketbase/pocketbase/core"
	"github.com/xuri/excelize/v2"
)

type exportColumn struct {
	header string
	width  float64
	value  func(rec *core.Record) string
}

// ExportBatchCases generates an .xlsx workbook with every case record
// belonging to the batch, ordered by loan account number.
func ExportBatchCases(app core.App, batch *core.Record) ([]byte, error) {
	records, err := app.FindRecordsByFilter(
		"case_records",
		"batch = {:batch}",
		"loan_account_number",
		0, 0,
		map[string]any{"batch": batch.Id},
	)
	if err != nil {
		return nil, fmt.Errorf("load case records: %w", err)
	}

	areaTitles := map[string]string{}
	cycleTitles := map[string]string{}

	columns := []exportColumn{
		{"Loan Account Number", 22, recField("loan_account_number")},
		{"CRN", 16, recField("crn")},
		{"Customer Name", 24, recField("customer_name")},
		{"Bucket", 10, recField("bucket")},
		{"Customer Phone", 16, recField("customer_phone")},
		{"Alternate Phone", 16, recField("alternate_phone")},
		{"Email", 26, recField("customer_email")},
		{"Residential Address", 40, recField("residential_address")},
		{"Residential Sub-area", 20, relTitle(app, areaTitles, "residential_sub_area", "areas")},
		{"Office Address", 40, recField("office_address")},
		{"Office Sub-area", 20, relTitle(app, areaTitles, "office_sub_area", "areas")},
		{"Loan Product", 18, recField("loan_product")},
		{"Branch", 16, recField("branch_name")},
		{"Total Loan Amount", 18, recField("total_loan_amount")},
		{"POS Value", 16, recField("pos_value")},
		{"EMI Amount", 14, recField("emi_amount")},
		{"Minimum Due", 14, recField("minimum_due_amount")},
		{"Penalty", 12, recField("penalty_amount")},
		{"Late Fee", 12, recField("late_fee")},
		{"Late Charges", 12, recField("late_charges")},
		{"Last Payment Amount", 14, recField("last_payment_amount")},
		{"Tenure", 10, recField("tenure")},
		{"EMIs Paid", 10, recField("emis_paid")},
		{"DPD", 8, recField("dpd")},
		{"Loan Disbursement Date", 20, recField("loan_disbursement_date")},
		{"Last Payment Date", 18, recField("last_payment_date")},
		{"Monthly Cycle", 14, relTitle(app, cycleTitles, "monthly_cycle", "monthly_cycles")},
		{"Status", 10, recField("field_mapping_status")},
		{"Error Message", 40, recField("error_message")},
		{"Risk", 10, recField("risk")},
		{"Risk Points", 12, recField("risk_points")},
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Cases"
	f.SetSheetName(f.GetSheetName(0), sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, col := range columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s1", name)
		f.SetCellValue(sheetName, cell, col.header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
		f.SetColWidth(sheetName, name, name, col.width)
	}

	for rowIdx, rec := range records {
		for colIdx, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, col.value(rec))
		}
	}

	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write case export: %w", err)
	}
	return buf.Bytes(), nil
}

func recField(name string) func(rec *core.Record) string {
	return func(rec *core.Record) string {
		return rec.GetString(name)
	}
}

// relTitle resolves a relation field to the target record's title,
// memoizing lookups across rows.
func relTitle(app core.App, cache map[string]string, field, collection string) func(rec *core.Record) string {
	return func(rec *core.Record) string {
		id := rec.GetString(field)
		if id == "" {
			return ""
		}
		if title, ok := cache[id]; ok {
			return title
		}
		target, err := app.FindRecordById(collection, id)
		if err != nil {
			cache[id] = ""
			return ""
		}
		title := target.GetString("title")
		cache[id] = title
		return title
	}
}
