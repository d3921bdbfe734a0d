package services

import (
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	mcore "github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// BatchSummary holds the aggregates rendered into the batch summary PDF.
type BatchSummary struct {
	FileName     string
	ProcessTitle string
	ProductTitle string
	CycleTitle   string
	Status       string
	ExpiryDate   string
	CreatedDate  string

	TotalRecords     int
	ValidRecords     int
	ErrorRecords     int
	DuplicateRecords int

	TotalOutstanding decimal.Decimal
	TotalPOS         decimal.Decimal

	RiskCounts map[string]int
}

// BuildBatchSummary aggregates a batch's case records for the PDF report.
func BuildBatchSummary(app core.App, batch *core.Record) (*BatchSummary, error) {
	summary := &BatchSummary{
		FileName:         batch.GetString("file_name"),
		Status:           batch.GetString("status"),
		TotalRecords:     batch.GetInt("total_records"),
		ValidRecords:     batch.GetInt("valid_records"),
		ErrorRecords:     batch.GetInt("error_records"),
		DuplicateRecords: batch.GetInt("duplicate_records"),
		RiskCounts:       map[string]int{},
		CreatedDate:      batch.GetDateTime("created").Time().Format("02 Jan 2006"),
	}

	expiry := batch.GetDateTime("expiry_date").Time()
	if expiry.Year() >= indefiniteExpiry.Year() {
		summary.ExpiryDate = "Indefinite"
	} else {
		summary.ExpiryDate = expiry.Format("02 Jan 2006")
	}

	if cycleID := batch.GetString("monthly_cycle"); cycleID != "" {
		if cycle, err := app.FindRecordById("monthly_cycles", cycleID); err == nil {
			summary.CycleTitle = cycle.GetString("title")
		}
	}
	if assignmentID := batch.GetString("product_assignment"); assignmentID != "" {
		process, product, err := assignmentTitles(app, assignmentID)
		if err == nil {
			summary.ProcessTitle = process
			summary.ProductTitle = product
		}
	}

	records, err := app.FindRecordsByFilter(
		"case_records",
		"batch = {:batch}",
		"", 0, 0,
		map[string]any{"batch": batch.Id},
	)
	if err != nil {
		return nil, fmt.Errorf("load case records: %w", err)
	}

	for _, rec := range records {
		if amt, err := decimal.NewFromString(rec.GetString("total_loan_amount")); err == nil {
			summary.TotalOutstanding = summary.TotalOutstanding.Add(amt)
		}
		if pos, err := decimal.NewFromString(rec.GetString("pos_value")); err == nil {
			summary.TotalPOS = summary.TotalPOS.Add(pos)
		}
		if tier := rec.GetString("risk"); tier != "" {
			summary.RiskCounts[tier]++
		}
	}

	return summary, nil
}

// GenerateBatchSummaryPDF renders the batch summary report using maroto/v2.
func GenerateBatchSummaryPDF(summary *BatchSummary) ([]byte, error) {
	cfg := config.NewBuilder().
		WithOrientation(orientation.Vertical).
		WithPageSize(pagesize.A4).
		WithLeftMargin(12).
		WithTopMargin(12).
		WithRightMargin(12).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		}).
		Build()

	m := maroto.New(cfg)

	addSummaryHeader(m, summary)
	addCountsSection(m, summary)
	addAmountsSection(m, summary)
	addRiskSection(m, summary)
	addSummaryFooter(m)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func addSummaryHeader(m mcore.Maroto, summary *BatchSummary) {
	m.AddRows(
		row.New(12).Add(
			col.New(12).Add(
				text.New("Allocation Batch Summary", props.Text{
					Size:  16,
					Style: fontstyle.Bold,
					Align: align.Center,
				}),
			),
		),
	)

	grayText := props.Text{
		Size:  9,
		Align: align.Left,
		Color: &props.Color{Red: 80, Green: 80, Blue: 80},
	}
	grayTextRight := grayText
	grayTextRight.Align = align.Right

	m.AddRows(
		row.New(7).Add(
			col.New(6).Add(
				text.New(fmt.Sprintf("File: %s", summary.FileName), grayText),
			),
			col.New(6).Add(
				text.New(fmt.Sprintf("Uploaded: %s", summary.CreatedDate), grayTextRight),
			),
		),
		row.New(7).Add(
			col.New(6).Add(
				text.New(fmt.Sprintf("Process: %s / %s", summary.ProcessTitle, summary.ProductTitle), grayText),
			),
			col.New(6).Add(
				text.New(fmt.Sprintf("Cycle: %s (expires %s)", summary.CycleTitle, summary.ExpiryDate), grayTextRight),
			),
		),
		row.New(7).Add(
			col.New(12).Add(
				text.New(fmt.Sprintf("Status: %s", summary.Status), grayText),
			),
		),
		row.New(4),
	)
}

func addCountsSection(m mcore.Maroto, summary *BatchSummary) {
	addSectionTitle(m, "Record Counts")

	counts := []struct {
		label string
		value int
	}{
		{"Total Records", summary.TotalRecords},
		{"Valid Records", summary.ValidRecords},
		{"Error Records", summary.ErrorRecords},
		{"Duplicates In Other Batches", summary.DuplicateRecords},
	}

	for _, c := range counts {
		addSummaryLine(m, c.label, fmt.Sprintf("%d", c.value))
	}
}

func addAmountsSection(m mcore.Maroto, summary *BatchSummary) {
	m.AddRows(row.New(4))
	addSectionTitle(m, "Portfolio Amounts")
	addSummaryLine(m, "Total Loan Amount", FormatINR(summary.TotalOutstanding))
	addSummaryLine(m, "Total POS Value", FormatINR(summary.TotalPOS))
}

func addRiskSection(m mcore.Maroto, summary *BatchSummary) {
	m.AddRows(row.New(4))
	addSectionTitle(m, "Risk Distribution")

	tiers := []string{RiskCritical, RiskHigh, RiskMedium, RiskLow}
	for _, tier := range tiers {
		addSummaryLine(m, tier, fmt.Sprintf("%d", summary.RiskCounts[tier]))
	}
}

func addSectionTitle(m mcore.Maroto, title string) {
	headerBg := &props.Color{Red: 33, Green: 37, Blue: 41}
	headerCell := props.Cell{BackgroundColor: headerBg}

	m.AddRows(
		row.New(8).Add(
			col.New(12).Add(
				text.New(title, props.Text{
					Size:  9,
					Style: fontstyle.Bold,
					Align: align.Left,
					Color: &props.Color{Red: 255, Green: 255, Blue: 255},
				}),
			).WithStyle(&headerCell),
		),
	)
}

func addSummaryLine(m mcore.Maroto, label, value string) {
	lineBg := &props.Color{Red: 245, Green: 245, Blue: 245}
	lineCell := props.Cell{BackgroundColor: lineBg}

	m.AddRows(
		row.New(7).Add(
			col.New(8).Add(
				text.New(label, props.Text{Size: 9, Align: align.Left}),
			).WithStyle(&lineCell),
			col.New(4).Add(
				text.New(value, props.Text{Size: 9, Align: align.Right, Style: fontstyle.Bold}),
			).WithStyle(&lineCell),
		),
	)
}

func addSummaryFooter(m mcore.Maroto) {
	m.AddRows(row.New(6))
	m.AddRows(
		row.New(6).Add(
			col.New(12).Add(
				text.New(
					fmt.Sprintf("Generated on %s", time.Now().Format("02 Jan 2006 15:04")),
					props.Text{
						Size:  7,
						Align: align.Left,
						Color: &props.Color{Red: 140, Green: 140, Blue: 140},
					},
				),
			),
		),
	)
}
