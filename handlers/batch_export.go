package handlers

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"casetrack/services"
)

// HandleBatchExportExcel exports all case records of a batch as an Excel file.
// Route: GET /api/collections-app/batches/{batchId}/export
func HandleBatchExportExcel(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		batch, ok := findBatch(app, e)
		if !ok {
			return nil
		}

		xlsxBytes, err := services.ExportBatchCases(app, batch)
		if err != nil {
			log.Printf("batch_export: generate failed: %v", err)
			return e.String(http.StatusInternalServerError, "Failed to generate Excel file")
		}

		base := strings.TrimSuffix(batch.GetString("file_name"), filepath.Ext(batch.GetString("file_name")))
		filename := fmt.Sprintf("%s_cases.xlsx", sanitizeFilename(base))

		e.Response.Header().Set("Content-Type",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		e.Response.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="%s"`, filename))
		e.Response.Write(xlsxBytes)
		return nil
	}
}

// HandleBatchSummaryPDF renders a batch's aggregates as a PDF report.
// Route: GET /api/collections-app/batches/{batchId}/summary.pdf
func HandleBatchSummaryPDF(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		batch, ok := findBatch(app, e)
		if !ok {
			return nil
		}

		summary, err := services.BuildBatchSummary(app, batch)
		if err != nil {
			log.Printf("batch_summary: aggregate failed: %v", err)
			return e.String(http.StatusInternalServerError, "Failed to build summary")
		}

		pdfBytes, err := services.GenerateBatchSummaryPDF(summary)
		if err != nil {
			log.Printf("batch_summary: generate failed: %v", err)
			return e.String(http.StatusInternalServerError, "Failed to generate PDF")
		}

		base := strings.TrimSuffix(batch.GetString("file_name"), filepath.Ext(batch.GetString("file_name")))
		filename := fmt.Sprintf("%s_summary.pdf", sanitizeFilename(base))

		e.Response.Header().Set("Content-Type", "application/pdf")
		e.Response.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="%s"`, filename))
		e.Response.Write(pdfBytes)
		return nil
	}
}
