package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/xuri/excelize/v2"

	"casetrack/testhelpers"
)

func createExportBatch(t *testing.T, app *pocketbase.PocketBase) *core.Record {
	t.Helper()

	cycle := testhelpers.CreateTestCycle(t, app, "30 Day", 30)
	assignment := testhelpers.CreateTestAssignment(t, app, "Tele Calling", "Personal Loan")
	batch := testhelpers.CreateRecord(t, app, "allocation_batches", map[string]any{
		"file_name":          "march_cases.csv",
		"file_url":           "http://example.com/march_cases.csv",
		"monthly_cycle":      cycle.Id,
		"product_assignment": assignment.Id,
		"total_records":      1,
		"valid_records":      1,
		"status":             "in_process",
	})
	testhelpers.CreateRecord(t, app, "case_records", map[string]any{
		"batch":                batch.Id,
		"loan_account_number":  "LN-1",
		"customer_name":        "Asha Verma",
		"total_loan_amount":    "150000",
		"pos_value":            "120000",
		"field_mapping_status": "SAVED",
		"risk":                 "HIGH",
		"risk_points":          9,
	})
	return batch
}

func TestHandleBatchExportExcel_NotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	handler := HandleBatchExportExcel(app)

	req := httptest.NewRequest(http.MethodGet, "/api/collections-app/batches/missing/export", nil)
	req.SetPathValue("batchId", "missing")
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleBatchExportExcel_Valid(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	batch := createExportBatch(t, app)
	handler := HandleBatchExportExcel(app)

	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/collections-app/batches/%s/export", batch.Id), nil)
	req.SetPathValue("batchId", batch.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "march_cases_cases.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a valid xlsx: %v", err)
	}
	defer wb.Close()
	rows, err := wb.GetRows("Cases")
	if err != nil {
		t.Fatalf("missing Cases sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 data row, got %d", len(rows))
	}
	if rows[1][0] != "LN-1" {
		t.Errorf("first data cell = %q", rows[1][0])
	}
}

func TestHandleBatchSummaryPDF_NotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	handler := HandleBatchSummaryPDF(app)

	req := httptest.NewRequest(http.MethodGet, "/api/collections-app/batches/missing/summary.pdf", nil)
	req.SetPathValue("batchId", "missing")
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleBatchSummaryPDF_Valid(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	batch := createExportBatch(t, app)
	handler := HandleBatchSummaryPDF(app)

	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/collections-app/batches/%s/summary.pdf", batch.Id), nil)
	req.SetPathValue("batchId", batch.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "march_cases_summary.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("response body is not a PDF")
	}
}
