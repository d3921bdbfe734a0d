package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"casetrack/testhelpers"
)

func TestHandleTemplateCreate_UnknownField(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	assignment := testhelpers.CreateTestAssignment(t, app, "Tele Calling", "Personal Loan")
	handler := HandleTemplateCreate(app)

	body := fmt.Sprintf(`{"product_assignment": %q, "name": "Bad Template", "fields": [
		{"field_name": "LOAN_ACCOUNT_NUMBER", "required": true},
		{"field_name": "SHOE_SIZE", "required": false}
	]}`, assignment.Id)
	req := httptest.NewRequest(http.MethodPost, "/api/collections-app/templates", strings.NewReader(body))
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
	var resp map[string]any
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["error_key"] != "unknown_field" {
		t.Errorf("error_key = %v", resp["error_key"])
	}
}

func TestHandleTemplateCreate_DuplicateField(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	assignment := testhelpers.CreateTestAssignment(t, app, "Tele Calling", "Personal Loan")
	handler := HandleTemplateCreate(app)

	body := fmt.Sprintf(`{"product_assignment": %q, "name": "Doubled", "fields": [
		{"field_name": "LOAN_ACCOUNT_NUMBER", "required": true},
		{"field_name": "CUSTOMER_NAME", "required": true},
		{"field_name": "CUSTOMER_NAME", "required": false}
	]}`, assignment.Id)
	req := httptest.NewRequest(http.MethodPost, "/api/collections-app/templates", strings.NewReader(body))
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
	var resp map[string]any
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["error_key"] != "duplicate_field" {
		t.Errorf("error_key = %v", resp["error_key"])
	}

	templates, _ := app.FindRecordsByFilter("field_mapping_templates", "name = 'Doubled'", "", 1, 0, nil)
	if len(templates) != 0 {
		t.Error("rejected payload must not create a template")
	}
}

func TestHandleTemplateCreate_AccountFieldMustBeRequired(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	assignment := testhelpers.CreateTestAssignment(t, app, "Tele Calling", "Personal Loan")
	handler := HandleTemplateCreate(app)

	body := fmt.Sprintf(`{"product_assignment": %q, "name": "No Account", "fields": [
		{"field_name": "LOAN_ACCOUNT_NUMBER", "required": false},
		{"field_name": "CUSTOMER_NAME", "required": true}
	]}`, assignment.Id)
	req := httptest.NewRequest(http.MethodPost, "/api/collections-app/templates", strings.NewReader(body))
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
	var resp map[string]any
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["error_key"] != "account_field_missing" {
		t.Errorf("error_key = %v", resp["error_key"])
	}
}

func TestHandleTemplateCreate_AssignmentNotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	handler := HandleTemplateCreate(app)

	body := `{"product_assignment": "missing", "name": "Orphan", "fields": [
		{"field_name": "LOAN_ACCOUNT_NUMBER", "required": true}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/collections-app/templates", strings.NewReader(body))
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleTemplateCreate_Valid(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	assignment := testhelpers.CreateTestAssignment(t, app, "Tele Calling", "Personal Loan")
	handler := HandleTemplateCreate(app)

	body := fmt.Sprintf(`{"product_assignment": %q, "name": "March Template", "is_default": true, "fields": [
		{"field_name": "LOAN_ACCOUNT_NUMBER", "label": "Account No", "required": true},
		{"field_name": "CUSTOMER_NAME", "required": true},
		{"field_name": "LAST_PAYMENT_DATE", "required": false, "date_format": "02.01.2006"}
	]}`, assignment.Id)
	req := httptest.NewRequest(http.MethodPost, "/api/collections-app/templates", strings.NewReader(body))
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "draft" {
		t.Errorf("status = %v, want draft", resp["status"])
	}
	templateID, _ := resp["id"].(string)
	if templateID == "" {
		t.Fatal("no template id in response")
	}

	mappings, err := app.FindRecordsByFilter("field_mappings",
		"template = {:template}", "sort_order", 0, 0, map[string]any{"template": templateID})
	if err != nil || len(mappings) != 3 {
		t.Fatalf("expected 3 mappings, got %d (err %v)", len(mappings), err)
	}
	if mappings[0].GetString("field_name") != "LOAN_ACCOUNT_NUMBER" ||
		mappings[0].GetString("label") != "Account No" {
		t.Errorf("first mapping = %s / %s",
			mappings[0].GetString("field_name"), mappings[0].GetString("label"))
	}
	if mappings[2].GetString("date_format") != "02.01.2006" {
		t.Errorf("date_format = %q", mappings[2].GetString("date_format"))
	}
}

func TestHandleTemplateSubmit_ClearsPreviousDefault(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	assignment := testhelpers.CreateTestAssignment(t, app, "Tele Calling", "Personal Loan")
	first := testhelpers.CreateTestTemplate(t, app, assignment.Id, []testhelpers.TemplateFieldDef{
		{Name: "LOAN_ACCOUNT_NUMBER", Required: true},
	})

	second := testhelpers.CreateRecord(t, app, "field_mapping_templates", map[string]any{
		"product_assignment": assignment.Id,
		"name":               "Second Template",
		"status":             "draft",
	})

	handler := HandleTemplateSubmit(app)
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/collections-app/templates/%s/submit", second.Id),
		strings.NewReader(`{"is_default": true}`))
	req.SetPathValue("templateId", second.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "submitted" || resp["is_default"] != true {
		t.Errorf("response = %v", resp)
	}

	reloaded, err := app.FindRecordById("field_mapping_templates", first.Id)
	if err != nil {
		t.Fatalf("failed to reload first template: %v", err)
	}
	if reloaded.GetBool("is_default") {
		t.Error("previous default must be cleared")
	}
}

func TestHandleTemplateSubmit_NotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	handler := HandleTemplateSubmit(app)

	req := httptest.NewRequest(http.MethodPost, "/api/collections-app/templates/missing/submit", strings.NewReader(`{}`))
	req.SetPathValue("templateId", "missing")
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleTemplateList(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	assignment := testhelpers.CreateTestAssignment(t, app, "Tele Calling", "Personal Loan")
	testhelpers.CreateTestTemplate(t, app, assignment.Id, []testhelpers.TemplateFieldDef{
		{Name: "LOAN_ACCOUNT_NUMBER", Required: true},
		{Name: "CUSTOMER_NAME", Required: false},
	})

	handler := HandleTemplateList(app)
	req := httptest.NewRequest(http.MethodGet,
		"/api/collections-app/templates?assignment="+assignment.Id, nil)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Items []struct {
			Name   string           `json:"name"`
			Status string           `json:"status"`
			Fields []map[string]any `json:"fields"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 template, got %d", len(resp.Items))
	}
	if resp.Items[0].Status != "submitted" || len(resp.Items[0].Fields) != 2 {
		t.Errorf("item = %+v", resp.Items[0])
	}
}

func TestHandleTemplateList_MissingAssignment(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	handler := HandleTemplateList(app)

	req := httptest.NewRequest(http.MethodGet, "/api/collections-app/templates", nil)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
