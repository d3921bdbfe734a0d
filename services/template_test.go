package services

import (
	"errors"
	"testing"

	"casetrack/testhelpers"
)

func TestResolveTemplate(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	assignment := testhelpers.CreateTestAssignment(t, app, "Tele Calling", "Personal Loan")
	testhelpers.CreateTestTemplate(t, app, assignment.Id, []testhelpers.TemplateFieldDef{
		{Name: FieldLoanAccount, Required: true},
		{Name: FieldCustomerName, Required: true},
		{Name: FieldCustomerEmail},
	})

	tpl, err := ResolveTemplate(app, "Tele Calling", "Personal Loan")
	if err != nil {
		t.Fatalf("ResolveTemplate: %v", err)
	}

	if tpl.AssignmentID != assignment.Id {
		t.Errorf("assignment = %q, want %q", tpl.AssignmentID, assignment.Id)
	}
	if len(tpl.Fields) != 3 {
		t.Fatalf("fields = %d, want 3", len(tpl.Fields))
	}
	if tpl.Fields[0].Spec.Name != FieldLoanAccount {
		t.Errorf("first field = %q, sort order not honored", tpl.Fields[0].Spec.Name)
	}
	if !tpl.RequiredFields()[FieldCustomerName] {
		t.Error("required flag lost")
	}
	if f, ok := tpl.Field(FieldCustomerEmail); !ok || f.Required {
		t.Errorf("email field = %+v, %v", f, ok)
	}
}

func TestResolveTemplateMisses(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	assignment := testhelpers.CreateTestAssignment(t, app, "Tele Calling", "Personal Loan")

	// Draft templates never resolve, even as default.
	draft := testhelpers.CreateRecord(t, app, "field_mapping_templates", map[string]any{
		"product_assignment": assignment.Id,
		"name":               "Draft Only",
		"is_default":         true,
		"status":             "draft",
	})
	testhelpers.CreateRecord(t, app, "field_mappings", map[string]any{
		"template": draft.Id, "field_name": FieldLoanAccount, "required": true, "sort_order": 1,
	})

	tests := []struct {
		name    string
		process string
		product string
	}{
		{"unknown process", "Field Visit", "Personal Loan"},
		{"unknown product", "Tele Calling", "Gold Loan"},
		{"no submitted default", "Tele Calling", "Personal Loan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveTemplate(app, tt.process, tt.product)
			if !errors.Is(err, ErrTemplateNotFound) {
				t.Fatalf("err = %v, want ErrTemplateNotFound", err)
			}
		})
	}
}

func TestResolveTemplateIgnoresInactive(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	process := testhelpers.CreateRecord(t, app, "processes", map[string]any{
		"title": "Tele Calling", "active": false,
	})
	product := testhelpers.CreateRecord(t, app, "products", map[string]any{
		"title": "Personal Loan", "active": true,
	})
	testhelpers.CreateRecord(t, app, "product_assignments", map[string]any{
		"process": process.Id, "product": product.Id, "allocation_percent": 100, "active": true,
	})

	_, err := ResolveTemplate(app, "Tele Calling", "Personal Loan")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("err = %v, want ErrTemplateNotFound for inactive process", err)
	}
}

func TestEnsureSingleDefault(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	assignment := testhelpers.CreateTestAssignment(t, app, "Tele Calling", "Personal Loan")
	first := testhelpers.CreateTestTemplate(t, app, assignment.Id, []testhelpers.TemplateFieldDef{
		{Name: FieldLoanAccount, Required: true},
	})

	second := testhelpers.CreateRecord(t, app, "field_mapping_templates", map[string]any{
		"product_assignment": assignment.Id,
		"name":               "Second Template",
		"is_default":         true,
		"status":             "submitted",
	})

	if err := EnsureSingleDefault(app, second); err != nil {
		t.Fatalf("EnsureSingleDefault: %v", err)
	}

	reloaded, err := app.FindRecordById("field_mapping_templates", first.Id)
	if err != nil {
		t.Fatalf("reload first: %v", err)
	}
	if reloaded.GetBool("is_default") {
		t.Error("first template still default")
	}
	if !second.GetBool("is_default") {
		t.Error("second template lost its default flag")
	}
}
