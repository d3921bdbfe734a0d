package collections_test

import (
	"testing"

	"casetrack/collections"
	"casetrack/testhelpers"

	"github.com/pocketbase/pocketbase/core"
)

// expectedCollections is the full list of collections that Setup() must create.
var expectedCollections = []string{
	"processes",
	"products",
	"product_assignments",
	"monthly_cycles",
	"field_mapping_templates",
	"field_mappings",
	"regions",
	"zones",
	"cities",
	"pincodes",
	"areas",
	"allocation_batches",
	"case_records",
	"activity_logs",
}

func TestSetup_AllCollectionsExist(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	for _, name := range expectedCollections {
		col, err := app.FindCollectionByNameOrId(name)
		if err != nil {
			t.Errorf("collection %q not found after Setup(): %v", name, err)
			continue
		}
		if col.Name != name {
			t.Errorf("expected collection name %q, got %q", name, col.Name)
		}
	}
}

func TestSetup_Idempotent(t *testing.T) {
	app := testhelpers.NewTestApp(t) // Setup() already called once via NewTestApp

	ids := make(map[string]string)
	for _, name := range expectedCollections {
		col, _ := app.FindCollectionByNameOrId(name)
		ids[name] = col.Id
	}

	collections.Setup(app)

	for _, name := range expectedCollections {
		col, err := app.FindCollectionByNameOrId(name)
		if err != nil {
			t.Errorf("collection %q missing after second Setup(): %v", name, err)
			continue
		}
		if col.Id != ids[name] {
			t.Errorf("collection %q recreated: id %q -> %q", name, ids[name], col.Id)
		}
	}
}

func TestSetup_CaseRecordStatusValues(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	col, err := app.FindCollectionByNameOrId("case_records")
	if err != nil {
		t.Fatalf("case_records: %v", err)
	}

	status, ok := col.Fields.GetByName("field_mapping_status").(*core.SelectField)
	if !ok {
		t.Fatal("field_mapping_status is not a select field")
	}
	if len(status.Values) != 2 || status.Values[0] != "ERROR" || status.Values[1] != "SAVED" {
		t.Errorf("status values = %v", status.Values)
	}

	risk, ok := col.Fields.GetByName("risk").(*core.SelectField)
	if !ok {
		t.Fatal("risk is not a select field")
	}
	if risk.Required {
		t.Error("risk must stay optional so no-data cases can stay empty")
	}
}

func TestSetup_BatchStatusValues(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	col, err := app.FindCollectionByNameOrId("allocation_batches")
	if err != nil {
		t.Fatalf("allocation_batches: %v", err)
	}

	status, ok := col.Fields.GetByName("status").(*core.SelectField)
	if !ok {
		t.Fatal("status is not a select field")
	}
	want := []string{"uploaded", "in_process", "closed"}
	if len(status.Values) != len(want) {
		t.Fatalf("status values = %v", status.Values)
	}
	for i, v := range want {
		if status.Values[i] != v {
			t.Errorf("status value %d = %q, want %q", i, status.Values[i], v)
		}
	}
}
