// Package testhelpers provides utilities for testing PocketBase-based applications.
package testhelpers

import (
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"casetrack/collections"
)

// NewTestApp creates a PocketBase instance backed by a temporary directory.
// It bootstraps the app and runs collections.Setup to create all tables.
// The temporary directory is cleaned up automatically when the test finishes.
func NewTestApp(t *testing.T) *pocketbase.PocketBase {
	t.Helper()

	tmpDir := t.TempDir()
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: tmpDir,
	})

	if err := app.Bootstrap(); err != nil {
		t.Fatalf("failed to bootstrap test app: %v", err)
	}

	collections.Setup(app)

	return app
}

// CreateRecord saves a record with the given fields and returns it.
func CreateRecord(t *testing.T, app *pocketbase.PocketBase, collection string, fields map[string]any) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId(collection)
	if err != nil {
		t.Fatalf("failed to find %s collection: %v", collection, err)
	}
	record := core.NewRecord(col)
	for k, v := range fields {
		record.Set(k, v)
	}
	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save %s record: %v", collection, err)
	}
	return record
}

// CreateTestAssignment creates an active process, product and their
// assignment, returning the assignment record.
func CreateTestAssignment(t *testing.T, app *pocketbase.PocketBase, processTitle, productTitle string) *core.Record {
	t.Helper()

	process := CreateRecord(t, app, "processes", map[string]any{
		"title": processTitle, "active": true,
	})
	product := CreateRecord(t, app, "products", map[string]any{
		"title": productTitle, "active": true,
	})
	return CreateRecord(t, app, "product_assignments", map[string]any{
		"process":            process.Id,
		"product":            product.Id,
		"allocation_percent": 100,
		"active":             true,
	})
}

// TemplateFieldDef declares one mapping of a test template.
type TemplateFieldDef struct {
	Name     string
	Required bool
}

// CreateTestTemplate creates a submitted default template with the given
// field mappings for an assignment.
func CreateTestTemplate(t *testing.T, app *pocketbase.PocketBase, assignmentID string, fields []TemplateFieldDef) *core.Record {
	t.Helper()

	template := CreateRecord(t, app, "field_mapping_templates", map[string]any{
		"product_assignment": assignmentID,
		"name":               "Test Template",
		"is_default":         true,
		"status":             "submitted",
	})
	for i, f := range fields {
		CreateRecord(t, app, "field_mappings", map[string]any{
			"template":   template.Id,
			"field_name": f.Name,
			"required":   f.Required,
			"sort_order": i + 1,
		})
	}
	return template
}

// CreateTestCycle creates a monthly cycle.
func CreateTestCycle(t *testing.T, app *pocketbase.PocketBase, title string, days int) *core.Record {
	t.Helper()
	return CreateRecord(t, app, "monthly_cycles", map[string]any{
		"title": title,
		"days":  days,
	})
}

// CreateTestArea creates a full region -> area chain and returns the area.
func CreateTestArea(t *testing.T, app *pocketbase.PocketBase, pincode, areaTitle string) *core.Record {
	t.Helper()

	region := CreateRecord(t, app, "regions", map[string]any{"title": "Region " + areaTitle})
	zone := CreateRecord(t, app, "zones", map[string]any{"region": region.Id, "title": "Zone " + areaTitle})
	city := CreateRecord(t, app, "cities", map[string]any{"zone": zone.Id, "title": "City " + areaTitle})
	pin := CreateRecord(t, app, "pincodes", map[string]any{"city": city.Id, "code": pincode})
	return CreateRecord(t, app, "areas", map[string]any{"pincode": pin.Id, "title": areaTitle})
}
