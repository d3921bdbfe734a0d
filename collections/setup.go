package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

// Setup programmatically creates/ensures every collection the back office
// needs: process/product configuration, field-mapping templates, the region
// hierarchy, allocation batches with their case records, and activity logs.
func Setup(app *pocketbase.PocketBase) {
	processes := ensureCollection(app, "processes", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "title", Required: true})
		c.Fields.Add(&core.BoolField{Name: "active"})
	})

	products := ensureCollection(app, "products", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "title", Required: true})
		c.Fields.Add(&core.BoolField{Name: "active"})
	})

	assignments := ensureCollection(app, "product_assignments", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:         "process",
			Required:     true,
			CollectionId: processes.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.RelationField{
			Name:         "product",
			Required:     true,
			CollectionId: products.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.NumberField{Name: "allocation_percent"})
		c.Fields.Add(&core.BoolField{Name: "active"})
	})

	cycles := ensureCollection(app, "monthly_cycles", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "title", Required: true})
		// 0 days means the cycle never expires its batches.
		c.Fields.Add(&core.NumberField{Name: "days"})
	})

	templates := ensureCollection(app, "field_mapping_templates", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "product_assignment",
			Required:      true,
			CollectionId:  assignments.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.BoolField{Name: "is_default"})
		c.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			Values:    []string{"draft", "submitted"},
			MaxSelect: 1,
		})
	})

	ensureCollection(app, "field_mappings", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "template",
			Required:      true,
			CollectionId:  templates.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "field_name", Required: true})
		c.Fields.Add(&core.TextField{Name: "label"})
		c.Fields.Add(&core.BoolField{Name: "required"})
		c.Fields.Add(&core.NumberField{Name: "sort_order"})
		c.Fields.Add(&core.TextField{Name: "date_format"})
	})

	regions := ensureCollection(app, "regions", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "title", Required: true})
	})

	zones := ensureCollection(app, "zones", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "region",
			Required:      true,
			CollectionId:  regions.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "title", Required: true})
	})

	cities := ensureCollection(app, "cities", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "zone",
			Required:      true,
			CollectionId:  zones.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "title", Required: true})
	})

	pincodes := ensureCollection(app, "pincodes", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "city",
			Required:      true,
			CollectionId:  cities.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "code", Required: true})
	})

	areas := ensureCollection(app, "areas", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "pincode",
			Required:      true,
			CollectionId:  pincodes.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "title", Required: true})
	})

	batches := ensureCollection(app, "allocation_batches", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "file_name", Required: true})
		c.Fields.Add(&core.TextField{Name: "file_url", Required: true})
		c.Fields.Add(&core.TextField{Name: "reupload_url"})
		c.Fields.Add(&core.TextField{Name: "error_file_url"})
		c.Fields.Add(&core.RelationField{
			Name:         "monthly_cycle",
			Required:     true,
			CollectionId: cycles.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.RelationField{
			Name:         "product_assignment",
			Required:     true,
			CollectionId: assignments.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.NumberField{Name: "total_records"})
		c.Fields.Add(&core.NumberField{Name: "valid_records"})
		c.Fields.Add(&core.NumberField{Name: "error_records"})
		c.Fields.Add(&core.NumberField{Name: "duplicate_records"})
		c.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			Values:    []string{"uploaded", "in_process", "closed"},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.DateField{Name: "expiry_date"})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	ensureCollection(app, "case_records", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "batch",
			Required:      true,
			CollectionId:  batches.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "loan_account_number", Required: true})
		c.Fields.Add(&core.TextField{Name: "crn"})
		c.Fields.Add(&core.TextField{Name: "bucket"})

		c.Fields.Add(&core.TextField{Name: "customer_name"})
		c.Fields.Add(&core.TextField{Name: "customer_email"})
		c.Fields.Add(&core.TextField{Name: "customer_phone"})
		c.Fields.Add(&core.TextField{Name: "alternate_phone"})
		c.Fields.Add(&core.TextField{Name: "residential_address"})
		c.Fields.Add(&core.TextField{Name: "office_address"})
		c.Fields.Add(&core.RelationField{
			Name:         "residential_pincode",
			CollectionId: pincodes.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.RelationField{
			Name:         "office_pincode",
			CollectionId: pincodes.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.RelationField{
			Name:         "residential_sub_area",
			CollectionId: areas.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.RelationField{
			Name:         "office_sub_area",
			CollectionId: areas.Id,
			MaxSelect:    1,
		})

		c.Fields.Add(&core.TextField{Name: "loan_product"})
		c.Fields.Add(&core.TextField{Name: "branch_name"})

		// Amounts are stored as normalized decimal strings to keep the
		// precision the coercion step validated.
		c.Fields.Add(&core.TextField{Name: "total_loan_amount"})
		c.Fields.Add(&core.TextField{Name: "pos_value"})
		c.Fields.Add(&core.TextField{Name: "emi_amount"})
		c.Fields.Add(&core.TextField{Name: "minimum_due_amount"})
		c.Fields.Add(&core.TextField{Name: "penalty_amount"})
		c.Fields.Add(&core.TextField{Name: "late_fee"})
		c.Fields.Add(&core.TextField{Name: "late_charges"})
		c.Fields.Add(&core.TextField{Name: "last_payment_amount"})

		c.Fields.Add(&core.NumberField{Name: "tenure"})
		c.Fields.Add(&core.NumberField{Name: "emis_paid"})
		c.Fields.Add(&core.NumberField{Name: "dpd"})

		c.Fields.Add(&core.DateField{Name: "loan_disbursement_date"})
		c.Fields.Add(&core.DateField{Name: "emi_start_date"})
		c.Fields.Add(&core.DateField{Name: "due_date"})
		c.Fields.Add(&core.DateField{Name: "last_payment_date"})

		c.Fields.Add(&core.RelationField{
			Name:         "monthly_cycle",
			CollectionId: cycles.Id,
			MaxSelect:    1,
		})

		c.Fields.Add(&core.SelectField{
			Name:      "field_mapping_status",
			Required:  true,
			Values:    []string{"ERROR", "SAVED"},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "error_message"})

		// Derived risk. An empty risk select means "no risk data", which is
		// deliberately distinct from a scored LOW.
		c.Fields.Add(&core.SelectField{
			Name:      "risk",
			Values:    []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.NumberField{Name: "risk_points"})

		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	ensureCollection(app, "activity_logs", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "action", Required: true})
		c.Fields.Add(&core.TextField{Name: "entity", Required: true})
		c.Fields.Add(&core.TextField{Name: "entity_id"})
		c.Fields.Add(&core.TextField{Name: "actor"})
		c.Fields.Add(&core.JSONField{Name: "details"})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
	})
}

// ensureCollection checks if a collection already exists by name. If it does,
// the existing collection is returned. Otherwise a new base collection is
// created, the addFields callback is invoked to populate its fields, and the
// collection is saved.
func ensureCollection(app *pocketbase.PocketBase, name string, addFields func(*core.Collection)) *core.Collection {
	existing, err := app.FindCollectionByNameOrId(name)
	if err == nil && existing != nil {
		return existing
	}

	collection := core.NewBaseCollection(name)
	addFields(collection)

	if err := app.Save(collection); err != nil {
		log.Fatalf("Failed to create collection %q: %v", name, err)
	}

	fmt.Printf("Created collection %q (id=%s)\n", name, collection.Id)
	return collection
}
