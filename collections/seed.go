package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

// ── Definition structs ───────────────────────────────────────────────────

type cycleDef struct {
	title string
	days  int
}

type mappingDef struct {
	fieldName string
	required  bool
}

type areaDef struct {
	pincode string
	titles  []string
}

var seedCycles = []cycleDef{
	{"7 Day", 7},
	{"15 Day", 15},
	{"30 Day", 30},
	{"Indefinite", 0},
}

// seedMappings is the default template: the full reserved vocabulary with
// the identity and headline financial fields required.
var seedMappings = []mappingDef{
	{"CUSTOMER_NAME", true},
	{"CRN", true},
	{"LOAN_ACCOUNT_NUMBER", true},
	{"CUSTOMER_EMAIL", false},
	{"CUSTOMER_PHONE", false},
	{"ALTERNATE_PHONE", false},
	{"RESIDENTIAL_ADDRESS", false},
	{"OFFICE_ADDRESS", false},
	{"RESIDENTIAL_PINCODE", false},
	{"OFFICE_PINCODE", false},
	{"LOAN_PRODUCT", false},
	{"BRANCH_NAME", false},
	{"BUCKET", true},
	{"TOTAL_LOAN_AMOUNT", true},
	{"POS_VALUE", true},
	{"EMI_AMOUNT", false},
	{"MINIMUM_DUE_AMOUNT", false},
	{"PENALTY_AMOUNT", false},
	{"LATE_FEE", false},
	{"LATE_CHARGES", false},
	{"LAST_PAYMENT_AMOUNT", false},
	{"TENURE", false},
	{"EMIS_PAID", false},
	{"DPD", false},
	{"LOAN_DISBURSEMENT_DATE", false},
	{"EMI_START_DATE", false},
	{"DUE_DATE", false},
	{"LAST_PAYMENT_DATE", false},
	{"MONTHLY_CYCLE", false},
	{"PROCESS_NAME", false},
	{"PRODUCT_TYPE", false},
}

// seedGeography is a minimal West-region tree used until real geography is
// loaded through the region CRUD.
var seedGeography = struct {
	region string
	zone   string
	city   string
	areas  []areaDef
}{
	region: "West",
	zone:   "Zone 1",
	city:   "Mumbai",
	areas: []areaDef{
		{pincode: "400001", titles: []string{"Fort", "Ballard Estate"}},
		{pincode: "400050", titles: []string{"Bandra West", "Pali Hill"}},
	},
}

// Seed inserts a working configuration on an empty database: one process,
// one product, their assignment with a submitted default template, the
// monthly cycles and a small geography tree. It is idempotent: if the
// process already exists, seeding is skipped entirely.
func Seed(app *pocketbase.PocketBase) error {
	existing, err := app.FindRecordsByFilter("processes", "id != ''", "", 1, 0, nil)
	if err == nil && len(existing) > 0 {
		return nil
	}

	process, err := createRecord(app, "processes", map[string]any{
		"title":  "Tele Calling",
		"active": true,
	})
	if err != nil {
		return err
	}
	product, err := createRecord(app, "products", map[string]any{
		"title":  "Personal Loan",
		"active": true,
	})
	if err != nil {
		return err
	}
	assignment, err := createRecord(app, "product_assignments", map[string]any{
		"process":            process.Id,
		"product":            product.Id,
		"allocation_percent": 100,
		"active":             true,
	})
	if err != nil {
		return err
	}

	for _, c := range seedCycles {
		if _, err := createRecord(app, "monthly_cycles", map[string]any{
			"title": c.title,
			"days":  c.days,
		}); err != nil {
			return err
		}
	}

	template, err := createRecord(app, "field_mapping_templates", map[string]any{
		"product_assignment": assignment.Id,
		"name":               "Personal Loan Default",
		"is_default":         true,
		"status":             "submitted",
	})
	if err != nil {
		return err
	}
	for i, m := range seedMappings {
		if _, err := createRecord(app, "field_mappings", map[string]any{
			"template":   template.Id,
			"field_name": m.fieldName,
			"required":   m.required,
			"sort_order": i + 1,
		}); err != nil {
			return err
		}
	}

	if err := seedGeographyTree(app); err != nil {
		return err
	}

	log.Printf("seed: created default process, product, template and geography")
	return nil
}

func seedGeographyTree(app *pocketbase.PocketBase) error {
	region, err := createRecord(app, "regions", map[string]any{"title": seedGeography.region})
	if err != nil {
		return err
	}
	zone, err := createRecord(app, "zones", map[string]any{
		"region": region.Id,
		"title":  seedGeography.zone,
	})
	if err != nil {
		return err
	}
	city, err := createRecord(app, "cities", map[string]any{
		"zone":  zone.Id,
		"title": seedGeography.city,
	})
	if err != nil {
		return err
	}

	for _, a := range seedGeography.areas {
		pincode, err := createRecord(app, "pincodes", map[string]any{
			"city": city.Id,
			"code": a.pincode,
		})
		if err != nil {
			return err
		}
		for _, title := range a.titles {
			if _, err := createRecord(app, "areas", map[string]any{
				"pincode": pincode.Id,
				"title":   title,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func createRecord(app *pocketbase.PocketBase, collection string, fields map[string]any) (*core.Record, error) {
	col, err := app.FindCollectionByNameOrId(collection)
	if err != nil {
		return nil, fmt.Errorf("seed: collection %q: %w", collection, err)
	}
	record := core.NewRecord(col)
	for k, v := range fields {
		record.Set(k, v)
	}
	if err := app.Save(record); err != nil {
		return nil, fmt.Errorf("seed: save %s record: %w", collection, err)
	}
	return record, nil
}
