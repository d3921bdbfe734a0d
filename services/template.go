package services

import (
	"fmt"

	"github.com/pocketbase/pocketbase/core"
)

// MappedField is one entry of a resolved template: a reserved field plus the
// template's required flag and optional date format override.
type MappedField struct {
	Spec       FieldSpec
	Label      string
	Required   bool
	SortOrder  int
	DateFormat string
}

// ResolvedTemplate is the expected-field contract for one (process, product)
// pair. It gates both header validation and per-cell coercion.
type ResolvedTemplate struct {
	AssignmentID string
	TemplateID   string
	ProcessTitle string
	ProductTitle string
	Fields       []MappedField

	byName map[string]MappedField
}

// Field returns the mapped field for a reserved name.
func (t *ResolvedTemplate) Field(name string) (MappedField, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// RequiredFields returns the set of required reserved field names.
func (t *ResolvedTemplate) RequiredFields() map[string]bool {
	req := make(map[string]bool)
	for _, f := range t.Fields {
		if f.Required {
			req[f.Spec.Name] = true
		}
	}
	return req
}

// ResolveTemplate finds the single active field-mapping contract for a
// (process, product) pair: active process and product, active assignment,
// then the assignment's default submitted template and its ordered mappings.
// It is read-only and runs before any file content is inspected.
func ResolveTemplate(app core.App, processTitle, productTitle string) (*ResolvedTemplate, error) {
	process, err := findActiveByTitle(app, "processes", processTitle)
	if err != nil {
		return nil, inputErr(ErrTemplateNotFound, "process",
			"unknown or inactive process %q", processTitle)
	}
	product, err := findActiveByTitle(app, "products", productTitle)
	if err != nil {
		return nil, inputErr(ErrTemplateNotFound, "product",
			"unknown or inactive product %q", productTitle)
	}

	assignments, err := app.FindRecordsByFilter("product_assignments",
		"process = {:process} && product = {:product} && active = true", "", 1, 0,
		map[string]any{"process": process.Id, "product": product.Id},
	)
	if err != nil || len(assignments) == 0 {
		return nil, inputErr(ErrTemplateNotFound, "product",
			"no active assignment for process %q and product %q", processTitle, productTitle)
	}
	assignment := assignments[0]

	templates, err := app.FindRecordsByFilter("field_mapping_templates",
		"product_assignment = {:assignment} && is_default = true && status = 'submitted'", "", 1, 0,
		map[string]any{"assignment": assignment.Id},
	)
	if err != nil || len(templates) == 0 {
		return nil, inputErr(ErrTemplateNotFound, "template",
			"no default submitted template for process %q and product %q", processTitle, productTitle)
	}
	template := templates[0]

	mappings, err := app.FindRecordsByFilter("field_mappings",
		"template = {:template}", "sort_order", 0, 0,
		map[string]any{"template": template.Id},
	)
	if err != nil || len(mappings) == 0 {
		return nil, inputErr(ErrTemplateNotFound, "template",
			"template %q has no field mappings", template.GetString("name"))
	}

	resolved := &ResolvedTemplate{
		AssignmentID: assignment.Id,
		TemplateID:   template.Id,
		ProcessTitle: process.GetString("title"),
		ProductTitle: product.GetString("title"),
		byName:       make(map[string]MappedField, len(mappings)),
	}

	for _, m := range mappings {
		name := m.GetString("field_name")
		spec, ok := ReservedField(name)
		if !ok {
			return nil, inputErr(ErrTemplateNotFound, "template",
				"template references unknown reserved field %q", name)
		}
		label := m.GetString("label")
		if label == "" {
			label = spec.Label
		}
		mf := MappedField{
			Spec:       spec,
			Label:      label,
			Required:   m.GetBool("required"),
			SortOrder:  m.GetInt("sort_order"),
			DateFormat: m.GetString("date_format"),
		}
		resolved.Fields = append(resolved.Fields, mf)
		resolved.byName[name] = mf
	}

	return resolved, nil
}

// EnsureSingleDefault clears the default flag on every other template of the
// same product assignment. Called when a template is saved as default so at
// most one default exists per assignment.
func EnsureSingleDefault(app core.App, template *core.Record) error {
	if !template.GetBool("is_default") {
		return nil
	}
	others, err := app.FindRecordsByFilter("field_mapping_templates",
		"product_assignment = {:assignment} && is_default = true && id != {:id}", "", 0, 0,
		map[string]any{
			"assignment": template.GetString("product_assignment"),
			"id":         template.Id,
		},
	)
	if err != nil {
		return fmt.Errorf("find default templates: %w", err)
	}
	for _, other := range others {
		other.Set("is_default", false)
		if err := app.Save(other); err != nil {
			return fmt.Errorf("clear default on template %s: %w", other.Id, err)
		}
	}
	return nil
}

func findActiveByTitle(app core.App, collection, title string) (*core.Record, error) {
	records, err := app.FindRecordsByFilter(collection,
		"title = {:title} && active = true", "", 1, 0,
		map[string]any{"title": title},
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no active %s titled %q", collection, title)
	}
	return records[0], nil
}
