package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"casetrack/services"
)

type templateFieldPayload struct {
	FieldName  string `json:"field_name"`
	Label      string `json:"label"`
	Required   bool   `json:"required"`
	DateFormat string `json:"date_format"`
}

type templateCreatePayload struct {
	ProductAssignment string                 `json:"product_assignment"`
	Name              string                 `json:"name"`
	IsDefault         bool                   `json:"is_default"`
	Fields            []templateFieldPayload `json:"fields"`
}

// HandleTemplateList returns the templates of a product assignment with
// their mappings.
// Route: GET /api/collections-app/templates?assignment=...
func HandleTemplateList(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		assignmentID := e.Request.URL.Query().Get("assignment")
		if assignmentID == "" {
			return e.JSON(http.StatusBadRequest, map[string]any{
				"error_key": "bad_request",
				"message":   "assignment query parameter is required",
			})
		}

		templates, err := app.FindRecordsByFilter("field_mapping_templates",
			"product_assignment = {:assignment}", "-created", 0, 0,
			map[string]any{"assignment": assignmentID},
		)
		if err != nil {
			log.Printf("template_list: query failed: %v", err)
			return e.JSON(http.StatusInternalServerError, map[string]any{
				"error_key": "internal",
				"message":   "internal error",
			})
		}

		items := make([]map[string]any, 0, len(templates))
		for _, tpl := range templates {
			mappings, err := app.FindRecordsByFilter("field_mappings",
				"template = {:template}", "sort_order", 0, 0,
				map[string]any{"template": tpl.Id},
			)
			if err != nil {
				log.Printf("template_list: mappings for %s failed: %v", tpl.Id, err)
			}

			fields := make([]map[string]any, 0, len(mappings))
			for _, m := range mappings {
				fields = append(fields, map[string]any{
					"field_name":  m.GetString("field_name"),
					"label":       m.GetString("label"),
					"required":    m.GetBool("required"),
					"sort_order":  m.GetInt("sort_order"),
					"date_format": m.GetString("date_format"),
				})
			}

			items = append(items, map[string]any{
				"id":         tpl.Id,
				"name":       tpl.GetString("name"),
				"is_default": tpl.GetBool("is_default"),
				"status":     tpl.GetString("status"),
				"fields":     fields,
			})
		}

		return e.JSON(http.StatusOK, map[string]any{"items": items})
	}
}

// HandleTemplateCreate creates a draft template with its field mappings.
// Every mapping must name a reserved field and LOAN_ACCOUNT_NUMBER must be
// present and required.
// Route: POST /api/collections-app/templates
func HandleTemplateCreate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var payload templateCreatePayload
		if err := json.NewDecoder(e.Request.Body).Decode(&payload); err != nil {
			return e.JSON(http.StatusBadRequest, map[string]any{
				"error_key": "bad_request",
				"message":   "invalid JSON body",
			})
		}

		payload.Name = strings.TrimSpace(payload.Name)
		if payload.ProductAssignment == "" || payload.Name == "" || len(payload.Fields) == 0 {
			return e.JSON(http.StatusBadRequest, map[string]any{
				"error_key": "bad_request",
				"message":   "product_assignment, name and at least one field are required",
			})
		}

		if _, err := app.FindRecordById("product_assignments", payload.ProductAssignment); err != nil {
			return e.JSON(http.StatusNotFound, map[string]any{
				"error_key": "assignment_not_found",
				"message":   "product assignment not found",
			})
		}

		accountRequired := false
		seen := make(map[string]bool, len(payload.Fields))
		for _, f := range payload.Fields {
			spec, ok := services.ReservedField(f.FieldName)
			if !ok {
				return e.JSON(http.StatusUnprocessableEntity, map[string]any{
					"error_key": "unknown_field",
					"message":   "unknown reserved field " + f.FieldName,
				})
			}
			if seen[spec.Name] {
				return e.JSON(http.StatusUnprocessableEntity, map[string]any{
					"error_key": "duplicate_field",
					"message":   "field " + spec.Name + " is mapped more than once",
				})
			}
			seen[spec.Name] = true
			if spec.Name == services.FieldLoanAccount && f.Required {
				accountRequired = true
			}
		}
		if !accountRequired {
			return e.JSON(http.StatusUnprocessableEntity, map[string]any{
				"error_key": "account_field_missing",
				"message":   "LOAN_ACCOUNT_NUMBER must be mapped and required",
			})
		}

		templatesCol, err := app.FindCollectionByNameOrId("field_mapping_templates")
		if err != nil {
			log.Printf("template_create: collection not found: %v", err)
			return e.String(http.StatusInternalServerError, "Internal error")
		}
		mappingsCol, err := app.FindCollectionByNameOrId("field_mappings")
		if err != nil {
			log.Printf("template_create: mappings collection not found: %v", err)
			return e.String(http.StatusInternalServerError, "Internal error")
		}

		var templateID string
		err = app.RunInTransaction(func(txApp core.App) error {
			tpl := core.NewRecord(templatesCol)
			tpl.Set("product_assignment", payload.ProductAssignment)
			tpl.Set("name", payload.Name)
			tpl.Set("is_default", payload.IsDefault)
			tpl.Set("status", "draft")
			if err := txApp.Save(tpl); err != nil {
				return err
			}
			templateID = tpl.Id

			for i, f := range payload.Fields {
				mapping := core.NewRecord(mappingsCol)
				mapping.Set("template", tpl.Id)
				mapping.Set("field_name", f.FieldName)
				mapping.Set("label", f.Label)
				mapping.Set("required", f.Required)
				mapping.Set("sort_order", i+1)
				mapping.Set("date_format", f.DateFormat)
				if err := txApp.Save(mapping); err != nil {
					return err
				}
			}

			if payload.IsDefault {
				return services.EnsureSingleDefault(txApp, tpl)
			}
			return nil
		})
		if err != nil {
			log.Printf("template_create: save failed: %v", err)
			return e.String(http.StatusInternalServerError, "Internal error")
		}

		services.LogActivity(app, "template.create", "field_mapping_templates", templateID,
			requestActor(e), map[string]any{"name": payload.Name})

		return e.JSON(http.StatusOK, map[string]any{"id": templateID, "status": "draft"})
	}
}

// HandleTemplateSubmit flips a draft template to submitted, optionally
// making it the assignment default.
// Route: POST /api/collections-app/templates/{templateId}/submit
func HandleTemplateSubmit(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		templateID := e.Request.PathValue("templateId")
		tpl, err := app.FindRecordById("field_mapping_templates", templateID)
		if err != nil {
			return e.JSON(http.StatusNotFound, map[string]any{
				"error_key": "template_not_found",
				"message":   "template not found",
			})
		}

		var payload struct {
			IsDefault bool `json:"is_default"`
		}
		if e.Request.Body != nil {
			json.NewDecoder(e.Request.Body).Decode(&payload)
		}

		err = app.RunInTransaction(func(txApp core.App) error {
			tpl.Set("status", "submitted")
			if payload.IsDefault {
				tpl.Set("is_default", true)
			}
			if err := txApp.Save(tpl); err != nil {
				return err
			}
			return services.EnsureSingleDefault(txApp, tpl)
		})
		if err != nil {
			log.Printf("template_submit: save failed: %v", err)
			return e.String(http.StatusInternalServerError, "Internal error")
		}

		services.LogActivity(app, "template.submit", "field_mapping_templates", tpl.Id,
			requestActor(e), map[string]any{"is_default": tpl.GetBool("is_default")})

		return e.JSON(http.StatusOK, map[string]any{
			"id":         tpl.Id,
			"status":     tpl.GetString("status"),
			"is_default": tpl.GetBool("is_default"),
		})
	}
}
