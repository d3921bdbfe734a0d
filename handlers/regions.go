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

// geographyParents maps each geography collection to its parent relation.
var geographyParents = map[string]string{
	"regions":  "",
	"zones":    "region",
	"cities":   "zone",
	"pincodes": "city",
	"areas":    "pincode",
}

type geographyPayload struct {
	Title  string `json:"title"`
	Code   string `json:"code"`
	Parent string `json:"parent"`
}

// HandleGeographyCreate creates a record in one of the geography
// collections (regions, zones, cities, pincodes, areas).
// Route: POST /api/collections-app/geography/{collection}
func HandleGeographyCreate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		collectionName := e.Request.PathValue("collection")
		parentField, ok := geographyParents[collectionName]
		if !ok {
			return e.JSON(http.StatusNotFound, map[string]any{
				"error_key": "bad_request",
				"message":   "unknown geography collection " + collectionName,
			})
		}

		var payload geographyPayload
		if err := json.NewDecoder(e.Request.Body).Decode(&payload); err != nil {
			return e.JSON(http.StatusBadRequest, map[string]any{
				"error_key": "bad_request",
				"message":   "invalid JSON body",
			})
		}

		payload.Title = strings.TrimSpace(payload.Title)
		payload.Code = strings.TrimSpace(payload.Code)

		if collectionName == "pincodes" {
			if payload.Code == "" {
				return e.JSON(http.StatusBadRequest, map[string]any{
					"error_key": "bad_request",
					"message":   "code is required for pincodes",
				})
			}
		} else if payload.Title == "" {
			return e.JSON(http.StatusBadRequest, map[string]any{
				"error_key": "bad_request",
				"message":   "title is required",
			})
		}

		if parentField != "" {
			if payload.Parent == "" {
				return e.JSON(http.StatusBadRequest, map[string]any{
					"error_key": "bad_request",
					"message":   parentField + " parent id is required",
				})
			}
			parentCollection := parentCollectionOf(collectionName)
			if _, err := app.FindRecordById(parentCollection, payload.Parent); err != nil {
				return e.JSON(http.StatusNotFound, map[string]any{
					"error_key": "parent_not_found",
					"message":   "parent " + parentCollection + " record not found",
				})
			}
		}

		collection, err := app.FindCollectionByNameOrId(collectionName)
		if err != nil {
			log.Printf("geography_create: collection %s not found: %v", collectionName, err)
			return e.String(http.StatusInternalServerError, "Internal error")
		}

		record := core.NewRecord(collection)
		if collectionName == "pincodes" {
			record.Set("code", payload.Code)
		} else {
			record.Set("title", payload.Title)
		}
		if parentField != "" {
			record.Set(parentField, payload.Parent)
		}

		if err := app.Save(record); err != nil {
			log.Printf("geography_create: save %s failed: %v", collectionName, err)
			return e.String(http.StatusInternalServerError, "Internal error")
		}

		services.LogActivity(app, "geography.create", collectionName, record.Id,
			requestActor(e), map[string]any{"title": payload.Title, "code": payload.Code})

		return e.JSON(http.StatusOK, map[string]any{"id": record.Id})
	}
}

// HandleAreaList returns the sub-areas under a pincode.
// Route: GET /api/collections-app/pincodes/{code}/areas
func HandleAreaList(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		code := e.Request.PathValue("code")
		pincodes, err := app.FindRecordsByFilter("pincodes",
			"code = {:code}", "", 1, 0, map[string]any{"code": code},
		)
		if err != nil || len(pincodes) == 0 {
			return e.JSON(http.StatusNotFound, map[string]any{
				"error_key": "pincode_not_found",
				"message":   "pincode not found",
			})
		}

		areas, err := app.FindRecordsByFilter("areas",
			"pincode = {:pincode}", "title", 0, 0,
			map[string]any{"pincode": pincodes[0].Id},
		)
		if err != nil {
			log.Printf("area_list: query failed: %v", err)
			return e.JSON(http.StatusInternalServerError, map[string]any{
				"error_key": "internal",
				"message":   "internal error",
			})
		}

		items := make([]map[string]any, 0, len(areas))
		for _, area := range areas {
			items = append(items, map[string]any{
				"id":    area.Id,
				"title": area.GetString("title"),
			})
		}
		return e.JSON(http.StatusOK, map[string]any{"items": items})
	}
}

func parentCollectionOf(collectionName string) string {
	switch collectionName {
	case "zones":
		return "regions"
	case "cities":
		return "zones"
	case "pincodes":
		return "cities"
	case "areas":
		return "pincodes"
	}
	return ""
}
