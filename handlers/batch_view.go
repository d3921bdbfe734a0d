package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

// HandleBatchList returns a handler listing allocation batches, newest first.
// Route: GET /api/collections-app/batches
func HandleBatchList(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		limit := 50
		if raw := e.Request.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}

		records, err := app.FindRecordsByFilter(
			"allocation_batches", "id != ''", "-created", limit, 0, nil,
		)
		if err != nil {
			log.Printf("batch_list: query failed: %v", err)
			return e.JSON(http.StatusInternalServerError, map[string]any{
				"error_key": "internal",
				"message":   "internal error",
			})
		}

		items := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			items = append(items, batchJSON(rec))
		}
		return e.JSON(http.StatusOK, map[string]any{"items": items})
	}
}

// HandleBatchView returns a handler with one batch's detail and counters.
// Route: GET /api/collections-app/batches/{batchId}
func HandleBatchView(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		batch, ok := findBatch(app, e)
		if !ok {
			return nil
		}
		return e.JSON(http.StatusOK, batchJSON(batch))
	}
}

// findBatch loads the batch named in the path. On a miss it writes the 404
// response and reports false.
func findBatch(app *pocketbase.PocketBase, e *core.RequestEvent) (*core.Record, bool) {
	batchID := e.Request.PathValue("batchId")
	batch, err := app.FindRecordById("allocation_batches", batchID)
	if err != nil {
		e.JSON(http.StatusNotFound, map[string]any{
			"error_key": "batch_not_found",
			"message":   "allocation batch not found",
		})
		return nil, false
	}
	return batch, true
}

func batchJSON(rec *core.Record) map[string]any {
	return map[string]any{
		"id":                rec.Id,
		"file_name":         rec.GetString("file_name"),
		"file_url":          rec.GetString("file_url"),
		"reupload_url":      rec.GetString("reupload_url"),
		"error_file_url":    rec.GetString("error_file_url"),
		"status":            rec.GetString("status"),
		"total_records":     rec.GetInt("total_records"),
		"valid_records":     rec.GetInt("valid_records"),
		"error_records":     rec.GetInt("error_records"),
		"duplicate_records": rec.GetInt("duplicate_records"),
		"expiry_date":       rec.GetString("expiry_date"),
		"created":           rec.GetString("created"),
	}
}
