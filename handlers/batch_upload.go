package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"casetrack/services"
	"casetrack/storage"
)

// fetchClient downloads allocation files referenced by upload requests.
var fetchClient = &http.Client{Timeout: 60 * time.Second}

// HandleBatchUpload returns a handler that ingests a first-time allocation
// file upload.
// Route: POST /api/collections-app/batches
func HandleBatchUpload(app *pocketbase.PocketBase, store storage.Store) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var req services.UploadRequest
		if err := json.NewDecoder(e.Request.Body).Decode(&req); err != nil {
			return e.JSON(http.StatusBadRequest, map[string]any{
				"error_key": "bad_request",
				"message":   "invalid JSON body",
			})
		}

		if req.FileURL == "" || req.FileName == "" || req.Process == "" || req.Product == "" || req.Cycle == "" {
			return e.JSON(http.StatusBadRequest, map[string]any{
				"error_key": "bad_request",
				"message":   "file_url, file_name, process, product and cycle are required",
			})
		}

		result, err := services.UploadBatch(e.Request.Context(), app, fetchClient, store, req)
		if err != nil {
			log.Printf("batch_upload: %s: %v", req.FileName, err)
			return writeInputError(e, err)
		}

		services.LogActivity(app, "batch.upload", "allocation_batches", result.BatchID,
			requestActor(e), map[string]any{
				"file_name":     req.FileName,
				"total_records": result.Total,
				"valid_records": result.Valid,
				"error_records": result.Errors,
			})

		return e.JSON(http.StatusOK, result)
	}
}

// requestActor identifies the caller for the audit trail.
func requestActor(e *core.RequestEvent) string {
	if e.Auth != nil {
		return e.Auth.Id
	}
	return "anonymous"
}
