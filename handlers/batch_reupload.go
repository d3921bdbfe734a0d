package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"casetrack/services"
	"casetrack/storage"
)

type reuploadRequest struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
}

// HandleBatchReupload returns a handler that applies a corrected file to an
// existing batch.
// Route: POST /api/collections-app/batches/{batchId}/reupload
func HandleBatchReupload(app *pocketbase.PocketBase, store storage.Store) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		batchID := e.Request.PathValue("batchId")
		if batchID == "" {
			return e.JSON(http.StatusBadRequest, map[string]any{
				"error_key": "bad_request",
				"message":   "missing batch id",
			})
		}

		var req reuploadRequest
		if err := json.NewDecoder(e.Request.Body).Decode(&req); err != nil {
			return e.JSON(http.StatusBadRequest, map[string]any{
				"error_key": "bad_request",
				"message":   "invalid JSON body",
			})
		}
		if req.FileURL == "" || req.FileName == "" {
			return e.JSON(http.StatusBadRequest, map[string]any{
				"error_key": "bad_request",
				"message":   "file_url and file_name are required",
			})
		}

		result, err := services.ReuploadBatch(e.Request.Context(), app, fetchClient, store, batchID, req.FileURL, req.FileName)
		if err != nil {
			log.Printf("batch_reupload: %s: %v", batchID, err)
			return writeInputError(e, err)
		}

		services.LogActivity(app, "batch.reupload", "allocation_batches", result.BatchID,
			requestActor(e), map[string]any{
				"file_name":     req.FileName,
				"valid_records": result.Valid,
				"error_records": result.Errors,
			})

		return e.JSON(http.StatusOK, result)
	}
}
