package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"casetrack/services"
)

// HandleUploadTemplateDownload serves the blank .xlsx upload template for a
// process/product pair, with required columns marked.
// Route: GET /api/collections-app/upload-template?process=...&product=...
func HandleUploadTemplateDownload(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		process := e.Request.URL.Query().Get("process")
		product := e.Request.URL.Query().Get("product")
		if process == "" || product == "" {
			return e.JSON(http.StatusBadRequest, map[string]any{
				"error_key": "bad_request",
				"message":   "process and product query parameters are required",
			})
		}

		tpl, err := services.ResolveTemplate(app, process, product)
		if err != nil {
			if errors.Is(err, services.ErrTemplateNotFound) {
				return writeInputError(e, err)
			}
			log.Printf("upload_template: resolve failed: %v", err)
			return e.String(http.StatusInternalServerError, "Internal error")
		}

		xlsxBytes, err := services.GenerateUploadTemplate(tpl)
		if err != nil {
			log.Printf("upload_template: generate failed: %v", err)
			return e.String(http.StatusInternalServerError, "Failed to generate template")
		}

		filename := fmt.Sprintf("%s_%s_upload_template.xlsx",
			sanitizeFilename(strings.ReplaceAll(process, " ", "")),
			sanitizeFilename(strings.ReplaceAll(product, " ", "")),
		)

		e.Response.Header().Set("Content-Type",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		e.Response.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="%s"`, filename))
		e.Response.Write(xlsxBytes)
		return nil
	}
}
