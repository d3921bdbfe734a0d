package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"casetrack/collections"
	"casetrack/handlers"
	"casetrack/storage"
)

func main() {
	app := pocketbase.New()

	// Create collections and seed data on startup
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		collections.Setup(app)
		if err := collections.Seed(app); err != nil {
			log.Printf("Warning: seed data failed: %v", err)
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		artifactDir := os.Getenv("ARTIFACT_DIR")
		if artifactDir == "" {
			artifactDir = filepath.Join(app.DataDir(), "artifacts")
		}
		store, err := storage.NewLocalStore(artifactDir, "/artifacts")
		if err != nil {
			return err
		}

		// Generated error workbooks are served as static files
		se.Router.GET("/artifacts/{path...}", apis.Static(os.DirFS(artifactDir), false))

		// ── Batch ingestion ──────────────────────────────────────
		se.Router.POST("/api/collections-app/batches", handlers.HandleBatchUpload(app, store))
		se.Router.POST("/api/collections-app/batches/{batchId}/reupload", handlers.HandleBatchReupload(app, store))

		// ── Batch views and exports ──────────────────────────────
		se.Router.GET("/api/collections-app/batches", handlers.HandleBatchList(app))
		se.Router.GET("/api/collections-app/batches/{batchId}/export", handlers.HandleBatchExportExcel(app))
		se.Router.GET("/api/collections-app/batches/{batchId}/summary.pdf", handlers.HandleBatchSummaryPDF(app))
		se.Router.GET("/api/collections-app/batches/{batchId}", handlers.HandleBatchView(app))

		// ── Upload template download ─────────────────────────────
		se.Router.GET("/api/collections-app/upload-template", handlers.HandleUploadTemplateDownload(app))

		// ── Field mapping templates ──────────────────────────────
		se.Router.GET("/api/collections-app/templates", handlers.HandleTemplateList(app))
		se.Router.POST("/api/collections-app/templates", handlers.HandleTemplateCreate(app))
		se.Router.POST("/api/collections-app/templates/{templateId}/submit", handlers.HandleTemplateSubmit(app))

		// ── Geography ────────────────────────────────────────────
		se.Router.POST("/api/collections-app/geography/{collection}", handlers.HandleGeographyCreate(app))
		se.Router.GET("/api/collections-app/pincodes/{code}/areas", handlers.HandleAreaList(app))

		return se.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
