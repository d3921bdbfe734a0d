package services

import (
	"log"

	"github.com/pocketbase/pocketbase/core"
)

// LogActivity records an audit trail entry. Failures are logged and
// swallowed so a broken audit write never fails the operation it describes.
func LogActivity(app core.App, action, entity, entityID, actor string, details map[string]any) {
	collection, err := app.FindCollectionByNameOrId("activity_logs")
	if err != nil {
		log.Printf("activity log: find collection: %v", err)
		return
	}

	record := core.NewRecord(collection)
	record.Set("action", action)
	record.Set("entity", entity)
	record.Set("entity_id", entityID)
	record.Set("actor", actor)
	record.Set("details", details)

	if err := app.Save(record); err != nil {
		log.Printf("activity log: save: %v", err)
	}
}
