// Package database provides the local bookkeeping store for the bridge.
//
// The calibre library is owned by calibredb and is never opened here. This
// database only records what the bridge did to it:
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── audit/           # calibredb invocation events
//	└── ingest/          # Inbox ingestion ledger
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type over the shared *gorm.DB:
//
//	db, err := database.NewDatabase("./calibre-bridge.db")
//
//	auditRepo := audit.NewRepository(db.DB)
//	ingestRepo := ingest.NewRepository(db.DB)
//
//	events, total, err := auditRepo.GetEvents(audit.EventFilter{Command: "add"}, 50, 0)
package database
