package http

import (
	"github.com/mrlokans/calibre-bridge/internal/auth"
)

// RouterConfig contains all dependencies needed to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Library   Library
	Database  Pinger
	ToolCheck ToolChecker

	// Invocation audit log (optional)
	AuditStore AuditStore

	// Task queue (optional); without it add and remove always run inline
	TaskQueue TaskQueue

	// Inbox ingestion (optional)
	Ingest      IngestRunner
	IngestStore IngestStore

	// Bearer token auth; nil or disabled lets every request through
	AuthMiddleware *auth.Middleware

	// Application info
	Version string
}
