package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/calibre-bridge/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(auth.SecurityHeadersMiddleware())

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	health := NewHealthController(cfg.Database, cfg.ToolCheck, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Books API endpoints
	if cfg.Library != nil {
		booksController := NewBooksController(cfg.Library, cfg.TaskQueue)
		router.GET("/api/books", booksController.ListBooks)
		router.GET("/api/books/search", booksController.SearchBooks)
		router.POST("/api/books", booksController.AddBooks)
		router.DELETE("/api/books", booksController.RemoveBooks)
	}

	// Task status endpoints
	if cfg.TaskQueue != nil {
		tasksController := NewTasksController(cfg.TaskQueue)
		router.GET("/api/tasks/:id", tasksController.GetTaskStatus)
	}

	// Invocation audit log
	if cfg.AuditStore != nil {
		auditController := NewAuditController(cfg.AuditStore)
		router.GET("/api/audit", auditController.GetInvocations)
	}

	// Inbox ingestion
	if cfg.Ingest != nil || cfg.IngestStore != nil {
		ingestController := NewIngestController(cfg.Ingest, cfg.IngestStore)
		router.GET("/api/ingest", ingestController.GetStatus)
		router.POST("/api/ingest/run", ingestController.RunNow)
	}

	return router
}
