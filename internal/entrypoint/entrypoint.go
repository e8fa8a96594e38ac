package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/calibre-bridge/internal/audit"
	"github.com/mrlokans/calibre-bridge/internal/auth"
	"github.com/mrlokans/calibre-bridge/internal/calibre"
	"github.com/mrlokans/calibre-bridge/internal/config"
	"github.com/mrlokans/calibre-bridge/internal/database"
	auditRepo "github.com/mrlokans/calibre-bridge/internal/database/audit"
	ingestRepo "github.com/mrlokans/calibre-bridge/internal/database/ingest"
	http_controllers "github.com/mrlokans/calibre-bridge/internal/http"
	"github.com/mrlokans/calibre-bridge/internal/scheduler"
	"github.com/mrlokans/calibre-bridge/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill -9 cannot be caught, so only SIGINT and SIGTERM are handled.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work first so no new calibredb process starts mid-shutdown.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting calibre-bridge v%s", version)

	calibreClient := calibre.NewClient(cfg.CalibreConfig())
	if path, err := calibreClient.CheckTool(); err != nil {
		log.Printf("WARNING: %v. Library endpoints will fail until calibredb is installed or CALIBREDB_EXECUTABLE is set.", err)
	} else {
		log.Printf("[CALIBRE] Using %s", path)
	}
	if cfg.Calibre.LibraryPath == "" {
		log.Printf("[CALIBRE] CALIBRE_LIBRARY_PATH is not set, calibredb will use its default library")
	} else {
		log.Printf("[CALIBRE] Library: %s", cfg.Calibre.LibraryPath)
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Every calibredb invocation is recorded in the audit log
	auditService := audit.NewService(auditRepo.NewRepository(db.DB))
	calibreClient.Runner().SetObserver(auditService)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.RegisterLibraryQueues(calibreClient, auditService)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		cleanup := tasks.CleanupAuditEventsTask{
			RetentionDays:       cfg.Audit.RetentionDays,
			FailedRetentionDays: cfg.Audit.FailedRetentionDays,
		}
		if _, err := taskClient.Enqueue(cleanup); err != nil {
			log.Printf("WARNING: Failed to schedule audit cleanup: %v", err)
		}
	}

	// Inbox ingestion
	ingestRecords := ingestRepo.NewRepository(db.DB)
	var ingestScheduler *scheduler.IngestScheduler
	if cfg.Ingest.Enabled {
		mode, err := calibre.ParseDuplicateMode(cfg.Ingest.Duplicates)
		if err != nil {
			log.Fatalf("Invalid INGEST_DUPLICATES: %v", err)
		}
		if err := os.MkdirAll(cfg.Ingest.InboxDir, 0755); err != nil {
			log.Fatalf("Failed to create inbox directory %s: %v", cfg.Ingest.InboxDir, err)
		}
		ingestScheduler = scheduler.NewIngestScheduler(calibreClient, ingestRecords, scheduler.IngestConfig{
			Enabled:      true,
			Schedule:     cfg.Ingest.Schedule,
			InboxDir:     cfg.Ingest.InboxDir,
			ProcessedDir: cfg.Ingest.ProcessedDir,
			FailedDir:    cfg.Ingest.FailedDir,
			Duplicates:   mode,
			RunTimeout:   cfg.Tasks.TaskTimeout,
		})
		if err := ingestScheduler.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start ingest scheduler: %v", err)
		}
	} else {
		log.Printf("[INGEST] Inbox ingestion disabled. Set INGEST_ENABLED=true to enable.")
	}

	// Initialize authentication if a token hash is configured
	var authMiddleware *auth.Middleware
	var rateLimiter *auth.RateLimiter
	if cfg.API.TokenHash != "" {
		log.Printf("Authentication: bearer token")
		rateLimiter = auth.NewRateLimiter(auth.DefaultRateLimitConfig())
		authMiddleware = auth.NewMiddleware(cfg.API.TokenHash, rateLimiter)
	} else {
		log.Printf("Authentication: none (set API_TOKEN_HASH to require a bearer token)")
	}

	routerCfg := http_controllers.RouterConfig{
		Library:        calibreClient,
		Database:       db,
		ToolCheck:      calibreClient,
		AuditStore:     auditService,
		IngestStore:    ingestRecords,
		AuthMiddleware: authMiddleware,
		Version:        version,
	}
	// Interface fields stay nil when disabled so the router skips their routes.
	if taskClient != nil {
		routerCfg.TaskQueue = taskClient
	}
	if ingestScheduler != nil {
		routerCfg.Ingest = ingestScheduler
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if ingestScheduler != nil {
			ingestScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		if rateLimiter != nil {
			rateLimiter.Stop()
		}
		auditService.Flush()
	}

	Serve(router, cfg, onShutdown)
}
