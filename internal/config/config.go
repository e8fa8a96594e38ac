package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/mrlokans/calibre-bridge/internal/calibre"
)

type (
	Config struct {
		HTTP
		Global
		Calibre
		Database
		Audit
		Tasks
		Ingest
		API
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Calibre struct {
		Executable  string // Binary name or path, default "calibredb"
		LibraryPath string // Empty lets calibredb pick its default library
	}
	Database struct {
		Path string
	}
	Audit struct {
		RetentionDays       int // Days to keep invocation events (default: 30)
		FailedRetentionDays int // Days to keep failed invocations (default: 90)
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Ingest struct {
		Enabled      bool
		Schedule     string // Cron format: "*/15 * * * *" = every 15 minutes
		InboxDir     string
		ProcessedDir string
		FailedDir    string
		Duplicates   string // reject | allow | ignore | overwrite | new_record
	}
	API struct {
		TokenHash string // bcrypt hash of the bearer token; empty disables auth
	}
)

// CalibreConfig converts the calibre section into the client configuration.
func (c *Config) CalibreConfig() calibre.Config {
	cfg := calibre.NewConfig()
	if c.Calibre.Executable != "" {
		cfg.Executable = c.Calibre.Executable
	}
	cfg.LibraryPath = c.Calibre.LibraryPath
	return cfg
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8189)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("calibredb_executable", calibre.DefaultExecutable)
	v.SetDefault("calibre_library_path", "")
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("audit_failed_retention_days", 90)
	v.SetDefault("api_token_hash", "")

	// Task queue defaults. calibredb allows one instance per library, so a
	// single worker is the safe default.
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "30m")
	v.SetDefault("task_release_after", "1h")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	// Inbox ingestion defaults
	v.SetDefault("ingest_enabled", false)
	v.SetDefault("ingest_schedule", "*/15 * * * *")
	v.SetDefault("ingest_inbox_dir", "./inbox")
	v.SetDefault("ingest_processed_dir", "./inbox/processed")
	v.SetDefault("ingest_failed_dir", "./inbox/failed")
	v.SetDefault("ingest_duplicates", "reject")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Calibre: Calibre{
			Executable:  v.GetString("CALIBREDB_EXECUTABLE"),
			LibraryPath: v.GetString("CALIBRE_LIBRARY_PATH"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Audit: Audit{
			RetentionDays:       v.GetInt("AUDIT_RETENTION_DAYS"),
			FailedRetentionDays: v.GetInt("AUDIT_FAILED_RETENTION_DAYS"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Ingest: Ingest{
			Enabled:      v.GetBool("INGEST_ENABLED"),
			Schedule:     v.GetString("INGEST_SCHEDULE"),
			InboxDir:     v.GetString("INGEST_INBOX_DIR"),
			ProcessedDir: v.GetString("INGEST_PROCESSED_DIR"),
			FailedDir:    v.GetString("INGEST_FAILED_DIR"),
			Duplicates:   v.GetString("INGEST_DUPLICATES"),
		},
		API: API{
			TokenHash: v.GetString("API_TOKEN_HASH"),
		},
	}
}
