package http

import (
	"context"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/calibre-bridge/internal/calibre"
	dbaudit "github.com/mrlokans/calibre-bridge/internal/database/audit"
	"github.com/mrlokans/calibre-bridge/internal/entities"
	"github.com/mrlokans/calibre-bridge/internal/scheduler"
)

// This file consolidates the interfaces HTTP controllers depend on.
// The concrete types live in calibre, database, tasks and scheduler.

// Library is the calibredb surface exposed over HTTP.
type Library interface {
	List(ctx context.Context, opts calibre.ListOptions) ([]calibre.Book, error)
	Search(ctx context.Context, expression string, limit int) ([]int, error)
	Add(ctx context.Context, paths []string, opts calibre.AddOptions) ([]int, error)
	Remove(ctx context.Context, ids []int, permanent bool) error
}

// ToolChecker resolves the calibredb executable.
type ToolChecker interface {
	CheckTool() (string, error)
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping() error
}

// TaskQueue enqueues background work and reports its status.
type TaskQueue interface {
	Enqueue(task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// AuditStore reads recorded calibredb invocations.
type AuditStore interface {
	GetEvents(filter dbaudit.EventFilter, limit, offset int) ([]entities.InvocationEvent, int64, error)
}

// IngestRunner controls inbox ingestion.
type IngestRunner interface {
	RunNow() error
	IsRunning() bool
	IsIngesting() bool
	LastSummary() *scheduler.IngestSummary
	GetNextRunTime() *time.Time
}

// IngestStore reads the ingest ledger.
type IngestStore interface {
	GetRecords(status entities.IngestStatus, limit, offset int) ([]entities.IngestRecord, int64, error)
	CountByStatus() (map[entities.IngestStatus]int64, error)
}

var (
	_ Library      = (*calibre.Client)(nil)
	_ ToolChecker  = (*calibre.Client)(nil)
	_ IngestRunner = (*scheduler.IngestScheduler)(nil)
)
