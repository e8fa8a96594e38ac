package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/calibre-bridge/internal/entities"
)

const defaultAuditRetentionDays = 30

// AuditEventCleaner deletes invocation events of one status past a retention window.
type AuditEventCleaner interface {
	DeleteOldEvents(retention time.Duration, status entities.AuditStatus) (int64, error)
}

// CleanupAuditEventsTask prunes the calibredb invocation log. Failed
// invocations can be kept longer than successful ones for troubleshooting.
type CleanupAuditEventsTask struct {
	RetentionDays       int `json:"retention_days"`
	FailedRetentionDays int `json:"failed_retention_days"`
}

// Config returns the queue configuration for audit cleanup tasks.
func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_audit_events",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration: 24 * time.Hour,
			Data:     &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// retentionDays returns the window for each status. A failed window shorter
// than the success window is raised to match it.
func (t CleanupAuditEventsTask) retentionDays() map[entities.AuditStatus]int {
	success := t.RetentionDays
	if success <= 0 {
		success = defaultAuditRetentionDays
	}
	failed := t.FailedRetentionDays
	if failed < success {
		failed = success
	}
	return map[entities.AuditStatus]int{
		entities.AuditStatusSuccess: success,
		entities.AuditStatusFailed:  failed,
	}
}

// CleanupAuditEventsProcessor creates a processor function for CleanupAuditEventsTask.
func CleanupAuditEventsProcessor(cleaner AuditEventCleaner) backlite.QueueProcessor[CleanupAuditEventsTask] {
	return func(ctx context.Context, task CleanupAuditEventsTask) error {
		if cleaner == nil {
			return fmt.Errorf("audit event cleaner not configured")
		}

		windows := task.retentionDays()
		for _, status := range []entities.AuditStatus{entities.AuditStatusSuccess, entities.AuditStatusFailed} {
			if err := ctx.Err(); err != nil {
				return err
			}
			days := windows[status]
			deleted, err := cleaner.DeleteOldEvents(time.Duration(days)*24*time.Hour, status)
			if err != nil {
				return fmt.Errorf("cleanup %s invocation events: %w", status, err)
			}
			if deleted > 0 {
				log.Printf("[TASK] Removed %d %s invocation events older than %d days", deleted, status, days)
			}
		}
		return nil
	}
}

// NewCleanupAuditEventsQueue creates a backlite queue for audit cleanup tasks.
func NewCleanupAuditEventsQueue(cleaner AuditEventCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupAuditEventsProcessor(cleaner))
}
