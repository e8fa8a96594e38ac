package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/calibre-bridge/internal/calibre"
)

// RemoveBooksTask removes books from the calibre library by id.
type RemoveBooksTask struct {
	IDs       []int `json:"ids"`
	Permanent bool  `json:"permanent"`
}

// Config returns the queue configuration for remove tasks.
func (t RemoveBooksTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "remove_books",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RemoveBooksProcessor creates a processor function for RemoveBooksTask.
// Books already gone count as removed.
func RemoveBooksProcessor(library Library) backlite.QueueProcessor[RemoveBooksTask] {
	return func(ctx context.Context, task RemoveBooksTask) error {
		if library == nil {
			return fmt.Errorf("calibre library not configured")
		}

		err := library.Remove(ctx, task.IDs, task.Permanent)
		if errors.Is(err, calibre.ErrNotFound) {
			log.Printf("[TASK] Books %v already absent from library", task.IDs)
			return nil
		}
		if err != nil {
			return fmt.Errorf("remove books %v: %w", task.IDs, err)
		}

		log.Printf("[TASK] Removed %d book(s) (permanent=%t)", len(task.IDs), task.Permanent)
		return nil
	}
}

// NewRemoveBooksQueue creates a backlite queue for remove tasks.
func NewRemoveBooksQueue(library Library) backlite.Queue {
	return backlite.NewQueue(RemoveBooksProcessor(library))
}
