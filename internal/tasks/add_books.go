package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/calibre-bridge/internal/calibre"
)

// AddBooksTask imports files into the calibre library in one calibredb call.
type AddBooksTask struct {
	Paths   []string           `json:"paths"`
	Options calibre.AddOptions `json:"options"`
}

// Config returns the queue configuration for add tasks.
// A retry could import the same file twice, so add runs once.
func (t AddBooksTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "add_books",
		MaxAttempts: 1,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// AddBooksProcessor creates a processor function for AddBooksTask.
func AddBooksProcessor(library Library) backlite.QueueProcessor[AddBooksTask] {
	return func(ctx context.Context, task AddBooksTask) error {
		if library == nil {
			return fmt.Errorf("calibre library not configured")
		}

		ids, err := library.Add(ctx, task.Paths, task.Options)
		if err != nil {
			return fmt.Errorf("add %d file(s): %w", len(task.Paths), err)
		}

		if len(ids) == 0 {
			log.Printf("[TASK] No books added from %d file(s): all duplicates", len(task.Paths))
		} else {
			log.Printf("[TASK] Added %d book(s) from %d file(s): ids %v", len(ids), len(task.Paths), ids)
		}
		return nil
	}
}

// NewAddBooksQueue creates a backlite queue for add tasks.
func NewAddBooksQueue(library Library) backlite.Queue {
	return backlite.NewQueue(AddBooksProcessor(library))
}
