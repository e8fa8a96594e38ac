package tasks

import (
	"context"

	"github.com/mrlokans/calibre-bridge/internal/calibre"
)

// Library is the subset of the calibredb client the queues drive.
type Library interface {
	Add(ctx context.Context, paths []string, opts calibre.AddOptions) ([]int, error)
	Remove(ctx context.Context, ids []int, permanent bool) error
}

var _ Library = (*calibre.Client)(nil)
