package calibre

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
)

const (
	commandList   = "list"
	commandAdd    = "add"
	commandRemove = "remove"
	commandSearch = "search"
)

// Client exposes calibredb subcommands as typed operations.
// Calls are not serialized: calibredb allows a single instance per library,
// so concurrent calls against one library are the caller's responsibility.
type Client struct {
	runner *Runner
}

// NewClient creates a client with its own Runner.
func NewClient(cfg Config) *Client {
	return &Client{runner: NewRunner(cfg)}
}

// NewClientWithRunner wraps an existing Runner, e.g. one with an observer attached.
func NewClientWithRunner(r *Runner) *Client {
	return &Client{runner: r}
}

// Runner returns the underlying runner.
func (c *Client) Runner() *Runner {
	return c.runner
}

// List returns the records matching opts. An empty library yields an empty slice.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]Book, error) {
	args, err := opts.args()
	if err != nil {
		return nil, err
	}

	books, err := RunJSON[[]Book](ctx, c.runner, commandList, args)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}

// Add imports the given files (or one empty record) and returns the new ids.
// Files skipped as duplicates produce no id, so the result may be shorter
// than paths, or empty.
func (c *Client) Add(ctx context.Context, paths []string, opts AddOptions) ([]int, error) {
	if err := opts.Validate(paths); err != nil {
		return nil, err
	}

	out, err := c.runner.Run(ctx, commandAdd, opts.args(paths), RunOptions{})
	if err != nil {
		return nil, err
	}
	return ParseAddedIDs(out), nil
}

// AddStream is Add without buffering: progress lines are read from the
// returned stream, and ParseAddedIDs can be applied to the collected stdout.
func (c *Client) AddStream(ctx context.Context, paths []string, opts AddOptions) (*Stream, error) {
	if err := opts.Validate(paths); err != nil {
		return nil, err
	}
	return c.runner.Stream(ctx, commandAdd, opts.args(paths), RunOptions{})
}

// Remove deletes the given records. Ids that do not exist are accepted by
// calibredb, so removing twice is the same as removing once. Books go to the
// recycle bin unless permanent is set.
func (c *Client) Remove(ctx context.Context, ids []int, permanent bool) error {
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: invalid book id %d", ErrInvalidOptions, id)
		}
	}

	args := []string{joinIDs(ids)}
	if permanent {
		args = append(args, "--permanent")
	}
	_, err := c.runner.Run(ctx, commandRemove, args, RunOptions{})
	return err
}

// Search returns the ids matching a calibre search expression.
// No match is an empty result, not an error.
func (c *Client) Search(ctx context.Context, expression string, limit int) ([]int, error) {
	if expression == "" {
		return nil, fmt.Errorf("%w: empty search expression", ErrInvalidOptions)
	}

	var args []string
	if limit > 0 {
		args = append(args, "--limit", strconv.Itoa(limit))
	}
	args = append(args, expression)

	out, err := c.runner.Run(ctx, commandSearch, args, RunOptions{})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []int{}, nil
		}
		return nil, err
	}
	return ParseIDList(out), nil
}

// CheckTool resolves the configured executable without running it.
func (c *Client) CheckTool() (string, error) {
	path, err := exec.LookPath(c.runner.config.executable())
	if err != nil {
		return "", Classify(err, "", err.Error())
	}
	return path, nil
}
