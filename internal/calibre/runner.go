package calibre

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultExecutable is launched when Config.Executable is empty.
const DefaultExecutable = "calibredb"

const (
	flagLibraryPath = "--library-path"
	flagForMachine  = "--for-machine"
)

// Config selects which calibredb binary runs and against which library.
// It is passed explicitly to every Runner; there is no package-level default state.
type Config struct {
	// Executable is the binary name or path. Default: "calibredb"
	Executable string

	// LibraryPath is injected as --library-path when set. When empty the tool
	// resolves its own default library.
	LibraryPath string
}

// NewConfig returns a Config with the default executable.
func NewConfig() Config {
	return Config{Executable: DefaultExecutable}
}

func (c Config) executable() string {
	if c.Executable == "" {
		return DefaultExecutable
	}
	return c.Executable
}

// RunOptions tweaks a single invocation.
type RunOptions struct {
	// MachineReadable appends --for-machine. The runner never parses the output itself.
	MachineReadable bool
}

// Invocation describes one calibredb process run, reported to an Observer.
type Invocation struct {
	ID          string
	Command     string
	Args        []string
	LibraryPath string
	StartedAt   time.Time
	Duration    time.Duration
	ExitCode    int // -1 when the process never produced an exit status
	Streaming   bool
	Err         error
}

// Observer is notified after every invocation. Implementations must not block.
type Observer interface {
	ObserveInvocation(inv Invocation)
}

// Runner launches calibredb, one process per call, without retries.
type Runner struct {
	config   Config
	observer Observer
}

// NewRunner creates a Runner for the given configuration.
func NewRunner(cfg Config) *Runner {
	return &Runner{config: cfg}
}

// SetObserver registers an observer for invocation reporting.
func (r *Runner) SetObserver(o Observer) {
	r.observer = o
}

// Config returns the runner's configuration.
func (r *Runner) Config() Config {
	return r.config
}

// BuildArgs returns the argument vector passed to the executable:
//
//	<command> [--library-path <path>] [--for-machine] <args...>
//
// args are appended in the order given.
func (r *Runner) BuildArgs(command string, args []string, opts RunOptions) []string {
	argv := make([]string, 0, len(args)+4)
	argv = append(argv, command)
	if r.config.LibraryPath != "" {
		argv = append(argv, flagLibraryPath, r.config.LibraryPath)
	}
	if opts.MachineReadable {
		argv = append(argv, flagForMachine)
	}
	return append(argv, args...)
}

// Run executes the command and returns its complete, untrimmed stdout.
// The process is reaped before Run returns on every path. A non-zero exit is
// classified from stderr, falling back to stdout, then to a placeholder.
func (r *Runner) Run(ctx context.Context, command string, args []string, opts RunOptions) (string, error) {
	argv := r.BuildArgs(command, args, opts)

	cmd := exec.CommandContext(ctx, r.config.executable(), argv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	startedAt := time.Now()
	runErr := cmd.Run()

	exitCode := 0
	if runErr != nil {
		exitCode = -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
	}

	var result error
	if runErr != nil {
		cause := runErr
		if ctxErr := ctx.Err(); ctxErr != nil {
			cause = fmt.Errorf("%w: %w", ctxErr, runErr)
		}
		result = Classify(cause, command, failureText(stderr.String(), stdout.String()))
		log.Printf("[CALIBRE] %s exited with code %d after %v: %v",
			command, exitCode, time.Since(startedAt).Round(time.Millisecond), result)
	}

	r.observe(Invocation{
		Command:   command,
		Args:      argv,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		ExitCode:  exitCode,
		Err:       result,
	})

	if result != nil {
		return "", result
	}
	return stdout.String(), nil
}

// Stream starts the command without buffering and returns immediately.
// The caller must drain Stdout and Stderr and then call Wait; until then the
// process is the caller's to terminate via Process.
func (r *Runner) Stream(ctx context.Context, command string, args []string, opts RunOptions) (*Stream, error) {
	argv := r.BuildArgs(command, args, opts)

	cmd := exec.CommandContext(ctx, r.config.executable(), argv...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	startedAt := time.Now()
	if err := cmd.Start(); err != nil {
		cerr := Classify(err, command, "")
		r.observe(Invocation{
			Command:   command,
			Args:      argv,
			StartedAt: startedAt,
			ExitCode:  -1,
			Streaming: true,
			Err:       cerr,
		})
		return nil, cerr
	}

	r.observe(Invocation{
		Command:   command,
		Args:      argv,
		StartedAt: startedAt,
		ExitCode:  -1,
		Streaming: true,
	})

	s := &Stream{
		Stdout:  stdout,
		Process: cmd.Process,
		cmd:     cmd,
		command: command,
	}
	s.Stderr = io.TeeReader(stderr, &s.stderrCopy)
	return s, nil
}

func (r *Runner) observe(inv Invocation) {
	if r.observer == nil {
		return
	}
	inv.ID = uuid.New().String()
	inv.LibraryPath = r.config.LibraryPath
	r.observer.ObserveInvocation(inv)
}

// Stream is a live calibredb process.
type Stream struct {
	Stdout  io.Reader
	Stderr  io.Reader
	Process *os.Process

	cmd        *exec.Cmd
	command    string
	stderrCopy lockedBuffer
}

// Wait blocks until the process exits. Both readers must be drained first.
// A non-zero exit is classified from whatever stderr text was read.
func (s *Stream) Wait() error {
	err := s.cmd.Wait()
	if err == nil {
		return nil
	}
	return Classify(err, s.command, failureText(s.stderrCopy.String(), ""))
}

// Kill terminates the process.
func (s *Stream) Kill() error {
	if s.Process == nil {
		return nil
	}
	if err := s.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func failureText(stderr, stdout string) string {
	if stderr != "" {
		return stderr
	}
	if stdout != "" {
		return stdout
	}
	return noOutputPlaceholder
}
