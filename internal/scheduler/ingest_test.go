package scheduler

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/calibre-bridge/internal/calibre"
	"github.com/mrlokans/calibre-bridge/internal/entities"
)

type addResult struct {
	ids []int
	err error
}

type fakeAdder struct {
	mu      sync.Mutex
	results map[string]addResult
	calls   []string
	opts    []calibre.AddOptions
}

func (f *fakeAdder) Add(_ context.Context, paths []string, opts calibre.AddOptions) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := filepath.Base(paths[0])
	f.calls = append(f.calls, name)
	f.opts = append(f.opts, opts)
	r, ok := f.results[name]
	if !ok {
		return []int{1}, nil
	}
	return r.ids, r.err
}

type memoryRecorder struct {
	mu      sync.Mutex
	records []entities.IngestRecord
}

func (m *memoryRecorder) Save(record *entities.IngestRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *record)
	return nil
}

func (m *memoryRecorder) byStatus(status entities.IngestStatus) []entities.IngestRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.IngestRecord
	for _, r := range m.records {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

func setupInbox(t *testing.T, names ...string) IngestConfig {
	t.Helper()
	root := t.TempDir()
	inbox := filepath.Join(root, "inbox")
	require.NoError(t, os.MkdirAll(inbox, 0755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(inbox, name), []byte("content"), 0644))
	}
	return IngestConfig{
		Enabled:      true,
		Schedule:     "*/15 * * * *",
		InboxDir:     inbox,
		ProcessedDir: filepath.Join(inbox, "processed"),
		FailedDir:    filepath.Join(inbox, "failed"),
		Duplicates:   calibre.DuplicatesMergeIgnore,
	}
}

func TestIngestScheduler_Scan(t *testing.T) {
	cfg := setupInbox(t, "a.epub", "b.EPUB", "c.pdf", "notes.md", ".hidden.epub")
	adder := &fakeAdder{results: map[string]addResult{
		"a.epub": {ids: []int{10}},
		"b.EPUB": {ids: []int{}},
		"c.pdf":  {err: calibre.Classify(errors.New("exit status 1"), "add", "Failed to read file: corrupt PDF")},
	}}
	recorder := &memoryRecorder{}

	s := NewIngestScheduler(adder, recorder, cfg)
	summary, err := s.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Scanned)
	assert.Equal(t, 1, summary.Added)
	assert.Equal(t, 1, summary.Duplicates)
	assert.Equal(t, 1, summary.Failed)

	assert.Equal(t, []string{"a.epub", "b.EPUB", "c.pdf"}, adder.calls)
	for _, opts := range adder.opts {
		assert.Equal(t, calibre.DuplicatesMergeIgnore, opts.Duplicates)
	}

	assert.FileExists(t, filepath.Join(cfg.ProcessedDir, "a.epub"))
	assert.FileExists(t, filepath.Join(cfg.ProcessedDir, "b.EPUB"))
	assert.FileExists(t, filepath.Join(cfg.FailedDir, "c.pdf"))
	assert.FileExists(t, filepath.Join(cfg.InboxDir, "notes.md"))
	assert.FileExists(t, filepath.Join(cfg.InboxDir, ".hidden.epub"))

	added := recorder.byStatus(entities.IngestStatusAdded)
	require.Len(t, added, 1)
	assert.Equal(t, "10", added[0].BookIDs)
	assert.Equal(t, filepath.Join(cfg.ProcessedDir, "a.epub"), added[0].Path)

	failed := recorder.byStatus(entities.IngestStatusFailed)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].ErrorMsg, "corrupt PDF")
}

func TestIngestScheduler_ScanAbortsOnMissingTool(t *testing.T) {
	cfg := setupInbox(t, "a.epub", "b.epub")
	missing := calibre.Classify(&exec.Error{Name: "calibredb", Err: exec.ErrNotFound}, "add", "")
	adder := &fakeAdder{results: map[string]addResult{"a.epub": {err: missing}}}
	recorder := &memoryRecorder{}

	summary, err := NewIngestScheduler(adder, recorder, cfg).Scan(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, calibre.ErrToolMissing)

	assert.Zero(t, summary.Scanned)
	assert.Equal(t, []string{"a.epub"}, adder.calls)
	assert.FileExists(t, filepath.Join(cfg.InboxDir, "a.epub"))
	assert.FileExists(t, filepath.Join(cfg.InboxDir, "b.epub"))
	assert.Empty(t, recorder.records)
}

func TestIngestScheduler_ScanEmptyInbox(t *testing.T) {
	cfg := setupInbox(t)
	adder := &fakeAdder{}

	summary, err := NewIngestScheduler(adder, nil, cfg).Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Scanned)
	assert.Empty(t, adder.calls)
}

func TestIngestScheduler_ScanMissingInbox(t *testing.T) {
	cfg := IngestConfig{InboxDir: filepath.Join(t.TempDir(), "nope")}

	_, err := NewIngestScheduler(&fakeAdder{}, nil, cfg).Scan(context.Background())
	assert.Error(t, err)
}

func TestIngestScheduler_NameCollisionInProcessedDir(t *testing.T) {
	cfg := setupInbox(t, "a.epub")
	require.NoError(t, os.MkdirAll(cfg.ProcessedDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ProcessedDir, "a.epub"), []byte("older"), 0644))

	_, err := NewIngestScheduler(&fakeAdder{}, nil, cfg).Scan(context.Background())
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(cfg.ProcessedDir, "a*.epub"))
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestIngestScheduler_RunNowRecordsSummary(t *testing.T) {
	cfg := setupInbox(t, "a.epub")
	s := NewIngestScheduler(&fakeAdder{}, nil, cfg)

	assert.Nil(t, s.LastSummary())
	require.NoError(t, s.RunNow())

	require.Eventually(t, func() bool {
		return s.LastSummary() != nil
	}, 5*time.Second, 10*time.Millisecond)

	summary := s.LastSummary()
	assert.Equal(t, 1, summary.Added)
	assert.Empty(t, summary.Error)
}

func TestIngestScheduler_StartStop(t *testing.T) {
	t.Run("disabled does not start", func(t *testing.T) {
		cfg := setupInbox(t)
		cfg.Enabled = false
		s := NewIngestScheduler(&fakeAdder{}, nil, cfg)

		require.NoError(t, s.Start(context.Background()))
		assert.False(t, s.IsRunning())
		assert.Nil(t, s.GetNextRunTime())
	})

	t.Run("invalid schedule", func(t *testing.T) {
		cfg := setupInbox(t)
		cfg.Schedule = "every now and then"
		s := NewIngestScheduler(&fakeAdder{}, nil, cfg)

		assert.Error(t, s.Start(context.Background()))
		assert.False(t, s.IsRunning())
	})

	t.Run("runs until stopped", func(t *testing.T) {
		cfg := setupInbox(t)
		s := NewIngestScheduler(&fakeAdder{}, nil, cfg)

		require.NoError(t, s.Start(context.Background()))
		assert.True(t, s.IsRunning())
		assert.NotNil(t, s.GetNextRunTime())

		s.Stop()
		assert.False(t, s.IsRunning())
	})

	t.Run("context cancellation stops", func(t *testing.T) {
		cfg := setupInbox(t)
		s := NewIngestScheduler(&fakeAdder{}, nil, cfg)

		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, s.Start(ctx))
		cancel()

		assert.Eventually(t, func() bool { return !s.IsRunning() }, 2*time.Second, 10*time.Millisecond)
	})
}

func TestValidateCronSchedule(t *testing.T) {
	assert.NoError(t, ValidateCronSchedule("*/15 * * * *"))
	assert.NoError(t, ValidateCronSchedule("0 3 * * 1-5"))
	assert.Error(t, ValidateCronSchedule("* * * *"))
	assert.Error(t, ValidateCronSchedule("@every banana"))

	assert.Equal(t, "Every 15 minutes", GetCronDescription("*/15 * * * *"))
	assert.Equal(t, "Custom schedule: 0 3 * * 1-5", GetCronDescription("0 3 * * 1-5"))
}

func TestIngestScheduler_UnreadableFileDoesNotStallInbox(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake calibredb is a shell script")
	}
	cfg := setupInbox(t, "a.epub", "b.epub")

	script := filepath.Join(t.TempDir(), "calibredb")
	body := `#!/bin/sh
for arg in "$@"; do
  case "$arg" in
    *a.epub)
      echo "FileNotFoundError: [Errno 2] No such file or directory: '$arg'" >&2
      exit 1
      ;;
  esac
done
echo "Added book ids: 5"
`
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	client := calibre.NewClient(calibre.Config{Executable: script, LibraryPath: t.TempDir()})
	recorder := &memoryRecorder{}

	summary, err := NewIngestScheduler(client, recorder, cfg).Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Scanned)
	assert.Equal(t, 1, summary.Added)
	assert.Equal(t, 1, summary.Failed)
	assert.FileExists(t, filepath.Join(cfg.FailedDir, "a.epub"))
	assert.FileExists(t, filepath.Join(cfg.ProcessedDir, "b.epub"))

	failed := recorder.byStatus(entities.IngestStatusFailed)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].ErrorMsg, "No such file or directory")
}

// blockingAdder holds every Add until its context ends.
type blockingAdder struct {
	started   chan struct{}
	cancelled chan struct{}
}

func (b *blockingAdder) Add(ctx context.Context, _ []string, _ calibre.AddOptions) ([]int, error) {
	close(b.started)
	<-ctx.Done()
	close(b.cancelled)
	return nil, ctx.Err()
}

func TestIngestScheduler_StopCancelsRunningScan(t *testing.T) {
	cfg := setupInbox(t, "a.epub", "b.epub")
	cfg.RunTimeout = time.Hour
	adder := &blockingAdder{started: make(chan struct{}), cancelled: make(chan struct{})}
	s := NewIngestScheduler(adder, nil, cfg)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.RunNow())

	select {
	case <-adder.started:
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not start")
	}
	assert.True(t, s.IsIngesting())

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop waited for the scan timeout")
	}

	select {
	case <-adder.cancelled:
	default:
		t.Fatal("adder context was not cancelled")
	}
	assert.False(t, s.IsIngesting())

	summary := s.LastSummary()
	require.NotNil(t, summary)
	assert.Contains(t, summary.Error, context.Canceled.Error())
	assert.FileExists(t, filepath.Join(cfg.InboxDir, "a.epub"))
	assert.FileExists(t, filepath.Join(cfg.InboxDir, "b.epub"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))

	cut := truncate(strings.Repeat("ж", 20), 10)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, "жжж...", cut)
}
