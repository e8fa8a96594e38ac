package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/calibre-bridge/internal/calibre"
	"github.com/mrlokans/calibre-bridge/internal/entities"
)

// ebookExtensions lists the inbox file types handed to calibredb add.
var ebookExtensions = map[string]bool{
	".epub": true, ".mobi": true, ".azw": true, ".azw3": true, ".kfx": true,
	".pdf": true, ".fb2": true, ".djvu": true, ".cbz": true, ".cbr": true,
	".lit": true, ".lrf": true, ".rtf": true, ".txt": true, ".docx": true,
	".odt": true, ".htmlz": true, ".txtz": true,
}

// BookAdder imports files into the calibre library.
type BookAdder interface {
	Add(ctx context.Context, paths []string, opts calibre.AddOptions) ([]int, error)
}

// IngestRecorder persists per-file outcomes.
type IngestRecorder interface {
	Save(record *entities.IngestRecord) error
}

// IngestConfig configures inbox ingestion.
type IngestConfig struct {
	Enabled      bool
	Schedule     string
	InboxDir     string
	ProcessedDir string
	FailedDir    string
	Duplicates   calibre.DuplicateMode
	RunTimeout   time.Duration // Bound for a whole scan; zero means 30m
}

// IngestSummary describes one scan of the inbox.
type IngestSummary struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Scanned    int           `json:"scanned"`
	Added      int           `json:"added"`
	Duplicates int           `json:"duplicates"`
	Failed     int           `json:"failed"`
	Error      string        `json:"error,omitempty"`
}

// IngestScheduler periodically adds e-book files dropped into an inbox
// directory to the calibre library.
type IngestScheduler struct {
	adder    BookAdder
	recorder IngestRecorder
	config   IngestConfig

	cron        *cron.Cron
	entryID     cron.EntryID
	mu          sync.RWMutex
	isRunning   bool
	isIngesting bool
	lastSummary *IngestSummary
	scanCtx     context.Context
	cancelFunc  context.CancelFunc
	scans       sync.WaitGroup
}

// NewIngestScheduler creates a new scheduler instance. recorder may be nil.
func NewIngestScheduler(adder BookAdder, recorder IngestRecorder, cfg IngestConfig) *IngestScheduler {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Minute
	}
	return &IngestScheduler{
		adder:    adder,
		recorder: recorder,
		config:   cfg,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// Start begins the scheduler if ingestion is enabled
func (s *IngestScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.config.Enabled {
		log.Printf("[INGEST] scheduler: disabled")
		return nil
	}

	if s.config.InboxDir == "" {
		log.Printf("[INGEST] scheduler: inbox directory not configured, skipping")
		return nil
	}

	if err := ValidateCronSchedule(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.config.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, s.runIngest)
	if err != nil {
		return fmt.Errorf("failed to schedule ingest job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)
	s.scanCtx = cancelCtx

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := GetNextRunTime(s.config.Schedule)
	log.Printf("[INGEST] scheduler: watching %s with schedule '%s' (%s). Next run: %v",
		s.config.InboxDir,
		s.config.Schedule,
		GetCronDescription(s.config.Schedule),
		nextRun)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running scan.
func (s *IngestScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancelFunc
	s.cancelFunc = nil
	s.mu.Unlock()

	// Cancelling kills a running calibredb add; the scan then takes the lock
	// to record its summary, so wait unlocked.
	if cancel != nil {
		cancel()
	}
	<-s.cron.Stop().Done()
	s.scans.Wait()

	log.Printf("[INGEST] scheduler: stopped")
}

// RunNow triggers an immediate scan in the background.
func (s *IngestScheduler) RunNow() error {
	if s.config.InboxDir == "" {
		return fmt.Errorf("inbox directory not configured")
	}
	s.scans.Add(1)
	go func() {
		defer s.scans.Done()
		s.runIngest()
	}()
	return nil
}

// IsRunning returns whether the scheduler is active
func (s *IngestScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsIngesting returns whether a scan is currently in progress
func (s *IngestScheduler) IsIngesting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isIngesting
}

// LastSummary returns the outcome of the most recent scan, or nil.
func (s *IngestScheduler) LastSummary() *IngestSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastSummary == nil {
		return nil
	}
	summary := *s.lastSummary
	return &summary
}

// GetNextRunTime returns when the next scan will occur
func (s *IngestScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *IngestScheduler) runIngest() {
	s.mu.Lock()
	if s.isIngesting {
		s.mu.Unlock()
		log.Printf("[INGEST] skipped (already ingesting)")
		return
	}
	s.isIngesting = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isIngesting = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(s.baseContext(), s.config.RunTimeout)
	defer cancel()

	summary, err := s.Scan(ctx)
	if err != nil {
		summary.Error = err.Error()
		log.Printf("[INGEST] scan aborted: %v", err)
	}

	s.mu.Lock()
	s.lastSummary = &summary
	s.mu.Unlock()
}

// baseContext is cancelled by Stop. Before Start, scans are bounded by
// RunTimeout alone.
func (s *IngestScheduler) baseContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.scanCtx == nil {
		return context.Background()
	}
	return s.scanCtx
}

// Scan adds every e-book file currently in the inbox, one calibredb call per
// file, and moves each file to the processed or failed directory. A missing
// tool or library aborts the scan and leaves the remaining files in place.
func (s *IngestScheduler) Scan(ctx context.Context) (summary IngestSummary, err error) {
	summary.StartedAt = time.Now()
	defer func() { summary.Duration = time.Since(summary.StartedAt) }()

	files, err := s.inboxFiles()
	if err != nil {
		return summary, err
	}
	if len(files) == 0 {
		return summary, nil
	}

	log.Printf("[INGEST] found %d file(s) in %s", len(files), s.config.InboxDir)
	opts := calibre.AddOptions{Duplicates: s.config.Duplicates}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Scanned++

		ids, addErr := s.adder.Add(ctx, []string{path}, opts)
		if isEnvironmentFailure(addErr) {
			summary.Scanned--
			return summary, addErr
		}

		record := &entities.IngestRecord{Path: path}
		destDir := s.config.ProcessedDir
		switch {
		case addErr != nil:
			record.Status = entities.IngestStatusFailed
			record.ErrorMsg = truncate(addErr.Error(), 500)
			destDir = s.config.FailedDir
			summary.Failed++
			log.Printf("[INGEST] failed to add %s: %v", filepath.Base(path), addErr)
		case len(ids) == 0:
			record.Status = entities.IngestStatusDuplicate
			summary.Duplicates++
			log.Printf("[INGEST] %s already in library", filepath.Base(path))
		default:
			record.Status = entities.IngestStatusAdded
			record.BookIDs = joinIDs(ids)
			summary.Added++
			log.Printf("[INGEST] added %s as book(s) %s", filepath.Base(path), record.BookIDs)
		}

		moved, err := moveFile(path, destDir)
		if err != nil {
			log.Printf("[INGEST] warning - failed to move %s: %v", path, err)
		} else {
			record.Path = moved
		}

		if s.recorder != nil {
			if err := s.recorder.Save(record); err != nil {
				log.Printf("[INGEST] warning - failed to record %s: %v", path, err)
			}
		}
	}

	log.Printf("[INGEST] done: %d added, %d duplicate, %d failed", summary.Added, summary.Duplicates, summary.Failed)
	return summary, nil
}

func (s *IngestScheduler) inboxFiles() ([]string, error) {
	entries, err := os.ReadDir(s.config.InboxDir)
	if err != nil {
		return nil, fmt.Errorf("read inbox %s: %w", s.config.InboxDir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !ebookExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		files = append(files, filepath.Join(s.config.InboxDir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// isEnvironmentFailure reports errors that no file in the inbox could avoid.
func isEnvironmentFailure(err error) bool {
	return errors.Is(err, calibre.ErrToolMissing) ||
		errors.Is(err, calibre.ErrLibraryNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// moveFile moves path into dir, suffixing the name when the target exists.
// An empty dir leaves the file where it is.
func moveFile(path, dir string) (string, error) {
	if dir == "" {
		return path, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	base := filepath.Base(path)
	target := filepath.Join(dir, base)
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		target = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, time.Now().UnixNano(), ext))
	}

	if err := os.Rename(path, target); err != nil {
		return "", err
	}
	return target, nil
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
