package audit

import (
	"encoding/json"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mrlokans/calibre-bridge/internal/calibre"
	"github.com/mrlokans/calibre-bridge/internal/database/audit"
	"github.com/mrlokans/calibre-bridge/internal/entities"
)

var _ calibre.Observer = (*Service)(nil)

// Service records calibredb invocations.
type Service struct {
	repo    *audit.Repository
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// ObserveInvocation implements calibre.Observer. It never blocks the runner.
func (s *Service) ObserveInvocation(inv calibre.Invocation) {
	s.LogAsync(EventFromInvocation(inv))
}

// Log records an invocation event synchronously.
func (s *Service) Log(event *entities.InvocationEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.InvocationEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log invocation event: %v", err)
		}
	}()
}

// Flush waits for background writes started so far.
func (s *Service) Flush() {
	s.pending.Wait()
}

// GetEvents retrieves paginated invocation events.
func (s *Service) GetEvents(filter audit.EventFilter, limit, offset int) ([]entities.InvocationEvent, int64, error) {
	return s.repo.GetEvents(filter, limit, offset)
}

// DeleteOldEvents removes events with the given status older than retention.
// An empty status matches every event.
func (s *Service) DeleteOldEvents(retention time.Duration, status entities.AuditStatus) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff, status)
}

// EventFromInvocation converts a runner report into a storable event.
func EventFromInvocation(inv calibre.Invocation) *entities.InvocationEvent {
	args := inv.Args
	if len(args) > 0 && args[0] == inv.Command {
		args = args[1:]
	}
	argsJSON := "[]"
	if len(args) > 0 {
		if b, err := json.Marshal(args); err == nil {
			argsJSON = string(b)
		}
	}

	createdAt := inv.StartedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	event := &entities.InvocationEvent{
		InvocationID: inv.ID,
		Command:      inv.Command,
		Args:         argsJSON,
		LibraryPath:  inv.LibraryPath,
		Streaming:    inv.Streaming,
		ExitCode:     inv.ExitCode,
		Status:       entities.AuditStatusSuccess,
		DurationMs:   inv.Duration.Milliseconds(),
		CreatedAt:    createdAt,
	}

	if inv.Err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorKind = string(calibre.KindOf(inv.Err))
		event.ErrorMsg = truncate(inv.Err.Error(), 500)
	}

	return event
}

// truncate shortens a string to max length.
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
