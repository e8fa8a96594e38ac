package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/calibre-bridge/internal/entities"
)

// EventFilter narrows GetEvents. Zero values match everything.
type EventFilter struct {
	Command string
	Status  entities.AuditStatus
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEvent saves an invocation event to the database.
func (r *Repository) LogEvent(event *entities.InvocationEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.Create(event).Error
}

// GetEvents retrieves paginated invocation events, most recent first.
func (r *Repository) GetEvents(filter EventFilter, limit, offset int) ([]entities.InvocationEvent, int64, error) {
	var events []entities.InvocationEvent
	var total int64

	query := r.db.Model(&entities.InvocationEvent{})
	if filter.Command != "" {
		query = query.Where("command = ?", filter.Command)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&events).Error
	return events, total, err
}

// GetEventByInvocationID retrieves a single event by its invocation UUID.
func (r *Repository) GetEventByInvocationID(id string) (*entities.InvocationEvent, error) {
	var event entities.InvocationEvent
	err := r.db.Where("invocation_id = ?", id).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// DeleteOldEvents removes events older than the specified time, limited to
// status unless it is empty. Returns the number of deleted events.
func (r *Repository) DeleteOldEvents(olderThan time.Time, status entities.AuditStatus) (int64, error) {
	query := r.db.Where("created_at < ?", olderThan)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	result := query.Delete(&entities.InvocationEvent{})
	return result.RowsAffected, result.Error
}
