package ingest

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/calibre-bridge/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Save records the outcome of ingesting one file.
func (r *Repository) Save(record *entities.IngestRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	return r.db.Create(record).Error
}

// GetRecords returns ingest records, most recent first. An empty status
// matches every record.
func (r *Repository) GetRecords(status entities.IngestStatus, limit, offset int) ([]entities.IngestRecord, int64, error) {
	var records []entities.IngestRecord
	var total int64

	query := r.db.Model(&entities.IngestRecord{})
	if status != "" {
		query = query.Where("status = ?", status)
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

	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&records).Error
	return records, total, err
}

// CountByStatus returns how many files ended in each status.
func (r *Repository) CountByStatus() (map[entities.IngestStatus]int64, error) {
	var rows []struct {
		Status entities.IngestStatus
		Count  int64
	}
	err := r.db.Model(&entities.IngestRecord{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[entities.IngestStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
