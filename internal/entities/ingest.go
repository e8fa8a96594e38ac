package entities

import "time"

type IngestStatus string

const (
	IngestStatusAdded     IngestStatus = "added"
	IngestStatusDuplicate IngestStatus = "duplicate"
	IngestStatusFailed    IngestStatus = "failed"
)

// IngestRecord tracks one inbox file handed to calibredb add.
type IngestRecord struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Path      string       `gorm:"size:1000;index" json:"path"`
	Status    IngestStatus `gorm:"size:20;index" json:"status"`
	BookIDs   string       `gorm:"size:500" json:"book_ids,omitempty"` // Comma-separated calibre ids
	ErrorMsg  string       `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt time.Time    `gorm:"index" json:"created_at"`
}

func (IngestRecord) TableName() string {
	return "ingest_records"
}
