package entities

import "time"

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

// InvocationEvent is one recorded calibredb process run.
type InvocationEvent struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	InvocationID string      `gorm:"size:36;index" json:"invocation_id"`
	Command      string      `gorm:"index;size:50" json:"command"` // "list", "add", "remove", "search"
	Args         string      `gorm:"type:text" json:"args"`        // JSON array of arguments after the command
	LibraryPath  string      `gorm:"size:500" json:"library_path,omitempty"`
	Streaming    bool        `json:"streaming"`
	ExitCode     int         `json:"exit_code"`
	Status       AuditStatus `gorm:"size:20;index" json:"status"`
	ErrorKind    string      `gorm:"size:50" json:"error_kind,omitempty"`
	ErrorMsg     string      `gorm:"size:500" json:"error_msg,omitempty"`
	DurationMs   int64       `json:"duration_ms"`
	CreatedAt    time.Time   `gorm:"index" json:"created_at"`
}

func (InvocationEvent) TableName() string {
	return "invocation_events"
}
