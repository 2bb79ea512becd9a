package models

import (
	"time"
)

// Import job states
const (
	ImportJobStatusPending    = "pending"
	ImportJobStatusProcessing = "processing"
	ImportJobStatusCompleted  = "completed"
	ImportJobStatusFailed     = "failed"
)

// ImportJob tracks one CSV import attempt. It is written by exactly one
// background worker and read by any number of concurrent pollers; counters
// only ever move forward and terminal states are never left again.
type ImportJob struct {
	ID            string     `gorm:"type:varchar(36);primaryKey" json:"job_id"`
	FileName      string     `gorm:"type:varchar(500);not null" json:"file_name"`
	Status        string     `gorm:"type:varchar(50);not null;default:'pending';index" json:"status"`
	TotalRows     int64      `gorm:"not null;default:0" json:"total_rows"`
	ProcessedRows int64      `gorm:"not null;default:0" json:"processed_rows"`
	CreatedCount  int64      `gorm:"not null;default:0" json:"created_count"`
	UpdatedCount  int64      `gorm:"not null;default:0" json:"updated_count"`
	RejectedCount int64      `gorm:"not null;default:0" json:"rejected_count"`
	ErrorMessage  string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	CompletedAt   *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
}

// TableName specifies the table name for the ImportJob model
func (ImportJob) TableName() string {
	return "import_jobs"
}

// IsTerminal reports whether the job reached a final state.
func (j *ImportJob) IsTerminal() bool {
	return j.Status == ImportJobStatusCompleted || j.Status == ImportJobStatusFailed
}
