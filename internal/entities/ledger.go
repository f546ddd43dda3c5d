package entities

import (
	"time"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial" // some batches failed
	RunStatusFailed    RunStatus = "failed"
)

type BatchStatus string

const (
	BatchStatusQueued    BatchStatus = "queued"
	BatchStatusSucceeded BatchStatus = "succeeded"
	BatchStatusFailed    BatchStatus = "failed"
)

// Run is one load of a collection into an index.
type Run struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Index       string     `gorm:"index;size:100" json:"index"`
	Collection  string     `gorm:"size:512" json:"collection"`
	Status      RunStatus  `gorm:"size:20" json:"status"`
	TotalDocs   int        `json:"total_docs"`
	BatchSize   int        `json:"batch_size"`
	Batches     int        `json:"batches"`
	Indexed     int        `json:"indexed"`
	Failed      int        `json:"failed"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// BatchRecord is the outcome of one bulk submission inside a run. Failed
// batches carry enough context to be re-submitted on their own.
type BatchRecord struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	RunID     uint        `gorm:"uniqueIndex:idx_run_batch" json:"run_id"`
	Batch     int         `gorm:"uniqueIndex:idx_run_batch" json:"batch"`
	Index     string      `gorm:"size:100" json:"index"`
	Offset    int         `json:"offset"`
	Count     int         `json:"count"`
	Attempts  int         `json:"attempts"`
	Status    BatchStatus `gorm:"size:20;index" json:"status"`
	Error     string      `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (BatchRecord) TableName() string {
	return "batches"
}
