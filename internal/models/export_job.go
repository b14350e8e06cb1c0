package models

import "time"

// JobStatus is the lifecycle state of an export job.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobSuccess || s == JobFailed
}

// ExportJob records one export request and its outcome.
// JobID is the display identifier; RowID is the ledger key, so two jobs
// created in the same millisecond still get separate rows.
type ExportJob struct {
	RowID       uint      `gorm:"primaryKey" json:"-"`
	JobID       string    `gorm:"index;not null" json:"id"`
	Platform    string    `gorm:"not null" json:"platform"`
	Status      JobStatus `gorm:"not null" json:"status"`
	Message     string    `json:"message"`
	DownloadURL string    `json:"download_url,omitempty"`
	CreatedAt   time.Time `json:"timestamp"`
	UpdatedAt   time.Time `json:"-"`
}
