package models

import "time"

// Backfill job lifecycle states. Transitions are monotone: a job never
// returns to pending or running once it reaches done or failed.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool { return s == JobDone || s == JobFailed }

// BackfillJob is the persisted state of one historical backfill run.
// The row is the single source of truth for progress: the runner checkpoints
// CursorTs after every window so a crashed process can resume safely, trade
// inserts being idempotent.
type BackfillJob struct {
	ID       string    `json:"id" gorm:"primaryKey"`
	Symbol   string    `json:"symbol" gorm:"index"`
	Exchange Exchange  `json:"exchange"`
	StartTs  int64     `json:"start_ts"`
	EndTs    int64     `json:"end_ts"`
	CursorTs int64     `json:"cursor_ts"`
	Status   JobStatus `json:"status"`

	// Message holds the last diagnostic, e.g. the error that failed the job.
	Message string `json:"message,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (BackfillJob) TableName() string { return "backfill_jobs" }
