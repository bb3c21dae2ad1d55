package model

import "time"

// RunStatus tracks the lifecycle of a pipeline run or stage.
type RunStatus string

// Run and stage statuses.
const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one recorded pipeline execution in the ledger.
type Run struct {
	StartedAt  time.Time
	FinishedAt *time.Time
	ID         string
	Status     RunStatus
	Config     string
	Error      string
	Seed       int64
	Customers  int
	Months     int
}

// Duration returns the wall time of the run, zero while it is still open.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StageRecord is one pipeline stage execution within a run.
type StageRecord struct {
	StartedAt  time.Time
	FinishedAt *time.Time
	RunID      string
	Stage      string
	Status     RunStatus
	Detail     string
	Rows       int
}
