package domain

import "time"

// ActionRunStatus is the lifecycle state of an ActionRun (spec.md §3, §5).
type ActionRunStatus string

const (
	ActionStatusQueued    ActionRunStatus = "queued"
	ActionStatusRunning   ActionRunStatus = "running"
	ActionStatusSucceeded ActionRunStatus = "succeeded"
	ActionStatusFailed    ActionRunStatus = "failed"
)

// ActionRun is the durable execution ledger entry behind every action
// invoked through the Action API (spec.md §3, §4.13-4.15).
type ActionRun struct {
	ID              int64
	RunID           string
	Action          string
	Status          ActionRunStatus
	PayloadJSON     map[string]any
	ResultJSON      map[string]any
	ErrorText       string
	RequestedByJSON map[string]any
	CreatedAt       time.Time
	StartedAt       *time.Time
	FinishedAt      *time.Time
}
