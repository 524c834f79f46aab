package model

import "time"

const (
	SyncInProgress = "in_progress"
	SyncSuccess    = "success"
	SyncError      = "error"
)

// SyncLog is the audit record for one calendar sync run. A row is created
// before the run starts and finalized exactly once at completion.
type SyncLog struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Status      string
	Message     string
	Imported    int
	Updated     int
	Deleted     int
	ErrorDetail string
}

// SyncResult is what a completed run reports back to the caller.
type SyncResult struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Deleted  int `json:"deleted"`
	Total    int `json:"total"`
}
