package model

import "time"

// RunStatus represents the lifecycle state of a sweep run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusComplete  RunStatus = "complete"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusAbandoned RunStatus = "abandoned"
)

// RunSummary counts how the identifiers of one run were resolved.
type RunSummary struct {
	Total         int  `json:"total"`
	Verified      int  `json:"verified"`
	Rejected      int  `json:"rejected"`
	SessionFailed int  `json:"session_failed"`
	Errored       int  `json:"errored"`
	Cancelled     bool `json:"cancelled"`
}

// Run is a journaled sweep over an identifier range.
type Run struct {
	ID         string      `json:"id"`
	RangeStart int         `json:"range_start"`
	RangeEnd   int         `json:"range_end"`
	Status     RunStatus   `json:"status"`
	Summary    *RunSummary `json:"summary,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// ItemOutcome is the journaled verdict for one identifier of a run.
type ItemOutcome struct {
	RunID      string         `json:"run_id"`
	Identifier int            `json:"identifier"`
	Outcome    Outcome        `json:"outcome"`
	Followup   FollowupStatus `json:"followup,omitempty"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// ItemResult is what processing one identifier produced. At most one of Row
// and Failure is set; both nil means the identifier was rejected by
// verification and only logged.
type ItemResult struct {
	Identifier int
	Outcome    Outcome
	Row        *LedgerRow
	Failure    *FailureEntry
}
