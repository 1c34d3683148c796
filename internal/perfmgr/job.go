package perfmgr

import "time"

// NodeAction is a single (Node, value, deadline) triple carried inside a
// Job, referencing its Node by index per spec.md §3 NodeAction.
type NodeAction struct {
	NodeIndex      int
	ValueIndex     int
	Timeout        time.Duration
	EnableProperty string // optional boolean property gate; empty = unconditional
	EnableFlag     string // optional FlagProvider predicate name; empty = unconditional
	DisableFlag    string // optional FlagProvider predicate name; empty = unconditional
}

// Job is a pooled submission: either a Request or a Cancel for hint,
// carrying the NodeActions it should apply to. Jobs are drawn from
// JobQueue's free list and returned via release() after dispatch
// (spec.md §3 Job lifecycle).
type Job struct {
	Hint        string
	Actions     []NodeAction
	ScheduledAt time.Time
	IsCancel    bool

	heapIndex int // maintained by container/heap; unused outside jobqueue.go
}

// reset clears every field so a released Job carries no stale state into
// its next acquisition, per spec.md §3 "fields reset" lifecycle step.
func (j *Job) reset() {
	j.Hint = ""
	j.Actions = j.Actions[:0]
	j.ScheduledAt = time.Time{}
	j.IsCancel = false
	j.heapIndex = -1
}
