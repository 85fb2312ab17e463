package search

import (
	"fmt"
	"time"
)

// Filter narrows a lookup to recent material.
type Filter struct {
	Recent bool          `json:"recent"`
	Window time.Duration `json:"window,omitempty"`
}

// Days returns the window in whole days, at least 1 when Recent is set.
func (f Filter) Days() int {
	if !f.Recent {
		return 0
	}
	d := int(f.Window / (24 * time.Hour))
	if d < 1 {
		d = 1
	}
	return d
}

func (f Filter) String() string {
	if !f.Recent {
		return "none"
	}
	return fmt.Sprintf("%dd", f.Days())
}

// Task is one lookup inside a fan-out. Index is 1-based.
type Task struct {
	Index  int
	Query  string
	Filter Filter
}

// FailureReason classifies why a task did not succeed.
type FailureReason string

const (
	ReasonNone         FailureReason = ""
	ReasonTimeout      FailureReason = "timeout"
	ReasonProcessError FailureReason = "process-error"
	ReasonNonZeroExit  FailureReason = "non-zero-exit"
)

// Outcome is the result of one task. Text holds the payload on success and
// the error detail on failure.
type Outcome struct {
	Task    Task
	Success bool
	Text    string
	Reason  FailureReason
	Elapsed time.Duration
}

// Failure summarizes a failed task for the stats.
type Failure struct {
	Index  int           `json:"index"`
	Query  string        `json:"query"`
	Reason FailureReason `json:"reason"`
	Detail string        `json:"detail,omitempty"`
}

// Stats aggregates one fan-out call.
type Stats struct {
	TotalQueries int           `json:"total_queries"`
	Successful   int           `json:"successful"`
	Failed       int           `json:"failed"`
	Elapsed      time.Duration `json:"elapsed"`
	Fallback     bool          `json:"fallback"`
	Failures     []Failure     `json:"failures,omitempty"`
}
