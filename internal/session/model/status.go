// SPDX-License-Identifier: MIT

package model

import "fmt"

// Status is the caller-visible session lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether the status is final. Terminal sessions are
// frozen: no transition or progress update may touch them again.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus maps a wire string to a Status. ok is false for unknown values.
func ParseStatus(raw string) (Status, bool) {
	switch st := Status(raw); st {
	case StatusDraft, StatusQueued, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return st, true
	}
	return "", false
}

// transition is one allowed edge of the lifecycle DAG.
type transition struct {
	from Status
	to   Status
}

// The lifecycle is a DAG: draft -> queued -> running -> terminal.
// Claim may skip the queue; Cancel is reachable from queued and running.
var transitionsTable = []transition{
	{StatusDraft, StatusQueued},
	{StatusDraft, StatusRunning},
	{StatusQueued, StatusRunning},
	{StatusQueued, StatusCancelled},
	{StatusRunning, StatusCompleted},
	{StatusRunning, StatusFailed},
	{StatusRunning, StatusCancelled},
}

// CanTransition reports whether from -> to is an allowed lifecycle edge.
func CanTransition(from, to Status) bool {
	for _, tr := range transitionsTable {
		if tr.from == from && tr.to == to {
			return true
		}
	}
	return false
}

// CheckTransition returns a descriptive error when from -> to is not allowed.
func CheckTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("illegal status transition %s -> %s", from, to)
	}
	return nil
}
