package domain

import (
	"slices"
	"strings"
)

// Status represents the workflow status of a task.
type Status string

// Status values, in their sort order.
const (
	StatusTodo       Status = "todo"
	StatusReserved   Status = "reserved"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

var validStatuses = []Status{StatusTodo, StatusReserved, StatusInProgress, StatusDone}

// Statuses returns all statuses in sort order.
func Statuses() []Status {
	return slices.Clone(validStatuses)
}

// Rank returns the sort rank of the status, or -1 when unknown.
func (s Status) Rank() int {
	return slices.Index(validStatuses, s)
}

// NormalizeStatus lower-cases and validates a status, defaulting to todo.
func NormalizeStatus(s Status) (Status, error) {
	s = Status(strings.ToLower(strings.TrimSpace(string(s))))
	if s == "" {
		return StatusTodo, nil
	}
	if !slices.Contains(validStatuses, s) {
		return "", ErrInvalidStatus
	}
	return s, nil
}
