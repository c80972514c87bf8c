package domain

import "time"

// ChangeOperation describes a persisted ordering or lifecycle operation.
type ChangeOperation string

// ChangeOperation values used by the local activity ledger.
const (
	ChangeOperationCreate    ChangeOperation = "create"
	ChangeOperationUpdate    ChangeOperation = "update"
	ChangeOperationMove      ChangeOperation = "move"
	ChangeOperationReparent  ChangeOperation = "reparent"
	ChangeOperationRebalance ChangeOperation = "rebalance"
	ChangeOperationDelete    ChangeOperation = "delete"
)

// ChangeEvent represents a single activity-log entry.
//
// Rebalance events describe a whole group and carry an empty TaskID.
type ChangeEvent struct {
	ID         int64
	TaskID     string
	ParentID   string
	Operation  ChangeOperation
	Metadata   map[string]string
	OccurredAt time.Time
}
