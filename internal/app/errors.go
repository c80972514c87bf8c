package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidForeignKey = errors.New("invalid foreign key")
	ErrTooManyTasks      = errors.New("too many tasks in group")
	ErrWriteConflict     = errors.New("write conflict")
	ErrPositionExhausted = errors.New("no position headroom after rebalance")
	ErrInvalidIndex      = errors.New("invalid target index")
)
