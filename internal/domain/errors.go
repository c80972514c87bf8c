package domain

import "errors"

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidParentID = errors.New("invalid parent id")
	ErrInvalidSummary  = errors.New("invalid summary")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidStatus   = errors.New("invalid status")
)
