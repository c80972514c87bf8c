package app

import (
	"context"
	"fmt"
	"math"

	"github.com/evanschultz/tasktree/internal/domain"
)

// PositionStep is the spacing between consecutively allocated siblings.
const PositionStep uint64 = 1 << 32

// positionCeiling is the largest group maximum that still leaves room for one more step.
const positionCeiling = math.MaxUint64 - PositionStep

// allocator assigns positions to tasks appended to a group.
type allocator struct {
	positions positionReader
}

// nextPosition returns the position one step after the current group maximum.
func (a allocator) nextPosition(ctx context.Context, group domain.GroupKey) (uint64, error) {
	current, err := a.positions.MaxPosition(ctx, group)
	if err != nil {
		return 0, fmt.Errorf("read max position for group %s: %w", group, err)
	}
	return stepAfter(current)
}

// stepAfter returns position+PositionStep, or ErrTooManyTasks when that overflows.
func stepAfter(position uint64) (uint64, error) {
	if position >= positionCeiling {
		return 0, ErrTooManyTasks
	}
	return position + PositionStep, nil
}

// midpoint returns the integer midpoint of a and b without overflowing.
func midpoint(a, b uint64) uint64 {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo + (hi-lo)/2
}

// distance returns |a-b|.
func distance(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
