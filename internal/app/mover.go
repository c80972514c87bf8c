package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/evanschultz/tasktree/internal/domain"
)

// maxRebalanceAttempts bounds how many rebalances one move may trigger.
const maxRebalanceAttempts = 2

// moveOutcome reports how one move attempt ended.
type moveOutcome uint8

const (
	moveDone moveOutcome = iota
	moveNotFound
	moveNeedsRebalance
)

// mover relocates tasks to a zero-based index within their sibling group.
type mover struct {
	tasks      taskGetter
	query      orderedQuery
	positions  positionReader
	writer     positionWriter
	rebalancer rebalancer
}

// moveToIndex moves taskID to targetIndex and reports whether the task exists.
func (m mover) moveToIndex(ctx context.Context, taskID string, targetIndex int) (bool, error) {
	if targetIndex < 0 {
		return false, fmt.Errorf("%w: %d", ErrInvalidIndex, targetIndex)
	}
	for rebalances := 0; ; rebalances++ {
		outcome, group, err := m.attempt(ctx, taskID, targetIndex)
		if err != nil {
			return true, err
		}
		switch outcome {
		case moveNotFound:
			return false, nil
		case moveDone:
			return true, nil
		}
		if rebalances >= maxRebalanceAttempts {
			return true, fmt.Errorf("move task %s to index %d: %w", taskID, targetIndex, ErrPositionExhausted)
		}
		if _, err := m.rebalancer.rebalance(ctx, group); err != nil {
			return true, err
		}
	}
}

// attempt performs one read-compute-write pass of a move.
func (m mover) attempt(ctx context.Context, taskID string, targetIndex int) (moveOutcome, domain.GroupKey, error) {
	task, err := m.tasks.GetTask(ctx, taskID)
	if errors.Is(err, ErrNotFound) {
		return moveNotFound, "", nil
	}
	if err != nil {
		return moveDone, "", fmt.Errorf("load task %s: %w", taskID, err)
	}
	group := task.Group()

	reference, err := m.referencePosition(ctx, group, targetIndex)
	if err != nil {
		return moveDone, group, err
	}
	if task.Position == reference {
		return moveDone, group, nil
	}
	if reference <= 1 {
		return moveNeedsRebalance, group, nil
	}

	var candidate uint64
	switch {
	case targetIndex == 0:
		candidate = reference / 2
	case task.Position > reference:
		prev, err := m.query.siblingAt(ctx, group, targetIndex-1)
		if err != nil {
			return moveDone, group, fmt.Errorf("load sibling at index %d: %w", targetIndex-1, err)
		}
		candidate = midpoint(prev.Position, reference)
	default:
		next, err := m.query.siblingAt(ctx, group, targetIndex+1)
		switch {
		case errors.Is(err, ErrNotFound):
			candidate, err = stepAfter(reference)
			if err != nil {
				return moveDone, group, fmt.Errorf("move task %s past position %d: %w", taskID, reference, err)
			}
		case err != nil:
			return moveDone, group, fmt.Errorf("load sibling at index %d: %w", targetIndex+1, err)
		default:
			candidate = midpoint(reference, next.Position)
		}
	}
	if distance(candidate, reference) <= 1 {
		return moveNeedsRebalance, group, nil
	}

	if err := m.writer.UpdatePosition(ctx, task.ID, candidate, task.Version); err != nil {
		return moveDone, group, fmt.Errorf("update position of task %s: %w", task.ID, err)
	}
	return moveDone, group, nil
}

// referencePosition returns the position at targetIndex, or the group maximum past the end.
func (m mover) referencePosition(ctx context.Context, group domain.GroupKey, targetIndex int) (uint64, error) {
	occupant, err := m.query.siblingAt(ctx, group, targetIndex)
	if err == nil {
		return occupant.Position, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, fmt.Errorf("load sibling at index %d: %w", targetIndex, err)
	}
	current, err := m.positions.MaxPosition(ctx, group)
	if err != nil {
		return 0, fmt.Errorf("read max position for group %s: %w", group, err)
	}
	return current, nil
}
