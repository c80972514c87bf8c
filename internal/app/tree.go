package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evanschultz/tasktree/internal/domain"
)

// treeIntegrity guards parent references.
//
// Only the direct two-level cycle (the new parent's parent is the task) is
// rejected. Deeper ancestor cycles are not walked.
type treeIntegrity struct {
	tasks taskGetter
}

// validateNewParent checks that a parent named at creation exists.
func (t treeIntegrity) validateNewParent(ctx context.Context, parentID string) error {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		return nil
	}
	_, err := t.loadParent(ctx, parentID)
	return err
}

// validateReparent checks that moving task under newParentID keeps the tree legal.
func (t treeIntegrity) validateReparent(ctx context.Context, task domain.Task, newParentID string) error {
	newParentID = strings.TrimSpace(newParentID)
	if newParentID == task.ParentID || newParentID == "" {
		return nil
	}
	if newParentID == task.ID {
		return fmt.Errorf("%w: circular relationship", ErrInvalidForeignKey)
	}
	parent, err := t.loadParent(ctx, newParentID)
	if err != nil {
		return err
	}
	if parent.ParentID == task.ID {
		return fmt.Errorf("%w: circular relationship", ErrInvalidForeignKey)
	}
	return nil
}

func (t treeIntegrity) loadParent(ctx context.Context, parentID string) (domain.Task, error) {
	parent, err := t.tasks.GetTask(ctx, parentID)
	if errors.Is(err, ErrNotFound) {
		return domain.Task{}, fmt.Errorf("%w: parent task not found", ErrInvalidForeignKey)
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("load parent task %s: %w", parentID, err)
	}
	return parent, nil
}
