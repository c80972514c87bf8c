package app

import (
	"context"
	"fmt"

	charmLog "github.com/charmbracelet/log"
	"github.com/evanschultz/tasktree/internal/domain"
)

// rebalancer renumbers a whole sibling group to rank*PositionStep.
type rebalancer struct {
	repo   groupRebalancer
	logger *charmLog.Logger
}

// rebalance renumbers every task in group in one store transaction and returns the row count.
func (r rebalancer) rebalance(ctx context.Context, group domain.GroupKey) (int, error) {
	renumbered, err := r.repo.Rebalance(ctx, group, PositionStep)
	if err != nil {
		return 0, fmt.Errorf("rebalance group %s: %w", group, err)
	}
	r.logger.Debug("group rebalanced", "group", group.String(), "tasks", renumbered)
	return renumbered, nil
}
