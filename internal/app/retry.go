package app

import (
	"context"
	"errors"

	charmLog "github.com/charmbracelet/log"
)

// DefaultWriteConflictRetries is the retry bound used when none is configured.
const DefaultWriteConflictRetries = 3

// conflictRetry reruns whole operations that lost a store write race.
type conflictRetry struct {
	retries int
	logger  *charmLog.Logger
}

// do runs fn once plus up to retries more times while it fails with ErrWriteConflict.
func (r conflictRetry) do(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			r.logger.Warn("retrying after write conflict", "op", op, "attempt", attempt, "err", err)
		}
		err = fn()
		if !errors.Is(err, ErrWriteConflict) {
			return err
		}
	}
	return err
}
