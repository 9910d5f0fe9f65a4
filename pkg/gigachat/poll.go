package gigachat

import (
	"context"
	"fmt"
	"time"

	"gigachat/pkg/core"
)

// DefaultPollInterval is used by PollBatch when interval is not positive.
const DefaultPollInterval = 5 * time.Second

// PollBatch checks the batch every interval until it completes or ctx ends.
// onProgress, when set, receives every non-final result.
func PollBatch(ctx context.Context, h *BatchHandler, interval time.Duration, onProgress func(core.BatchCheckResult)) (*core.BatchSuccess, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("batch %s: %w", h.ID(), ctx.Err())
		case <-timer.C:
		}

		result, err := h.Check(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("batch %s: %w", h.ID(), ctxErr)
			}
			return nil, err
		}
		if done, ok := result.(*core.BatchSuccess); ok {
			return done, nil
		}
		if onProgress != nil {
			onProgress(result)
		}
		timer.Reset(interval)
	}
}
