package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/songzhibin97/gkit/distributed/retry"
)

// Policy controls how many attempts are made and the unit the Fibonacci
// backoff is multiplied by.
type Policy struct {
	Count int
	Unit  time.Duration
}

// Do retries call under policy. A filter returning true marks err as final and
// stops retrying. Cancelling ctx interrupts the backoff.
func Do(ctx context.Context, name string, call func() error, filter func(err error) bool, policy Policy) error {
	if policy.Count < 1 {
		policy.Count = 1
	}
	var err error
	for i := 1; i <= policy.Count; i++ {
		err = call()
		if err == nil {
			return nil
		}
		if filter != nil && filter(err) {
			return err
		}
		slog.Debug("retry task failed", slog.String("name", name), slog.Int("retry", i), slog.Int("count", policy.Count), slog.Any("error", err))
		if i == policy.Count {
			break
		}

		timer := time.NewTimer(time.Duration(retry.FibonacciNext(i)) * policy.Unit)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("name %s retry interrupted: %w", name, ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("name %s retry failed %w", name, err)
}
