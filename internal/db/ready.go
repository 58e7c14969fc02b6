package db

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
)

// PollInterval is the delay between readiness probes.
const PollInterval = 100 * time.Millisecond

// WaitForReady calls ping until it succeeds or timeout expires.
func WaitForReady(ctx context.Context, timeout time.Duration, ping func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := retry.Do(
		func() error { return ping(ctx) },
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("timeout waiting for database: %w", err)
	}
	return nil
}
