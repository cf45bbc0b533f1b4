package ollama

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// WaitReady polls HealthCheck with exponential backoff until the server
// answers or maxWait elapses.
func (c *Client) WaitReady(ctx context.Context, maxWait time.Duration) error {
	_, err := backoff.Retry(ctx, func() (bool, error) {
		if c.HealthCheck(ctx) {
			return true, nil
		}
		return false, ErrUnreachable
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(maxWait),
	)
	return err
}
