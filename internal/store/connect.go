package store

import (
	"context"
	"math/rand"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// connectBackoff is the delay before the second connection attempt. It
// doubles per attempt up to maxConnectBackoff, with ±25% jitter.
var connectBackoff = 500 * time.Millisecond

const maxConnectBackoff = 10 * time.Second

// pingWithRetry calls ping until it succeeds, attempts run out, or ctx ends.
// Databases started alongside the service often refuse the first few connections.
func pingWithRetry(ctx context.Context, attempts int, ping func(context.Context) error) error {
	attempts = max(attempts, 1)
	log := zap.L().With(zap.String("component", "store"))

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return eris.Wrap(err, "store: connect cancelled")
		}
		if attempt == attempts-1 {
			break
		}

		delay := backoff(attempt)
		log.Warn("database not reachable, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return eris.Wrap(err, "store: connect cancelled")
		case <-timer.C:
		}
	}
	return eris.Wrapf(err, "store: unreachable after %d attempts", attempts)
}

func backoff(attempt int) time.Duration {
	d := maxConnectBackoff
	if attempt < 16 {
		d = min(connectBackoff<<attempt, maxConnectBackoff)
	}
	jitter := (rand.Float64()*2 - 1) * 0.25 * float64(d) //nolint:gosec // jitter only
	return d + time.Duration(jitter)
}
