package runtime

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/randalmurphal/sigchain/pkg/sigchain"
)

// RetryConfig configures Flush.
type RetryConfig struct {
	// MaxAttempts is the maximum number of publish attempts.
	MaxAttempts int

	// InitialBackoff is the wait after the first refused attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied to backoff after each attempt.
	BackoffFactor float64

	// Jitter is the random jitter factor (0.0-1.0).
	Jitter float64
}

// DefaultRetry waits out a reconfiguration of a few hundred milliseconds.
var DefaultRetry = RetryConfig{
	MaxAttempts:    8,
	InitialBackoff: 5 * time.Millisecond,
	MaxBackoff:     100 * time.Millisecond,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// Republisher is implemented by sigchain.Editor.
type Republisher interface {
	Pending() bool
	Republish() error
}

// Flush offers the editor's pending snapshot again until the runtime
// accepts it. Only sigchain.ErrRuntimeBusy is retried; any other error is
// returned at once. Flush returns the number of attempts made, zero when
// nothing was pending.
//
// Flush calls r on the calling goroutine, which must be the one that owns
// the editor.
func Flush(ctx context.Context, r Republisher, cfg RetryConfig) (int, error) {
	backoff := cfg.InitialBackoff
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if !r.Pending() {
			return attempt, nil
		}
		if err := ctx.Err(); err != nil {
			return attempt, err
		}

		err := r.Republish()
		if err == nil {
			return attempt + 1, nil
		}
		if !errors.Is(err, sigchain.ErrRuntimeBusy) {
			return attempt + 1, err
		}
		lastErr = err

		if attempt < cfg.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return attempt + 1, ctx.Err()
			case <-time.After(jittered(backoff, cfg.Jitter)):
			}
			backoff = time.Duration(float64(backoff) * cfg.BackoffFactor)
			if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
				backoff = cfg.MaxBackoff
			}
		}
	}
	return cfg.MaxAttempts, lastErr
}

// jittered returns base +/- (base * jitter * random).
func jittered(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return base
	}
	return time.Duration(float64(base) + float64(base)*jitter*(rand.Float64()*2-1))
}
