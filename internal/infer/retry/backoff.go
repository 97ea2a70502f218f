package retry

import (
	"math/rand"
	"time"
)

// Backoff computes the delay before the given retry attempt (1-based):
// initial × multiplier^(attempt−1), clamped to [min, max]. With jitter
// enabled the clamped delay is randomized over [min, delay] so concurrent
// retries spread out without dropping below the floor.
func Backoff(attempt int, cfg Config) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := cfg.InitialInterval
	if delay <= 0 {
		delay = time.Millisecond
	}

	multiplier := cfg.Multiplier
	if multiplier < 1.0 {
		multiplier = 1.0
	}

	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * multiplier)
		if delay >= cfg.MaxInterval {
			delay = cfg.MaxInterval
			break
		}
	}

	if delay < cfg.MinInterval {
		delay = cfg.MinInterval
	}
	if cfg.MaxInterval > 0 && delay > cfg.MaxInterval {
		delay = cfg.MaxInterval
	}

	if cfg.UseJitter && delay > cfg.MinInterval {
		span := delay - cfg.MinInterval
		jitter := time.Duration(rand.Int63n(int64(span) + 1)) // #nosec G404 -- non-cryptographic jitter
		delay = cfg.MinInterval + jitter
	}

	return delay
}
