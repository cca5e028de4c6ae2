package stream

import (
	"math/rand"
	"time"
)

// reconnectDelay computes the wait before reconnect attempt n (0-indexed):
// min(initial * 2^n, max) plus a uniform jitter in [0, 25%) of the capped
// delay, so simultaneous clients do not stampede the collector.
func reconnectDelay(attempt int, initial, max time.Duration) time.Duration {
	capped := max
	if attempt < 63 {
		if d := initial << uint(attempt); d > 0 && d < max {
			capped = d
		}
	}

	delay := capped
	if q := int64(capped) / 4; q > 0 {
		delay += time.Duration(rand.Int63n(q)) //nolint:gosec // not crypto
	}
	return delay
}
