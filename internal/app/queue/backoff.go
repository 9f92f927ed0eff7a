// internal/app/queue/backoff.go
package queue

import (
	"math/rand"
	"time"
)

// Backoff schedule: 30s base doubling per attempt, ±20% jitter, capped
// at one hour. Attempt 1 → ~30s, attempt 2 → ~1m, attempt 3 → ~2m, …
const (
	backoffBase = 30 * time.Second
	backoffCap  = time.Hour
	jitterFrac  = 0.2
)

// nextBackoff returns the delay before the given retry attempt
// (1-based, i.e. after the first failure pass attempt=1).
func nextBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := backoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= backoffCap {
			d = backoffCap
			break
		}
	}

	jitter := time.Duration((rand.Float64()*2 - 1) * jitterFrac * float64(d))
	d += jitter
	if d > backoffCap {
		d = backoffCap
	}
	return d
}
