package httpx

import (
	"math/rand"
	"time"
)

// Delay returns the backoff duration before retry number attempt (0-indexed):
// BaseDelay doubled per attempt, capped at MaxDelay, with optional jitter.
// With Jitter zero the schedule is fully deterministic.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay || delay <= 0 {
			delay = p.MaxDelay
			break
		}
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return jitterDelay(delay, p.Jitter)
}

// jitterDelay scales delay by a random factor in [1-jitter, 1+jitter],
// clamped so the result never goes negative.
func jitterDelay(delay time.Duration, jitter float64) time.Duration {
	if jitter <= 0 || delay <= 0 {
		return delay
	}
	if jitter > 1 {
		jitter = 1
	}
	factor := 1 + (rand.Float64()*2-1)*jitter
	if factor < 0 {
		factor = 0
	}
	return time.Duration(float64(delay) * factor)
}
