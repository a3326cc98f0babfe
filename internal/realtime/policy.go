package realtime

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is the reconnect schedule: Initial, Initial*Multiplier, ... capped at
// Max, each delay randomized by ±Jitter. Attempts are unlimited.
type Policy struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// DefaultPolicy waits 1s, 2s, 4s, then 8s between attempts.
func DefaultPolicy() Policy {
	return Policy{Initial: time.Second, Max: 8 * time.Second, Multiplier: 2, Jitter: 0.5}
}

// NewBackOff returns a fresh schedule. It never returns backoff.Stop.
func (p Policy) NewBackOff() backoff.BackOff {
	d := DefaultPolicy()
	if p.Initial <= 0 {
		p.Initial = d.Initial
	}
	if p.Max < p.Initial {
		p.Max = max(d.Max, p.Initial)
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	if p.Jitter < 0 || p.Jitter >= 1 {
		p.Jitter = d.Jitter
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.MaxInterval = p.Max
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Reset()
	return capped{BackOff: b, max: p.Max}
}

// capped keeps randomized delays from overshooting the configured maximum.
type capped struct {
	backoff.BackOff
	max time.Duration
}

func (c capped) NextBackOff() time.Duration {
	return min(c.BackOff.NextBackOff(), c.max)
}
