package resilience

import "time"

type Config struct {
	// Profile names the caller side ("query", "ingest") in logs and breaker names.
	Profile string

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	// AttemptTimeout bounds a single attempt; zero leaves only the caller deadline.
	AttemptTimeout time.Duration

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// ForQueries caps retries so that a question stays inside its per-source
// timeouts: at most two attempts and a backoff ceiling of 200ms.
func (c Config) ForQueries() Config {
	out := c.normalize()
	out.Profile = "query"
	out.RetryMaxAttempts = min(out.RetryMaxAttempts, 2)
	out.RetryMaxBackoff = min(out.RetryMaxBackoff, 200*time.Millisecond)
	out.RetryInitialBackoff = min(out.RetryInitialBackoff, out.RetryMaxBackoff)
	return out
}

// ForIngestion lets unattended ingestion runs ride out longer outages of the
// embedding model and the stores, and opens the breaker later.
func (c Config) ForIngestion() Config {
	out := c.normalize()
	out.Profile = "ingest"
	out.RetryMaxAttempts *= 2
	out.RetryMaxBackoff *= 4
	out.BreakerMinRequests *= 2
	return out
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	out := c

	out.RetryMaxAttempts = positiveOr(out.RetryMaxAttempts, def.RetryMaxAttempts)
	out.RetryInitialBackoff = positiveOr(out.RetryInitialBackoff, def.RetryInitialBackoff)
	out.RetryMaxBackoff = max(positiveOr(out.RetryMaxBackoff, def.RetryMaxBackoff), out.RetryInitialBackoff)
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}

	out.BreakerMinRequests = positiveOr(out.BreakerMinRequests, def.BreakerMinRequests)
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	out.BreakerOpenTimeout = positiveOr(out.BreakerOpenTimeout, def.BreakerOpenTimeout)
	out.BreakerHalfOpenMaxCalls = positiveOr(out.BreakerHalfOpenMaxCalls, def.BreakerHalfOpenMaxCalls)
	return out
}

func positiveOr[T int | uint32 | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}
