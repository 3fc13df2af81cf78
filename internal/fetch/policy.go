package fetch

import (
	"math"
	"time"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/domain"
)

// Policy is the resilience contract applied to every source
type Policy struct {
	MaxAttempts      int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	Jitter           float64       // fraction of the delay randomized in both directions
	Timeout          time.Duration // per request
	SourceTimeout    time.Duration // whole source, partial results are kept
	MinInterval      time.Duration // politeness gap between requests to one source
	BreakerThreshold int           // consecutive failures before the source is given up
	Retryable        func(error) bool
}

// PolicyFromConfig maps the configured fetch policy
func PolicyFromConfig(c config.FetchPolicy) Policy {
	return Policy{
		MaxAttempts:      c.MaxAttempts,
		BaseDelay:        c.BaseDelay,
		MaxDelay:         c.MaxDelay,
		Jitter:           c.Jitter,
		Timeout:          c.RequestTimeout,
		SourceTimeout:    c.SourceTimeout,
		MinInterval:      c.RequestDelay,
		BreakerThreshold: c.BreakerThreshold,
		Retryable:        domain.IsTransient,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BreakerThreshold <= 0 {
		p.BreakerThreshold = p.MaxAttempts
	}
	if p.Retryable == nil {
		p.Retryable = domain.IsTransient
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Jitter > 1 {
		p.Jitter = 1
	}
	return p
}

// Backoff returns the wait before retry number attempt (1-based).
// r is a uniform sample in [0,1) that drives the jitter.
func (p Policy) Backoff(attempt int, r float64) time.Duration {
	if p.BaseDelay <= 0 || attempt <= 0 {
		return 0
	}
	d := float64(p.BaseDelay) * math.Pow(2, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	d *= 1 + p.Jitter*(2*r-1)
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}
