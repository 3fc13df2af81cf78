package fetch

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/domain"
	"github.com/honeycarbs/job-discovery/pkg/logging"
)

// Kind classifies how a source fetch ended
type Kind string

const (
	KindOK          Kind = ""
	KindTransient   Kind = "transient"
	KindUnavailable Kind = "unavailable"
	KindParse       Kind = "parse"
	KindBreaker     Kind = "breaker_open"
	KindTimeout     Kind = "timeout"
	KindCanceled    Kind = "canceled"
)

// Result is the outcome of one source fetch. Postings may be non-empty
// even when Err is set.
type Result struct {
	Source   string
	Postings []domain.RawPosting
	Err      error
	Kind     Kind
	Attempts int
	Duration time.Duration
}

// Failed reports whether the source ended with an error
func (r Result) Failed() bool {
	return r.Err != nil
}

// FetchFunc performs the source-wide fetch, usually an adapter bound to its config
type FetchFunc func(ctx context.Context) ([]domain.RawPosting, error)

// Option configures a Coordinator
type Option func(*Coordinator)

// WithClock sets a custom clock
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithSleep replaces the context-aware sleep used for pacing and backoff
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Coordinator) {
		c.sleep = sleep
	}
}

// WithRand replaces the jitter source
func WithRand(r func() float64) Option {
	return func(c *Coordinator) {
		c.rand = r
	}
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// Coordinator applies pacing, retries, timeouts and a circuit breaker
// per source. Breaker state lives until Reset.
type Coordinator struct {
	policy Policy
	logger *logging.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	rand   func() float64

	mu    sync.Mutex
	lanes map[string]*lane
}

// NewCoordinator builds a Coordinator for the given policy
func NewCoordinator(policy Policy, opts ...Option) *Coordinator {
	c := &Coordinator{
		policy: policy.normalized(),
		logger: logging.Nop(),
		now:    time.Now,
		sleep:  sleepCtx,
		rand:   rand.Float64,
		lanes:  make(map[string]*lane),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the effective policy
func (c *Coordinator) Policy() Policy {
	return c.policy
}

// Reset forgets breaker and pacing state; call it at the start of a run
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lanes = make(map[string]*lane)
}

// Run fetches one source and never panics or returns an error directly
func (c *Coordinator) Run(ctx context.Context, src config.Source, fn FetchFunc) (res Result) {
	l := c.lane(src)
	start := c.now()
	res.Source = src.Name

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("%w: adapter panic: %v", domain.ErrSourceUnavailable, r)
			res.Kind = KindUnavailable
		}
		res.Attempts = l.attemptCount()
		res.Duration = c.now().Sub(start)
		if res.Err != nil {
			c.logger.Warn("source fetch failed",
				"source", src.Name,
				"kind", string(res.Kind),
				"attempts", res.Attempts,
				"partial", len(res.Postings),
				"err", res.Err,
			)
		}
	}()

	if l.isOpen() {
		res.Err = fmt.Errorf("%s: %w", src.Name, domain.ErrBreakerOpen)
		res.Kind = KindBreaker
		return res
	}

	runCtx := withLane(ctx, l)
	if c.policy.SourceTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, c.policy.SourceTimeout)
		defer cancel()
	}

	postings, err := fn(runCtx)
	res.Postings = postings
	if err == nil {
		return res
	}

	res.Err = err
	res.Kind = classify(ctx, runCtx, err)
	return res
}

func classify(parent, run context.Context, err error) Kind {
	var pe *domain.ParseError
	switch {
	case parent.Err() != nil:
		return KindCanceled
	case errors.Is(err, domain.ErrBreakerOpen):
		return KindBreaker
	case errors.Is(run.Err(), context.DeadlineExceeded):
		return KindTimeout
	case domain.IsTransient(err):
		return KindTransient
	case errors.As(err, &pe):
		return KindParse
	default:
		return KindUnavailable
	}
}

func (c *Coordinator) lane(src config.Source) *lane {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.lanes[src.Name]; ok {
		return l
	}

	interval := c.policy.MinInterval
	if src.Delay > 0 {
		interval = src.Delay
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	l := &lane{
		source:  src.Name,
		coord:   c,
		limiter: rate.NewLimiter(limit, 1),
	}
	c.lanes[src.Name] = l
	return l
}

// lane is the per-source execution state for one run
type lane struct {
	source  string
	coord   *Coordinator
	limiter *rate.Limiter

	mu       sync.Mutex
	failures int
	attempts int
	open     bool
}

func (l *lane) isOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

func (l *lane) attemptCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts
}

// pace blocks until the politeness interval since the previous request elapsed
func (l *lane) pace(ctx context.Context) error {
	now := l.coord.now()
	delay := l.limiter.ReserveN(now, 1).DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	return l.coord.sleep(ctx, delay)
}

// recordFailure returns true when the failure tripped the breaker
func (l *lane) recordFailure() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures++
	if l.failures >= l.coord.policy.BreakerThreshold {
		l.open = true
	}
	return l.open
}

func (l *lane) recordSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = 0
}

func (l *lane) do(ctx context.Context, op func(ctx context.Context) error) error {
	p := l.coord.policy

	for attempt := 1; ; attempt++ {
		if l.isOpen() {
			return fmt.Errorf("%s: %w", l.source, domain.ErrBreakerOpen)
		}
		if err := l.pace(ctx); err != nil {
			return err
		}

		l.mu.Lock()
		l.attempts++
		l.mu.Unlock()

		err := l.attempt(ctx, op)
		if err == nil {
			l.recordSuccess()
			return nil
		}
		if ctx.Err() != nil {
			return err
		}

		tripped := l.recordFailure()
		if tripped {
			l.coord.logger.Warn("circuit breaker opened", "source", l.source, "err", err)
		}
		// a request that ran out of retries reports its own error; the open
		// breaker only shows on requests it actually cut short
		if !p.Retryable(err) || attempt >= p.MaxAttempts {
			return err
		}
		if tripped {
			return fmt.Errorf("%s: %w: %w", l.source, domain.ErrBreakerOpen, err)
		}

		wait := p.Backoff(attempt, l.coord.rand())
		var fe *domain.FetchError
		if errors.As(err, &fe) && fe.RetryAfter > wait {
			wait = fe.RetryAfter
			if p.MaxDelay > 0 && wait > p.MaxDelay {
				wait = p.MaxDelay
			}
		}

		l.coord.logger.Debug("retrying request",
			"source", l.source,
			"attempt", attempt,
			"wait", wait.String(),
			"err", err,
		)
		if err := l.coord.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (l *lane) attempt(ctx context.Context, op func(ctx context.Context) error) error {
	timeout := l.coord.policy.Timeout
	if timeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := op(attemptCtx)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return &domain.FetchError{Source: l.source, Err: fmt.Errorf("request timed out after %s: %w", timeout, err)}
	}
	return err
}

type laneKey struct{}

func withLane(ctx context.Context, l *lane) context.Context {
	return context.WithValue(ctx, laneKey{}, l)
}

// Do runs op under the pacing, retry and breaker rules of the source bound
// to ctx. Without a bound source op runs once.
func Do(ctx context.Context, op func(ctx context.Context) error) error {
	l, ok := ctx.Value(laneKey{}).(*lane)
	if !ok {
		return op(ctx)
	}
	return l.do(ctx, op)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
