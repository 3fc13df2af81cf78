// Package pipeline runs discovery end to end and takes decisions back from
// the external decision step.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/discovery"
	"github.com/honeycarbs/job-discovery/internal/domain"
	"github.com/honeycarbs/job-discovery/internal/filter"
	"github.com/honeycarbs/job-discovery/internal/storage/filestore"
	"github.com/honeycarbs/job-discovery/pkg/logging"
)

// Discoverer fetches and merges every source for one run
type Discoverer interface {
	Discover(ctx context.Context, runID string, sources []config.Source) (discovery.Result, error)
}

// Store is the subset of the durable store a run needs
type Store interface {
	Seen() (domain.SeenSnapshot, error)
	MarkSeen(urls []string) (int, error)
	SaveMatches(accepted []domain.Accepted) ([]domain.MatchedJob, error)
	WriteCandidates(candidates []domain.Candidate) error
	LoadCandidates() ([]domain.Candidate, error)
	DrainIntegrityErrors() []domain.IntegrityError
}

// Mirror receives matches after they were saved. Mirror failures are logged only.
type Mirror interface {
	Name() string
	Publish(ctx context.Context, saved []domain.MatchedJob) error
}

// Locker keeps two runs from touching the store at once
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}

type nopLocker struct{}

func (nopLocker) Lock(context.Context) (func() error, error) {
	return func() error { return nil }, nil
}

var _ Store = (*filestore.Store)(nil)

// Option configures Runner
type Option func(*Runner)

func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithClock sets a custom clock
func WithClock(clock func() time.Time) Option {
	return func(r *Runner) {
		r.clock = clock
	}
}

// WithMirrors adds match mirrors, nil entries are ignored
func WithMirrors(mirrors ...Mirror) Option {
	return func(r *Runner) {
		for _, m := range mirrors {
			if m != nil {
				r.mirrors = append(r.mirrors, m)
			}
		}
	}
}

func WithLocker(l Locker) Option {
	return func(r *Runner) {
		if l != nil {
			r.locker = l
		}
	}
}

// Runner owns one pipeline configuration
type Runner struct {
	cfg        *config.Config
	discoverer Discoverer
	store      Store
	criteria   filter.Criteria
	mirrors    []Mirror
	locker     Locker
	logger     *logging.Logger
	clock      func() time.Time
}

// NewRunner creates a Runner with direct dependencies (Wire-compatible)
func NewRunner(cfg *config.Config, d Discoverer, store Store, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline.Runner: config is required")
	}
	if d == nil {
		return nil, fmt.Errorf("pipeline.Runner: discoverer is required")
	}
	if store == nil {
		return nil, fmt.Errorf("pipeline.Runner: store is required")
	}

	r := &Runner{
		cfg:        cfg,
		discoverer: d,
		store:      store,
		criteria:   filter.CriteriaFromConfig(cfg.Match),
		locker:     nopLocker{},
		logger:     logging.Nop(),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RunOptions narrows a run
type RunOptions struct {
	// Source restricts the run to one configured source, even a disabled one
	Source string
}

// Run discovers, records history, filters and writes the candidates
// handoff. Source failures end up in the summary; only store I/O errors
// and lock contention are returned.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	sources, err := r.cfg.EnabledSources(opts.Source)
	if err != nil {
		return Summary{}, err
	}

	unlock, err := r.locker.Lock(ctx)
	if err != nil {
		return Summary{}, err
	}
	defer r.release(unlock)

	started := r.clock().UTC()
	runID := newRunID(started)
	log := r.logger.With("run_id", runID)
	log.Info("run started", "sources", len(sources))

	found, err := r.discoverer.Discover(ctx, runID, sources)
	if err != nil {
		return Summary{}, fmt.Errorf("run %s: %w", runID, err)
	}

	seen, err := r.store.Seen()
	if err != nil {
		return Summary{}, fmt.Errorf("run %s: load seen index: %w", runID, err)
	}

	filtered := filter.Evaluate(found.Postings, seen, r.criteria, started)
	if err := r.store.WriteCandidates(filtered.Candidates); err != nil {
		return Summary{}, fmt.Errorf("run %s: write candidates: %w", runID, err)
	}

	sum := Summary{
		RunID:           runID,
		StartedAt:       started,
		FinishedAt:      r.clock().UTC(),
		Discovered:      found.Discovered,
		Unique:          len(found.Postings),
		Duplicates:      found.Duplicates,
		Outcomes:        outcomeCounts(filtered),
		Candidates:      len(filtered.Candidates),
		Sources:         found.Sources,
		FailedSources:   found.FailedSources(),
		IntegrityErrors: r.store.DrainIntegrityErrors(),
		Rejections:      filtered.Records,
	}

	for _, rec := range filtered.Records {
		if rec.Outcome != domain.OutcomePass {
			log.Debug("posting filtered", "url", rec.URL, "outcome", string(rec.Outcome), "detail", rec.Detail)
		}
	}
	log.Info("run finished",
		"discovered", sum.Discovered,
		"unique", sum.Unique,
		"candidates", sum.Candidates,
		"failed_sources", len(sum.FailedSources),
		"integrity_errors", len(sum.IntegrityErrors),
	)
	return sum, nil
}

// Candidates returns the handoff written by the last run
func (r *Runner) Candidates() ([]domain.Candidate, error) {
	return r.store.LoadCandidates()
}

func (r *Runner) release(unlock func() error) {
	if err := unlock(); err != nil {
		r.logger.Warn("failed to release run lock", "err", err)
	}
}

func newRunID(t time.Time) string {
	return t.Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
}

func outcomeCounts(res filter.Result) map[domain.Outcome]int {
	counts := res.Counts()
	for _, o := range domain.Outcomes {
		if _, ok := counts[o]; !ok {
			counts[o] = 0
		}
	}
	return counts
}
