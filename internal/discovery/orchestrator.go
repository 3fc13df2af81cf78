// Package discovery runs every enabled source, isolates their failures and
// merges what they return into one deduplicated list.
package discovery

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/domain"
	"github.com/honeycarbs/job-discovery/internal/domain/source"
	"github.com/honeycarbs/job-discovery/internal/fetch"
	"github.com/honeycarbs/job-discovery/pkg/logging"
)

// HistoryWriter persists every posting a run encountered
type HistoryWriter interface {
	AppendHistory(records []domain.HistoryRecord) error
}

// SourceReport describes how one source fared in a run
type SourceReport struct {
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Aggregator  bool           `json:"aggregator"`
	Fetched     int            `json:"fetched"`
	Skipped     int            `json:"skipped"`
	SkipReasons map[string]int `json:"skip_reasons,omitempty"`
	Attempts    int            `json:"attempts"`
	Duration    time.Duration  `json:"duration"`
	Kind        fetch.Kind     `json:"kind,omitempty"`
	Error       string         `json:"error,omitempty"`
}

func (r SourceReport) Failed() bool {
	return r.Error != ""
}

// Result is the merged output of one discovery run
type Result struct {
	RunID string
	// Postings is deduplicated by normalized URL
	Postings   []domain.RawPosting
	Discovered int
	Duplicates int
	Sources    []SourceReport
}

// FailedSources lists the names of sources that ended with an error
func (r Result) FailedSources() []string {
	var out []string
	for _, s := range r.Sources {
		if s.Failed() {
			out = append(out, s.Name)
		}
	}
	return out
}

// Option configures Orchestrator
type Option func(*options)

type options struct {
	registry    *source.Registry
	coordinator *fetch.Coordinator
	history     HistoryWriter
	aggregator  func(config.Source) bool
	workers     int
	logger      *logging.Logger
	clock       func() time.Time
}

func WithRegistry(r *source.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

func WithCoordinator(c *fetch.Coordinator) Option {
	return func(o *options) {
		o.coordinator = c
	}
}

// WithHistory sets where every discovered posting is recorded
func WithHistory(h HistoryWriter) Option {
	return func(o *options) {
		o.history = h
	}
}

// WithAggregators sets the predicate deciding which sources lose merge ties
func WithAggregators(isAggregator func(config.Source) bool) Option {
	return func(o *options) {
		o.aggregator = isAggregator
	}
}

// WithWorkers bounds how many hosts are fetched concurrently
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock sets a custom clock
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// Orchestrator drives one discovery run across sources
type Orchestrator struct {
	registry    *source.Registry
	coordinator *fetch.Coordinator
	history     HistoryWriter
	aggregator  func(config.Source) bool
	workers     int
	logger      *logging.Logger
	clock       func() time.Time
}

// NewOrchestrator builds an Orchestrator from options
func NewOrchestrator(opts ...Option) (*Orchestrator, error) {
	o := &options{
		workers: 1,
		logger:  logging.Nop(),
		clock:   time.Now,
		aggregator: func(config.Source) bool {
			return false
		},
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.registry == nil {
		return nil, fmt.Errorf("discovery.Orchestrator: registry is required")
	}
	if o.coordinator == nil {
		return nil, fmt.Errorf("discovery.Orchestrator: coordinator is required")
	}
	if o.history == nil {
		return nil, fmt.Errorf("discovery.Orchestrator: history writer is required")
	}
	if o.workers < 1 {
		o.workers = 1
	}

	return &Orchestrator{
		registry:    o.registry,
		coordinator: o.coordinator,
		history:     o.history,
		aggregator:  o.aggregator,
		workers:     o.workers,
		logger:      o.logger,
		clock:       o.clock,
	}, nil
}

// Discover fetches every source, appends all postings to history and
// returns the merged list. Source failures are reported, never returned;
// the only error is a failure to write history.
func (o *Orchestrator) Discover(ctx context.Context, runID string, sources []config.Source) (Result, error) {
	o.coordinator.Reset()

	batches := make([]Batch, len(sources))
	reports := make([]SourceReport, len(sources))

	var g errgroup.Group
	g.SetLimit(o.workers)
	for _, lane := range hostLanes(sources) {
		g.Go(func() error {
			// one host at a time: sources sharing a host never overlap
			for _, i := range lane {
				batches[i], reports[i] = o.fetchSource(ctx, sources[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	res := Result{RunID: runID, Sources: reports}
	var records []domain.HistoryRecord
	for _, b := range batches {
		res.Discovered += len(b.Postings)
		for _, p := range b.Postings {
			records = append(records, domain.NewHistoryRecord(runID, p))
		}
	}

	if err := o.history.AppendHistory(records); err != nil {
		return res, fmt.Errorf("append history: %w", err)
	}

	res.Postings, res.Duplicates = Merge(batches)

	o.logger.Info("discovery finished",
		"run_id", runID,
		"sources", len(sources),
		"failed", len(res.FailedSources()),
		"discovered", res.Discovered,
		"unique", len(res.Postings),
	)
	return res, nil
}

func (o *Orchestrator) fetchSource(ctx context.Context, src config.Source) (Batch, SourceReport) {
	batch := Batch{Source: src.Name, Aggregator: o.aggregator(src)}
	report := SourceReport{Name: src.Name, Type: src.Type, Aggregator: batch.Aggregator}

	adapter, ok := o.registry.Lookup(src.Type)
	if !ok {
		report.Kind = fetch.KindUnavailable
		report.Error = fmt.Sprintf("%v: no adapter for type %q", domain.ErrSourceUnavailable, src.Type)
		o.logger.Error("unknown source type", "source", src.Name, "type", src.Type)
		return batch, report
	}

	tally := &source.Tally{}
	ctx = source.WithTally(ctx, tally)
	res := o.coordinator.Run(ctx, src, func(ctx context.Context) ([]domain.RawPosting, error) {
		return adapter.Fetch(ctx, src)
	})

	batch.Postings = o.annotate(ctx, src, res.Postings)
	report.Fetched = len(batch.Postings)
	report.Skipped = tally.Skipped()
	report.SkipReasons = tally.Reasons()
	report.Attempts = res.Attempts
	report.Duration = res.Duration
	report.Kind = res.Kind
	if res.Err != nil {
		report.Error = res.Err.Error()
	}

	o.logger.Info("source fetched",
		"source", src.Name,
		"postings", report.Fetched,
		"skipped", report.Skipped,
		"attempts", report.Attempts,
		"duration", report.Duration.String(),
	)
	return batch, report
}

// annotate fills defaults the adapter left empty and drops postings with no URL
func (o *Orchestrator) annotate(ctx context.Context, src config.Source, postings []domain.RawPosting) []domain.RawPosting {
	now := o.clock().UTC()
	out := make([]domain.RawPosting, 0, len(postings))
	for _, p := range postings {
		if p.Key() == "" {
			source.Skip(ctx, "missing url")
			continue
		}
		if p.Source == "" {
			p.Source = src.Type + ":" + source.Slug(src.Name)
		}
		if p.Company == "" {
			p.Company = src.Company
		}
		if p.ScrapedAt.IsZero() {
			p.ScrapedAt = now
		}
		out = append(out, p)
	}
	return out
}

// hostLanes groups source indexes by the host they talk to, keeping
// configuration order inside each lane and across lanes.
func hostLanes(sources []config.Source) [][]int {
	pos := make(map[string]int)
	var lanes [][]int
	for i, s := range sources {
		key := domain.Host(s.URL)
		if key == "" {
			key = "type:" + s.Type
		}
		j, ok := pos[key]
		if !ok {
			j = len(lanes)
			pos[key] = j
			lanes = append(lanes, nil)
		}
		lanes[j] = append(lanes[j], i)
	}
	return lanes
}
