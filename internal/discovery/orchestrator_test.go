package discovery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/domain"
	"github.com/honeycarbs/job-discovery/internal/domain/source"
	"github.com/honeycarbs/job-discovery/internal/fetch"
)

type fakeAdapter struct {
	name  string
	fetch func(ctx context.Context, src config.Source) ([]domain.RawPosting, error)
}

func (f fakeAdapter) Name() string { return f.name }

func (f fakeAdapter) Fetch(ctx context.Context, src config.Source) ([]domain.RawPosting, error) {
	return f.fetch(ctx, src)
}

type memHistory struct {
	mu      sync.Mutex
	records []domain.HistoryRecord
	err     error
}

func (m *memHistory) AppendHistory(records []domain.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, records...)
	return nil
}

func returns(postings ...domain.RawPosting) func(context.Context, config.Source) ([]domain.RawPosting, error) {
	return func(context.Context, config.Source) ([]domain.RawPosting, error) {
		return postings, nil
	}
}

func newOrchestrator(t *testing.T, h HistoryWriter, adapters ...source.Adapter) *Orchestrator {
	t.Helper()
	coord := fetch.NewCoordinator(fetch.Policy{MaxAttempts: 2, BreakerThreshold: 3},
		fetch.WithSleep(func(context.Context, time.Duration) error { return nil }))
	o, err := NewOrchestrator(
		WithRegistry(source.NewRegistry(adapters...)),
		WithCoordinator(coord),
		WithHistory(h),
		WithWorkers(3),
		WithAggregators(func(s config.Source) bool { return s.Type == "aggregator" }),
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)
	return o
}

func TestDiscoverDirectPageBeatsAggregator(t *testing.T) {
	aggregated := domain.RawPosting{Title: "Scientist", URL: "https://acme.com/jobs/1?utm_source=biospace", Description: strings.Repeat("a", 50)}
	direct := domain.RawPosting{Title: "Scientist", URL: "https://acme.com/jobs/1", Description: strings.Repeat("d", 500)}

	h := &memHistory{}
	o := newOrchestrator(t, h,
		fakeAdapter{name: "aggregator", fetch: returns(aggregated)},
		fakeAdapter{name: "direct", fetch: returns(direct)},
	)

	res, err := o.Discover(context.Background(), "run-1", []config.Source{
		{Name: "biospace", Type: "aggregator", URL: "https://biospace.com"},
		{Name: "acme", Type: "direct", URL: "https://acme.com"},
	})
	require.NoError(t, err)

	require.Len(t, res.Postings, 1)
	assert.Equal(t, direct.Description, res.Postings[0].Description)
	assert.Equal(t, 2, res.Discovered)
	assert.Equal(t, 1, res.Duplicates)
	assert.Len(t, h.records, 2)
}

func TestDiscoverIsolatesFailures(t *testing.T) {
	h := &memHistory{}
	o := newOrchestrator(t, h,
		fakeAdapter{name: "ok", fetch: returns(domain.RawPosting{Title: "A", URL: "https://ok.com/1"})},
		fakeAdapter{name: "down", fetch: func(context.Context, config.Source) ([]domain.RawPosting, error) {
			return nil, domain.ErrSourceUnavailable
		}},
		fakeAdapter{name: "panics", fetch: func(context.Context, config.Source) ([]domain.RawPosting, error) {
			panic("selector changed")
		}},
		fakeAdapter{name: "partial", fetch: func(context.Context, config.Source) ([]domain.RawPosting, error) {
			return []domain.RawPosting{{Title: "B", URL: "https://partial.com/1"}},
				&domain.FetchError{Source: "partial", StatusCode: 503, Err: errors.New("page 2")}
		}},
	)

	res, err := o.Discover(context.Background(), "run-1", []config.Source{
		{Name: "ok", Type: "ok", URL: "https://ok.com"},
		{Name: "down", Type: "down", URL: "https://down.com"},
		{Name: "panics", Type: "panics", URL: "https://panics.com"},
		{Name: "partial", Type: "partial", URL: "https://partial.com"},
		{Name: "missing", Type: "nope"},
	})
	require.NoError(t, err)

	assert.Len(t, res.Postings, 2)
	assert.ElementsMatch(t, []string{"down", "panics", "partial", "missing"}, res.FailedSources())

	kinds := map[string]fetch.Kind{}
	for _, r := range res.Sources {
		kinds[r.Name] = r.Kind
	}
	assert.Equal(t, fetch.KindOK, kinds["ok"])
	assert.Equal(t, fetch.KindUnavailable, kinds["down"])
	assert.Equal(t, fetch.KindUnavailable, kinds["panics"])
	assert.Equal(t, fetch.KindTransient, kinds["partial"])
	assert.Equal(t, fetch.KindUnavailable, kinds["missing"])
}

func TestDiscoverRecordsEveryPostingInHistory(t *testing.T) {
	dup := domain.RawPosting{Title: "Scientist", URL: "https://acme.com/jobs/1"}
	h := &memHistory{}
	o := newOrchestrator(t, h,
		fakeAdapter{name: "a", fetch: returns(dup, dup, domain.RawPosting{Title: "Other", URL: "https://acme.com/jobs/2"})},
		fakeAdapter{name: "b", fetch: returns(dup)},
	)

	res, err := o.Discover(context.Background(), "run-7", []config.Source{
		{Name: "a", Type: "a", URL: "https://a.com", Company: "Acme"},
		{Name: "b", Type: "b", URL: "https://b.com"},
	})
	require.NoError(t, err)

	require.Len(t, h.records, 4)
	for _, r := range h.records {
		assert.Equal(t, "run-7", r.RunID)
	}
	assert.Equal(t, "Acme", h.records[0].Company)
	assert.Equal(t, "a:a", h.records[0].Source)
	assert.Len(t, res.Postings, 2)
	assert.Equal(t, 2, res.Duplicates)
}

func TestDiscoverCountsSkippedRecords(t *testing.T) {
	o := newOrchestrator(t, &memHistory{},
		fakeAdapter{name: "a", fetch: func(ctx context.Context, _ config.Source) ([]domain.RawPosting, error) {
			source.Skip(ctx, "missing title")
			return []domain.RawPosting{{Title: "x", URL: ""}, {Title: "y", URL: "https://a.com/1"}}, nil
		}},
	)

	res, err := o.Discover(context.Background(), "r", []config.Source{{Name: "a", Type: "a"}})
	require.NoError(t, err)

	require.Len(t, res.Sources, 1)
	assert.Equal(t, 1, res.Sources[0].Fetched)
	assert.Equal(t, 2, res.Sources[0].Skipped)
	assert.Equal(t, map[string]int{"missing title": 1, "missing url": 1}, res.Sources[0].SkipReasons)
}

func TestDiscoverHistoryFailureAborts(t *testing.T) {
	ioErr := &domain.StoreIOError{Op: "append", Path: "discovery_log.jsonl", Err: errors.New("disk full")}
	o := newOrchestrator(t, &memHistory{err: ioErr},
		fakeAdapter{name: "a", fetch: returns(domain.RawPosting{URL: "https://a.com/1"})})

	_, err := o.Discover(context.Background(), "r", []config.Source{{Name: "a", Type: "a"}})

	var target *domain.StoreIOError
	assert.ErrorAs(t, err, &target)
}

func TestDiscoverNeverOverlapsRequestsToOneHost(t *testing.T) {
	var mu sync.Mutex
	inflight := map[string]int{}
	maxSeen := 0

	adapter := fakeAdapter{name: "board", fetch: func(_ context.Context, src config.Source) ([]domain.RawPosting, error) {
		host := domain.Host(src.URL)
		mu.Lock()
		inflight[host]++
		if inflight[host] > maxSeen {
			maxSeen = inflight[host]
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inflight[host]--
		mu.Unlock()
		return nil, nil
	}}
	o := newOrchestrator(t, &memHistory{}, adapter)

	_, err := o.Discover(context.Background(), "r", []config.Source{
		{Name: "a", Type: "board", URL: "https://x.myworkdayjobs.com/a"},
		{Name: "b", Type: "board", URL: "https://x.myworkdayjobs.com/b"},
		{Name: "c", Type: "board", URL: "https://y.com"},
		{Name: "d", Type: "board", URL: "https://x.myworkdayjobs.com/d"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, maxSeen)
}

func TestNewOrchestratorRequiresDeps(t *testing.T) {
	_, err := NewOrchestrator()
	assert.Error(t, err)
}

func TestHostLanes(t *testing.T) {
	lanes := hostLanes([]config.Source{
		{URL: "https://A.com/x"},
		{Type: "greenhouse"},
		{URL: "https://a.com/y"},
		{Type: "greenhouse"},
		{URL: "https://b.com"},
	})
	assert.Equal(t, [][]int{{0, 2}, {1, 3}, {4}}, lanes)
}

func TestMerge(t *testing.T) {
	short := domain.RawPosting{URL: "https://a.com/1", Description: "short"}
	long := domain.RawPosting{URL: "https://a.com/1/", Description: "much longer text"}
	tie := domain.RawPosting{URL: "https://a.com/1", Title: "later", Description: "much longer text"}

	merged, dups := Merge([]Batch{
		{Aggregator: true, Postings: []domain.RawPosting{short}},
		{Aggregator: true, Postings: []domain.RawPosting{long, tie}},
	})
	require.Len(t, merged, 1)
	assert.Equal(t, long, merged[0])
	assert.Equal(t, 2, dups)

	direct := domain.RawPosting{URL: "https://a.com/1", Description: ""}
	merged, _ = Merge([]Batch{
		{Aggregator: false, Postings: []domain.RawPosting{direct}},
		{Aggregator: true, Postings: []domain.RawPosting{long}},
	})
	assert.Equal(t, direct, merged[0])

	merged, dups = Merge(nil)
	assert.Empty(t, merged)
	assert.Zero(t, dups)
}
