package greenhouse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/domain"
	"github.com/honeycarbs/job-discovery/internal/domain/source"
)

const board = `{"jobs":[
 {"id":1,"title":" Scientist II ","absolute_url":"https://boards.greenhouse.io/acme/jobs/1",
  "updated_at":"2026-02-01T10:00:00-05:00","content":"&lt;p&gt;Design &lt;b&gt;assays&lt;/b&gt;&lt;/p&gt;",
  "location":{"name":"South San Francisco, CA"},"departments":[{"name":"Research"},{"name":"Other"}]},
 {"id":2,"title":"","absolute_url":"https://boards.greenhouse.io/acme/jobs/2"},
 {"id":3,"title":"No link"}
]}`

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/acme/jobs", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("content"))
		_, _ = w.Write([]byte(board))
	}))
	defer srv.Close()

	now := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	p, err := NewProvider(srv.Client(), WithAPIBase(srv.URL), WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	tally := &source.Tally{}
	ctx := source.WithTally(context.Background(), tally)
	got, err := p.Fetch(ctx, config.Source{Name: "acme", Company: "Acme Bio", Params: map[string]string{"board_token": "acme"}})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, domain.RawPosting{
		Title:       "Scientist II",
		Company:     "Acme Bio",
		URL:         "https://boards.greenhouse.io/acme/jobs/1",
		Location:    "South San Francisco, CA",
		Department:  "Research",
		DatePosted:  "2026-02-01T10:00:00-05:00",
		Source:      "greenhouse:acme",
		Description: "Design\nassays",
		ScrapedAt:   now,
	}, got[0])
	assert.Equal(t, 2, tally.Skipped())
}

func TestFetchSkipsMalformedJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jobs":[
 {"id":1,"title":"Scientist I","absolute_url":"https://boards.greenhouse.io/acme/jobs/1"},
 {"id":"x2","title":"Scientist II","absolute_url":"https://boards.greenhouse.io/acme/jobs/2"},
 {"id":3,"title":"Scientist III","absolute_url":"https://boards.greenhouse.io/acme/jobs/3"}
]}`))
	}))
	defer srv.Close()

	p, err := NewProvider(srv.Client(), WithAPIBase(srv.URL))
	require.NoError(t, err)

	tally := &source.Tally{}
	ctx := source.WithTally(context.Background(), tally)
	got, err := p.Fetch(ctx, config.Source{Name: "acme", Params: map[string]string{"board_token": "acme"}})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "Scientist I", got[0].Title)
	assert.Equal(t, "Scientist III", got[1].Title)
	assert.Equal(t, map[string]int{"malformed record": 1}, tally.Reasons())
}

func TestFetchRequiresBoardToken(t *testing.T) {
	p, err := NewProvider(http.DefaultClient)
	require.NoError(t, err)

	_, err = p.Fetch(context.Background(), config.Source{Name: "acme"})
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestFetchUnknownBoard(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p, err := NewProvider(srv.Client(), WithAPIBase(srv.URL))
	require.NoError(t, err)

	_, err = p.Fetch(context.Background(), config.Source{Name: "gone", Params: map[string]string{"board_token": "gone"}})
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestFetchMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jobs": [`))
	}))
	defer srv.Close()

	p, err := NewProvider(srv.Client(), WithAPIBase(srv.URL))
	require.NoError(t, err)

	_, err = p.Fetch(context.Background(), config.Source{Name: "acme", Params: map[string]string{"board_token": "acme"}})
	var pe *domain.ParseError
	assert.ErrorAs(t, err, &pe)
}
