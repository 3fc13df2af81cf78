package adzuna

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/domain"
	"github.com/honeycarbs/job-discovery/internal/domain/source"
	"github.com/honeycarbs/job-discovery/pkg/adzuna"
)

type fakeClient struct {
	pages    map[int]adzuna.Page
	err      error
	requests []adzuna.SearchParams
}

func (f *fakeClient) SearchJobs(_ context.Context, _ string, params adzuna.SearchParams) (adzuna.Page, error) {
	f.requests = append(f.requests, params)
	if f.err != nil {
		return adzuna.Page{}, f.err
	}
	return f.pages[params.Page], nil
}

func (f *fakeClient) PageSize() int { return 2 }

func TestFetchPagesUntilShortPage(t *testing.T) {
	client := &fakeClient{pages: map[int]adzuna.Page{
		1: {Jobs: []adzuna.Job{
			{ID: "1", Title: "Engineer", CompanyName: "Acme", URL: "https://adzuna.com/1", Created: "2026-02-01T00:00:00Z"},
			{ID: "2", Title: "", URL: "https://adzuna.com/2"},
		}},
		2: {Jobs: []adzuna.Job{{ID: "3", Title: "Chemist", URL: "https://adzuna.com/3"}}},
	}}
	p, err := NewProvider(client)
	require.NoError(t, err)

	got, err := p.Fetch(context.Background(), config.Source{
		Name:     "adzuna-us",
		Keywords: []string{"process", "engineer"},
		Params:   map[string]string{"where": "California", "max_days_old": "14"},
	})
	require.NoError(t, err)

	require.Len(t, client.requests, 2)
	assert.Equal(t, "California", client.requests[0].Where)
	assert.Equal(t, 14, client.requests[0].MaxDaysOld)
	require.Len(t, got, 2)
	assert.Equal(t, "adzuna", got[0].Source)
	assert.Equal(t, "2026-02-01T00:00:00Z", got[0].DatePosted)
}

func TestFetchSkipsMalformedResults(t *testing.T) {
	client := &fakeClient{pages: map[int]adzuna.Page{
		1: {Malformed: 1, Jobs: []adzuna.Job{
			{ID: "1", Title: "Engineer", URL: "https://adzuna.com/1"},
		}},
		2: {Jobs: []adzuna.Job{{ID: "3", Title: "Chemist", URL: "https://adzuna.com/3"}}},
	}}
	p, err := NewProvider(client)
	require.NoError(t, err)

	tally := &source.Tally{}
	ctx := source.WithTally(context.Background(), tally)
	got, err := p.Fetch(ctx, config.Source{Name: "adzuna-us", Keywords: []string{"engineer"}})
	require.NoError(t, err)

	assert.Len(t, client.requests, 2, "a page holding a malformed result is still a full page")
	require.Len(t, got, 2)
	assert.Equal(t, map[string]int{"malformed record": 1}, tally.Reasons())
}

func TestFetchRequiresKeywords(t *testing.T) {
	p, err := NewProvider(&fakeClient{})
	require.NoError(t, err)

	_, err = p.Fetch(context.Background(), config.Source{Name: "adzuna"})
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestFetchClassifiesStatusErrors(t *testing.T) {
	p, err := NewProvider(&fakeClient{err: &adzuna.StatusError{StatusCode: 401}})
	require.NoError(t, err)
	_, err = p.Fetch(context.Background(), config.Source{Name: "adzuna", Keywords: []string{"x"}})
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)

	p, err = NewProvider(&fakeClient{err: &adzuna.StatusError{StatusCode: 503}})
	require.NoError(t, err)
	_, err = p.Fetch(context.Background(), config.Source{Name: "adzuna", Keywords: []string{"x"}})
	assert.True(t, domain.IsTransient(err))
}
