package biospace

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/honeycarbs/job-discovery/internal/config"
)

const listing = `<html><body><ul>
<li>
  <img src="/l.png" alt="Amgen logo">
  <h3><a href="/job/3030376/medical-director/">Medical Director, Clinical Development</a></h3>
  <p>Thousand Oaks, CA</p>
  <p>$250,000 - $300,000</p>
  <p>Lead clinical strategy for late stage oncology programs across the portfolio.</p>
  <a href="/job/3030376/medical-director/">View details</a>
</li>
<li>
  <h3><a href="https://www.biospace.com/job/3030377/chemist/">Chemist</a></h3>
  <p>Remote</p>
</li>
<li><h3><a href="/employers/">Employers</a></h3></li>
</ul></body></html>`

func TestFetchBrowsePagination(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/jobs/" {
			_, _ = w.Write([]byte(listing))
			return
		}
		_, _ = w.Write([]byte("<html><body><p>No results</p></body></html>"))
	}))
	defer srv.Close()

	p, err := NewProvider(srv.Client(), nil)
	require.NoError(t, err)

	got, err := p.Fetch(context.Background(), config.Source{Name: "biospace", URL: srv.URL})
	require.NoError(t, err)

	assert.Equal(t, []string{"/jobs/", "/jobs/2/"}, paths)
	require.Len(t, got, 2)

	assert.Equal(t, "Medical Director, Clinical Development", got[0].Title)
	assert.Equal(t, srv.URL+"/job/3030376/medical-director/", got[0].URL)
	assert.Equal(t, "Amgen", got[0].Company)
	assert.Equal(t, "Thousand Oaks, CA", got[0].Location)
	assert.Equal(t, "Lead clinical strategy for late stage oncology programs across the portfolio.", got[0].Description)
	assert.Equal(t, "biospace", got[0].Source)

	assert.Equal(t, "https://www.biospace.com/job/3030377/chemist/", got[1].URL)
	assert.Equal(t, "Remote", got[1].Location)
}

func TestFetchKeywordSearch(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/searchjobs/", r.URL.Path)
		queries = append(queries, r.URL.RawQuery)
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	p, err := NewProvider(srv.Client(), nil)
	require.NoError(t, err)

	_, err = p.Fetch(context.Background(), config.Source{Name: "biospace", URL: srv.URL, Keywords: []string{"drug", "product"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Keywords=drug+product"}, queries)
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "https://b.com/jobs/", pageURL("https://b.com", "", 1))
	assert.Equal(t, "https://b.com/jobs/3/", pageURL("https://b.com", "", 3))
	assert.Equal(t, "https://b.com/searchjobs/?Keywords=qa&page=2", pageURL("https://b.com", "qa", 2))
	assert.Equal(t, fmt.Sprintf("https://b.com/searchjobs/?Keywords=%s", "a+b"), pageURL("https://b.com", "a b", 1))
}
