package talentbrew

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/domain"
)

const results = `<html><body><section id="search-results-list"><ul>
<li>
  <span class="job-date-posted">Aug. 18, 2025</span>
  <a href="/en/job/thousand-oaks/scientist-process-development/87/123"><h2>Scientist - Process Development</h2></a>
  <span class="job-location">US - California - Thousand Oaks</span>
  <a href="/en/job/thousand-oaks/scientist-process-development/87/123">Save Job Button</a>
</li>
<li>
  <a href="/en/job/dublin/qa-lead/87/456">QA Lead Ireland</a>
  <span>Ireland - Dublin</span>
</li>
<li><a href="/en/about">About us</a></li>
</ul></section></body></html>`

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search-jobs/drug product", r.URL.Path)
		_, _ = w.Write([]byte(results))
	}))
	defer srv.Close()

	p, err := NewProvider(srv.Client())
	require.NoError(t, err)

	got, err := p.Fetch(context.Background(), config.Source{
		Name:     "amgen",
		URL:      srv.URL,
		Company:  "Amgen",
		Keywords: []string{"drug", "product"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Scientist - Process Development", got[0].Title)
	assert.Equal(t, srv.URL+"/en/job/thousand-oaks/scientist-process-development/87/123", got[0].URL)
	assert.Equal(t, "Aug. 18, 2025", got[0].DatePosted)
	assert.Equal(t, "US - California - Thousand Oaks", got[0].Location)
	assert.Equal(t, "talentbrew:amgen", got[0].Source)

	assert.Equal(t, "QA Lead Ireland", got[1].Title)
	assert.Equal(t, "Ireland - Dublin", got[1].Location)
}

func TestFetchRequiresURL(t *testing.T) {
	p, err := NewProvider(http.DefaultClient)
	require.NoError(t, err)

	_, err = p.Fetch(context.Background(), config.Source{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}
