package source

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/domain"
)

type stubAdapter struct{ name string }

func (s stubAdapter) Name() string { return s.name }

func (s stubAdapter) Fetch(context.Context, config.Source) ([]domain.RawPosting, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(stubAdapter{"greenhouse"}, stubAdapter{"Workday"})

	_, ok := r.Lookup("WORKDAY")
	assert.True(t, ok, "lookup is case insensitive")
	_, ok = r.Lookup("lever")
	assert.False(t, ok)

	require.Error(t, r.Register(stubAdapter{"greenhouse"}))
	require.NoError(t, r.Register(stubAdapter{"biospace"}))
	assert.Equal(t, []string{"biospace", "greenhouse", "workday"}, r.Types())
}

func TestTally(t *testing.T) {
	tally := &Tally{}
	ctx := WithTally(context.Background(), tally)

	Skip(ctx, "missing title")
	Skip(ctx, "missing title")
	Skip(ctx, "missing url")
	Skip(context.Background(), "ignored without tally")

	assert.Equal(t, 3, tally.Skipped())
	assert.Equal(t, map[string]int{"missing title": 2, "missing url": 1}, tally.Reasons())
}

func response(code int, body string) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(body))}
}

func TestCheckStatus(t *testing.T) {
	assert.NoError(t, CheckStatus("s", response(200, "")))

	err := CheckStatus("s", response(503, ""))
	assert.True(t, domain.IsTransient(err))

	err = CheckStatus("s", response(429, ""))
	assert.True(t, domain.IsTransient(err))

	err = CheckStatus("s", response(404, "board not found"))
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.False(t, domain.IsTransient(err))
	assert.Contains(t, err.Error(), "board not found")
}

func TestHTMLHelpers(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`
		<ul><li class="job card">
			<h3><a href="/job/1/chemist/">Senior   Chemist</a></h3>
			<script>var x = 1;</script>
			<span>Boston, MA</span>
		</li></ul>`))
	require.NoError(t, err)

	links := FindAll(doc, IsElement(atom.A))
	require.Len(t, links, 1)
	assert.Equal(t, "/job/1/chemist/", Attr(links[0], "href"))
	assert.Equal(t, "Senior Chemist", Text(links[0]))

	li := Ancestor(links[0], atom.Li)
	require.NotNil(t, li)
	assert.True(t, HasClass(li, "card"))
	assert.Equal(t, []string{"Senior Chemist", "Boston, MA"}, Lines(li))
	assert.NotNil(t, First(li, IsElement(atom.Span)))
}

func TestHTMLToText(t *testing.T) {
	assert.Equal(t, "About\nWe make\nmedicines.", HTMLToText("<h2>About</h2><p>We make <b>medicines.</b></p>"))
	assert.Equal(t, "", HTMLToText("   "))
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "https://www.biospace.com/job/1/x/", Resolve("https://www.biospace.com/jobs/2/", "/job/1/x/"))
	assert.Equal(t, "https://other.com/a", Resolve("https://www.biospace.com", "https://other.com/a"))
}
