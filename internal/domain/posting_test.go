package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHistoryRecordTruncatesSnippet(t *testing.T) {
	p := RawPosting{
		Title:       "Scientist",
		URL:         "https://acme.com/j/1",
		Source:      "greenhouse:acme",
		Description: strings.Repeat("é", 350),
		ScrapedAt:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	rec := NewHistoryRecord("run-1", p)

	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, p.ScrapedAt, rec.ScrapedAt)
	assert.Equal(t, SnippetLength, len([]rune(rec.DescriptionSnippet)))
}

func TestCandidateRoundTripKeepsFields(t *testing.T) {
	p := RawPosting{
		Title:       "Process Engineer",
		Company:     "Acme",
		URL:         "https://acme.com/j/2",
		Location:    "South San Francisco, CA",
		Department:  "Manufacturing",
		DatePosted:  "2026-03-01",
		Source:      "workday:acme",
		Description: "Run the line",
	}
	assert.Equal(t, p, CandidateFrom(p).Posting())
}

func TestNewMatchedJob(t *testing.T) {
	found := time.Date(2026, 3, 2, 10, 0, 0, 0, time.FixedZone("PST", -8*3600))
	m := NewMatchedJob(Accepted{Posting: RawPosting{Title: "T", URL: "https://a.com/1"}, IsBayArea: true}, found)

	require.NotEqual(t, JobID{}, m.ID)
	assert.True(t, m.IsBayArea)
	assert.False(t, m.Notified)
	assert.Nil(t, m.NotifiedAt)
	assert.Equal(t, time.UTC, m.DateFound.Location())
}

func TestSeenSnapshotIsIsolated(t *testing.T) {
	src := map[string]time.Time{"https://ACME.com/j/1/": time.Now()}
	snap := NewSeenSnapshot(src)
	src["https://acme.com/j/2"] = time.Now()

	assert.True(t, snap.Has("https://acme.com/j/1?utm_source=x"))
	assert.False(t, snap.Has("https://acme.com/j/2"))
	assert.Equal(t, 1, snap.Len())
}
