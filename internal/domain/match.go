package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobID uniquely identifies a matched job
type JobID = uuid.UUID

// MatchedJob is a posting the decision step accepted
type MatchedJob struct {
	ID         JobID      `json:"id"`
	Company    string     `json:"company"`
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	Location   string     `json:"location"`
	IsBayArea  bool       `json:"is_bay_area"`
	Department string     `json:"department"`
	DatePosted string     `json:"date_posted"`
	DateFound  time.Time  `json:"date_found"`
	Source     string     `json:"source"`
	Notified   bool       `json:"notified"`
	NotifiedAt *time.Time `json:"notified_at"`
}

// Accepted is one positive decision returned by the decision step
type Accepted struct {
	Posting   RawPosting `json:"posting"`
	IsBayArea bool       `json:"is_bay_area"`
}

// NewMatchedJob builds an unnotified match with a fresh id
func NewMatchedJob(a Accepted, found time.Time) MatchedJob {
	p := a.Posting
	return MatchedJob{
		ID:         uuid.New(),
		Company:    p.Company,
		Title:      p.Title,
		URL:        p.URL,
		Location:   p.Location,
		IsBayArea:  a.IsBayArea,
		Department: p.Department,
		DatePosted: p.DatePosted,
		DateFound:  found.UTC(),
		Source:     p.Source,
	}
}

// SeenSnapshot is a read-only view of the seen index taken before filtering
type SeenSnapshot struct {
	entries map[string]time.Time
}

// NewSeenSnapshot copies the given index so later writes cannot leak in
func NewSeenSnapshot(entries map[string]time.Time) SeenSnapshot {
	cp := make(map[string]time.Time, len(entries))
	for k, v := range entries {
		cp[NormalizeURL(k)] = v
	}
	return SeenSnapshot{entries: cp}
}

// Has reports whether the url was processed by an earlier run
func (s SeenSnapshot) Has(url string) bool {
	_, ok := s.entries[NormalizeURL(url)]
	return ok
}

// FirstSeen returns when the url entered the index
func (s SeenSnapshot) FirstSeen(url string) (time.Time, bool) {
	ts, ok := s.entries[NormalizeURL(url)]
	return ts, ok
}

func (s SeenSnapshot) Len() int {
	return len(s.entries)
}
