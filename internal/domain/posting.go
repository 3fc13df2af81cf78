package domain

import (
	"time"
	"unicode/utf8"
)

// SnippetLength bounds the description excerpt kept in discovery history
const SnippetLength = 200

// RawPosting is a job posting as a source adapter reported it
type RawPosting struct {
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	URL         string    `json:"url"`
	Location    string    `json:"location"`
	Department  string    `json:"department,omitempty"`
	DatePosted  string    `json:"date_posted,omitempty"`
	Source      string    `json:"source"`
	Description string    `json:"description,omitempty"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

// Key is the posting identity used for every dedup decision
func (p RawPosting) Key() string {
	return NormalizeURL(p.URL)
}

// HistoryRecord is one line of the append-only discovery log
type HistoryRecord struct {
	RunID              string    `json:"run_id"`
	ScrapedAt          time.Time `json:"scraped_at"`
	Title              string    `json:"title"`
	Company            string    `json:"company"`
	URL                string    `json:"url"`
	Location           string    `json:"location"`
	Department         string    `json:"department,omitempty"`
	DatePosted         string    `json:"date_posted,omitempty"`
	Source             string    `json:"source"`
	DescriptionSnippet string    `json:"description_snippet"`
}

// NewHistoryRecord stamps a posting with the run that observed it
func NewHistoryRecord(runID string, p RawPosting) HistoryRecord {
	return HistoryRecord{
		RunID:              runID,
		ScrapedAt:          p.ScrapedAt,
		Title:              p.Title,
		Company:            p.Company,
		URL:                p.URL,
		Location:           p.Location,
		Department:         p.Department,
		DatePosted:         p.DatePosted,
		Source:             p.Source,
		DescriptionSnippet: truncateRunes(p.Description, SnippetLength),
	}
}

// Candidate is a posting that survived cheap filtering and awaits a decision
type Candidate struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	URL         string `json:"url"`
	Location    string `json:"location"`
	Department  string `json:"department"`
	DatePosted  string `json:"date_posted"`
	Source      string `json:"source"`
	Description string `json:"description"`
}

// CandidateFrom projects a posting onto the handoff shape
func CandidateFrom(p RawPosting) Candidate {
	return Candidate{
		Title:       p.Title,
		Company:     p.Company,
		URL:         p.URL,
		Location:    p.Location,
		Department:  p.Department,
		DatePosted:  p.DatePosted,
		Source:      p.Source,
		Description: p.Description,
	}
}

// Posting converts the candidate back for accept-back
func (c Candidate) Posting() RawPosting {
	return RawPosting{
		Title:       c.Title,
		Company:     c.Company,
		URL:         c.URL,
		Location:    c.Location,
		Department:  c.Department,
		DatePosted:  c.DatePosted,
		Source:      c.Source,
		Description: c.Description,
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
