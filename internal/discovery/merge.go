package discovery

import (
	"unicode/utf8"

	"github.com/honeycarbs/job-discovery/internal/domain"
)

// Batch is the output of one source, tagged with its precedence class
type Batch struct {
	Source     string
	Aggregator bool
	Postings   []domain.RawPosting
}

type entry struct {
	posting    domain.RawPosting
	aggregator bool
}

// Merge collapses postings that share a normalized URL. A direct company
// page beats an aggregator, then the longer description wins, then the
// one seen first. Surviving postings keep the position of the first
// occurrence of their URL.
func Merge(batches []Batch) (merged []domain.RawPosting, duplicates int) {
	index := make(map[string]int)
	var entries []entry

	for _, b := range batches {
		for _, p := range b.Postings {
			key := p.Key()
			i, ok := index[key]
			if !ok {
				index[key] = len(entries)
				entries = append(entries, entry{posting: p, aggregator: b.Aggregator})
				continue
			}
			duplicates++
			if beats(p, b.Aggregator, entries[i]) {
				entries[i] = entry{posting: p, aggregator: b.Aggregator}
			}
		}
	}

	merged = make([]domain.RawPosting, len(entries))
	for i, e := range entries {
		merged[i] = e.posting
	}
	return merged, duplicates
}

func beats(p domain.RawPosting, aggregator bool, cur entry) bool {
	if aggregator != cur.aggregator {
		return !aggregator
	}
	return utf8.RuneCountInString(p.Description) > utf8.RuneCountInString(cur.posting.Description)
}
