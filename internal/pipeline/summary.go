package pipeline

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/honeycarbs/job-discovery/internal/discovery"
	"github.com/honeycarbs/job-discovery/internal/domain"
)

// Summary is the report of one run
type Summary struct {
	RunID           string                   `json:"run_id"`
	StartedAt       time.Time                `json:"started_at"`
	FinishedAt      time.Time                `json:"finished_at"`
	Discovered      int                      `json:"discovered"`
	Unique          int                      `json:"unique"`
	Duplicates      int                      `json:"duplicates"`
	Outcomes        map[domain.Outcome]int   `json:"outcomes"`
	Candidates      int                      `json:"candidates"`
	Sources         []discovery.SourceReport `json:"sources"`
	FailedSources   []string                 `json:"failed_sources,omitempty"`
	IntegrityErrors []domain.IntegrityError  `json:"integrity_errors,omitempty"`
	Rejections      []domain.RejectionRecord `json:"-"`
}

// RejectionDetails counts filtered postings by outcome and detail, e.g.
// title rejections split into excluded terms and no include match.
func (s Summary) RejectionDetails() map[domain.Outcome]map[string]int {
	out := make(map[domain.Outcome]map[string]int)
	for _, r := range s.Rejections {
		if r.Outcome == domain.OutcomePass || r.Outcome == domain.OutcomeRejectedDuplicate {
			continue
		}
		key := r.Detail
		if r.Outcome == domain.OutcomeRejectedAge {
			key = "older than max age"
		}
		if out[r.Outcome] == nil {
			out[r.Outcome] = make(map[string]int)
		}
		out[r.Outcome][key]++
	}
	return out
}

// WriteText prints a human readable report
func (s Summary) WriteText(w io.Writer) error {
	p := &printer{w: w}
	p.printf("Run %s (%s)\n", s.RunID, s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	p.printf("  discovered: %d  unique: %d  merged duplicates: %d\n", s.Discovered, s.Unique, s.Duplicates)

	for _, o := range domain.Outcomes {
		p.printf("  %-20s %d\n", o, s.Outcomes[o])
	}
	details := s.RejectionDetails()
	for _, o := range domain.Outcomes {
		keys := make([]string, 0, len(details[o]))
		for k := range details[o] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p.printf("    %s: %s x%d\n", o, k, details[o][k])
		}
	}
	p.printf("  candidates: %d\n", s.Candidates)

	p.printf("Sources:\n")
	for _, src := range s.Sources {
		status := "ok"
		if src.Failed() {
			status = fmt.Sprintf("FAILED (%s): %s", src.Kind, src.Error)
		}
		p.printf("  %-24s fetched=%-4d skipped=%-3d attempts=%-2d %s\n", src.Name, src.Fetched, src.Skipped, src.Attempts, status)
	}

	for _, e := range s.IntegrityErrors {
		p.printf("Integrity: %s\n", e.Error())
	}
	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
