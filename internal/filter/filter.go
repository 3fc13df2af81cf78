// Package filter implements the cheap, deterministic rules that decide
// which discovered postings are worth an external decision.
package filter

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/domain"
)

const day = 24 * time.Hour

// Criteria are the match rules applied to every posting
type Criteria struct {
	// MaxAge disables the age rule when zero
	MaxAge  time.Duration
	Include []string
	Exclude []string
}

func CriteriaFromConfig(m config.MatchCriteria) Criteria {
	return Criteria{
		MaxAge:  time.Duration(m.MaxAgeDays) * day,
		Include: m.TitleInclude,
		Exclude: m.TitleExclude,
	}
}

// Result partitions one run's postings. Records holds one entry per
// posting in input order, PASS included.
type Result struct {
	Candidates []domain.Candidate
	Records    []domain.RejectionRecord
}

// Counts tallies records by outcome
func (r Result) Counts() map[domain.Outcome]int {
	out := make(map[domain.Outcome]int, len(domain.Outcomes))
	for _, rec := range r.Records {
		out[rec.Outcome]++
	}
	return out
}

// Evaluate tags every posting with the first rule that applies:
// duplicate, age, title, otherwise pass. It never mutates its input and
// the outcome for one posting does not depend on any other.
func Evaluate(postings []domain.RawPosting, seen domain.SeenSnapshot, c Criteria, now time.Time) Result {
	res := Result{
		Candidates: make([]domain.Candidate, 0, len(postings)),
		Records:    make([]domain.RejectionRecord, 0, len(postings)),
	}
	include := foldAll(c.Include)
	exclude := foldAll(c.Exclude)

	for _, p := range postings {
		outcome, detail := evaluate(p, seen, c.MaxAge, include, exclude, now)
		res.Records = append(res.Records, domain.RejectionRecord{
			URL:     p.URL,
			Title:   p.Title,
			Source:  p.Source,
			Outcome: outcome,
			Detail:  detail,
		})
		if outcome == domain.OutcomePass {
			res.Candidates = append(res.Candidates, domain.CandidateFrom(p))
		}
	}
	return res
}

func evaluate(p domain.RawPosting, seen domain.SeenSnapshot, maxAge time.Duration, include, exclude []string, now time.Time) (domain.Outcome, string) {
	if first, ok := seen.FirstSeen(p.URL); ok {
		return domain.OutcomeRejectedDuplicate, "seen " + first.UTC().Format(time.RFC3339)
	}

	if maxAge > 0 {
		if posted, ok := ParseDate(p.DatePosted); ok {
			if age := now.Sub(posted); age > maxAge {
				return domain.OutcomeRejectedAge, fmt.Sprintf("posted %s, %d days old", posted.Format("2006-01-02"), int(age/day))
			}
		}
	}

	title := fold(p.Title)
	for _, term := range exclude {
		if strings.Contains(title, term) {
			return domain.OutcomeRejectedTitle, fmt.Sprintf("excluded term %q", term)
		}
	}
	if len(include) > 0 && !containsAny(title, include) {
		return domain.OutcomeRejectedTitle, "no include term matched"
	}

	return domain.OutcomePass, ""
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// fold lowercases and strips diacritics so "Sr. Scientífico" matches "cientifico"
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.Join(strings.Fields(out), " "))
}

func foldAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if f := fold(t); f != "" {
			out = append(out, f)
		}
	}
	return out
}
