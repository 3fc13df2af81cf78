package filestore

import (
	"github.com/honeycarbs/job-discovery/internal/domain"
)

type matchList []domain.MatchedJob

func emptyMatches() matchList { return matchList{} }

// NotifyResult reports what MarkNotified changed
type NotifyResult struct {
	Updated []domain.JobID
	// Missing lists ids that are not in the store
	Missing []domain.JobID
}

// Matches returns every matched job in insertion order
func (s *Store) Matches() ([]domain.MatchedJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := load(s, MatchesFile, emptyMatches)
	return jobs, err
}

// Unnotified returns the matches still waiting for a notification
func (s *Store) Unnotified() ([]domain.MatchedJob, error) {
	all, err := s.Matches()
	if err != nil {
		return nil, err
	}
	var out []domain.MatchedJob
	for _, j := range all {
		if !j.Notified {
			out = append(out, j)
		}
	}
	return out, nil
}

// SaveMatches appends accepted postings as new unnotified matches. A posting
// whose URL is already in the list is not added twice.
func (s *Store) SaveMatches(accepted []domain.Accepted) ([]domain.MatchedJob, error) {
	if len(accepted) == 0 {
		return nil, nil
	}
	found := s.now()
	var saved []domain.MatchedJob

	list, err := update(s, MatchesFile, emptyMatches, func(list *matchList) bool {
		have := make(map[string]struct{}, len(*list))
		for _, j := range *list {
			have[domain.NormalizeURL(j.URL)] = struct{}{}
		}
		for _, a := range accepted {
			key := a.Posting.Key()
			if _, dup := have[key]; dup {
				s.logger.Debug("match already stored", "url", a.Posting.URL)
				continue
			}
			have[key] = struct{}{}
			job := domain.NewMatchedJob(a, found)
			*list = append(*list, job)
			saved = append(saved, job)
		}
		return len(saved) > 0
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("saved matched jobs", "new", len(saved), "total", len(list))
	return saved, nil
}

// MarkNotified flips the notification flag for ids. Unknown ids are reported
// in the result, not treated as errors.
func (s *Store) MarkNotified(ids []domain.JobID) (NotifyResult, error) {
	at := s.now().UTC()
	want := make(map[domain.JobID]bool, len(ids))
	for _, id := range ids {
		want[id] = false
	}
	var res NotifyResult

	_, err := update(s, MatchesFile, emptyMatches, func(list *matchList) bool {
		for i := range *list {
			j := &(*list)[i]
			if _, ok := want[j.ID]; !ok {
				continue
			}
			want[j.ID] = true
			if j.Notified {
				continue
			}
			ts := at
			j.Notified = true
			j.NotifiedAt = &ts
			res.Updated = append(res.Updated, j.ID)
		}
		return len(res.Updated) > 0
	})
	if err != nil {
		return NotifyResult{}, err
	}

	for _, id := range ids {
		if !want[id] {
			res.Missing = append(res.Missing, id)
		}
	}
	if len(res.Missing) > 0 {
		s.logger.Warn("notified ids not found", "count", len(res.Missing))
	}
	s.logger.Info("marked jobs notified", "count", len(res.Updated))
	return res, nil
}
