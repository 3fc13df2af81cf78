package filestore

import (
	"time"

	"github.com/honeycarbs/job-discovery/internal/domain"
)

type seenIndex map[string]time.Time

func emptySeen() seenIndex { return seenIndex{} }

// Seen takes an immutable snapshot of the seen index
func (s *Store) Seen() (domain.SeenSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := load(s, SeenFile, emptySeen)
	if err != nil {
		return domain.SeenSnapshot{}, err
	}
	return domain.NewSeenSnapshot(idx), nil
}

// MarkSeen records urls as processed. URLs already present keep their
// original timestamp. It returns how many were new.
func (s *Store) MarkSeen(urls []string) (int, error) {
	now := s.now().UTC()
	added := 0

	idx, err := update(s, SeenFile, emptySeen, func(idx *seenIndex) bool {
		if *idx == nil {
			*idx = seenIndex{}
		}
		for _, u := range urls {
			key := domain.NormalizeURL(u)
			if key == "" {
				continue
			}
			if _, ok := (*idx)[key]; ok {
				continue
			}
			(*idx)[key] = now
			added++
		}
		return added > 0
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("marked urls seen", "new", added, "total", len(idx))
	return added, nil
}
