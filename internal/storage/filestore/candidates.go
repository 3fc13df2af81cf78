package filestore

import (
	"errors"
	"fmt"
	"os"

	"github.com/honeycarbs/job-discovery/internal/domain"
)

// WriteCandidates replaces the handoff file for the decision step
func (s *Store) WriteCandidates(candidates []domain.Candidate) error {
	if candidates == nil {
		candidates = []domain.Candidate{}
	}
	data, err := encode(candidates)
	if err != nil {
		return &domain.StoreIOError{Op: "encode", Path: s.Path(CandidatesFile), Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAtomic(CandidatesFile, data)
}

// LoadCandidates reads the handoff file written by the last run
func (s *Store) LoadCandidates() ([]domain.Candidate, error) {
	path := s.Path(CandidatesFile)

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.Candidate{}, nil
	}
	if err != nil {
		return nil, &domain.StoreIOError{Op: "read", Path: path, Err: err}
	}

	out, err := decode[[]domain.Candidate](raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CandidatesFile, err)
	}
	return out, nil
}
