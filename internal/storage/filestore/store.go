// Package filestore keeps the pipeline state in plain files under one
// data directory: an append-only discovery history, the matched jobs list
// and the seen-URL index.
package filestore

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/honeycarbs/job-discovery/internal/domain"
	"github.com/honeycarbs/job-discovery/pkg/logging"
)

const (
	HistoryFile    = "discovery_log.jsonl"
	MatchesFile    = "jobs.json"
	SeenFile       = "seen_urls.json"
	CandidatesFile = "candidates.json"

	backupSuffix = ".bak"
	tempSuffix   = ".tmp"
)

// Store owns every on-disk artifact. Its methods are safe for concurrent
// use within one process; separate processes must be serialized by the caller.
type Store struct {
	dir    string
	logger *logging.Logger
	now    func() time.Time
	rename func(oldpath, newpath string) error

	mu        sync.Mutex
	integrity []domain.IntegrityError
}

// Option configures a Store
type Option func(*Store)

// WithClock sets the clock used for seen and match timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New returns a store rooted at dir. Nothing is touched on disk until Init
// or the first write.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:    dir,
		logger: logging.Nop(),
		now:    time.Now,
		rename: os.Rename,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute location of one artifact
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Init creates the data directory and empty artifacts. Existing files are left alone.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &domain.StoreIOError{Op: "mkdir", Path: s.dir, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	defaults := map[string][]byte{
		MatchesFile: []byte("[]\n"),
		SeenFile:    []byte("{}\n"),
	}
	for name, content := range defaults {
		if _, err := os.Stat(s.Path(name)); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return &domain.StoreIOError{Op: "stat", Path: s.Path(name), Err: err}
		}
		if err := s.writeAtomic(name, content); err != nil {
			return err
		}
		s.logger.Info("created store file", "path", s.Path(name))
	}

	f, err := os.OpenFile(s.Path(HistoryFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &domain.StoreIOError{Op: "create", Path: s.Path(HistoryFile), Err: err}
	}
	return f.Close()
}

// DrainIntegrityErrors returns the corruptions recovered since the last call
func (s *Store) DrainIntegrityErrors() []domain.IntegrityError {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.integrity
	s.integrity = nil
	return out
}

func (s *Store) recordIntegrity(e domain.IntegrityError) {
	s.integrity = append(s.integrity, e)
	s.logger.Error("store integrity error", "file", e.File, "recovery", e.Recovery, "detail", e.Detail)
}
