package filestore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/honeycarbs/job-discovery/internal/domain"
)

const maxHistoryLine = 1 << 20

// History is the parsed discovery log
type History struct {
	Records []domain.HistoryRecord
	// Skipped counts lines that did not parse, typically a write cut short by a crash
	Skipped int
}

// AppendHistory writes one line per record. Existing lines are never read
// or rewritten. If the file ends in a torn line, a newline is written first
// so the new records start on a line of their own.
func (s *Store) AppendHistory(records []domain.HistoryRecord) error {
	if len(records) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return &domain.StoreIOError{Op: "encode", Path: s.Path(HistoryFile), Err: err}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(HistoryFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return &domain.StoreIOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	torn, err := endsTorn(f)
	if err != nil {
		return &domain.StoreIOError{Op: "stat", Path: path, Err: err}
	}
	if torn {
		s.logger.Warn("history ends in a partial line", "path", path)
		if _, err := f.Write([]byte{'\n'}); err != nil {
			return &domain.StoreIOError{Op: "append", Path: path, Err: err}
		}
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return &domain.StoreIOError{Op: "append", Path: path, Err: err}
	}
	if err := f.Sync(); err != nil {
		return &domain.StoreIOError{Op: "sync", Path: path, Err: err}
	}
	return nil
}

func endsTorn(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return false, err
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

// ReadHistory parses the whole log. Unparseable lines are skipped and
// counted, they never abort the read.
func (s *Store) ReadHistory() (History, error) {
	path := s.Path(HistoryFile)

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return History{}, nil
	}
	if err != nil {
		return History{}, &domain.StoreIOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	var h History
	r := bufio.NewReaderSize(f, 64*1024)
	for {
		line, err := readLine(r)
		if len(bytes.TrimSpace(line)) > 0 {
			var rec domain.HistoryRecord
			if jerr := json.Unmarshal(line, &rec); jerr != nil {
				h.Skipped++
			} else {
				h.Records = append(h.Records, rec)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return h, &domain.StoreIOError{Op: "read", Path: path, Err: err}
		}
	}

	if h.Skipped > 0 {
		s.logger.Warn("skipped unreadable history lines", "path", path, "count", h.Skipped)
	}
	return h, nil
}

// readLine returns the next line without its newline. Lines longer than
// maxHistoryLine are truncated, which makes them fail to parse.
func readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if len(line) < maxHistoryLine {
			line = append(line, chunk...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return bytes.TrimRight(line, "\r\n"), err
	}
}

// RunHistory returns the records written by one run
func (s *Store) RunHistory(runID string) ([]domain.HistoryRecord, error) {
	h, err := s.ReadHistory()
	if err != nil {
		return nil, err
	}
	var out []domain.HistoryRecord
	for _, r := range h.Records {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}
