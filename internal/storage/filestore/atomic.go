package filestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/honeycarbs/job-discovery/internal/domain"
)

const (
	recoveryBackup = "restore_from_backup"
	recoveryReset  = "reset_to_default"
)

// writeAtomic replaces name with data: write a sibling temp file, fsync it,
// rename it over the target. A crash at any point leaves either the old or
// the new content in place.
func (s *Store) writeAtomic(name string, data []byte) error {
	path := s.Path(name)
	tmp := path + tempSuffix

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return &domain.StoreIOError{Op: "create", Path: tmp, Err: err}
	}

	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return &domain.StoreIOError{Op: "write", Path: tmp, Err: err}
	}

	if err := s.rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return &domain.StoreIOError{Op: "rename", Path: path, Err: err}
	}

	syncDir(s.dir)
	return nil
}

// syncDir persists the rename itself. Not every platform supports it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// backup copies the current content of name to its .bak sibling
func (s *Store) backup(name string) {
	path := s.Path(name)

	src, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("backup skipped", "path", path, "err", err)
		}
		return
	}
	defer src.Close()

	dst, err := os.OpenFile(path+backupSuffix, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		s.logger.Warn("backup failed", "path", path, "err", err)
		return
	}
	_, err = io.Copy(dst, src)
	if err == nil {
		err = dst.Sync()
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.logger.Warn("backup failed", "path", path, "err", err)
	}
}

// load reads a JSON artifact. A missing file yields the default. An
// unparseable file is restored from its backup, and if that fails too the
// default is used and an integrity error recorded. Only I/O failures are returned.
func load[T any](s *Store, name string, def func() T) (T, error) {
	path := s.Path(name)

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return def(), nil
	}
	if err != nil {
		return def(), &domain.StoreIOError{Op: "read", Path: path, Err: err}
	}

	v, perr := decode[T](raw)
	if perr == nil {
		return v, nil
	}
	s.logger.Warn("store file unreadable, trying backup", "path", path, "err", perr)

	bak, err := os.ReadFile(path + backupSuffix)
	if err == nil {
		var restored T
		if restored, err = decode[T](bak); err == nil {
			if werr := s.writeAtomic(name, bak); werr != nil {
				return def(), werr
			}
			s.recordIntegrity(domain.IntegrityError{File: name, Recovery: recoveryBackup, Detail: perr.Error()})
			return restored, nil
		}
	}

	s.recordIntegrity(domain.IntegrityError{
		File:     name,
		Recovery: recoveryReset,
		Detail:   fmt.Sprintf("%v; backup: %v", perr, err),
	})
	return def(), nil
}

func decode[T any](raw []byte) (T, error) {
	var v T
	if len(bytes.TrimSpace(raw)) == 0 {
		return v, fmt.Errorf("%w: empty file", domain.ErrStoreCorruption)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %v", domain.ErrStoreCorruption, err)
	}
	return v, nil
}

// update is the single read-modify-write path for mutable artifacts.
// mutate reports whether anything changed; unchanged content is not rewritten.
func update[T any](s *Store, name string, def func() T, mutate func(*T) bool) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := load(s, name, def)
	if err != nil {
		return v, err
	}
	if !mutate(&v) {
		return v, nil
	}

	data, err := encode(v)
	if err != nil {
		return v, &domain.StoreIOError{Op: "encode", Path: s.Path(name), Err: err}
	}

	s.backup(name)
	return v, s.writeAtomic(name, data)
}

func encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
