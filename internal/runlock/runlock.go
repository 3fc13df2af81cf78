// Package runlock guards the store against two pipeline runs at once.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ErrLocked means another run holds the lock
var ErrLocked = errors.New("runlock: another run is in progress")

// File is a lock file created with O_EXCL. A lock older than ttl is
// considered abandoned by a crashed run and taken over.
type File struct {
	path string
	ttl  time.Duration
	now  func() time.Time
}

func NewFile(dir string, ttl time.Duration) *File {
	return &File{
		path: filepath.Join(dir, "run.lock"),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (f *File) Lock(ctx context.Context) (func() error, error) {
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lf, err := os.OpenFile(f.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, werr := lf.WriteString(strconv.Itoa(os.Getpid()) + " " + f.now().UTC().Format(time.RFC3339) + "\n")
			if cerr := lf.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				_ = os.Remove(f.path)
				return nil, fmt.Errorf("runlock: write %s: %w", f.path, werr)
			}
			return f.unlock, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("runlock: create %s: %w", f.path, err)
		}

		if !f.stale() {
			return nil, ErrLocked
		}
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("runlock: remove stale %s: %w", f.path, err)
		}
	}
	return nil, ErrLocked
}

func (f *File) stale() bool {
	if f.ttl <= 0 {
		return false
	}
	info, err := os.Stat(f.path)
	if err != nil {
		return errors.Is(err, os.ErrNotExist)
	}
	return f.now().Sub(info.ModTime()) > f.ttl
}

func (f *File) unlock() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("runlock: release %s: %w", f.path, err)
	}
	return nil
}
