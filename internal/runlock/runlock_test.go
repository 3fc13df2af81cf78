package runlock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLockExcludesSecondHolder(t *testing.T) {
	l := NewFile(t.TempDir(), time.Hour)

	unlock, err := l.Lock(context.Background())
	require.NoError(t, err)

	_, err = l.Lock(context.Background())
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, unlock())

	unlock, err = l.Lock(context.Background())
	require.NoError(t, err)
	require.NoError(t, unlock())
	require.NoError(t, unlock())
}

func TestFileLockTakesOverStaleLock(t *testing.T) {
	dir := t.TempDir()
	l := NewFile(dir, time.Minute)
	require.NoError(t, os.WriteFile(l.path, []byte("123 old\n"), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(l.path, old, old))

	unlock, err := l.Lock(context.Background())
	require.NoError(t, err)
	require.NoError(t, unlock())
}

func TestFileLockWithoutTTLNeverExpires(t *testing.T) {
	l := NewFile(t.TempDir(), 0)
	require.NoError(t, os.WriteFile(l.path, nil, 0o644))
	old := time.Now().Add(-24 * time.Hour)
	require.NoError(t, os.Chtimes(l.path, old, old))

	_, err := l.Lock(context.Background())
	assert.ErrorIs(t, err, ErrLocked)
}

func TestFileLockHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFile(t.TempDir(), 0).Lock(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
