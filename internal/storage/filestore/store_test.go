package filestore

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/honeycarbs/job-discovery/internal/domain"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *Store {
	t.Helper()
	clock := t0
	s := New(t.TempDir(), WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	require.NoError(t, s.Init())
	return s
}

func accepted(url string) domain.Accepted {
	return domain.Accepted{
		Posting:   domain.RawPosting{Title: "Scientist", Company: "Acme", URL: url, Source: "greenhouse:acme"},
		IsBayArea: true,
	}
}

func TestInitCreatesDefaults(t *testing.T) {
	s := newStore(t)

	for name, want := range map[string]string{MatchesFile: "[]\n", SeenFile: "{}\n", HistoryFile: ""} {
		got, err := os.ReadFile(s.Path(name))
		require.NoError(t, err)
		assert.Equal(t, want, string(got), name)
	}

	_, err := s.SaveMatches([]domain.Accepted{accepted("https://a.com/1")})
	require.NoError(t, err)
	require.NoError(t, s.Init())

	jobs, err := s.Matches()
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestHistoryAppendAndRead(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.AppendHistory([]domain.HistoryRecord{
		{RunID: "r1", URL: "https://a.com/1"},
		{RunID: "r1", URL: "https://a.com/1"},
	}))
	require.NoError(t, s.AppendHistory([]domain.HistoryRecord{{RunID: "r2", URL: "https://a.com/2"}}))

	h, err := s.ReadHistory()
	require.NoError(t, err)
	assert.Len(t, h.Records, 3)
	assert.Zero(t, h.Skipped)

	run, err := s.RunHistory("r1")
	require.NoError(t, err)
	assert.Len(t, run, 2)
}

func TestHistoryToleratesTruncatedLine(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.AppendHistory([]domain.HistoryRecord{{RunID: "r1", URL: "https://a.com/1"}}))

	f, err := os.OpenFile(s.Path(HistoryFile), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"run_id":"r1","url":"https://a.co`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	h, err := s.ReadHistory()
	require.NoError(t, err)
	assert.Len(t, h.Records, 1)
	assert.Equal(t, 1, h.Skipped)

	require.NoError(t, s.AppendHistory([]domain.HistoryRecord{{RunID: "r2", URL: "https://a.com/2"}}))

	h, err = s.ReadHistory()
	require.NoError(t, err)
	require.Len(t, h.Records, 2)
	assert.Equal(t, "r2", h.Records[1].RunID)
	assert.Equal(t, 1, h.Skipped)
}

func TestMarkSeenIsIdempotent(t *testing.T) {
	s := newStore(t)

	n, err := s.MarkSeen([]string{"https://A.com/job/1/?utm_source=x", "https://a.com/job/2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	before, err := s.Seen()
	require.NoError(t, err)
	first, ok := before.FirstSeen("https://a.com/job/1")
	require.True(t, ok)

	n, err = s.MarkSeen([]string{"https://a.com/job/1"})
	require.NoError(t, err)
	assert.Zero(t, n)

	after, err := s.Seen()
	require.NoError(t, err)
	again, _ := after.FirstSeen("https://a.com/job/1")
	assert.True(t, first.Equal(again))
	assert.Equal(t, 2, after.Len())
}

func TestSeenSnapshotIsIsolatedFromLaterWrites(t *testing.T) {
	s := newStore(t)
	snap, err := s.Seen()
	require.NoError(t, err)

	_, err = s.MarkSeen([]string{"https://a.com/1"})
	require.NoError(t, err)

	assert.False(t, snap.Has("https://a.com/1"))
}

func TestSaveMatchesAndNotify(t *testing.T) {
	s := newStore(t)

	saved, err := s.SaveMatches([]domain.Accepted{accepted("https://a.com/1"), accepted("https://a.com/2")})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.NotEqual(t, saved[0].ID, saved[1].ID)
	assert.False(t, saved[0].Notified)
	assert.Nil(t, saved[0].NotifiedAt)

	again, err := s.SaveMatches([]domain.Accepted{accepted("https://a.com/1/")})
	require.NoError(t, err)
	assert.Empty(t, again)

	missing := uuid.New()
	res, err := s.MarkNotified([]domain.JobID{saved[0].ID, missing})
	require.NoError(t, err)
	assert.Equal(t, []domain.JobID{saved[0].ID}, res.Updated)
	assert.Equal(t, []domain.JobID{missing}, res.Missing)

	pending, err := s.Unnotified()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, saved[1].ID, pending[0].ID)

	all, err := s.Matches()
	require.NoError(t, err)
	for _, j := range all {
		assert.Equal(t, j.Notified, j.NotifiedAt != nil, j.URL)
	}
}

func TestCrashBeforeRenameLeavesTargetIntact(t *testing.T) {
	s := newStore(t)
	_, err := s.SaveMatches([]domain.Accepted{accepted("https://a.com/1")})
	require.NoError(t, err)

	before, err := os.ReadFile(s.Path(MatchesFile))
	require.NoError(t, err)

	crash := errors.New("power loss")
	s.rename = func(string, string) error { return crash }

	_, err = s.SaveMatches([]domain.Accepted{accepted("https://a.com/2")})
	var ioErr *domain.StoreIOError
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, crash)

	after, err := os.ReadFile(s.Path(MatchesFile))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStaleTempFileIsIgnored(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(s.Path(SeenFile)+tempSuffix, []byte(`{"half`), 0o644))

	_, err := s.MarkSeen([]string{"https://a.com/1"})
	require.NoError(t, err)

	snap, err := s.Seen()
	require.NoError(t, err)
	assert.True(t, snap.Has("https://a.com/1"))
}

func TestCorruptMatchesRestoredFromBackup(t *testing.T) {
	s := newStore(t)
	_, err := s.SaveMatches([]domain.Accepted{accepted("https://a.com/1")})
	require.NoError(t, err)
	_, err = s.SaveMatches([]domain.Accepted{accepted("https://a.com/2")})
	require.NoError(t, err)

	bak, err := os.ReadFile(s.Path(MatchesFile) + backupSuffix)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(MatchesFile), []byte(`[{"id":`), 0o644))

	jobs, err := s.Matches()
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "https://a.com/1", jobs[0].URL)

	repaired, err := os.ReadFile(s.Path(MatchesFile))
	require.NoError(t, err)
	assert.Equal(t, bak, repaired)

	errs := s.DrainIntegrityErrors()
	require.Len(t, errs, 1)
	assert.Equal(t, MatchesFile, errs[0].File)
	assert.Equal(t, recoveryBackup, errs[0].Recovery)
	assert.ErrorIs(t, errs[0], domain.ErrStoreCorruption)
	assert.Empty(t, s.DrainIntegrityErrors())
}

func TestCorruptWithoutBackupResetsToDefault(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(s.Path(SeenFile), []byte("not json"), 0o644))
	require.NoError(t, os.WriteFile(s.Path(SeenFile)+backupSuffix, []byte("also not json"), 0o644))

	snap, err := s.Seen()
	require.NoError(t, err)
	assert.Zero(t, snap.Len())

	n, err := s.MarkSeen([]string{"https://a.com/1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	errs := s.DrainIntegrityErrors()
	require.NotEmpty(t, errs)
	assert.Equal(t, recoveryReset, errs[0].Recovery)
}

func TestCandidatesRoundTrip(t *testing.T) {
	s := newStore(t)

	empty, err := s.LoadCandidates()
	require.NoError(t, err)
	assert.Empty(t, empty)

	in := []domain.Candidate{{Title: "Scientist", URL: "https://a.com/1", Description: "Full text"}}
	require.NoError(t, s.WriteCandidates(in))
	require.NoError(t, s.WriteCandidates(in[:0]))

	got, err := s.LoadCandidates()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMissingDirectoryIsIOError(t *testing.T) {
	s := New(t.TempDir() + "/missing/deeper")

	err := s.AppendHistory([]domain.HistoryRecord{{RunID: "r"}})
	var ioErr *domain.StoreIOError
	assert.ErrorAs(t, err, &ioErr)
}
