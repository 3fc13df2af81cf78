package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/export"
	"github.com/honeycarbs/job-discovery/internal/runlock"
	"github.com/honeycarbs/job-discovery/pkg/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	off := false
	cfg.Sources = []config.Source{
		{Name: "Acme", Type: "greenhouse", URL: "https://boards.greenhouse.io/acme"},
		{Name: "BioSpace", Type: "biospace", URL: "https://www.biospace.com"},
		{Name: "Gene", Type: "phenom", URL: "https://careers.gene.com", Enabled: &off},
		{Name: "Jobs API", Type: "adzuna"},
	}
	return &cfg
}

func TestInitializeWithoutOptionalServices(t *testing.T) {
	cfg := testConfig(t)

	a, cleanup, err := Initialize(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, a.Dispatcher)
	assert.FileExists(t, filepath.Join(cfg.DataDir, "jobs.json"))
	assert.ElementsMatch(t,
		[]string{"attrax", "biospace", "greenhouse", "phenom", "successfactors", "talentbrew", "workday"},
		a.Registry.Types(),
	)

	_, err = a.Notify(context.Background())
	assert.ErrorIs(t, err, ErrNotifyDisabled)

	srv := a.NewServer("test")
	assert.Equal(t, "0.0.0.0:8080", srv.Addr())

	sched, err := a.NewScheduler()
	require.NoError(t, err)
	assert.Equal(t, "@every 24h", sched.Spec())
}

func TestSources(t *testing.T) {
	cfg := testConfig(t)
	a, cleanup, err := Initialize(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	defer cleanup()

	got := a.Sources()
	require.Len(t, got, 4)
	assert.Equal(t, SourceInfo{Name: "Acme", Type: "greenhouse", URL: "https://boards.greenhouse.io/acme", Enabled: true, Supported: true}, got[0])
	assert.True(t, got[1].Aggregator)
	assert.False(t, got[2].Enabled)
	assert.False(t, got[3].Supported, "adzuna needs credentials")
}

func TestProvideMirrors(t *testing.T) {
	viewer := export.NewViewer(nil, t.TempDir())
	mirrors := provideMirrors(viewer, nil, nil)
	require.Len(t, mirrors, 1)
	assert.Equal(t, "viewer", mirrors[0].Name())
}

func TestProvideLockerDefaultsToFile(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.DataDir, 0o755))

	locker, cleanup, err := provideLocker(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	defer cleanup()

	_, ok := locker.(*runlock.File)
	assert.True(t, ok)
}
