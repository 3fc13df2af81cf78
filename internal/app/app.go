// Package app assembles the discovery pipeline and its collaborators from
// configuration.
package app

import (
	"context"
	"errors"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/domain/source"
	"github.com/honeycarbs/job-discovery/internal/export"
	"github.com/honeycarbs/job-discovery/internal/mcp"
	"github.com/honeycarbs/job-discovery/internal/mcp/tools"
	"github.com/honeycarbs/job-discovery/internal/notify"
	"github.com/honeycarbs/job-discovery/internal/pipeline"
	"github.com/honeycarbs/job-discovery/internal/scheduler"
	"github.com/honeycarbs/job-discovery/internal/storage/filestore"
	"github.com/honeycarbs/job-discovery/pkg/logging"
)

// ErrNotifyDisabled is returned when notify is requested without a bot token
var ErrNotifyDisabled = errors.New("app: telegram is not configured")

// App holds every long-lived component of one process
type App struct {
	Config     *config.Config
	Logger     *logging.Logger
	Store      *filestore.Store
	Registry   *source.Registry
	Runner     *pipeline.Runner
	Viewer     *export.Viewer
	Dispatcher *notify.Dispatcher // nil without Telegram
}

func newApp(
	cfg *config.Config,
	logger *logging.Logger,
	store *filestore.Store,
	reg *source.Registry,
	runner *pipeline.Runner,
	viewer *export.Viewer,
	dispatcher *notify.Dispatcher,
) *App {
	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Registry:   reg,
		Runner:     runner,
		Viewer:     viewer,
		Dispatcher: dispatcher,
	}
}

// SourceInfo describes one configured source without fetching it
type SourceInfo struct {
	Name       string
	Type       string
	URL        string
	Enabled    bool
	Aggregator bool
	// Supported is false when no adapter is registered for Type
	Supported bool
}

// Sources lists every configured source in configuration order
func (a *App) Sources() []SourceInfo {
	out := make([]SourceInfo, 0, len(a.Config.Sources))
	for _, s := range a.Config.Sources {
		_, ok := a.Registry.Lookup(s.Type)
		out = append(out, SourceInfo{
			Name:       s.Name,
			Type:       s.Type,
			URL:        s.URL,
			Enabled:    s.IsEnabled(),
			Aggregator: a.Config.IsAggregator(s),
			Supported:  ok,
		})
	}
	return out
}

// Notify delivers pending matches through the configured bot
func (a *App) Notify(ctx context.Context) (notify.Report, error) {
	if a.Dispatcher == nil {
		return notify.Report{}, ErrNotifyDisabled
	}
	return a.Dispatcher.Dispatch(ctx)
}

// NewServer builds the MCP server exposing the pipeline to the decision agent
func (a *App) NewServer(version string) *mcp.Server {
	return mcp.NewServer(a.Logger, a.Config.Host, a.Config.Port, version,
		tools.WithRunDiscovery(a.Runner),
		tools.WithGetCandidates(a.Runner),
		tools.WithSubmitDecisions(a.Runner),
		tools.WithListMatches(a.Store),
		tools.WithMarkNotified(a.Store),
	)
}

// NewScheduler runs discovery on the configured interval. When Telegram is
// configured, pending matches are dispatched after every run.
func (a *App) NewScheduler() (*scheduler.Scheduler, error) {
	job := func(ctx context.Context) error {
		sum, err := a.Runner.Run(ctx, pipeline.RunOptions{})
		if err != nil {
			return err
		}
		a.Logger.Info("scheduled run complete", "run_id", sum.RunID, "candidates", sum.Candidates)

		if a.Dispatcher == nil {
			return nil
		}
		if _, err := a.Dispatcher.Dispatch(ctx); err != nil {
			a.Logger.Warn("scheduled notify failed", "err", err)
		}
		return nil
	}
	return scheduler.New(job, a.Config.Schedule.IntervalHours, a.Config.Schedule.RunOnStart, a.Logger.Named("scheduler"))
}
