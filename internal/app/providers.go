package app

import (
	"context"
	"net/http"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/discovery"
	"github.com/honeycarbs/job-discovery/internal/domain/source"
	adzunaProvider "github.com/honeycarbs/job-discovery/internal/domain/source/providers/adzuna"
	"github.com/honeycarbs/job-discovery/internal/domain/source/providers/attrax"
	"github.com/honeycarbs/job-discovery/internal/domain/source/providers/biospace"
	"github.com/honeycarbs/job-discovery/internal/domain/source/providers/greenhouse"
	"github.com/honeycarbs/job-discovery/internal/domain/source/providers/rendered"
	"github.com/honeycarbs/job-discovery/internal/domain/source/providers/talentbrew"
	"github.com/honeycarbs/job-discovery/internal/domain/source/providers/workday"
	"github.com/honeycarbs/job-discovery/internal/export"
	"github.com/honeycarbs/job-discovery/internal/fetch"
	"github.com/honeycarbs/job-discovery/internal/notify"
	"github.com/honeycarbs/job-discovery/internal/pipeline"
	"github.com/honeycarbs/job-discovery/internal/repository"
	"github.com/honeycarbs/job-discovery/internal/runlock"
	"github.com/honeycarbs/job-discovery/internal/storage/filestore"
	storage "github.com/honeycarbs/job-discovery/internal/storage/neo4j"
	"github.com/honeycarbs/job-discovery/pkg/adzuna"
	"github.com/honeycarbs/job-discovery/pkg/browser"
	"github.com/honeycarbs/job-discovery/pkg/logging"
	n4j "github.com/honeycarbs/job-discovery/pkg/neo4j"
	"github.com/honeycarbs/job-discovery/pkg/sheets"
)

// provideStore opens the data directory and creates missing state files
func provideStore(cfg *config.Config, logger *logging.Logger) (*filestore.Store, error) {
	store := filestore.New(cfg.DataDir, filestore.WithLogger(logger.Named("store")))
	if err := store.Init(); err != nil {
		return nil, err
	}
	return store, nil
}

func provideCoordinator(cfg *config.Config, logger *logging.Logger) *fetch.Coordinator {
	return fetch.NewCoordinator(fetch.PolicyFromConfig(cfg.Fetch), fetch.WithLogger(logger.Named("fetch")))
}

func provideHTTPClient(cfg *config.Config) *http.Client {
	return fetch.NewHTTPClient(cfg.Fetch.UserAgent)
}

// provideRenderer returns a lazily started browser; nothing launches until
// a rendered source is fetched
func provideRenderer(cfg *config.Config, logger *logging.Logger) (*browser.Renderer, func()) {
	r := browser.NewRenderer(browser.Config{
		Headless:  cfg.Browser.IsHeadless(),
		Timeout:   cfg.Browser.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
	}, logger.Named("browser"))

	cleanup := func() {
		if err := r.Shutdown(context.Background()); err != nil {
			logger.Warn("failed to stop browser", "err", err)
		}
	}
	return r, cleanup
}

// provideRegistry registers every adapter type. Adzuna is only available
// when API credentials are configured.
func provideRegistry(cfg *config.Config, client *http.Client, renderer *browser.Renderer, logger *logging.Logger) (*source.Registry, error) {
	gh, err := greenhouse.NewProvider(client)
	if err != nil {
		return nil, err
	}
	wd, err := workday.NewProvider(client, logger.Named("workday"))
	if err != nil {
		return nil, err
	}
	bs, err := biospace.NewProvider(client, logger.Named("biospace"))
	if err != nil {
		return nil, err
	}
	tb, err := talentbrew.NewProvider(client)
	if err != nil {
		return nil, err
	}
	ax, err := attrax.NewProvider(client)
	if err != nil {
		return nil, err
	}
	phenom, err := rendered.NewProvider(rendered.Phenom, renderer)
	if err != nil {
		return nil, err
	}
	sf, err := rendered.NewProvider(rendered.SuccessFactors, renderer)
	if err != nil {
		return nil, err
	}

	reg := source.NewRegistry(gh, wd, bs, tb, ax, phenom, sf)

	if cfg.Adzuna.AppID == "" || cfg.Adzuna.AppKey == "" {
		logger.Debug("adzuna credentials missing, adapter not registered")
		return reg, nil
	}
	az, err := adzuna.NewClient(adzuna.Config{
		AppID:      cfg.Adzuna.AppID,
		AppKey:     cfg.Adzuna.AppKey,
		Country:    cfg.Adzuna.Country,
		HTTPClient: client,
	})
	if err != nil {
		return nil, err
	}
	azp, err := adzunaProvider.NewProvider(az)
	if err != nil {
		return nil, err
	}
	if err := reg.Register(azp); err != nil {
		return nil, err
	}
	return reg, nil
}

func provideOrchestrator(cfg *config.Config, reg *source.Registry, coord *fetch.Coordinator, store *filestore.Store, logger *logging.Logger) (*discovery.Orchestrator, error) {
	return discovery.NewOrchestrator(
		discovery.WithRegistry(reg),
		discovery.WithCoordinator(coord),
		discovery.WithHistory(store),
		discovery.WithAggregators(cfg.IsAggregator),
		discovery.WithWorkers(cfg.Fetch.Workers),
		discovery.WithLogger(logger.Named("discovery")),
	)
}

// provideLocker picks the Redis lock when REDIS_URL is set and the file
// lock in the data directory otherwise
func provideLocker(ctx context.Context, cfg *config.Config, logger *logging.Logger) (pipeline.Locker, func(), error) {
	if cfg.RunLock.RedisURL == "" {
		return runlock.NewFile(cfg.DataDir, cfg.RunLock.TTL), func() {}, nil
	}

	client, err := runlock.NewRedisClient(ctx, cfg.RunLock.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis client", "err", err)
		}
	}
	logger.Info("using redis run lock", "key", cfg.RunLock.Key)
	return runlock.NewRedis(client, cfg.RunLock.Key, cfg.RunLock.TTL), cleanup, nil
}

func provideViewer(cfg *config.Config, store *filestore.Store) *export.Viewer {
	return export.NewViewer(store, cfg.DataDir)
}

// provideGraph connects the optional Neo4j mirror. An unreachable server
// disables the mirror instead of failing startup.
func provideGraph(ctx context.Context, cfg *config.Config, logger *logging.Logger) (repository.MatchRepository, func()) {
	if cfg.Neo4j.URI == "" {
		return nil, func() {}
	}

	client, err := n4j.NewClient(ctx, n4j.Config{
		URI:      cfg.Neo4j.URI,
		Username: cfg.Neo4j.Username,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
	})
	if err != nil {
		logger.Warn("neo4j mirror disabled", "err", err)
		return nil, func() {}
	}

	cleanup := func() {
		if err := client.Shutdown(context.Background()); err != nil {
			logger.Warn("failed to close neo4j driver", "err", err)
		}
	}
	return storage.NewMatchRepository(client), cleanup
}

// provideSheets builds the optional spreadsheet mirror
func provideSheets(ctx context.Context, cfg *config.Config, logger *logging.Logger) *export.Sheets {
	if cfg.Sheets.SpreadsheetID == "" {
		return nil
	}

	client, err := sheets.NewClient(ctx, sheets.Config{CredentialsPath: cfg.Sheets.CredentialsPath})
	if err != nil {
		logger.Warn("sheets mirror disabled", "err", err)
		return nil
	}
	s, err := export.NewSheets(client, cfg.Sheets.SpreadsheetID, cfg.Sheets.Tab)
	if err != nil {
		logger.Warn("sheets mirror disabled", "err", err)
		return nil
	}
	return s
}

func provideMirrors(viewer *export.Viewer, sh *export.Sheets, graph repository.MatchRepository) []pipeline.Mirror {
	mirrors := []pipeline.Mirror{viewer}
	if sh != nil {
		mirrors = append(mirrors, sh)
	}
	if graph != nil {
		mirrors = append(mirrors, export.NewGraph(graph))
	}
	return mirrors
}

func provideRunner(cfg *config.Config, orch *discovery.Orchestrator, store *filestore.Store, locker pipeline.Locker, mirrors []pipeline.Mirror, logger *logging.Logger) (*pipeline.Runner, error) {
	return pipeline.NewRunner(cfg, orch, store,
		pipeline.WithLocker(locker),
		pipeline.WithMirrors(mirrors...),
		pipeline.WithLogger(logger.Named("pipeline")),
	)
}

// provideDispatcher returns nil when no Telegram bot is configured or the
// bot cannot be reached
func provideDispatcher(cfg *config.Config, store *filestore.Store, locker pipeline.Locker, graph repository.MatchRepository, viewer *export.Viewer, logger *logging.Logger) (*notify.Dispatcher, error) {
	if cfg.Telegram.Token == "" {
		return nil, nil
	}

	bot, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
	if err != nil {
		logger.Warn("notifications disabled", "err", err)
		return nil, nil
	}
	return notify.NewDispatcher(store, bot,
		notify.WithLocker(locker),
		notify.WithGraph(graph),
		notify.WithRefresher(viewer),
		notify.WithLogger(logger.Named("notify")),
	)
}
