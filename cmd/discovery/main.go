package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/honeycarbs/job-discovery/internal/app"
	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/internal/pipeline"
	"github.com/honeycarbs/job-discovery/internal/runlock"
	"github.com/honeycarbs/job-discovery/pkg/logging"
	"github.com/honeycarbs/job-discovery/pkg/shutdown"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

const usage = `usage: discovery [-config path] <command> [flags]

commands:
  run [-source NAME]    fetch, filter and write candidates.json
  sources               list configured sources without fetching
  decide -file PATH     apply a decisions file to the store
  notify                send pending matches to Telegram
  serve                 run on a schedule and serve MCP
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("discovery", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", "", "path to the pipeline YAML file (default config.yaml)")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}
	cmd, rest := global.Arg(0), global.Args()[1:]

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}

	var logger *logging.Logger
	if cmd == "serve" {
		logger = logging.New(cfg.LogLevel)
	} else {
		logger = logging.NewConsole(cfg.LogLevel)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := app.Initialize(ctx, &cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "err", err)
		return 1
	}
	defer cleanup()

	switch cmd {
	case "run":
		err = runDiscovery(ctx, a, rest, stdout)
	case "sources":
		err = listSources(a, stdout)
	case "decide":
		err = decide(ctx, a, rest, stdout)
	case "notify":
		err = notifyMatches(ctx, a, stdout)
	case "serve":
		stop()
		err = serve(a, logger)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		global.Usage()
		return 2
	}

	if err != nil {
		if errors.Is(err, runlock.ErrLocked) {
			logger.Warn("another run holds the lock, try again later")
		} else {
			logger.Error(cmd+" failed", "err", err)
		}
		return 1
	}
	return 0
}

func runDiscovery(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	only := fs.String("source", "", "run only the named source, even if disabled")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sum, err := a.Runner.Run(ctx, pipeline.RunOptions{Source: *only})
	if err != nil {
		return err
	}
	return sum.WriteText(out)
}

func listSources(a *app.App, out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tENABLED\tAGGREGATOR\tURL")
	for _, s := range a.Sources() {
		typ := s.Type
		if !s.Supported {
			typ += " (unsupported)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%s\n", s.Name, typ, s.Enabled, s.Aggregator, s.URL)
	}
	return tw.Flush()
}

func decide(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("decide", flag.ContinueOnError)
	path := fs.String("file", "", "decisions JSON: {\"accepted\": [...], \"processed_urls\": [...]}")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("decide: -file is required")
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		return fmt.Errorf("decide: %w", err)
	}
	var batch pipeline.DecisionBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return fmt.Errorf("decide: parse %s: %w", *path, err)
	}

	res, err := a.Runner.ApplyDecisions(ctx, batch)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "saved %d match(es), %d url(s) newly seen, %d ignored\n", len(res.Saved), res.NewlySeen, res.Ignored)
	return err
}

func notifyMatches(ctx context.Context, a *app.App, out io.Writer) error {
	rep, err := a.Notify(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "pending %d, delivered %d, failed %d\n", rep.Pending, rep.Delivered, rep.Failed)
	return err
}

func serve(a *app.App, logger *logging.Logger) error {
	srv := a.NewServer(version)
	sched, err := a.NewScheduler()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- shutdown.Graceful(ctx,
			[]os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP},
			10*time.Second,
			logger,
			sched,
			srv,
		)
	}()

	runErr := srv.Run()
	if runErr != nil {
		logger.Error("MCP server exited with error", "err", runErr)
		cancel()
	}
	return errors.Join(runErr, <-done)
}
