package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	worldmonitor "github.com/SparkyNY/worldmonitor"
	"github.com/SparkyNY/worldmonitor/arcgis"
	"github.com/SparkyNY/worldmonitor/cache"
	"github.com/SparkyNY/worldmonitor/config"
	"github.com/SparkyNY/worldmonitor/gtfsrt"
	"github.com/SparkyNY/worldmonitor/jsonapi"
	"github.com/SparkyNY/worldmonitor/observability"
	"github.com/SparkyNY/worldmonitor/pipeline"
	"github.com/SparkyNY/worldmonitor/rss"
)

type options struct {
	mode         string
	dataset      string
	configPath   string
	refreshEvery time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.mode, "mode", "oneshot", "oneshot|serve")
	flag.StringVar(&opts.dataset, "dataset", "", "dataset id to refresh in oneshot mode")
	flag.StringVar(&opts.configPath, "config", "", "path to config.yml (default: config.yml, ./config/config.yml)")
	flag.DurationVar(&opts.refreshEvery, "refreshEvery", 0, "serve mode: refresh all datasets on this interval (0 disables)")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := worldmonitor.InitLogging(cfg.Logging)

	clock := clockwork.NewRealClock()
	var store cache.Store
	if cfg.CachePath != "" {
		db, err := cache.OpenSQLite(cfg.CachePath, clock)
		if err != nil {
			return fmt.Errorf("open cache at %s: %w", cfg.CachePath, err)
		}
		defer func() { _ = db.Close() }()
		store = db
	} else {
		store = cache.NewMemory(clock)
	}

	timeout := time.Duration(cfg.Transit.TimeoutMS) * time.Millisecond
	deps := pipeline.Deps{
		Features:   arcgis.NewClient(timeout, logger),
		Realtime:   gtfsrt.NewClient(timeout, logger),
		Advisories: rss.NewClient(cfg.Transit.ProxyBase, timeout, logger),
		Store:      store,
		Clock:      clock,
		Metrics:    observability.NewMetrics(),
		Logger:     logger,
	}
	if cfg.Transit.APIBase != "" {
		deps.Transit = jsonapi.NewClient(cfg.Transit.APIBase, cfg.Transit.APIKey(), timeout, logger)
	}
	service := pipeline.NewService(cfg, deps)

	switch opts.mode {
	case "oneshot":
		if opts.dataset == "" {
			return fmt.Errorf("oneshot mode requires -dataset")
		}
		payload, err := service.Refresh(context.Background(), opts.dataset)
		if err != nil {
			return fmt.Errorf("refresh %s: %w", opts.dataset, err)
		}
		out, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		fmt.Println(string(out))
		return nil
	case "serve":
		if opts.refreshEvery > 0 {
			go refreshLoop(service, cfg, opts.refreshEvery, logger)
		}
		server := worldmonitor.NewServer(cfg, service, logger)
		server.Start()
		server.HandleGracefulShutdown()
		return nil
	default:
		return fmt.Errorf("unknown mode %q", opts.mode)
	}
}

// refreshLoop refreshes every configured dataset on a fixed interval.
// Datasets are independent: one failing refresh never blocks the rest.
func refreshLoop(service *pipeline.Service, cfg *config.AppConfig, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		for _, src := range cfg.Sources {
			go func(id string) {
				ctx, cancel := context.WithTimeout(context.Background(), every)
				defer cancel()
				if _, err := service.Refresh(ctx, id); err != nil {
					logger.Warn("scheduled refresh failed", "dataset", id, "error", err)
				}
			}(src.Dataset)
		}
		<-ticker.C
	}
}
