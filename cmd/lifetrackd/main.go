package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lifetrack/internal/api"
	"lifetrack/internal/config"
	"lifetrack/internal/feed"
	"lifetrack/internal/ingest"
	"lifetrack/internal/logging"
	"lifetrack/internal/model"
	"lifetrack/internal/report"
	"lifetrack/internal/series"
	"lifetrack/internal/storage"
)

const version = "0.3.0"

func main() {
	configPath := flag.String("config", "", "path to yaml or json config file")
	once := flag.Bool("once", false, "generate one report and exit")
	flag.Parse()

	if err := run(*configPath, *once); err != nil {
		fmt.Fprintln(os.Stderr, "lifetrackd:", err)
		os.Exit(1)
	}
}

func run(configPath string, once bool) error {
	var mgr *config.Manager
	var err error
	if configPath != "" {
		mgr, err = config.NewManager(config.ResolvePath(configPath))
		if err != nil {
			return err
		}
	} else {
		mgr = config.NewStaticManager(config.DefaultConfig())
	}
	cfg := mgr.Get()
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		return err
	}
	if store != nil {
		if err := store.Init(ctx); err != nil {
			return err
		}
		defer store.Close()
	}

	feedStore := feed.NewStore(cfg.Feed.StoreLimit)
	snapshot := series.NewSnapshot(cfg.Series.SnapshotLimit)
	generator := report.NewGenerator(mgr, logger, feedStore, snapshot, store)

	if _, err := generator.Run(ctx, time.Now().UTC()); err != nil {
		return err
	}
	if once {
		return nil
	}

	points := make(chan model.MetricPoint, cfg.Ingest.ChannelBuffer)
	ingest.StartKafka(ctx, mgr, points, logger)
	generator.Start(ctx, points)

	api.Start(ctx, mgr, feedStore, snapshot, generator, logger, version)

	if mgr.Path() != "" {
		go mgr.Watch(3*time.Second,
			func(*config.Config) {
				logger.Info("config reloaded")
				if _, err := generator.Run(ctx, time.Now().UTC()); err != nil {
					logger.Error("report after reload failed", "err", err)
				}
			},
			func(err error) { logger.Warn("config reload failed", "err", err) },
			ctx.Done(),
		)
	}

	ticker := time.NewTicker(mgr.Get().Report.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := generator.Run(ctx, time.Now().UTC()); err != nil {
				logger.Error("scheduled report failed", "err", err)
			}
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		}
	}
}
