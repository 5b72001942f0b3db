package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kantai/blockstack-search-indexer/internal/directory"
	"github.com/kantai/blockstack-search-indexer/internal/pipeline"
	"github.com/kantai/blockstack-search-indexer/internal/platform/config"
	"github.com/kantai/blockstack-search-indexer/internal/platform/httpserver"
	"github.com/kantai/blockstack-search-indexer/internal/platform/logger"
	"github.com/kantai/blockstack-search-indexer/internal/platform/metrics"
	redisplatform "github.com/kantai/blockstack-search-indexer/internal/platform/redis"
	"github.com/kantai/blockstack-search-indexer/internal/resolver"
	"github.com/kantai/blockstack-search-indexer/internal/search"
	"github.com/kantai/blockstack-search-indexer/internal/store"
)

// main wires configuration, storage, and the pipeline, and keeps the process
// lifecycle small. Business logic lives in the internal packages.
func main() {
	mode := flag.String("mode", "all", "run mode: fetch, dump, replay, index, or all")
	namesFile := flag.String("names-file", "", "override the name dump file path")
	entriesFile := flag.String("entries-file", "", "override the entry dump file path")
	flag.Parse()

	cfg := config.FromEnv()
	log := logger.New(os.Stdout).With("run_id", uuid.NewString())

	if err := run(*mode, cfg, log, *namesFile, *entriesFile); err != nil {
		log.Error("run failed", "mode", *mode, "error", err.Error())
		os.Exit(1)
	}
}

func run(mode string, cfg config.Config, log *slog.Logger, namesFile, entriesFile string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.DatabaseURL == "" {
		return errors.New("SEARCH_DATABASE_URL is required")
	}
	if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
		return err
	}
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	documents := store.NewPostgres(db)

	m := metrics.New()

	rdb, err := redisplatform.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	var cache resolver.ProfileCache
	if rdb != nil {
		defer rdb.Close()
		cache = resolver.NewRedisCache(rdb.Client, cfg.ProfileCacheTTL, log)
		log.Info("profile cache enabled", "ttl", cfg.ProfileCacheTTL.String())
	}

	client := directory.NewClient(cfg.CoreAPIURL,
		directory.WithLogger(log),
		directory.WithMetrics(m),
		directory.WithRateLimit(cfg.RequestsPerSecond),
	)
	res := resolver.New(client,
		resolver.WithDelay(cfg.InterBatchDelay),
		resolver.WithCache(cache),
		resolver.WithLogger(log),
		resolver.WithMetrics(m),
	)
	pipe := pipeline.New(client, res, documents,
		pipeline.Config{PageCap: cfg.PageCap, BatchSize: cfg.BatchSize},
		pipeline.WithLogger(log),
		pipeline.WithMetrics(m),
	)
	builder := search.NewBuilder(documents, documents, documents,
		search.WithLogger(log),
		search.WithMetrics(m),
	)

	if cfg.MetricsAddr != "" {
		srv := httpserver.New(cfg.MetricsAddr, httpserver.Router(func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return err
			}
			if rdb != nil {
				return rdb.Health(ctx)
			}
			return nil
		}))
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("ops server error", "error", err.Error())
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Error("ops server shutdown failed", "error", err.Error())
			}
		}()
		log.Info("ops server listening", "addr", cfg.MetricsAddr)
	}

	if namesFile == "" {
		namesFile = filepath.Join(cfg.DumpDir, "names.json")
	}
	if entriesFile == "" {
		entriesFile = filepath.Join(cfg.DumpDir, "entries.json")
	}

	switch mode {
	case "dump":
		return pipe.Dump(ctx, namesFile, entriesFile)
	case "replay":
		_, err := pipe.Process(ctx, &pipeline.ReplayFiles{Names: namesFile, Entries: entriesFile})
		return err
	case "fetch":
		_, err := pipe.Process(ctx, nil)
		return err
	case "index":
		_, err := builder.Build(ctx)
		return err
	case "all":
		if _, err := pipe.Process(ctx, nil); err != nil {
			return err
		}
		_, err := builder.Build(ctx)
		return err
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}
