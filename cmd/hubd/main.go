// Hubd is the offline companion daemon for the ContentHub reader.
//
// It owns the local article/bookmark/read-history cache and the pending
// action queue, replays queued actions against the ContentHub API when
// connectivity allows, and serves a small control API for the UI layer.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/run"
	"github.com/sethvargo/go-envconfig"
	_ "golang.org/x/crypto/x509roots/fallback"
	_ "modernc.org/sqlite"

	"contenthub/internal/cache"
	"contenthub/internal/gate"
	"contenthub/internal/logger"
	"contenthub/internal/migrations"
	"contenthub/internal/remote"
	"contenthub/internal/server"
	"contenthub/internal/sqlite"
	"contenthub/internal/syncer"
)

type config struct {
	Database   string `env:"DATABASE, required"`
	APIBaseURL string `env:"API_BASE_URL, required"`
	APIToken   string `env:"API_TOKEN"`

	Port       int    `env:"PORT, default=4444"`
	CorsOrigin string `env:"CORS_ORIGIN, default=*"`

	// Installed marks this as a persistent session that may queue work
	// for later; transient invocations should set it to false.
	Installed bool `env:"INSTALLED, default=true"`

	// ProbeURL is what the connectivity gate HEAD-requests; defaults to
	// the API base URL.
	ProbeURL      string        `env:"PROBE_URL"`
	ProbeInterval time.Duration `env:"PROBE_INTERVAL, default=15s"`
	SyncInterval  time.Duration `env:"SYNC_INTERVAL, default=5m"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	// Determine which logger format to use
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, nil)
	if cfg.LoggerFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	l := slog.New(logger.NewContextHandler(handler))
	slog.SetDefault(l)

	// Start the application
	if err := runApp(ctx, cfg); err != nil {
		slog.Error("error running", "error", err)
		os.Exit(1)
	}
}

func runApp(ctx context.Context, cfg config) error {
	slog.Info("running", "port", cfg.Port, "database", cfg.Database, "installed", cfg.Installed)

	// Connect to the db
	dbx, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_txlock=immediate&_journal_mode=WAL&_busy_timeout=5000", cfg.Database))
	if err != nil {
		return fmt.Errorf("error opening database: %s", err)
	}
	defer dbx.Close()

	// Migrate, always
	if err := migrations.Run(dbx); err != nil {
		return fmt.Errorf("error migrating: %s", err)
	}

	repo := sqlite.New(dbx)

	// Probe the store once up front. A broken store (quota, permissions)
	// degrades the daemon to network-only instead of failing deep inside
	// a user action later.
	durable := true
	if err := repo.SetMeta(ctx, "storageProbe", strconv.FormatInt(time.Now().UnixMilli(), 10)); err != nil {
		slog.Warn("durable store unavailable, running network-only", "error", err)
		durable = false
	}

	probeURL := cfg.ProbeURL
	if probeURL == "" {
		probeURL = cfg.APIBaseURL
	}

	var (
		caches = cache.New(repo)
		g8     = gate.NewProbe(probeURL, cfg.Installed)
		gw     = remote.New(cfg.APIBaseURL, func() string { return cfg.APIToken }, &http.Client{})
		engine = syncer.New(syncer.Config{
			Cache:    caches,
			Actions:  repo,
			Gateway:  gw,
			Gate:     g8,
			Durable:  durable,
			Interval: cfg.SyncInterval,
		})
		srvr = server.New(server.Config{Port: cfg.Port, CorsOrigin: cfg.CorsOrigin}, caches, engine)
	)

	var group run.Group
	group.Add(run.SignalHandler(ctx, os.Interrupt))

	// Control API
	group.Add(func() error {
		slog.Info("control api listening", "port", cfg.Port)
		if err := srvr.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error listening: %s", err)
		}

		return nil
	}, func(error) {
		downCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srvr.Shutdown(downCtx); err != nil {
			slog.Error("error shutting down server", "error", err)
		}
	})

	// Sync engine: reconnect-and-interval queue replay
	{
		runCtx, cancel := context.WithCancel(ctx)
		group.Add(func() error {
			return engine.Run(runCtx)
		}, func(error) {
			cancel()
		})
	}

	// Connectivity watcher feeding the engine's reconnect trigger
	{
		watchCtx, cancel := context.WithCancel(ctx)
		group.Add(func() error {
			return g8.Watch(watchCtx, cfg.ProbeInterval)
		}, func(error) {
			cancel()
		})
	}

	var sigErr run.SignalError
	if err := group.Run(); err != nil && !errors.As(err, &sigErr) {
		return fmt.Errorf("error running: %s", err)
	}

	return nil
}
