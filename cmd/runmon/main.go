// Command runmon consumes model-run status and run-properties messages,
// reconciles them into the run store, and relays them downstream.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	"golang.org/x/sync/errgroup"

	"github.com/surgewatch/runmon/internal/alert"
	"github.com/surgewatch/runmon/internal/config"
	"github.com/surgewatch/runmon/internal/handler"
	"github.com/surgewatch/runmon/internal/lookup"
	"github.com/surgewatch/runmon/internal/queue"
	"github.com/surgewatch/runmon/internal/reconcile"
	"github.com/surgewatch/runmon/internal/store"
	"github.com/surgewatch/runmon/internal/store/postgres"
	"github.com/surgewatch/runmon/internal/store/sqlite"
	"github.com/surgewatch/runmon/pkg/types"
)

var version = "dev"

func main() {
	var cli config.Config
	kctx := kong.Parse(&cli,
		kong.Name("runmon"),
		kong.Description("Storm-surge model-run message monitor."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
		kong.Vars{"version": version},
	)

	if err := run(&cli); err != nil {
		kctx.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gateway, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = gateway.Close() }()
	logger.Info("store ready", "backend", cfg.StoreBackend)

	lu, err := lookup.FromSource(ctx, gateway)
	if err != nil {
		logger.Warn("loading lookup tables from store failed, using compiled defaults", "error", err)
		lu = lookup.Defaults()
	}

	acceptedNames, err := cfg.AcceptedSiteNames(lu.SiteNames())
	if err != nil {
		return fmt.Errorf("resolving accepted sites: %w", err)
	}
	accepted := lu.SiteCodes(acceptedNames)
	logger.Info("accepting run-properties from sites", "sites", acceptedNames)

	dispatcher, err := alert.NewDispatcher(cfg.AlertConfigs(), logger)
	if err != nil {
		return fmt.Errorf("configuring alerts: %w", err)
	}

	rec := reconcile.New(gateway, lu, accepted, logger, dispatcher.AlertFunc())

	conn, wmLogger, err := queue.Connect(cfg.AMQPURL, logger)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	publisher, err := queue.NewPublisher(cfg.AMQPURL, conn, wmLogger)
	if err != nil {
		return err
	}
	relay := queue.NewRelay(publisher, cfg.RelayQueue, cfg.RelayEnabled, cfg.RelayKillFile, logger)

	h := handler.New(rec, gateway, relay, logger, dispatcher.AlertFunc())

	consumers := []struct {
		name    string
		handler queue.HandlerFunc
	}{
		{cfg.StatusQueue, h.Status(cfg.StatusQueue)},
		// ECFLOW emits run-time status in the same dialect on its own queue.
		{cfg.ECFlowRTQueue, h.Status(cfg.ECFlowRTQueue)},
		{cfg.ASGSPropsQueue, h.ASGSRunProperties(cfg.ASGSPropsQueue)},
		{cfg.ECFlowPropsQueue, h.ECFlowRunProperties(cfg.ECFlowPropsQueue)},
		{cfg.HECRASPropsQueue, h.HECRASRunProperties(cfg.HECRASPropsQueue)},
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range consumers {
		sub, err := queue.NewSubscriber(cfg.AMQPURL, conn, wmLogger)
		if err != nil {
			return err
		}
		consumer := queue.NewConsumer(sub, c.name, c.handler, logger)
		g.Go(func() error { return consumer.Run(ctx) })
	}

	if cfg.MetricsAddr != "" {
		g.Go(func() error { return serveMetrics(ctx, cfg.MetricsAddr, logger) })
	}

	logger.Info("runmon started", "version", version, "consumers", len(consumers))
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Gateway, error) {
	switch types.StoreBackend(cfg.StoreBackend) {
	case types.StoreSQLite:
		return sqlite.Open(cfg.StoreDSN, logger)
	default:
		return postgres.Open(ctx, cfg.StoreDSN, logger)
	}
}

// serveMetrics exposes the expvar counters on /debug/vars.
func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) error {
	srv := &http.Server{Addr: addr}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	logger.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
