// Command livermore runs one exchange instance of the Livermore market
// data plane: the WebSocket/REST adapter, the cache writer, warmup,
// boundary reconciliation, indicator computation, alerting, the
// instance registry heartbeat, the control channel, and the public read
// API, all under one cancellable context.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sawpanic/livermore/internal/alert"
	"github.com/sawpanic/livermore/internal/cache"
	"github.com/sawpanic/livermore/internal/config"
	"github.com/sawpanic/livermore/internal/control"
	"github.com/sawpanic/livermore/internal/exchange"
	"github.com/sawpanic/livermore/internal/indicator"
	"github.com/sawpanic/livermore/internal/logging"
	"github.com/sawpanic/livermore/internal/model"
	"github.com/sawpanic/livermore/internal/net/ratelimit"
	"github.com/sawpanic/livermore/internal/obsmetrics"
	"github.com/sawpanic/livermore/internal/postgres"
	"github.com/sawpanic/livermore/internal/publicapi"
	"github.com/sawpanic/livermore/internal/reconcile"
	"github.com/sawpanic/livermore/internal/registry"
	"github.com/sawpanic/livermore/internal/warmup"
)

const appName = "livermore"

var (
	autostart  bool
	logLevel   string
	logPretty  bool
)

func main() {
	root := &cobra.Command{
		Use:     appName,
		Short:   "Livermore multi-exchange market data instance",
		Version: "v1.0.0",
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	root.PersistentFlags().BoolVar(&logPretty, "log-pretty", isTTY(), "use a human-readable console log instead of JSON")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the exchange instance: adapter, warmup, reconciliation, indicators, alerts, control, and the public API",
		RunE:  runServe,
	}
	serveCmd.Flags().BoolVar(&autostart, "autostart", false, "transition straight to warming on boot instead of waiting for an operator start command")

	checkCmd := &cobra.Command{
		Use:   "config-check",
		Short: "Validate environment configuration and exit",
		RunE:  runConfigCheck,
	}

	root.AddCommand(serveCmd, checkCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func isTTY() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config invalid: %v\n", err)
		os.Exit(2)
	}
	fmt.Printf("config OK: exchange=%s redis=%s http_port=%d\n", cfg.ExchangeName, cfg.RedisAddr, cfg.HTTPPort)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config invalid: %v\n", err)
		os.Exit(2)
	}

	logging.Init(cfg.ExchangeName, logging.ParseLevel(logLevel), logPretty)
	metrics := obsmetrics.New()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := sqlx.Open("postgres", cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", logging.SafeErr(err))
	}
	db.SetMaxOpenConns(cfg.PGMaxOpenConns)
	db.SetMaxIdleConns(cfg.PGMaxIdleConns)
	db.SetConnMaxLifetime(cfg.PGConnMaxLifetime)
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", logging.SafeErr(err))
	}

	rdbOpts := &redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB}
	if cfg.RedisTLS {
		rdbOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewClient(rdbOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	exchangeRepo := postgres.NewExchangeRepo(db, cfg.PGQueryTimeout)
	alertRepo := postgres.NewAlertRepo(db, cfg.PGQueryTimeout)

	exchangeRow, err := exchangeRepo.GetByName(ctx, cfg.ExchangeName)
	if err != nil {
		return fmt.Errorf("load exchange row for %q: %w", cfg.ExchangeName, err)
	}
	symbolRows, err := exchangeRepo.ListSymbols(ctx, exchangeRow.ID)
	if err != nil {
		return fmt.Errorf("load symbol universe: %w", err)
	}
	symbols := make([]string, 0, len(symbolRows))
	for _, s := range symbolRows {
		symbols = append(symbols, s.Symbol)
	}

	limiter := ratelimit.NewLimiter(8, 16)
	adapter, err := exchange.New(exchange.Config{
		ExchangeID:      exchangeRow.ID,
		ExchangeName:    exchangeRow.Name,
		WSURL:           exchangeRow.WSURL,
		RESTURL:         exchangeRow.RESTURL,
		RESTTimeout:     cfg.RESTTimeout,
		WSIdleTimeout:   cfg.WSIdleTimeout,
		DailyRESTBudget: cfg.DailyRESTBudget,
		BudgetResetHour: cfg.BudgetResetHour,
		Metrics:         metrics,
	}, limiter)
	if err != nil {
		return fmt.Errorf("build adapter: %w", err)
	}

	writer := cache.NewWriter(rdb)

	reg := registry.New(rdb, metrics, registry.Identity{
		ExchangeID:       exchangeRow.ID,
		ExchangeName:     exchangeRow.Name,
		Hostname:         cfg.Hostname,
		AdminEmail:       cfg.AdminEmail,
		AdminDisplayName: cfg.AdminDisplayName,
	}, cfg.HeartbeatInterval, cfg.HeartbeatTTL())

	sink := cache.NewSink(writer, metrics, reg, exchangeRow.Name)

	warmupSvc := warmup.NewService(rdb, writer, adapter, exchangeRow.ID)
	reconciler := reconcile.NewReconciler(writer, adapter, exchangeRow.ID)

	var dispatcher alert.NotificationDispatcher = alert.NoopDispatcher{}
	if cfg.DiscordWebhookURL != "" {
		dispatcher = alert.NewDiscordDispatcher(cfg.DiscordWebhookURL)
	}
	evaluator := alert.NewEvaluator(rdb, alertRepo, dispatcher, metrics, exchangeRow.ID, exchangeRow.Name,
		alert.NewRSIRule(), alert.EMACrossRule{})

	calculators := []indicator.Calculator{
		indicator.NewEMACalculator(20),
		indicator.NewRSICalculator(14),
	}
	scheduler := indicator.NewScheduler(rdb, writer, metrics, exchangeRow.ID, evaluator, calculators...)

	controlChannel := control.New(rdb, reg, adminUserID(cfg))

	httpHandlers := publicapi.NewHandlers(rdb, writer, exchangeRepo, alertRepo, alert.NewRSIRule(), alert.EMACrossRule{})
	apiServer := publicapi.NewServer(publicapi.DefaultConfig(cfg.HTTPPort), httpHandlers, metrics)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return logComponentExit("heartbeat", reg.RunHeartbeat(gctx)) })
	g.Go(func() error { return logComponentExit("control", controlChannel.Run(gctx)) })
	g.Go(func() error { return logComponentExit("indicators", scheduler.Run(gctx, symbols)) })
	g.Go(func() error { return logComponentExit("reconcile", reconciler.Run(gctx, symbols)) })
	g.Go(func() error { return logComponentExit("adapter", adapter.Run(gctx, symbols, sink)) })
	g.Go(func() error {
		go func() {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = apiServer.Shutdown(shutdownCtx)
		}()
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if err := reg.Transition(ctx, model.StateStarting, len(symbols)); err != nil {
		log.Error().Err(err).Msg("initial state transition failed")
	}
	if autostart {
		if err := reg.Transition(ctx, model.StateWarming, len(symbols)); err != nil {
			log.Error().Err(err).Msg("warming transition failed")
		} else if err := warmupSvc.Run(ctx, symbols); err != nil {
			log.Error().Err(err).Msg("warmup run failed")
		}
		if err := reg.Transition(ctx, model.StateActive, len(symbols)); err != nil {
			log.Error().Err(err).Msg("post-warmup transition failed")
		}
	}

	log.Info().Str("exchange", exchangeRow.Name).Int("symbols", len(symbols)).Msg("livermore instance started")
	return g.Wait()
}

// logComponentExit folds a component's terminal error into the errgroup
// result while treating an ordinary shutdown (context cancelled) as
// success, so Ctrl-C doesn't get logged as six separate failures.
func logComponentExit(name string, err error) error {
	if err == nil || err == context.Canceled {
		return nil
	}
	log.Error().Err(err).Str("component", name).Msg("component exited")
	return err
}

func adminUserID(cfg *config.Config) int64 {
	// The control channel is scoped per operator account. This returns
	// the fixed id 1 for every instance; cfg (AdminEmail included) is
	// not consulted.
	return 1
}
