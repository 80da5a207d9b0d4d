package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"github.com/alejandrodnm/updownbot/config"
	"github.com/alejandrodnm/updownbot/internal/adapters/binance"
	"github.com/alejandrodnm/updownbot/internal/adapters/dashboard"
	"github.com/alejandrodnm/updownbot/internal/adapters/httpjson"
	"github.com/alejandrodnm/updownbot/internal/adapters/metrics"
	"github.com/alejandrodnm/updownbot/internal/adapters/notify"
	"github.com/alejandrodnm/updownbot/internal/adapters/polymarket"
	"github.com/alejandrodnm/updownbot/internal/adapters/storage"
	"github.com/alejandrodnm/updownbot/internal/bot"
	"github.com/alejandrodnm/updownbot/internal/portfolio"
	"github.com/alejandrodnm/updownbot/internal/ports"
	"github.com/alejandrodnm/updownbot/internal/pricefeed"
	sig "github.com/alejandrodnm/updownbot/internal/signal"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print both books every cycle (default: compact 1-line)")
	report := flag.Bool("report", false, "print the saved portfolio report and exit")
	noDashboard := flag.Bool("no-dashboard", false, "do not start the HTTP/WebSocket dashboard")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *noDashboard {
		cfg.Dashboard.Disabled = true
	}
	setupLogger(cfg.Log)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	policy, err := portfolio.NewPolicy(cfg.Policy)
	if err != nil {
		slog.Error("invalid policy", "err", err)
		os.Exit(1)
	}

	session := uuid.New().String()
	manager := portfolio.New(portfolio.Config{
		InitialCapital: cfg.Bot.InitialCapital,
		Session:        session,
	}, policy)

	console := notify.NewConsole(*table)

	if *report {
		runReport(context.Background(), store, manager, console)
		return
	}

	slog.Info("updownbot starting",
		"config", *configPath,
		"session", session,
		"asset", cfg.Bot.Asset,
		"policy", policy.Name(),
		"interval", cfg.Interval(),
		"once", *once,
		"dashboard", !cfg.Dashboard.Disabled,
	)

	httpOpts := []httpjson.Option{
		httpjson.WithTimeout(cfg.APITimeout()),
		httpjson.WithRetries(cfg.API.MaxRetries, httpjson.DefaultRetryWait),
	}
	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase, cfg.Bot.Asset, httpOpts...)

	engine := sig.New(sig.Config{
		WindowSize:         cfg.Signal.WindowSize,
		Threshold:          cfg.Signal.Threshold,
		MomentumMultiplier: cfg.Signal.MomentumMultiplier,
	})

	recorder := metrics.New()
	publishers := []ports.Publisher{console}

	deps := bot.Deps{
		Markets:   client,
		Books:     client,
		Store:     store,
		Metrics:   recorder,
		Engine:    engine,
		Portfolio: manager,
	}
	if cfg.MomentumEnabled() {
		spot := binance.NewClient(cfg.API.BinanceBase)
		deps.Momentum = pricefeed.New(cfg.Bot.Asset, binance.Symbol(cfg.Bot.Asset), spot)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	if !cfg.Dashboard.Disabled && !*once {
		hub := dashboard.NewHub()
		publishers = append(publishers, hub)
		srv := dashboard.NewServer(cfg.Dashboard.Addr, hub, recorder.Registry())

		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("dashboard hub exited", "err", err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx); err != nil {
				slog.Error("dashboard server exited", "err", err)
				cancel()
			}
		}()
	}
	deps.Publishers = publishers

	b := bot.New(bot.Config{
		Interval:          cfg.Interval(),
		SearchBackoff:     cfg.SearchBackoff(),
		ResolveBeforeSecs: cfg.Bot.ResolveBeforeSecs,
		BookDepth:         cfg.Bot.BookDepth,
	}, deps)

	if *once {
		b.Restore(ctx)
		b.RunOnce(ctx)
		console.PrintReport(b.Stats())
		return
	}

	if err := b.Run(ctx); err != nil {
		slog.Error("bot exited with error", "err", err)
		os.Exit(1)
	}
	wg.Wait()

	console.PrintReport(b.Stats())
	slog.Info("updownbot stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
