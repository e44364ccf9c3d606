package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/Spok95/mod-bot/internal/bot"
	"github.com/Spok95/mod-bot/internal/config"
	"github.com/Spok95/mod-bot/internal/domain/actions"
	"github.com/Spok95/mod-bot/internal/domain/modlog"
	"github.com/Spok95/mod-bot/internal/domain/ranks"
	"github.com/Spok95/mod-bot/internal/domain/users"
	"github.com/Spok95/mod-bot/internal/domain/warnings"
	"github.com/Spok95/mod-bot/internal/infra/db"
	httpx "github.com/Spok95/mod-bot/internal/infra/http"
	"github.com/Spok95/mod-bot/internal/infra/logger"
	"github.com/Spok95/mod-bot/internal/infra/telegram"
	"github.com/Spok95/mod-bot/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.StringP("config", "c", "config/example.yaml", "path to yaml config")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(cfg.App.Env)

	if err := db.Migrate(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return err
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return err
	}
	defer pool.Close()
	log.Info("db connected")

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Error("telegram init failed", "err", err)
		return err
	}
	log.Info("authorized on telegram", "bot", api.Self.UserName, "bot_id", api.Self.ID)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	resolver := ranks.NewResolver(ranks.Static{
		OwnerID:  cfg.Ranks.OwnerID,
		Devs:     cfg.Ranks.Devs,
		Sudos:    cfg.Ranks.Sudos,
		Supports: cfg.Ranks.Supports,
	}, ranks.NewRepo(pool), log.With("component", "ranks"))

	moderator := telegram.NewModerator(api, log.With("component", "telegram"))

	var metricsReg prometheus.Registerer
	if cfg.Metrics.Enabled {
		metricsReg = reg
	}
	sched := scheduler.New(actions.NewRepo(pool), moderator, log.With("component", "scheduler"),
		scheduler.Options{
			Workers:        cfg.Scheduler.Workers,
			MaxAttempts:    cfg.Scheduler.MaxAttempts,
			BackoffBase:    cfg.Scheduler.BackoffBase,
			BackoffMax:     cfg.Scheduler.BackoffMax,
			ReverseTimeout: cfg.Scheduler.ReverseTimeout,
			RetryCooldown:  cfg.Scheduler.RetryCooldown,
			PruneAfter:     cfg.Scheduler.PruneAfter,
			PruneEvery:     cfg.Scheduler.PruneEvery,
		},
		scheduler.WithMetrics(scheduler.NewMetrics(metricsReg)),
	)
	// без восстановления запуск запрещён: иначе потеряем отложенные снятия
	if err := sched.Start(ctx); err != nil {
		log.Error("scheduler recovery failed", "err", err)
		return err
	}
	defer sched.Stop()

	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		gatherer = reg
	}
	srv := httpx.New(cfg.HTTP.Addr, gatherer, pool)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	policy := bot.WarnPolicy{
		Limit:    cfg.Warnings.Limit,
		Kind:     actions.Kind(cfg.Warnings.Action),
		Duration: cfg.Warnings.Duration,
	}
	b := bot.New(api, log.With("component", "bot"), resolver, sched, moderator,
		users.NewRepo(pool), warnings.NewRepo(pool), modlog.NewRepo(pool), policy, api.Self)
	log.Info("bot started")
	if err := b.Run(ctx, cfg.Telegram.PollTimeout); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bot stopped", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
	return nil
}
