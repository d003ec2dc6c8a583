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
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalguard/signalguard/agent/internal/api"
	"github.com/signalguard/signalguard/agent/internal/compute"
	"github.com/signalguard/signalguard/agent/internal/config"
	"github.com/signalguard/signalguard/agent/internal/exporter"
	"github.com/signalguard/signalguard/agent/internal/scraper"
	"github.com/signalguard/signalguard/pkg/anomaly"
	"github.com/signalguard/signalguard/pkg/logging"
	"github.com/signalguard/signalguard/pkg/schedule"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	slog.SetDefault(logging.New("info", true))
	slog.Info("signalguard-agent starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg.Logging.Level, cfg.Logging.JSON))
	slog.Info("config loaded",
		"source", cfg.Agent.Source.Type,
		"tick_interval", cfg.Agent.TickInterval,
		"threshold", cfg.Agent.Anomaly.Threshold,
	)

	src, err := scraper.New(cfg.Agent.Source, cfg.Agent.Simulator)
	if err != nil {
		slog.Error("failed to build source", "err", err)
		os.Exit(1)
	}
	scorer, err := newScorer(cfg.Agent.Anomaly)
	if err != nil {
		slog.Error("failed to build scorer", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	exp := exporter.New()
	if err := exp.Register(reg); err != nil {
		slog.Error("failed to register metrics", "err", err)
		os.Exit(1)
	}

	engine := compute.NewEngine(src, scorer, exp)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Hot reload swaps the scorer only; source changes need a restart.
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			s, err := newScorer(updated.Agent.Anomaly)
			if err != nil {
				slog.Error("config hot-reload: scorer rejected", "err", err)
				return
			}
			engine.SetScorer(s)
			slog.Info("config hot-reloaded", "threshold", updated.Agent.Anomaly.Threshold)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	task := schedule.Every(ctx, cfg.Agent.TickInterval, engine.Run)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Agent.HTTPPort),
		Handler:           api.New(engine, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("signalguard-agent shutting down")

	task.Stop()
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("http server shutdown", "err", err)
	}
}

func newScorer(cfg config.AnomalyConfig) (*anomaly.Scorer, error) {
	return anomaly.NewScorer(cfg.Threshold, anomaly.WithServices(cfg.Services...))
}
