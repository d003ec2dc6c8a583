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
	"syscall"
	"time"

	"github.com/signalguard/signalguard/pkg/anomaly"
	"github.com/signalguard/signalguard/pkg/logging"
	"github.com/signalguard/signalguard/pkg/schedule"
	"github.com/signalguard/signalguard/pkg/status"
	"github.com/signalguard/signalguard/server/internal/alerts"
	"github.com/signalguard/signalguard/server/internal/api"
	"github.com/signalguard/signalguard/server/internal/auth"
	"github.com/signalguard/signalguard/server/internal/config"
	"github.com/signalguard/signalguard/server/internal/receiver"
	"github.com/signalguard/signalguard/server/internal/source"
	"github.com/signalguard/signalguard/server/internal/store"
	"github.com/signalguard/signalguard/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve the dashboard static files from this directory; leave empty to disable")
	flag.Parse()

	slog.SetDefault(logging.New("info", true))
	slog.Info("signalguard-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg.Logging.Level, cfg.Logging.JSON))
	slog.Info("config loaded",
		"mode", cfg.Dashboard.Mode,
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"poll_interval", cfg.Dashboard.PollInterval,
		"warmup_threshold", cfg.Dashboard.Warmup(),
		"error_chart_max", cfg.Dashboard.ErrorChartMax,
	)

	src, local, err := newSource(cfg.Dashboard)
	if err != nil {
		slog.Error("failed to build source", "err", err)
		os.Exit(1)
	}
	cls, err := status.NewClassifier(cfg.Dashboard.Warmup())
	if err != nil {
		slog.Error("failed to build classifier", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Frame store with background TTL eviction.
	st := store.New(cfg.Server.Frame.TTL, cfg.Dashboard.HistorySize)
	go st.Run(ctx)

	alertEngine := alerts.New(cfg.Server.Alerts)

	// Alert rules and the local threshold follow the file; mode and ports
	// need a restart.
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			alertEngine.Configure(updated.Server.Alerts)
			if local != nil {
				s, err := newScorer(updated.Dashboard.Anomaly)
				if err != nil {
					slog.Error("config hot-reload: scorer rejected", "err", err)
					return
				}
				local.SetScorer(s)
			}
			slog.Info("config hot-reloaded",
				"rules", len(updated.Server.Alerts.Rules),
				"threshold", updated.Dashboard.Anomaly.Threshold,
			)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	rcv := receiver.New(src, st, alertEngine)
	poll := schedule.Every(ctx, cfg.Dashboard.PollInterval, rcv.Receive)

	views := api.New(st, cls, api.Options{
		ErrorChartMax: cfg.Dashboard.ErrorChartMax,
		Services:      cfg.Dashboard.Anomaly.Services,
	}, alertEngine)
	hub := ws.New(views, cfg.Server.BroadcastInterval)
	go hub.Run(ctx)

	requireKey := auth.APIKey(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
	)
	throttle := auth.RateLimit(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
	mux := http.NewServeMux()
	mux.Handle("/api/", throttle(requireKey(views)))
	mux.Handle("/ws/stream", throttle(requireKey(hub)))
	if *uiDir != "" {
		mux.Handle("/", spa(*uiDir))
		slog.Info("serving UI static files", "dir", *uiDir)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           mux,
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
	slog.Info("signalguard-server shutting down")

	poll.Stop()
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("http server shutdown", "err", err)
	}
	alertEngine.Wait()
}

// newSource builds the frame source for the dashboard mode. local is non-nil
// in simulated mode so hot reload can swap its scorer.
func newSource(d config.DashboardConfig) (source.Source, *source.Local, error) {
	if d.Mode == config.ModeRemote {
		r, err := source.NewRemote(source.RemoteOptions{
			BaseURL:       d.Remote.BaseURL,
			SummaryPath:   d.Remote.SummaryPath,
			AnomaliesPath: d.Remote.AnomaliesPath,
			Timeout:       d.Remote.Timeout,
			Header:        d.Remote.Header,
			Key:           d.Remote.Key(),
		})
		return r, nil, err
	}

	scorer, err := newScorer(d.Anomaly)
	if err != nil {
		return nil, nil, err
	}
	l, err := source.NewLocal(d.Simulator, d.Seed, scorer)
	if err != nil {
		return nil, nil, err
	}
	return l, l, nil
}

func newScorer(cfg config.AnomalyConfig) (*anomaly.Scorer, error) {
	return anomaly.NewScorer(cfg.Threshold, anomaly.WithServices(cfg.Services...))
}

// spa serves files from dir, falling back to index.html for unknown paths.
func spa(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	})
}
