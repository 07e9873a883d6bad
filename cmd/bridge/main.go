package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"pg-amqp-bridge/internal/admin"
	"pg-amqp-bridge/internal/audit"
	"pg-amqp-bridge/internal/binding"
	"pg-amqp-bridge/internal/config"
	"pg-amqp-bridge/internal/heartbeat"
	"pg-amqp-bridge/internal/recent"
	"pg-amqp-bridge/internal/supervisor"
	"pg-amqp-bridge/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "component", "main", "error", err)
		os.Exit(1)
	}
	configureLogging(cfg.LogLevel, uuid.New().String())
	slog.Info("bridge starting", "component", "main")

	bindings, err := binding.Parse(cfg.BridgeChans)
	if err != nil {
		slog.Error("configuration error", "component", "main", "error", err)
		os.Exit(1)
	}

	var hooks []worker.ForwardHook

	// ── Optional observability sinks ────────────────────────────────────────
	//
	// Neither is constructed unless its address is configured, so the
	// bridge dials nothing beyond PostgreSQL and AMQP by default.

	var auditIndexer *audit.Indexer
	if cfg.ElasticsearchURL != "" {
		auditIndexer, err = audit.New(cfg.ElasticsearchURL)
		if err != nil {
			slog.Error("elasticsearch init failed", "component", "main", "error", err)
			os.Exit(1)
		}
		hooks = append(hooks, auditIndexer)
		defer auditIndexer.Close()
	}

	var recentCache *recent.Cache
	if cfg.RedisAddr != "" {
		recentCache, err = recent.New(cfg.RedisAddr, cfg.RecentDepth)
		if err != nil {
			slog.Error("redis connect failed", "component", "main", "error", err)
			os.Exit(1)
		}
		hooks = append(hooks, recentCache)
		defer recentCache.Close()
	}

	sup := supervisor.New(cfg, bindings, hooks...)

	// ── Heartbeat scheduler ──────────────────────────────────────────────────

	var heartbeatScheduler interface{ Stop() context.Context }
	if cfg.HeartbeatSchedule != "" {
		c, err := heartbeat.Start(cfg.HeartbeatSchedule, bindings)
		if err != nil {
			slog.Error("invalid heartbeat schedule", "component", "main", "schedule", cfg.HeartbeatSchedule, "error", err)
			os.Exit(1)
		}
		heartbeatScheduler = c
		defer func() { <-heartbeatScheduler.Stop().Done() }()
	}

	// ── Admin/observability server ──────────────────────────────────────────

	var adminSrv *http.Server
	if cfg.AdminAddr != "" {
		h := &admin.Handler{Health: sup}
		if recentCache != nil {
			h.Recent = recentCache
		}
		mux := http.NewServeMux()
		h.RegisterRoutes(mux)

		adminSrv = &http.Server{Addr: cfg.AdminAddr, Handler: mux}
		go func() {
			slog.Info("admin server started", "component", "admin", "addr", cfg.AdminAddr)
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("admin server error", "component", "admin", "error", err)
			}
		}()
	}

	// ── Run ────────────────────────────────────────────────────────────────
	//
	// ctx is cancelled on SIGINT/SIGTERM. Worker goroutines are not asked to
	// drain an in-flight publish; only the ambient components below shut
	// down cleanly.

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sup.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("supervisor error", "component", "main", "error", err)
	}

	slog.Info("shutdown signal received", "component", "main")

	if adminSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("admin server shutdown error", "component", "admin", "error", err)
		}
	}

	slog.Info("shutdown complete", "component", "main")
}

// configureLogging installs the process-wide slog default: a text
// handler to stderr at the configured level, with instanceID attached
// to every line so multiple bridge processes sharing a log aggregator
// are distinguishable.
func configureLogging(level, instanceID string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler).With("instance_id", instanceID))
}
