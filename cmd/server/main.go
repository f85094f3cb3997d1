package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mtx-console/internal/console"
	"mtx-console/internal/mediamtx"
	"mtx-console/internal/platform/config"
	"mtx-console/internal/platform/logger"
	"mtx-console/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()
	cfg := config.FromEnv()

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	met := metrics.New()

	retry := mediamtx.DefaultRetryConfig()
	retry.MaxRetries = cfg.APIRetryMax
	client := mediamtx.NewClient(cfg.APIURL, mediamtx.NewCredentialStore(),
		mediamtx.WithRetry(retry),
		mediamtx.WithObserver(func(op string, err error) {
			outcome := "ok"
			if err != nil {
				outcome = mediamtx.KindOf(err).String()
			}
			met.IncUpstream(op, outcome)
		}),
	)

	repo := console.NewInMemoryRepository()
	c := console.New(client, repo, console.Options{
		HLSURL: cfg.HLSURL,
		Reconciler: console.ReconcilerConfig{
			Interval:     cfg.PollInterval,
			CycleTimeout: cfg.PollCycleTimeout,
			CatchAll:     cfg.CatchAllPath,
		},
	}, log, met)
	h := console.NewHandler(c, console.NewSessions(cfg.CookieSecure), log, met)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() {
			if s, ok := c.Summary(); ok {
				met.SetPathGauges(s.TotalPaths, s.ActivePaths, s.TotalReaders)
			}
		}).ServeHTTP(w, r)
	})
	h.Routes(r)

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", cfg.Port,
		"mediamtx_api_url", cfg.APIURL,
		"mediamtx_hls_url", cfg.HLSURL,
		"poll_interval", cfg.PollInterval.String(),
		"log_level", cfg.LogLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")
	c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
