package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telecast/internal/broadcast"
	"telecast/internal/platform/config"
	"telecast/internal/platform/logger"
	"telecast/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	dbPath := config.GetEnv("DB_PATH", "")
	adminToken := config.GetEnv("ADMIN_TOKEN", "")
	drift := config.GetEnvDuration("RESOLUTION_DRIFT", broadcast.DefaultDrift)

	log := logger.New(logLevel, logFormat)

	var store broadcast.Store
	if dbPath != "" {
		sqlStore, err := broadcast.NewSQLiteStore(dbPath)
		if err != nil {
			log.Error("open schedule store", "error", err)
			os.Exit(1)
		}
		defer func() { _ = sqlStore.Close() }()
		store = sqlStore
	} else {
		log.Warn("DB_PATH not set, using in-memory schedule store")
		store = broadcast.NewMemoryStore()
	}

	met := metrics.New()
	svc := broadcast.NewService(store, log, met, drift)
	h := broadcast.NewHandler(svc, log, met)

	if adminToken == "" {
		log.Warn("ADMIN_TOKEN not set, mutating endpoints will reject all requests")
	}

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(func() {
			if channels, err := store.ListChannels(req.Context()); err == nil {
				n := 0
				for _, ch := range channels {
					if ch.Enabled {
						n++
					}
				}
				met.SetActiveChannels(n)
			}
		}).ServeHTTP(w, req)
	})
	r.Get("/guide", h.Guide)
	r.Route("/channels/{channel_id}", func(r chi.Router) {
		r.Get("/now", h.ResolveNow)
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(30, time.Minute))
			r.Use(broadcast.RequireAdmin(adminToken))
			r.Put("/", h.UpsertChannel)
			r.Post("/schedule", h.BuildSchedule)
			r.Post("/rollforward", h.RollForward)
		})
	})

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"drift", drift.String(),
		"log_level", logLevel,
		"durable_store", dbPath != "",
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
