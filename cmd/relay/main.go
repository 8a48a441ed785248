package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/relay-service/config"
	"github.com/cwrk-planet/relay-service/internal/identity"
	"github.com/cwrk-planet/relay-service/internal/storage"
	httpx "github.com/cwrk-planet/relay-service/internal/transport/http"
	"github.com/cwrk-planet/relay-service/internal/transport/ws"
	"github.com/cwrk-planet/relay-service/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting relay-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- badger ---
	kv, err := storage.Open(cfg.Storage.Dir, cfg.Storage.InMemory)
	if err != nil {
		log.Fatalf("badger: %v", err)
	}
	defer func() {
		slog.Info("closing badger")
		_ = kv.Close()
	}()

	window := cfg.RetentionWindow()

	// --- room wiring ---
	repo := storage.NewEventRepository(kv, window, cfg.Room.HistoryLimit, logger.L())
	deriver := identity.NewDeriver(cfg.Identity.Salt, window, cfg.Identity.FingerprintHeader)
	hub := ws.NewHub()
	bcast := ws.NewBroadcaster(hub, logger.L())
	wsServer := ws.NewServer(hub, bcast, repo, deriver, logger.L())

	// --- HTTP ---
	router := httpx.NewRouter(wsServer, httpx.GateConfig{
		AllowedOrigin: cfg.Access.AllowedOrigin,
		AllowDev:      cfg.Access.AllowDev,
	}, cfg.HTTP.AssetsDir)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
