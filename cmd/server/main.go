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

	"github.com/jimdaga/window-warmer/internal/actor"
	"github.com/jimdaga/window-warmer/internal/api"
	"github.com/jimdaga/window-warmer/internal/config"
	"github.com/jimdaga/window-warmer/internal/crypto"
	"github.com/jimdaga/window-warmer/internal/database"
	"github.com/jimdaga/window-warmer/internal/identity"
	"github.com/jimdaga/window-warmer/internal/notify"
	"github.com/jimdaga/window-warmer/internal/pinger"
	"github.com/jimdaga/window-warmer/internal/store"
	"github.com/jimdaga/window-warmer/internal/throttle"
	"github.com/jimdaga/window-warmer/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err.Error())
		os.Exit(1)
	}

	logger := worker.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err.Error())
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		logger.Error("Failed to run migrations", "error", err.Error())
		os.Exit(1)
	}

	keyring, err := crypto.NewKeyring(cfg.MasterSecret, cfg.TransitSecret, cfg.SigningSecret)
	if err != nil {
		logger.Error("Failed to build keyring", "error", err.Error())
		os.Exit(1)
	}

	publisher, err := notify.NewPublisher(cfg.RedisURL)
	if err != nil {
		logger.Error("Failed to create notification publisher", "error", err.Error())
		os.Exit(1)
	}
	defer publisher.Close()

	st := store.New(db)
	ping := pinger.NewClient(cfg.PingBaseURL, cfg.PingStubMode)
	svc := actor.New(st, keyring, ping, publisher, logger, cfg.DefaultTimezone, nil)

	if err := worker.InitClient(cfg.RedisURL); err != nil {
		logger.Error("Failed to init task client", "error", err.Error())
		os.Exit(1)
	}
	defer worker.CloseClient()

	stopWorker, err := worker.Start(cfg, svc, st)
	if err != nil {
		logger.Error("Failed to start worker", "error", err.Error())
		os.Exit(1)
	}
	defer stopWorker()

	stopScheduler, err := worker.StartScheduler(cfg)
	if err != nil {
		logger.Error("Failed to start scheduler", "error", err.Error())
		os.Exit(1)
	}
	defer stopScheduler()

	counter, err := throttle.New(cfg.RedisURL, 120, time.Minute)
	if err != nil {
		logger.Error("Failed to create throttle counter", "error", err.Error())
		os.Exit(1)
	}
	defer counter.Close()

	ident := identity.NewClient(cfg.IdentityBaseURL)
	router := api.NewRouter(svc, ident, counter, cfg.Env)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", "error", err.Error())
	}
}
