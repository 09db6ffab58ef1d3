package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"household-ledger/internal/app"
	"household-ledger/internal/config"
	"household-ledger/internal/db"
	"household-ledger/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "apply database migrations and exit")
	flag.Parse()

	log := logger.NewFromEnv()

	if *migrateOnly {
		os.Exit(runMigrations(log))
	}

	log.Info("app: starting")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(log)
	if err != nil {
		log.Critical("app: init failed", "err", err)
		os.Exit(1)
	}

	srv := application.HTTPServer()
	log.Info("http: listening", "addr", srv.Addr)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("app: shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			log.Critical("http: server failed", "addr", srv.Addr, "err", err)
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("http: graceful shutdown failed", "err", err)
		exitCode = 1
	}
	if err := application.Close(); err != nil {
		log.Error("app: close failed", "err", err)
		exitCode = 1
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
	log.Info("app: stopped")
}

func runMigrations(log logger.Logger) int {
	cfg, err := config.Load(log)
	if err != nil {
		log.Critical("migrate: load config failed", "err", err)
		return 1
	}
	conn, err := db.Open(cfg.DB, log)
	if err != nil {
		log.Critical("migrate: open database failed", "err", err)
		return 1
	}
	defer func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	if err := db.Migrate(conn); err != nil {
		log.Critical("migrate: apply failed", "err", err)
		return 1
	}
	log.Info("migrate: schema up to date", "driver", cfg.DB.Driver)
	return 0
}
