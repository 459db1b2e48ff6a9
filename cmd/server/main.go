package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/navid-fn/zoneradar/configs"
	"github.com/navid-fn/zoneradar/internal/backfill"
	"github.com/navid-fn/zoneradar/internal/drivers/binance"
	"github.com/navid-fn/zoneradar/internal/drivers/registry"
	"github.com/navid-fn/zoneradar/internal/price"
	"github.com/navid-fn/zoneradar/internal/server"
	"github.com/navid-fn/zoneradar/internal/storage"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	appConfig := configs.AppLoad()

	db, err := gorm.Open(postgres.Open(appConfig.DBDSN), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to connect to DB", "error", err)
		os.Exit(1)
	}
	store := storage.NewGormStore(db)

	engineCfg := backfill.DefaultConfig()
	engineCfg.WindowSize = time.Duration(appConfig.Backfill.WindowMinutes) * time.Minute
	engineCfg.Pacing = time.Duration(appConfig.Backfill.PacingMillis) * time.Millisecond
	engineCfg.MaxConcurrent = appConfig.Backfill.MaxConcurrent

	engine := backfill.NewEngine(store, registry.Connector, logger, engineCfg)
	defer engine.Close()

	resolver := price.NewResolver(registry.Tickers(), 5*time.Second, logger)
	svc := server.NewZoneService(store, resolver, binance.New())
	router := server.NewRouter(server.NewHandler(engine, svc))

	srv := &http.Server{Addr: appConfig.ServerAddr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("API server listening", "addr", appConfig.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	logger.Info("Server shutdown complete")
}
