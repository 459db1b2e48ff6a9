package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/navid-fn/zoneradar/configs"
	"github.com/navid-fn/zoneradar/internal/backfill"
	"github.com/navid-fn/zoneradar/internal/drivers/registry"
	"github.com/navid-fn/zoneradar/internal/models"
	"github.com/navid-fn/zoneradar/internal/storage"
)

func main() {
	symbol := flag.String("symbol", "BTCUSDT", "normalized symbol to backfill")
	exchange := flag.String("exchange", "binance", "venue to fetch from")
	hours := flag.Int("hours", 24, "how far back to backfill from now")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	appConfig := configs.AppLoad()

	if !models.ValidExchange(*exchange) {
		logger.Error("Unknown exchange", "exchange", *exchange)
		os.Exit(1)
	}

	db, err := gorm.Open(postgres.Open(appConfig.DBDSN), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to connect to DB", "error", err)
		os.Exit(1)
	}
	store := storage.NewGormStore(db)

	engineCfg := backfill.DefaultConfig()
	engineCfg.WindowSize = time.Duration(appConfig.Backfill.WindowMinutes) * time.Minute
	engineCfg.Pacing = time.Duration(appConfig.Backfill.PacingMillis) * time.Millisecond

	engine := backfill.NewEngine(store, registry.Connector, logger, engineCfg)

	end := time.Now().UnixMilli()
	start := time.Now().Add(-time.Duration(*hours) * time.Hour).UnixMilli()

	id, err := engine.Create(context.Background(),
		strings.ToUpper(*symbol), models.Exchange(*exchange), start, end)
	if err != nil {
		logger.Error("Failed to create job", "error", err)
		os.Exit(1)
	}
	logger.Info("Backfill job created", "id", id, "symbol", *symbol, "exchange", *exchange)

	engine.Wait()

	job, err := engine.Get(context.Background(), id)
	if err != nil {
		logger.Error("Failed to load job result", "error", err)
		os.Exit(1)
	}
	logger.Info("Backfill job finished", "id", id, "status", job.Status, "message", job.Message)
	if job.Status != models.JobDone {
		os.Exit(1)
	}
}
