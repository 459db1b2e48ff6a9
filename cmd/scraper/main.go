package main

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/navid-fn/zoneradar/configs"
	"github.com/navid-fn/zoneradar/internal/drivers/registry"
	"github.com/navid-fn/zoneradar/internal/scraper"
)

func main() {
	appConfig := configs.AppLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	tradeWriter := &kafka.Writer{
		Addr:         kafka.TCP(appConfig.KafkaTrade.Broker),
		Topic:        appConfig.KafkaTrade.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		Compression:  kafka.Zstd,
	}
	defer tradeWriter.Close()

	sender := scraper.NewSender(tradeWriter, logger)

	logger.Info("Starting live pollers",
		"topic", appConfig.KafkaTrade.Topic,
		"symbols", appConfig.Scraper.Symbols,
	)

	err := scraper.RunWithGracefulShutdown(logger, func(ctx context.Context, wg *sync.WaitGroup) {
		for _, connector := range registry.Connectors() {
			poller := scraper.NewPoller(connector, sender, appConfig.Scraper.RequestsPerSecond, logger)
			poller.Start(ctx, appConfig.Scraper.Symbols, wg)
		}
	})
	if err != nil {
		logger.Error("Scraper stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("All pollers stopped")
}
