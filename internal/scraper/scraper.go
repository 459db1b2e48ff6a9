// Package scraper runs the real-time ingestion path: it polls venue
// connectors for their latest prints and publishes canonical trades to a
// Kafka topic, where the ingester picks them up for idempotent storage.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/navid-fn/zoneradar/internal/models"
)

// Sender handles sending trades to Kafka.
type Sender struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewSender creates a new Kafka sender.
func NewSender(writer *kafka.Writer, logger *slog.Logger) *Sender {
	return &Sender{writer: writer, logger: logger}
}

// Send sends raw bytes to Kafka.
func (s *Sender) Send(ctx context.Context, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.writer.WriteMessages(writeCtx, kafka.Message{Value: data})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("kafka write failed: %w", err)
	}
	return nil
}

// SendTrades serializes and sends a batch of canonical trades.
func (s *Sender) SendTrades(ctx context.Context, trades []*models.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	data, err := json.Marshal(trades)
	if err != nil {
		return fmt.Errorf("serialize batch failed: %w", err)
	}
	return s.Send(ctx, data)
}

// DecodeTrades parses a message produced by SendTrades.
func DecodeTrades(data []byte) ([]*models.Trade, error) {
	var trades []*models.Trade
	if err := json.Unmarshal(data, &trades); err != nil {
		return nil, fmt.Errorf("decode trade batch: %w", err)
	}
	return trades, nil
}

// RunWithGracefulShutdown starts workers and blocks until SIGINT/SIGTERM,
// then waits for them to drain.
func RunWithGracefulShutdown(
	logger *slog.Logger,
	startWorkers func(ctx context.Context, wg *sync.WaitGroup),
) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	var wg sync.WaitGroup
	startWorkers(ctx, &wg)

	logger.Info("All workers started")
	wg.Wait()

	return nil
}
