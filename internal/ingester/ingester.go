// Package ingester consumes canonical trades from Kafka and persists them
// through the idempotent trade store. It handles batching, retry, and
// graceful shutdown; offsets are committed only after a successful insert,
// giving at-least-once delivery that the store's idempotency flattens into
// effectively-once storage.
package ingester

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/navid-fn/zoneradar/internal/models"
	"github.com/navid-fn/zoneradar/internal/scraper"
	"github.com/navid-fn/zoneradar/internal/storage"
)

// Config holds ingester configuration parameters.
type Config struct {
	// BatchSize is the maximum number of trades to accumulate before
	// flushing to the store.
	BatchSize int

	// BatchTimeout is the maximum time to wait before flushing, even if
	// the batch isn't full.
	BatchTimeout time.Duration
}

// Ingester consumes trades from Kafka and writes them to the store in
// batches.
type Ingester struct {
	reader *kafka.Reader
	store  storage.Store
	logger *slog.Logger
	cfg    Config
}

// NewIngester creates a new Ingester with the provided dependencies.
func NewIngester(reader *kafka.Reader, store storage.Store, logger *slog.Logger, cfg Config) *Ingester {
	return &Ingester{
		reader: reader,
		store:  store,
		logger: logger,
		cfg:    cfg,
	}
}

// Start runs the main ingestion loop. It blocks until the context is
// cancelled; on shutdown it flushes any remaining buffered trades.
func (ig *Ingester) Start(ctx context.Context) error {
	ig.logger.Info("Starting Ingester Loop", "batch_size", ig.cfg.BatchSize)

	batchTrades := make([]*models.Trade, 0, ig.cfg.BatchSize)
	batchMsgs := make([]kafka.Message, 0, ig.cfg.BatchSize)

	ticker := time.NewTicker(ig.cfg.BatchTimeout)
	defer ticker.Stop()

	flush := func() error {
		if len(batchTrades) == 0 {
			return nil
		}

		// Retry loop: never drop data, keep retrying until the store
		// accepts it.
		for {
			if err := ig.store.InsertTrades(ctx, batchTrades); err != nil {
				ig.logger.Error("DB Insert Failed (Retrying in 2s)", "error", err)

				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(2 * time.Second):
					continue
				}
			}
			break
		}

		// Commit offsets only after the insert landed.
		if err := ig.reader.CommitMessages(ctx, batchMsgs...); err != nil {
			ig.logger.Warn("Failed to commit offsets", "error", err)
		}

		batchTrades = batchTrades[:0]
		batchMsgs = batchMsgs[:0]
		ticker.Reset(ig.cfg.BatchTimeout)
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return flush()

		case <-ticker.C:
			if err := flush(); err != nil {
				return err
			}

		default:
			fetchCtx, cancel := context.WithTimeout(ctx, ig.cfg.BatchTimeout)
			m, err := ig.reader.FetchMessage(fetchCtx)
			cancel()

			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				if errors.Is(err, context.Canceled) {
					return nil
				}
				ig.logger.Error("Kafka Fetch Error", "error", err)
				time.Sleep(time.Second)
				continue
			}

			trades, err := scraper.DecodeTrades(m.Value)
			if err != nil {
				ig.logger.Warn("Skipping undecodable message", "error", err)
				continue
			}

			batchTrades = append(batchTrades, trades...)
			batchMsgs = append(batchMsgs, m)

			if len(batchTrades) >= ig.cfg.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
}
