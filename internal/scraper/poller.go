package scraper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/navid-fn/zoneradar/internal/drivers"
	"github.com/navid-fn/zoneradar/internal/models"
)

const (
	// SnapshotLimit is the per-poll record cap. Venues cap their recent
	// trade batches lower; the smaller bound wins server-side.
	SnapshotLimit = 100

	errorBackoff = 2 * time.Second
)

// Poller repeatedly fetches a venue's latest prints for a symbol set and
// publishes the normalized trades. Deduplication is not its concern: the
// store's idempotent insert absorbs the overlap between polls.
type Poller struct {
	connector drivers.Connector
	sender    *Sender
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewPoller creates a poller paced at requestsPerSecond across all its
// symbols.
func NewPoller(connector drivers.Connector, sender *Sender, requestsPerSecond float64, logger *slog.Logger) *Poller {
	return &Poller{
		connector: connector,
		sender:    sender,
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), 10),
		logger:    logger,
	}
}

// Start launches one worker goroutine per symbol. Workers exit when the
// context is cancelled.
func (p *Poller) Start(ctx context.Context, symbols []string, wg *sync.WaitGroup) {
	for _, symbol := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			p.runWorker(ctx, sym)
		}(symbol)
	}
}

func (p *Poller) runWorker(ctx context.Context, symbol string) {
	exchange := p.connector.Name()
	p.logger.Info("Starting poll worker", "exchange", exchange, "symbol", symbol)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Stopping poll worker", "exchange", exchange, "symbol", symbol)
			return
		default:
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return
		}

		if err := p.pollOnce(ctx, symbol); err != nil {
			p.logger.Error("Poll failed", "exchange", exchange, "symbol", symbol, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(errorBackoff):
			}
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context, symbol string) error {
	raws, err := p.connector.Fetch(ctx, symbol, 0, 0, SnapshotLimit)
	if err != nil {
		return err
	}

	batch := make([]*models.Trade, 0, len(raws))
	for _, raw := range raws {
		if t := p.connector.Normalize(raw); t != nil {
			batch = append(batch, t)
		}
	}
	return p.sender.SendTrades(ctx, batch)
}
