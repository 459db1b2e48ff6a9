// Package price answers "current price" queries through an ordered
// fallback chain of venue tickers.
package price

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/navid-fn/zoneradar/internal/drivers"
	"github.com/navid-fn/zoneradar/internal/models"
)

// ErrNoData means every configured venue failed to produce a price.
var ErrNoData = errors.New("price: no data from any source")

// Quote is a resolved price together with the venue that served it.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     float64         `json:"price"`
	Exchange  models.Exchange `json:"exchange"`
	FetchedAt int64           `json:"fetched_at"`
}

// Resolver walks its sources in order and returns the first success.
type Resolver struct {
	sources []drivers.TickerSource
	timeout time.Duration
	logger  *slog.Logger
}

// NewResolver creates a resolver over the given ordered sources. Each
// venue attempt gets its own timeout slice.
func NewResolver(sources []drivers.TickerSource, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{sources: sources, timeout: timeout, logger: logger}
}

// Resolve returns the current price for a symbol. Any single-venue failure
// (timeout, bad payload) moves the chain on; only exhaustion of all venues
// is an error, and that error is terminal for the call.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (*Quote, error) {
	for _, src := range r.sources {
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		price, err := src.Ticker(attemptCtx, symbol)
		cancel()
		if err != nil {
			r.logger.Warn("Ticker source failed, falling back",
				"exchange", src.Name(), "symbol", symbol, "error", err)
			continue
		}
		return &Quote{
			Symbol:    symbol,
			Price:     price,
			Exchange:  src.Name(),
			FetchedAt: time.Now().UnixMilli(),
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
}
