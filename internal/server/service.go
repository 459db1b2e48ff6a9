// Package server exposes the HTTP API: backfill job management, zone
// extraction, price resolution, and stored-trade queries.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/navid-fn/zoneradar/internal/aggregate"
	"github.com/navid-fn/zoneradar/internal/models"
	"github.com/navid-fn/zoneradar/internal/price"
	"github.com/navid-fn/zoneradar/internal/storage"
	"github.com/navid-fn/zoneradar/internal/zones"
)

// CandleSource fetches recent candles for the real-time zone path.
type CandleSource interface {
	Klines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
}

// ZoneQuery carries the per-request extraction knobs.
type ZoneQuery struct {
	Symbol     string
	Strategy   string // "trades" or "candles"
	BucketSize float64
	SinceTs    int64
	Exchanges  []models.Exchange
	Interval   string
	Limit      int
	Options    zones.Options
}

// ZoneResponse is the zones endpoint payload. Granularity names the data
// the thresholds operated over, since candle volume and summed trade
// quantity are not comparable.
type ZoneResponse struct {
	Symbol       string          `json:"symbol"`
	Strategy     string          `json:"strategy"`
	Granularity  string          `json:"granularity"`
	CurrentPrice float64         `json:"current_price"`
	PriceSource  models.Exchange `json:"price_source"`
	Above        []models.Zone   `json:"above"`
	Below        []models.Zone   `json:"below"`
}

// ZoneService computes zones on demand from stored trades or live candles.
type ZoneService struct {
	store    storage.Store
	resolver *price.Resolver
	candles  CandleSource
}

func NewZoneService(store storage.Store, resolver *price.Resolver, candles CandleSource) *ZoneService {
	return &ZoneService{store: store, resolver: resolver, candles: candles}
}

// Zones resolves the current price and runs the requested strategy.
func (s *ZoneService) Zones(ctx context.Context, q ZoneQuery) (*ZoneResponse, error) {
	quote, err := s.resolver.Resolve(ctx, q.Symbol)
	if err != nil {
		return nil, err
	}

	resp := &ZoneResponse{
		Symbol:       q.Symbol,
		Strategy:     q.Strategy,
		CurrentPrice: quote.Price,
		PriceSource:  quote.Exchange,
	}

	switch q.Strategy {
	case "candles":
		interval := q.Interval
		if interval == "" {
			interval = "1h"
		}
		limit := q.Limit
		if limit <= 0 {
			limit = 200
		}
		candles, err := s.candles.Klines(ctx, q.Symbol, interval, limit)
		if err != nil {
			return nil, err
		}
		result := zones.FromCandles(candles, quote.Price, q.Options)
		resp.Granularity = "candle-volume"
		resp.Above, resp.Below = result.Above, result.Below

	case "trades":
		sinceTs := q.SinceTs
		if sinceTs <= 0 {
			sinceTs = time.Now().Add(-24 * time.Hour).UnixMilli()
		}
		trades, err := s.store.QueryTrades(ctx, q.Symbol, q.Exchanges, sinceTs)
		if err != nil {
			return nil, err
		}
		bucketSize := q.BucketSize
		if bucketSize <= 0 {
			// A sane default relative to the price scale.
			bucketSize = quote.Price / 1000
		}
		buckets := aggregate.Trades(trades, bucketSize, sinceTs)
		result := zones.FromBuckets(buckets, quote.Price, q.Options)
		resp.Granularity = "trade-quantity"
		resp.Above, resp.Below = result.Above, result.Below

	default:
		return nil, fmt.Errorf("unknown strategy %q", q.Strategy)
	}

	return resp, nil
}

// Price resolves the current price for a symbol.
func (s *ZoneService) Price(ctx context.Context, symbol string) (*price.Quote, error) {
	return s.resolver.Resolve(ctx, symbol)
}

// LatestTrades returns stored trades for a symbol since the given time.
func (s *ZoneService) LatestTrades(ctx context.Context, symbol string, exchanges []models.Exchange, sinceTs int64) ([]*models.Trade, error) {
	if sinceTs <= 0 {
		sinceTs = time.Now().Add(-time.Hour).UnixMilli()
	}
	return s.store.QueryTrades(ctx, symbol, exchanges, sinceTs)
}
