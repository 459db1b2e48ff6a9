// Package binance implements the range-capable Binance spot connector.
// It also exposes klines for the real-time zone path and a last-price
// ticker for the resolver chain.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/navid-fn/zoneradar/internal/drivers"
	"github.com/navid-fn/zoneradar/internal/models"
)

const (
	BaseURL = "https://api.binance.com"

	aggTradesPath = "/api/v3/aggTrades"
	klinesPath    = "/api/v3/klines"
	tickerPath    = "/api/v3/ticker/price"
)

type Connector struct {
	baseURL string
}

func New() *Connector { return &Connector{baseURL: BaseURL} }

func (c *Connector) Name() models.Exchange { return models.ExchangeBinance }

func (c *Connector) RangeCapable() bool { return true }

// Symbol is the identity translation; Binance uses the normalized form.
func (c *Connector) Symbol(symbol string) string { return symbol }

// Fetch returns aggregated trades for [start, end]. Binance caps the span
// of one aggTrades query at one hour, which matches the engine window size.
func (c *Connector) Fetch(ctx context.Context, symbol string, start, end int64, limit int) ([]drivers.RawTrade, error) {
	q := url.Values{}
	q.Set("symbol", c.Symbol(symbol))
	q.Set("limit", strconv.Itoa(limit))
	if start > 0 {
		q.Set("startTime", strconv.FormatInt(start, 10))
	}
	if end > 0 {
		q.Set("endTime", strconv.FormatInt(end, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+aggTradesPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, drivers.Transport(c.Name(), "fetch", err)
	}

	resp, err := drivers.HTTPClient.Do(req)
	if err != nil {
		return nil, drivers.Transport(c.Name(), "fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, drivers.Transport(c.Name(), "fetch", fmt.Errorf("status %d", resp.StatusCode))
	}

	var records []aggTrade
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, drivers.Transport(c.Name(), "decode", err)
	}

	now := drivers.NowMs()
	raws := make([]drivers.RawTrade, 0, len(records))
	for _, r := range records {
		raws = append(raws, drivers.RawTrade{
			Exchange:  c.Name(),
			Symbol:    symbol,
			FetchedAt: now,
			Record:    r,
		})
	}
	return raws, nil
}

// Normalize converts one aggTrade record. The maker flag encodes side: when
// the buyer is the maker the aggressor sold.
func (c *Connector) Normalize(raw drivers.RawTrade) *models.Trade {
	r, ok := raw.Record.(aggTrade)
	if !ok {
		return nil
	}

	price := drivers.ParseFloat(r.Price)
	if price <= 0 {
		return nil
	}

	side := models.SideBuy
	if r.IsBuyerMaker {
		side = models.SideSell
	}

	ts := r.Timestamp
	if ts <= 0 {
		ts = raw.FetchedAt
	}

	quantity := drivers.ParseFloat(r.Quantity)

	return &models.Trade{
		TradeID:   drivers.GenerateTradeID(c.Name(), raw.Symbol, strconv.FormatInt(r.ID, 10), price, quantity, ts),
		Exchange:  c.Name(),
		Symbol:    raw.Symbol,
		Price:     price,
		Quantity:  quantity,
		Side:      side,
		Timestamp: ts,
	}
}

// Klines fetches recent candles for the real-time zone path.
// The response rows are positional arrays; unusable rows are skipped.
func (c *Connector) Klines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("symbol", c.Symbol(symbol))
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+klinesPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, drivers.Transport(c.Name(), "klines", err)
	}

	resp, err := drivers.HTTPClient.Do(req)
	if err != nil {
		return nil, drivers.Transport(c.Name(), "klines", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, drivers.Transport(c.Name(), "klines", fmt.Errorf("status %d", resp.StatusCode))
	}

	var rows [][]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, drivers.Transport(c.Name(), "klines decode", err)
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		openTime, ok := row[0].(float64)
		if !ok {
			continue
		}
		candles = append(candles, models.Candle{
			Exchange: c.Name(),
			Symbol:   symbol,
			Interval: interval,
			OpenTime: int64(openTime),
			Open:     klineField(row, 1),
			High:     klineField(row, 2),
			Low:      klineField(row, 3),
			Close:    klineField(row, 4),
			Volume:   klineField(row, 5),
		})
	}
	return candles, nil
}

func klineField(row []any, idx int) float64 {
	s, ok := row[idx].(string)
	if !ok {
		return 0
	}
	return drivers.ParseFloat(s)
}

// Ticker returns the last traded price.
func (c *Connector) Ticker(ctx context.Context, symbol string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tickerPath+"?symbol="+c.Symbol(symbol), nil)
	if err != nil {
		return 0, drivers.Transport(c.Name(), "ticker", err)
	}

	resp, err := drivers.HTTPClient.Do(req)
	if err != nil {
		return 0, drivers.Transport(c.Name(), "ticker", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, drivers.Transport(c.Name(), "ticker", fmt.Errorf("status %d", resp.StatusCode))
	}

	var t tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return 0, drivers.Transport(c.Name(), "ticker decode", err)
	}

	price := drivers.ParseFloat(t.Price)
	if price <= 0 {
		return 0, drivers.Transport(c.Name(), "ticker", fmt.Errorf("no price for %s", symbol))
	}
	return price, nil
}
