// Package okx implements the snapshot-only OKX spot connector.
// OKX's public trades endpoint returns only the most recent prints; true
// historical ranges are not available, so backfill over this venue is
// best-effort by construction.
package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/navid-fn/zoneradar/internal/drivers"
	"github.com/navid-fn/zoneradar/internal/models"
)

const (
	BaseURL = "https://www.okx.com"

	tradesPath = "/api/v5/market/trades"
	tickerPath = "/api/v5/market/ticker"
)

// Quote assets OKX expects dash-separated, longest first so USDT wins
// over USD.
var quoteAssets = []string{"USDT", "USDC", "BUSD", "USD", "BTC", "ETH"}

type tradeRecord struct {
	InstID  string `json:"instId"`
	TradeID string `json:"tradeId"`
	Price   string `json:"px"`
	Size    string `json:"sz"`
	Side    string `json:"side"`
	Ts      string `json:"ts"`
}

type tradesResponse struct {
	Code string        `json:"code"`
	Msg  string        `json:"msg"`
	Data []tradeRecord `json:"data"`
}

type tickerResponse struct {
	Code string `json:"code"`
	Data []struct {
		Last string `json:"last"`
	} `json:"data"`
}

type Connector struct {
	baseURL string
}

func New() *Connector { return &Connector{baseURL: BaseURL} }

func (c *Connector) Name() models.Exchange { return models.ExchangeOKX }

func (c *Connector) RangeCapable() bool { return false }

// Symbol inserts the instrument dash, e.g. BTCUSDT -> BTC-USDT.
func (c *Connector) Symbol(symbol string) string {
	for _, quote := range quoteAssets {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return strings.TrimSuffix(symbol, quote) + "-" + quote
		}
	}
	return symbol
}

// Fetch returns the latest batch of trades. Window bounds are ignored.
func (c *Connector) Fetch(ctx context.Context, symbol string, start, end int64, limit int) ([]drivers.RawTrade, error) {
	q := url.Values{}
	q.Set("instId", c.Symbol(symbol))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(min(limit, 500)))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tradesPath+"?"+q.Encode(), nil)
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

	var body tradesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, drivers.Transport(c.Name(), "decode", err)
	}
	if body.Code != "0" {
		return nil, drivers.Transport(c.Name(), "fetch", fmt.Errorf("api code %s: %s", body.Code, body.Msg))
	}

	now := drivers.NowMs()
	raws := make([]drivers.RawTrade, 0, len(body.Data))
	for _, r := range body.Data {
		raws = append(raws, drivers.RawTrade{
			Exchange:  c.Name(),
			Symbol:    symbol,
			FetchedAt: now,
			Record:    r,
		})
	}
	return raws, nil
}

func (c *Connector) Normalize(raw drivers.RawTrade) *models.Trade {
	r, ok := raw.Record.(tradeRecord)
	if !ok {
		return nil
	}

	price := drivers.ParseFloat(r.Price)
	if price <= 0 {
		return nil
	}

	side := r.Side
	if side != models.SideBuy && side != models.SideSell {
		side = models.SideBuy
	}

	ts, _ := strconv.ParseInt(r.Ts, 10, 64)
	if ts <= 0 {
		ts = raw.FetchedAt
	}

	quantity := drivers.ParseFloat(r.Size)

	return &models.Trade{
		TradeID:   drivers.GenerateTradeID(c.Name(), raw.Symbol, r.TradeID, price, quantity, ts),
		Exchange:  c.Name(),
		Symbol:    raw.Symbol,
		Price:     price,
		Quantity:  quantity,
		Side:      side,
		Timestamp: ts,
	}
}

// Ticker returns the last traded price.
func (c *Connector) Ticker(ctx context.Context, symbol string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tickerPath+"?instId="+c.Symbol(symbol), nil)
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

	var body tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, drivers.Transport(c.Name(), "ticker decode", err)
	}
	if body.Code != "0" || len(body.Data) == 0 {
		return 0, drivers.Transport(c.Name(), "ticker", fmt.Errorf("no data for %s", symbol))
	}

	price := drivers.ParseFloat(body.Data[0].Last)
	if price <= 0 {
		return 0, drivers.Transport(c.Name(), "ticker", fmt.Errorf("no price for %s", symbol))
	}
	return price, nil
}
