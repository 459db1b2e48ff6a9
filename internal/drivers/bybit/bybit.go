// Package bybit implements the snapshot-only Bybit spot connector.
package bybit

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
	BaseURL = "https://api.bybit.com"

	tradesPath = "/v5/market/recent-trade"
	tickerPath = "/v5/market/tickers"
)

type tradeRecord struct {
	ExecID string `json:"execId"`
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
	Size   string `json:"size"`
	Side   string `json:"side"`
	Time   string `json:"time"`
}

type tradesResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []tradeRecord `json:"list"`
	} `json:"result"`
}

type tickerResponse struct {
	RetCode int `json:"retCode"`
	Result  struct {
		List []struct {
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	} `json:"result"`
}

type Connector struct {
	baseURL string
}

func New() *Connector { return &Connector{baseURL: BaseURL} }

func (c *Connector) Name() models.Exchange { return models.ExchangeBybit }

func (c *Connector) RangeCapable() bool { return false }

// Symbol is the identity translation; Bybit spot uses the normalized form.
func (c *Connector) Symbol(symbol string) string { return symbol }

// Fetch returns the latest batch of spot trades. Window bounds are ignored.
func (c *Connector) Fetch(ctx context.Context, symbol string, start, end int64, limit int) ([]drivers.RawTrade, error) {
	q := url.Values{}
	q.Set("category", "spot")
	q.Set("symbol", c.Symbol(symbol))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(min(limit, 60)))
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
	if body.RetCode != 0 {
		return nil, drivers.Transport(c.Name(), "fetch", fmt.Errorf("api code %d: %s", body.RetCode, body.RetMsg))
	}

	now := drivers.NowMs()
	raws := make([]drivers.RawTrade, 0, len(body.Result.List))
	for _, r := range body.Result.List {
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

	side := models.SideBuy
	if strings.EqualFold(r.Side, "Sell") {
		side = models.SideSell
	}

	ts, _ := strconv.ParseInt(r.Time, 10, 64)
	if ts <= 0 {
		ts = raw.FetchedAt
	}

	quantity := drivers.ParseFloat(r.Size)

	return &models.Trade{
		TradeID:   drivers.GenerateTradeID(c.Name(), raw.Symbol, r.ExecID, price, quantity, ts),
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
	u := c.baseURL + tickerPath + "?category=spot&symbol=" + c.Symbol(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
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
	if body.RetCode != 0 || len(body.Result.List) == 0 {
		return 0, drivers.Transport(c.Name(), "ticker", fmt.Errorf("no data for %s", symbol))
	}

	price := drivers.ParseFloat(body.Result.List[0].LastPrice)
	if price <= 0 {
		return 0, drivers.Transport(c.Name(), "ticker", fmt.Errorf("no price for %s", symbol))
	}
	return price, nil
}
