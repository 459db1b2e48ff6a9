// Package kraken implements the range-capable Kraken spot connector.
// Kraken nests its records under result[pair] as positional tuples and
// paginates by a "since" watermark rather than explicit end bounds, so the
// end of a window is enforced client-side.
package kraken

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
	BaseURL = "https://api.kraken.com"

	tradesPath = "/0/public/Trades"
)

// Kraken spells some assets its own way.
var assetAliases = map[string]string{
	"BTC":  "XBT",
	"DOGE": "XDG",
}

type apiResponse struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

type Connector struct {
	baseURL string
}

func New() *Connector { return &Connector{baseURL: BaseURL} }

func (c *Connector) Name() models.Exchange { return models.ExchangeKraken }

func (c *Connector) RangeCapable() bool { return true }

// Symbol rewrites aliased base assets, e.g. BTCUSDT -> XBTUSDT.
func (c *Connector) Symbol(symbol string) string {
	for from, to := range assetAliases {
		if strings.HasPrefix(symbol, from) {
			return to + strings.TrimPrefix(symbol, from)
		}
	}
	return symbol
}

// Fetch returns public trades since the window start. Records after the
// window end are dropped here so the engine sees only in-window data.
func (c *Connector) Fetch(ctx context.Context, symbol string, start, end int64, limit int) ([]drivers.RawTrade, error) {
	q := url.Values{}
	q.Set("pair", c.Symbol(symbol))
	if start > 0 {
		q.Set("since", strconv.FormatInt(start/1000, 10))
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

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, drivers.Transport(c.Name(), "decode", err)
	}
	if len(body.Error) > 0 {
		return nil, drivers.Transport(c.Name(), "fetch", fmt.Errorf("api error: %s", strings.Join(body.Error, "; ")))
	}

	// The pair key in the result is venue-spelled; take the one entry that
	// is not the pagination watermark.
	var tuples [][]any
	for key, rawList := range body.Result {
		if key == "last" {
			continue
		}
		if err := json.Unmarshal(rawList, &tuples); err != nil {
			return nil, drivers.Transport(c.Name(), "decode", err)
		}
		break
	}

	now := drivers.NowMs()
	raws := make([]drivers.RawTrade, 0, len(tuples))
	for _, tuple := range tuples {
		if end > 0 && tupleTimestampMs(tuple) > end {
			continue
		}
		raws = append(raws, drivers.RawTrade{
			Exchange:  c.Name(),
			Symbol:    symbol,
			FetchedAt: now,
			Record:    tuple,
		})
		if limit > 0 && len(raws) >= limit {
			break
		}
	}
	return raws, nil
}

// Normalize converts one [price, volume, time, side, ...] tuple.
func (c *Connector) Normalize(raw drivers.RawTrade) *models.Trade {
	tuple, ok := raw.Record.([]any)
	if !ok || len(tuple) < 4 {
		return nil
	}

	priceStr, ok := tuple[0].(string)
	if !ok {
		return nil
	}
	price := drivers.ParseFloat(priceStr)
	if price <= 0 {
		return nil
	}

	var quantity float64
	if volStr, ok := tuple[1].(string); ok {
		quantity = drivers.ParseFloat(volStr)
	}

	side := models.SideBuy
	if s, ok := tuple[3].(string); ok && s == "s" {
		side = models.SideSell
	}

	ts := tupleTimestampMs(tuple)
	if ts <= 0 {
		ts = raw.FetchedAt
	}

	return &models.Trade{
		TradeID:   drivers.GenerateTradeID(c.Name(), raw.Symbol, tupleNativeID(tuple), price, quantity, ts),
		Exchange:  c.Name(),
		Symbol:    raw.Symbol,
		Price:     price,
		Quantity:  quantity,
		Side:      side,
		Timestamp: ts,
	}
}

func tupleTimestampMs(tuple []any) int64 {
	if len(tuple) < 3 {
		return 0
	}
	sec, ok := tuple[2].(float64)
	if !ok {
		return 0
	}
	return int64(sec * 1000)
}

func tupleNativeID(tuple []any) string {
	if len(tuple) >= 7 {
		if id, ok := tuple[6].(float64); ok {
			return strconv.FormatInt(int64(id), 10)
		}
	}
	return ""
}
