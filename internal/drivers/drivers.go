// Package drivers defines the connector contract every venue adapter
// implements, plus the shared helpers they all use. One package per venue
// lives below this one; venue quirks (symbol formats, response envelopes,
// pagination) stay inside their own package.
package drivers

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/navid-fn/zoneradar/internal/models"
)

// RawTrade is one venue-native trade record plus the context needed to
// normalize it. Record holds the venue's own decoded payload; Normalize
// dispatches on it per venue.
type RawTrade struct {
	Exchange models.Exchange
	Symbol   string

	// FetchedAt is the fetch time in epoch ms, used as the timestamp
	// fallback when the venue omits event time.
	FetchedAt int64

	Record any
}

// Connector adapts one venue's public trade API to the canonical model.
// Implementations are stateless translators: no shared state, no side
// effects beyond the network fetch itself.
type Connector interface {
	Name() models.Exchange

	// RangeCapable reports whether Fetch honors explicit [start, end]
	// bounds. Snapshot-only venues expose recent trades only; for them the
	// backfill engine degrades to best-effort latest-batch fetches.
	RangeCapable() bool

	// Symbol translates a normalized symbol into the venue-native form,
	// e.g. BTCUSDT -> BTC-USDT.
	Symbol(symbol string) string

	// Fetch returns raw trade records for one window. start/end are epoch
	// ms and ignored by snapshot-only connectors. A failure of the whole
	// call is reported as a *TransportError and is the unit of retry.
	Fetch(ctx context.Context, symbol string, start, end int64, limit int) ([]RawTrade, error)

	// Normalize converts one raw record into a canonical trade. It returns
	// nil for records lacking a usable price; it never fails a batch over
	// a single malformed record.
	Normalize(raw RawTrade) *models.Trade
}

// TickerSource is implemented by connectors that expose a last-price
// ticker endpoint, used by the price resolver fallback chain.
type TickerSource interface {
	Name() models.Exchange
	Ticker(ctx context.Context, symbol string) (float64, error)
}

// TransportError wraps a network, HTTP-status, or envelope-decode failure
// for an entire connector call.
type TransportError struct {
	Exchange models.Exchange
	Op       string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Exchange, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transport builds a TransportError for the given venue and operation.
func Transport(exchange models.Exchange, op string, err error) *TransportError {
	return &TransportError{Exchange: exchange, Op: op, Err: err}
}

// GenerateTradeID creates a deterministic identity for a trade from its
// venue-native fields, so re-fetching the same window produces the same IDs.
func GenerateTradeID(exchange models.Exchange, symbol, nativeID string, price, quantity float64, ts int64) string {
	unique := fmt.Sprintf("%s-%s-%s-%f-%f-%d", exchange, symbol, nativeID, price, quantity, ts)
	hash := sha1.Sum([]byte(unique))
	return hex.EncodeToString(hash[:])
}

// ParseFloat parses venue string numbers, tolerating empty fields.
func ParseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// HTTPClient is the shared client for all connectors.
var HTTPClient = &http.Client{Timeout: 10 * time.Second}

// NowMs returns the current time in epoch milliseconds.
func NowMs() int64 { return time.Now().UnixMilli() }
