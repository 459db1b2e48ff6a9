// Package models defines the domain models used across the application.
package models

import "time"

// Exchange identifies a supported trading venue.
type Exchange string

const (
	ExchangeBinance Exchange = "binance"
	ExchangeKraken  Exchange = "kraken"
	ExchangeOKX     Exchange = "okx"
	ExchangeBybit   Exchange = "bybit"
)

// Exchanges lists every supported venue in resolver preference order.
var Exchanges = []Exchange{ExchangeBinance, ExchangeKraken, ExchangeOKX, ExchangeBybit}

// ValidExchange reports whether name is a supported venue identifier.
func ValidExchange(name string) bool {
	for _, e := range Exchanges {
		if string(e) == name {
			return true
		}
	}
	return false
}

// Trade side values. Venues that omit side are defaulted to buy.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Trade is the canonical trade record shared across all venues.
// Connectors normalize venue-specific payloads into this shape before
// anything downstream sees them.
type Trade struct {
	// TradeID is a unique identifier for this trade, deterministic from
	// venue-native fields so re-fetching a window never creates duplicates.
	TradeID string `json:"trade_id" gorm:"primaryKey;column:trade_id"`

	// Exchange is the venue this trade was observed on.
	Exchange Exchange `json:"exchange" gorm:"index:idx_trades_symbol_time,priority:3"`

	// Symbol is the normalized uppercase pair, e.g. "BTCUSDT".
	Symbol string `json:"symbol" gorm:"index:idx_trades_symbol_time,priority:1"`

	// Price is the trade price in quote currency. Always positive.
	Price float64 `json:"price"`

	// Quantity is the base-currency amount. Zero when the venue omits it.
	Quantity float64 `json:"quantity"`

	// Side is "buy" or "sell".
	Side string `json:"side"`

	// Timestamp is the venue-reported event time in epoch milliseconds,
	// falling back to fetch time when the venue omits it.
	Timestamp int64 `json:"timestamp" gorm:"index:idx_trades_symbol_time,priority:2"`

	// InsertedAt is when the trade was persisted on our side.
	InsertedAt time.Time `json:"inserted_at"`
}

// TableName overrides the GORM default pluralization.
func (Trade) TableName() string { return "trades" }

// SymbolIndex tracks the newest trade timestamp seen per symbol.
// The timestamp is monotone: updates only ever move it forward.
type SymbolIndex struct {
	Symbol     string    `json:"symbol" gorm:"primaryKey"`
	LastSeenTs int64     `json:"last_seen_ts"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (SymbolIndex) TableName() string { return "symbol_index" }
