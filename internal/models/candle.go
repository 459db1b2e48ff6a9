package models

// Candle is a single OHLCV record fetched directly from a venue for the
// real-time zone path. Candles are not persisted; they are consumed by the
// aggregator and zone extractor as a view.
type Candle struct {
	Exchange Exchange `json:"exchange"`
	Symbol   string   `json:"symbol"`

	// Interval is the candle timeframe: "1d", "4h", "1h", "15m", etc.
	Interval string `json:"interval"`

	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`

	// OpenTime is the candle open in epoch milliseconds.
	OpenTime int64 `json:"open_time"`
}
