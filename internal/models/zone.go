package models

// PriceBucket accumulates volume at one discretized price level.
// Buckets exist only for the duration of a single aggregation query.
type PriceBucket struct {
	// Price is the bucket key: round(price/bucketSize)*bucketSize.
	Price float64 `json:"price"`

	// Volume is the total traded quantity that fell into this bucket.
	Volume float64 `json:"volume"`

	// BuyVolume and SellVolume split Volume when side info is available.
	BuyVolume  float64 `json:"buy_volume"`
	SellVolume float64 `json:"sell_volume"`

	// LastTimestamp is the newest event time observed in this bucket (ms).
	LastTimestamp int64 `json:"last_timestamp"`
}

// Delta returns the signed buy-minus-sell volume.
func (b PriceBucket) Delta() float64 { return b.BuyVolume - b.SellVolume }

// Zone is a ranked price level flagged as statistically significant.
// Zones are derived and stateless, recomputed per request.
type Zone struct {
	Price float64 `json:"price"`

	// Volume is the signal magnitude behind the zone: bucket volume for the
	// volume-anomaly strategy, |close-to-close delta| for the spike strategy.
	Volume float64 `json:"volume"`

	// Delta is the signed buy-minus-sell volume when side info exists.
	Delta float64 `json:"delta"`

	// Timestamp of the triggering event in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`

	// Distance is the absolute price distance from the current market price.
	Distance float64 `json:"distance"`

	// Score is the 0-100 confluence score.
	Score float64 `json:"score"`
}
