// Package aggregate folds trades or candles into discretized price buckets.
// Bucketing and accumulation are pure and order-independent; callers may
// shard the input and merge, though the stdlib loop is fast enough for the
// volumes seen here.
package aggregate

import (
	"math"
	"sort"

	"github.com/navid-fn/zoneradar/internal/models"
)

// Bucket returns the bucket key for a price: round(p/b)*b, rounding half
// away from zero.
func Bucket(price, bucketSize float64) float64 {
	if bucketSize <= 0 {
		return price
	}
	return math.Round(price/bucketSize) * bucketSize
}

// Trades folds a trade set into price buckets. Trades older than sinceTs
// are skipped; pass 0 to keep everything. Output is sorted by bucket price.
func Trades(trades []*models.Trade, bucketSize float64, sinceTs int64) []models.PriceBucket {
	acc := make(map[float64]*models.PriceBucket)

	for _, t := range trades {
		if t == nil || t.Timestamp < sinceTs {
			continue
		}
		key := Bucket(t.Price, bucketSize)
		b, ok := acc[key]
		if !ok {
			b = &models.PriceBucket{Price: key}
			acc[key] = b
		}
		b.Volume += t.Quantity
		switch t.Side {
		case models.SideSell:
			b.SellVolume += t.Quantity
		default:
			b.BuyVolume += t.Quantity
		}
		if t.Timestamp > b.LastTimestamp {
			b.LastTimestamp = t.Timestamp
		}
	}

	return sorted(acc)
}

// Candles folds a candle set into price buckets keyed by close price.
// Candle volume has no side split, so only the plain volume accumulates.
func Candles(candles []models.Candle, bucketSize float64) []models.PriceBucket {
	acc := make(map[float64]*models.PriceBucket)

	for _, c := range candles {
		key := Bucket(c.Close, bucketSize)
		b, ok := acc[key]
		if !ok {
			b = &models.PriceBucket{Price: key}
			acc[key] = b
		}
		b.Volume += c.Volume
		if c.OpenTime > b.LastTimestamp {
			b.LastTimestamp = c.OpenTime
		}
	}

	return sorted(acc)
}

func sorted(acc map[float64]*models.PriceBucket) []models.PriceBucket {
	out := make([]models.PriceBucket, 0, len(acc))
	for _, b := range acc {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}
