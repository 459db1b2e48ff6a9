// Package zones turns aggregated market activity into a small ranked set of
// significant price levels around the current price.
//
// Two strategies feed the same post-processing pipeline:
//
//   - delta-spike: candle-to-candle close deltas, thresholded by a fixed
//     floor or a percentile cutoff, whichever admits the point;
//   - volume-anomaly: bucket volumes against median*factor and against
//     mean+k*stddev (with a mean*k2 relative fallback when the stddev gate
//     admits nothing) — the looser gate wins so sparse data still yields
//     candidates.
//
// When no candidate clears any threshold, both strategies fall back to the
// top MaxLevels candidates by raw magnitude. That policy is uniform across
// every caller.
package zones

import (
	"math"
	"sort"

	"github.com/navid-fn/zoneradar/internal/models"
)

// Options tunes extraction. Zero values take documented defaults.
type Options struct {
	// MinSeparation is the minimum price distance between two accepted
	// zones. Closer candidates are dropped in favor of the stronger one.
	MinSeparation float64

	// RangeLimit discards candidates farther than this absolute distance
	// from the current price. Zero disables the filter.
	RangeLimit float64

	// MaxLevels caps each of the above/below lists. Default 5.
	MaxLevels int

	// VolumeFactor multiplies the median bucket volume. Default 3.
	VolumeFactor float64

	// StdDevK is the k in mean + k*stddev. Default 2.
	StdDevK float64

	// RelativeK is the fallback multiplier over the mean when the stddev
	// gate admits nothing. Default 2.
	RelativeK float64

	// DeltaFloor is the fixed close-delta threshold for the spike
	// strategy. Zero leaves only the percentile cutoff active.
	DeltaFloor float64

	// DeltaPercentile is the top fraction of deltas admitted by the
	// percentile cutoff. Default 0.03.
	DeltaPercentile float64
}

func (o Options) withDefaults() Options {
	if o.MaxLevels <= 0 {
		o.MaxLevels = 5
	}
	if o.VolumeFactor <= 0 {
		o.VolumeFactor = 3
	}
	if o.StdDevK <= 0 {
		o.StdDevK = 2
	}
	if o.RelativeK <= 0 {
		o.RelativeK = 2
	}
	if o.DeltaPercentile <= 0 {
		o.DeltaPercentile = 0.03
	}
	return o
}

// Result holds the extracted zones split around the current price. Each
// side is sorted by ascending distance from the current price.
type Result struct {
	Above []models.Zone `json:"above"`
	Below []models.Zone `json:"below"`
}

type candidate struct {
	price     float64
	strength  float64
	volume    float64
	delta     float64
	timestamp int64
}

// FromCandles extracts delta-spike zones from a time-ordered candle series.
// Fewer than two candles yields an empty result, never an error.
func FromCandles(candles []models.Candle, currentPrice float64, opts Options) Result {
	opts = opts.withDefaults()
	if len(candles) < 2 {
		return Result{}
	}

	deltas := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		deltas = append(deltas, math.Abs(candles[i].Close-candles[i-1].Close))
	}
	cutoff := percentileCutoff(deltas, opts.DeltaPercentile)

	var all, passed []candidate
	for i := 1; i < len(candles); i++ {
		delta := deltas[i-1]
		if delta == 0 {
			continue
		}
		c := candidate{
			price:     candles[i].Close,
			strength:  delta,
			volume:    delta,
			delta:     candles[i].Close - candles[i-1].Close,
			timestamp: candles[i].OpenTime,
		}
		all = append(all, c)
		if (opts.DeltaFloor > 0 && delta > opts.DeltaFloor) || delta >= cutoff {
			passed = append(passed, c)
		}
	}

	return finish(pickCandidates(passed, all, opts.MaxLevels), currentPrice, opts)
}

// FromBuckets extracts volume-anomaly zones from aggregated price buckets.
// Fewer than two buckets yields an empty result, never an error.
func FromBuckets(buckets []models.PriceBucket, currentPrice float64, opts Options) Result {
	opts = opts.withDefaults()
	if len(buckets) < 2 {
		return Result{}
	}

	volumes := make([]float64, len(buckets))
	for i, b := range buckets {
		volumes[i] = b.Volume
	}

	medianGate := median(volumes) * opts.VolumeFactor
	m, sd := meanStdDev(volumes)
	statGate := m + opts.StdDevK*sd
	if !anyAbove(volumes, statGate) {
		statGate = m * opts.RelativeK
	}

	var all, passed []candidate
	for _, b := range buckets {
		strength := math.Abs(b.Delta())
		if strength == 0 {
			strength = b.Volume
		}
		c := candidate{
			price:     b.Price,
			strength:  strength,
			volume:    b.Volume,
			delta:     b.Delta(),
			timestamp: b.LastTimestamp,
		}
		all = append(all, c)
		if b.Volume > medianGate || b.Volume > statGate {
			passed = append(passed, c)
		}
	}

	return finish(pickCandidates(passed, all, opts.MaxLevels), currentPrice, opts)
}

// pickCandidates applies the empty-threshold fallback: when nothing passed
// the gates, take the top-K of everything by raw magnitude.
func pickCandidates(passed, all []candidate, k int) []candidate {
	if len(passed) > 0 {
		return passed
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].strength > all[j].strength })
	if len(all) > k {
		all = all[:k]
	}
	return all
}

// finish runs the shared post-processing: rank, dedup, range-filter, split,
// truncate, score.
func finish(cands []candidate, currentPrice float64, opts Options) Result {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].strength > cands[j].strength })

	// Greedy dedup keeps the strongest representative per price cluster.
	var accepted []candidate
	for _, c := range cands {
		ok := true
		for _, a := range accepted {
			if math.Abs(c.price-a.price) < opts.MinSeparation {
				ok = false
				break
			}
		}
		if ok {
			accepted = append(accepted, c)
		}
	}

	if opts.RangeLimit > 0 {
		kept := accepted[:0]
		for _, c := range accepted {
			if math.Abs(c.price-currentPrice) <= opts.RangeLimit {
				kept = append(kept, c)
			}
		}
		accepted = kept
	}

	scorer := newScorer(accepted, opts)

	var above, below []models.Zone
	for i, c := range accepted {
		zone := models.Zone{
			Price:     c.price,
			Volume:    c.volume,
			Delta:     c.delta,
			Timestamp: c.timestamp,
			Distance:  math.Abs(c.price - currentPrice),
			Score:     scorer.score(i),
		}
		switch {
		case c.price > currentPrice:
			above = append(above, zone)
		case c.price < currentPrice:
			below = append(below, zone)
		}
	}

	sortByDistance(above)
	sortByDistance(below)
	if len(above) > opts.MaxLevels {
		above = above[:opts.MaxLevels]
	}
	if len(below) > opts.MaxLevels {
		below = below[:opts.MaxLevels]
	}
	return Result{Above: above, Below: below}
}

func sortByDistance(zs []models.Zone) {
	sort.SliceStable(zs, func(i, j int) bool { return zs[i].Distance < zs[j].Distance })
}

func anyAbove(values []float64, gate float64) bool {
	for _, v := range values {
		if v > gate {
			return true
		}
	}
	return false
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

// percentileCutoff returns the smallest value within the top fraction of
// the input, so v >= cutoff admits roughly that fraction of points.
func percentileCutoff(values []float64, topFraction float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	n := int(math.Ceil(topFraction * float64(len(sorted))))
	if n < 1 {
		n = 1
	}
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[n-1]
}
