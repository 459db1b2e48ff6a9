package zones

import "math"

// Confluence score weights. They sum to 100; each component below
// contributes its weight times a 0..1 normalized factor:
//
//	strength 40 — signal magnitude relative to the strongest accepted zone
//	density  25 — neighbors within 3*MinSeparation, relative to the max
//	recency  25 — linear decay from oldest to newest accepted timestamp
//	reaction 10 — density-derived bonus, saturating at 3 neighbors
const (
	weightStrength = 40.0
	weightDensity  = 25.0
	weightRecency  = 25.0
	weightReaction = 10.0
)

type scorer struct {
	accepted   []candidate
	radius     float64
	maxWeight  float64
	oldest     int64
	newest     int64
	maxDensity int
}

func newScorer(accepted []candidate, opts Options) *scorer {
	s := &scorer{accepted: accepted, radius: 3 * opts.MinSeparation}
	if s.radius <= 0 {
		s.radius = 1
	}

	for i, c := range accepted {
		if c.strength > s.maxWeight {
			s.maxWeight = c.strength
		}
		if i == 0 || c.timestamp < s.oldest {
			s.oldest = c.timestamp
		}
		if c.timestamp > s.newest {
			s.newest = c.timestamp
		}
	}
	for i := range accepted {
		if d := s.density(i); d > s.maxDensity {
			s.maxDensity = d
		}
	}
	return s
}

// density counts other accepted zones within the price radius. Candidates
// are identified by index so equal-valued candidates still count each other.
func (s *scorer) density(idx int) int {
	count := 0
	for i, other := range s.accepted {
		if i == idx {
			continue
		}
		if math.Abs(other.price-s.accepted[idx].price) <= s.radius {
			count++
		}
	}
	return count
}

func (s *scorer) score(idx int) float64 {
	c := s.accepted[idx]

	var strength float64
	if s.maxWeight > 0 {
		strength = c.strength / s.maxWeight
	}

	d := s.density(idx)
	var density float64
	if s.maxDensity > 0 {
		density = float64(d) / float64(s.maxDensity)
	}

	recency := 1.0
	if span := s.newest - s.oldest; span > 0 {
		recency = float64(c.timestamp-s.oldest) / float64(span)
	}

	reaction := math.Min(1, float64(d)/3)

	score := weightStrength*strength + weightDensity*density + weightRecency*recency + weightReaction*reaction
	return math.Round(score*100) / 100
}
