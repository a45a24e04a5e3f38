package risk

import (
	"math"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/signal"
)

// Scorer computes churn risk. It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	factors []Factor
	bands   Bands
}

// NewScorer validates the tables and builds a scorer.
func NewScorer(factors []Factor, bands Bands) (*Scorer, error) {
	if err := ValidateFactors(factors); err != nil {
		return nil, err
	}
	if err := bands.Validate(); err != nil {
		return nil, err
	}

	fs := make([]Factor, len(factors))
	copy(fs, factors)
	return &Scorer{factors: fs, bands: bands}, nil
}

// Factors returns the configured factor table.
func (s *Scorer) Factors() []Factor {
	out := make([]Factor, len(s.factors))
	copy(out, s.factors)
	return out
}

// Score computes the churn record for a snapshot.
func (s *Scorer) Score(snap *signal.Snapshot, now time.Time) Record {
	return s.ScoreValues(snap.Values(), now)
}

// ScoreValues computes the churn record from signal values.
// Missing values count as zero.
func (s *Scorer) ScoreValues(values map[string]float64, now time.Time) Record {
	rec := Record{
		Factors:    make([]FactorScore, 0, len(s.factors)),
		ComputedAt: now,
	}

	total := 0.0
	for _, f := range s.factors {
		raw := values[f.Signal]
		normalized := clamp(raw/f.HighRiskThreshold*100, 0, 100)
		contribution := normalized * f.Weight
		total += contribution

		rec.Factors = append(rec.Factors, FactorScore{
			Name:         f.Name,
			Raw:          raw,
			Normalized:   normalized,
			Contribution: contribution,
		})
	}

	// round away float summation error at the band edges
	rec.Score = clamp(math.Round(total*1e6)/1e6, 0, 100)
	rec.Category = s.bands.Categorize(rec.Score)
	return rec
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
