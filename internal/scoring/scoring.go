// Package scoring ranks candidate records with a weighted min-max score.
package scoring

import (
	"math"

	"targetradar/internal/model"
)

// Reference ranges for min-max normalization. Values at or below the lower
// bound contribute 0 for that feature, at or above the upper bound 1.
const (
	ageMin = 55.0
	ageMax = 85.0

	yearsMin = 5.0
	yearsMax = 30.0

	employeesMin = 1.0
	employeesMax = 100.0

	turnoverMin = 100_000.0
	turnoverMax = 5_000_000.0
)

// Weights controls each feature's share of the score. Zero disables a
// feature entirely.
type Weights struct {
	DirectorAge  float64
	OwnerAge     float64
	YearsTrading float64
	Employees    float64
	Turnover     float64
	Nearness     float64
}

// DefaultWeights returns the standard weighting, biased toward owner and
// director age.
func DefaultWeights() Weights {
	return Weights{
		DirectorAge:  4,
		OwnerAge:     3,
		YearsTrading: 3,
		Employees:    2,
		Turnover:     1,
		Nearness:     2,
	}
}

// Apply scores every record as 100 times the weighted mean of its normalized
// features and returns annotated clones; inputs are never mutated. A missing
// feature contributes zero while its weight stays in the denominator, so
// sparse records rank below complete ones. The nearness feature participates
// only when a radius search ran (radiusKM > 0). Pure: rescoring the same rows
// with the same weights yields the same values.
func Apply(rows []model.CandidateRecord, w Weights, radiusKM float64) []model.CandidateRecord {
	useNearness := radiusKM > 0

	total := w.DirectorAge + w.OwnerAge + w.YearsTrading + w.Employees + w.Turnover
	if useNearness {
		total += w.Nearness
	}
	if total < 1 {
		total = 1
	}

	out := make([]model.CandidateRecord, 0, len(rows))
	for i := range rows {
		r := rows[i].Clone()

		sum := w.DirectorAge * norm(r.AvgDirectorAge, ageMin, ageMax)
		sum += w.OwnerAge * norm(ownerAge(&r), ageMin, ageMax)
		sum += w.YearsTrading * norm(toFloat(r.YearsTrading), yearsMin, yearsMax)
		sum += w.Employees * norm(r.Financials.Employees, employeesMin, employeesMax)
		sum += w.Turnover * norm(r.Financials.Turnover, turnoverMin, turnoverMax)
		if useNearness {
			sum += w.Nearness * nearness(r.DistanceKM, radiusKM)
		}

		score := math.Round(100*sum/total*10) / 10
		r.Score = &score
		out = append(out, r)
	}
	return out
}

// ownerAge resolves the owner-age feature, falling back to the averaged
// director age when no owner age is known. Owners are usually the same people
// as the directors in the companies this targets.
func ownerAge(r *model.CandidateRecord) *float64 {
	if r.AvgOwnerAge != nil {
		return r.AvgOwnerAge
	}
	return r.AvgDirectorAge
}

// norm min-max normalizes v into [0,1]; nil yields 0.
func norm(v *float64, lo, hi float64) float64 {
	if v == nil {
		return 0
	}
	return clamp((*v - lo) / (hi - lo))
}

// nearness maps distance to [0,1], with 1 at the centre and 0 at the radius
// edge. Records without a resolved distance contribute 0.
func nearness(distanceKM *float64, radiusKM float64) float64 {
	if distanceKM == nil {
		return 0
	}
	return clamp(1 - *distanceKM/radiusKM)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func toFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
