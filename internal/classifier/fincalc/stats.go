package fincalc

import (
	"fmt"
	"math"
)

// SeriesStats summarizes a historical price series for one security.
// Snapshots are computed ahead of a run from the price history the caller
// chooses to supply; the engine never fetches data mid-pipeline.
type SeriesStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Count  int     `json:"count"`
}

// NewSeriesStats computes mean and population standard deviation over a
// price series.
func NewSeriesStats(values []float64) (SeriesStats, error) {
	if len(values) == 0 {
		return SeriesStats{}, fmt.Errorf("price series cannot be empty")
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))

	return SeriesStats{
		Mean:   mean,
		StdDev: math.Sqrt(variance),
		Count:  len(values),
	}, nil
}

// ZScore returns how many standard deviations a value sits from the
// series mean. A zero standard deviation makes the score undefined and
// returns an error so callers can skip the check rather than divide by
// zero.
func (s SeriesStats) ZScore(value float64) (float64, error) {
	if s.StdDev == 0 {
		return 0, fmt.Errorf("standard deviation is zero, z-score undefined")
	}

	return (value - s.Mean) / s.StdDev, nil
}

// IsOutlier reports whether a value sits more than threshold standard
// deviations from the mean. A degenerate series never flags outliers.
func (s SeriesStats) IsOutlier(value, threshold float64) bool {
	z, err := s.ZScore(value)
	if err != nil {
		return false
	}

	return math.Abs(z) > threshold
}
