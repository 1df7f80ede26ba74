package domain

import (
	"math"
	"slices"
)

// Stats describes the distribution of one error dimension. Count == 0 means
// no data; the other fields are then zero and carry no meaning.
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	RMS    float64 `json:"rms"`
}

// HasData reports whether at least one value was observed.
func (s Stats) HasData() bool { return s.Count > 0 }

// Describe reduces values to summary statistics. StdDev is the population
// standard deviation (divide by N), matching the historical reports.
func Describe(values []float64) Stats {
	n := len(values)
	if n == 0 {
		return Stats{}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var sum, sumSq float64
	for _, v := range sorted {
		sum += v
		sumSq += v * v
	}
	mean := sum / float64(n)

	var variance float64
	for _, v := range sorted {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)

	median := sorted[n/2]
	if n%2 == 0 {
		median = 0.5 * (sorted[n/2-1] + sorted[n/2])
	}

	return Stats{
		Count:  n,
		Mean:   mean,
		StdDev: math.Sqrt(variance),
		Median: median,
		Min:    sorted[0],
		Max:    sorted[n-1],
		RMS:    math.Sqrt(sumSq / float64(n)),
	}
}
