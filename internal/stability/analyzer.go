package stability

import (
	"math"
	"sort"

	"github.com/wonny/hawkeye/internal/contracts"
)

// StableThreshold is the factor standard deviation below which a fund counts as stable
const StableThreshold = 0.05

// MinObservations is the minimum series length for a standard deviation
const MinObservations = 2

// Result is the stability of one fund's calibrated factor series.
// Display only; calibration never reads it.
type Result struct {
	Fund         string  `json:"fund"`
	Observations int     `json:"observations"`
	FirstDay     string  `json:"first_day"`
	LastDay      string  `json:"last_day"`
	Mean         float64 `json:"mean"`
	Latest       float64 `json:"latest"`

	// StdDev is meaningful only when Sufficient is true
	StdDev     float64 `json:"stddev"`
	Sufficient bool    `json:"sufficient"`
	Stable     bool    `json:"stable"`
}

// Label returns "stable", "volatile" or "insufficient data"
func (r Result) Label() string {
	switch {
	case !r.Sufficient:
		return "insufficient data"
	case r.Stable:
		return "stable"
	default:
		return "volatile"
	}
}

// Analyze pivots factor history into per-fund chronological series
// and computes the sample standard deviation of each. Results are sorted by fund.
func Analyze(history contracts.DayFundValues) []Result {
	series := make(map[string][]float64)
	first := make(map[string]string)
	last := make(map[string]string)

	for _, day := range history.Days() {
		for fund, factor := range history[day] {
			if _, ok := first[fund]; !ok {
				first[fund] = day
			}
			last[fund] = day
			series[fund] = append(series[fund], factor)
		}
	}

	funds := make([]string, 0, len(series))
	for fund := range series {
		funds = append(funds, fund)
	}
	sort.Strings(funds)

	results := make([]Result, 0, len(funds))
	for _, fund := range funds {
		values := series[fund]
		r := Result{
			Fund:         fund,
			Observations: len(values),
			FirstDay:     first[fund],
			LastDay:      last[fund],
			Mean:         mean(values),
			Latest:       values[len(values)-1],
		}
		if len(values) >= MinObservations {
			r.StdDev = sampleStdDev(values, r.Mean)
			r.Sufficient = true
			r.Stable = r.StdDev < StableThreshold
		}
		results = append(results, r)
	}
	return results
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStdDev uses the n−1 denominator; callers guarantee len ≥ 2
func sampleStdDev(values []float64, m float64) float64 {
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
