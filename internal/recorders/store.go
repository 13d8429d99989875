package recorders

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/hydronet-sim/reservoir-core/pkg/models"
)

// Temporal aggregation functions applied to each scenario's series.
const (
	AggregateMean   = "mean"
	AggregateMin    = "min"
	AggregateMax    = "max"
	AggregateTotal  = "total"
	AggregateMedian = "median"
	AggregateP95    = "p95"
)

// seriesStore accumulates one series per scenario, indexed by the
// scenario's global id. A run records from a single goroutine, so the
// store is not safe for concurrent use.
type seriesStore struct {
	series [][]float64
}

// Setup allocates the per-scenario series before a run
func (s *seriesStore) Setup(timesteps, scenarios int) {
	s.series = make([][]float64, scenarios)
	for i := range s.series {
		s.series[i] = make([]float64, 0, timesteps)
	}
}

// Reset clears recorded data while keeping the allocation
func (s *seriesStore) Reset() {
	for i := range s.series {
		s.series[i] = s.series[i][:0]
	}
}

// append records one value for the given scenario
func (s *seriesStore) append(gid int, value float64) {
	s.series[gid] = append(s.series[gid], value)
}

// Series returns a copy of the recorded per-scenario series
func (s *seriesStore) Series() [][]float64 {
	out := make([][]float64, len(s.series))
	for i, row := range s.series {
		out[i] = make([]float64, len(row))
		copy(out[i], row)
	}
	return out
}

// result aggregates each scenario's series and combines the
// per-scenario values into a single cross-scenario mean.
func (s *seriesStore) result(name, agg string) *models.RecorderResult {
	values := make([]float64, len(s.series))
	for i, row := range s.series {
		values[i] = aggregate(agg, row)
	}
	return &models.RecorderResult{
		Recorder:        name,
		Aggregate:       agg,
		Values:          values,
		AggregatedValue: aggregate(AggregateMean, values),
	}
}

// aggregate reduces a series with the named function. An empty series
// aggregates to zero.
func aggregate(agg string, xs []float64) float64 {
	if len(xs) == 0 {
		return 0.0
	}
	switch agg {
	case AggregateMin:
		return floats.Min(xs)
	case AggregateMax:
		return floats.Max(xs)
	case AggregateTotal:
		return floats.Sum(xs)
	case AggregateMedian:
		return percentile(xs, 0.50)
	case AggregateP95:
		return percentile(xs, 0.95)
	default:
		return stat.Mean(xs, nil)
	}
}

// percentile calculates an interpolated percentile of the values
func percentile(xs []float64, p float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
