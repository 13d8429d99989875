package parameters

import (
	"fmt"

	"github.com/hydronet-sim/reservoir-core/internal/network"
	"github.com/hydronet-sim/reservoir-core/internal/scenario"
)

func init() {
	Register("monthlyprofile", loadMonthlyProfile)
	Register("dailyprofile", loadDailyProfile)
}

// MonthlyProfile repeats twelve values keyed by the calendar month of the
// timestep.
type MonthlyProfile struct {
	values [12]float64
}

// NewMonthlyProfile creates a monthly profile from exactly twelve values,
// January first.
func NewMonthlyProfile(values []float64) (*MonthlyProfile, error) {
	if len(values) != 12 {
		return nil, fmt.Errorf("%w: monthly profile takes exactly 12 values, got %d",
			ErrConfiguration, len(values))
	}
	p := &MonthlyProfile{}
	copy(p.values[:], values)
	return p, nil
}

// Value returns the profile value for the timestep's month.
func (p *MonthlyProfile) Value(ts scenario.Timestep, si scenario.Index) float64 {
	return p.values[ts.Month()-1]
}

func loadMonthlyProfile(r Resolver, def map[string]any) (network.Parameter, error) {
	values, err := optionalFloats(def, "values")
	if err != nil {
		return nil, err
	}
	if values == nil {
		return nil, fmt.Errorf("%w: missing field %q", ErrConfiguration, "values")
	}
	return NewMonthlyProfile(values)
}

// DailyProfile repeats 366 values keyed by the day of year, with February 29
// at slot 59. Common years skip that slot so calendar days keep stable
// positions.
type DailyProfile struct {
	values [366]float64
}

// NewDailyProfile creates a daily profile from exactly 366 values.
func NewDailyProfile(values []float64) (*DailyProfile, error) {
	if len(values) != 366 {
		return nil, fmt.Errorf("%w: daily profile takes exactly 366 values, got %d",
			ErrConfiguration, len(values))
	}
	p := &DailyProfile{}
	copy(p.values[:], values)
	return p, nil
}

// Value returns the profile value for the timestep's day of year.
func (p *DailyProfile) Value(ts scenario.Timestep, si scenario.Index) float64 {
	return p.values[ts.DayOfYearIndex()]
}

func loadDailyProfile(r Resolver, def map[string]any) (network.Parameter, error) {
	values, err := optionalFloats(def, "values")
	if err != nil {
		return nil, err
	}
	if values == nil {
		return nil, fmt.Errorf("%w: missing field %q", ErrConfiguration, "values")
	}
	return NewDailyProfile(values)
}
