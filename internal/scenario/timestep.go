// Package scenario provides the discrete time axis and the scenario ensemble
// over which a model run evaluates. Every parameter evaluation is addressed by
// a (Timestep, Index) pair.
package scenario

import (
	"fmt"
	"time"
)

// Timestep is one interval of the simulation time axis.
type Timestep struct {
	// Index is the position of this timestep in the run, starting at 0.
	Index int
	// Date is the calendar date at the start of the interval.
	Date time.Time
	// Days is the interval length in days.
	Days float64
}

// Month returns the calendar month of the timestep, 1 through 12.
func (ts Timestep) Month() int {
	return int(ts.Date.Month())
}

// DayOfYearIndex returns the position of the timestep's date in a 366-slot
// year with February 29 at slot 59. In non-leap years dates from March 1
// onward shift forward one slot so a given calendar day always maps to the
// same slot regardless of year.
func (ts Timestep) DayOfYearIndex() int {
	idx := ts.Date.YearDay() - 1
	if idx >= 59 && !isLeapYear(ts.Date.Year()) {
		idx++
	}
	return idx
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// Timestepper generates the timesteps of a run from a start date, an end date
// and a fixed interval length in whole days. The end date is inclusive.
type Timestepper struct {
	Start time.Time
	End   time.Time
	Days  int
}

// NewTimestepper creates a timestepper and validates its bounds.
func NewTimestepper(start, end time.Time, days int) (*Timestepper, error) {
	t := &Timestepper{Start: start, End: end, Days: days}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the timestepper definition.
func (t *Timestepper) Validate() error {
	if t.Days < 1 {
		return fmt.Errorf("timestepper: interval must be at least 1 day, got %d", t.Days)
	}
	if !t.End.After(t.Start) {
		return fmt.Errorf("timestepper: end %s must be after start %s",
			t.End.Format("2006-01-02"), t.Start.Format("2006-01-02"))
	}
	return nil
}

// Count returns the number of timesteps the run will execute.
func (t *Timestepper) Count() int {
	days := int(t.End.Sub(t.Start).Hours()/24) + 1
	count := days / t.Days
	if days%t.Days != 0 {
		count++
	}
	return count
}

// Timesteps materializes the full time axis of the run.
func (t *Timestepper) Timesteps() []Timestep {
	count := t.Count()
	steps := make([]Timestep, count)
	for i := 0; i < count; i++ {
		steps[i] = Timestep{
			Index: i,
			Date:  t.Start.AddDate(0, 0, i*t.Days),
			Days:  float64(t.Days),
		}
	}
	return steps
}
