package scenario

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTimestepperDaily(t *testing.T) {
	ts, err := NewTimestepper(date(2020, 1, 1), date(2020, 1, 10), 1)
	if err != nil {
		t.Fatalf("NewTimestepper failed: %v", err)
	}

	if got := ts.Count(); got != 10 {
		t.Fatalf("Count() = %d, expected 10", got)
	}

	steps := ts.Timesteps()
	if len(steps) != 10 {
		t.Fatalf("len(Timesteps()) = %d, expected 10", len(steps))
	}

	if steps[0].Index != 0 || !steps[0].Date.Equal(date(2020, 1, 1)) {
		t.Errorf("first step = %+v, expected index 0 at 2020-01-01", steps[0])
	}
	if steps[9].Index != 9 || !steps[9].Date.Equal(date(2020, 1, 10)) {
		t.Errorf("last step = %+v, expected index 9 at 2020-01-10", steps[9])
	}
	if steps[3].Days != 1.0 {
		t.Errorf("step days = %f, expected 1.0", steps[3].Days)
	}
}

func TestTimestepperWeekly(t *testing.T) {
	ts, err := NewTimestepper(date(2020, 1, 1), date(2020, 1, 15), 7)
	if err != nil {
		t.Fatalf("NewTimestepper failed: %v", err)
	}

	steps := ts.Timesteps()
	if len(steps) != 3 {
		t.Fatalf("len(Timesteps()) = %d, expected 3", len(steps))
	}
	if !steps[1].Date.Equal(date(2020, 1, 8)) {
		t.Errorf("second step date = %s, expected 2020-01-08", steps[1].Date.Format("2006-01-02"))
	}
	if steps[2].Days != 7.0 {
		t.Errorf("step days = %f, expected 7.0", steps[2].Days)
	}
}

func TestTimestepperValidate(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		days  int
	}{
		{"Zero interval", date(2020, 1, 1), date(2020, 12, 31), 0},
		{"Negative interval", date(2020, 1, 1), date(2020, 12, 31), -1},
		{"End before start", date(2020, 12, 31), date(2020, 1, 1), 1},
		{"End equals start", date(2020, 6, 1), date(2020, 6, 1), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTimestepper(tt.start, tt.end, tt.days); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestTimestepMonth(t *testing.T) {
	ts := Timestep{Index: 0, Date: date(2020, 7, 15), Days: 1}
	if got := ts.Month(); got != 7 {
		t.Errorf("Month() = %d, expected 7", got)
	}
}

func TestDayOfYearIndex(t *testing.T) {
	tests := []struct {
		name     string
		date     time.Time
		expected int
	}{
		{"Jan 1 leap year", date(2020, 1, 1), 0},
		{"Feb 28 leap year", date(2020, 2, 28), 58},
		{"Feb 29 leap year", date(2020, 2, 29), 59},
		{"Mar 1 leap year", date(2020, 3, 1), 60},
		{"Dec 31 leap year", date(2020, 12, 31), 365},
		{"Jan 1 common year", date(2021, 1, 1), 0},
		{"Feb 28 common year", date(2021, 2, 28), 58},
		{"Mar 1 common year skips leap slot", date(2021, 3, 1), 60},
		{"Dec 31 common year", date(2021, 12, 31), 365},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := Timestep{Date: tt.date}
			if got := ts.DayOfYearIndex(); got != tt.expected {
				t.Errorf("DayOfYearIndex(%s) = %d, expected %d",
					tt.date.Format("2006-01-02"), got, tt.expected)
			}
		})
	}
}
