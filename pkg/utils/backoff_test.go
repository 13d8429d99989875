package utils

import (
	"testing"
	"time"
)

func TestConstantBackoff(t *testing.T) {
	delay := 100 * time.Millisecond
	backoff := NewConstantBackoff(delay)

	for i := 0; i < 10; i++ {
		if nextDelay := backoff.NextDelay(i); nextDelay != delay {
			t.Errorf("Attempt %d: expected %v, got %v", i, delay, nextDelay)
		}
	}
}

func TestLinearBackoff(t *testing.T) {
	backoff := NewLinearBackoff(100*time.Millisecond, time.Second)

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{9, time.Second},  // at max
		{20, time.Second}, // capped at max
	}

	for _, tt := range tests {
		if delay := backoff.NextDelay(tt.attempt); delay != tt.expected {
			t.Errorf("Attempt %d: expected %v, got %v", tt.attempt, tt.expected, delay)
		}
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := NewExponentialBackoff(100*time.Millisecond, 10*time.Second, 2.0, false)

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{10, 10 * time.Second}, // capped at max
	}

	for _, tt := range tests {
		if delay := backoff.NextDelay(tt.attempt); delay != tt.expected {
			t.Errorf("Attempt %d: expected %v, got %v", tt.attempt, tt.expected, delay)
		}
	}

	// Zero multiplier falls back to 2.0
	def := NewExponentialBackoff(100*time.Millisecond, 10*time.Second, 0, false)
	if delay := def.NextDelay(1); delay != 200*time.Millisecond {
		t.Errorf("Default multiplier attempt 1: expected 200ms, got %v", delay)
	}
}

func TestExponentialBackoffWithJitter(t *testing.T) {
	baseDelay := 100 * time.Millisecond
	backoff := NewExponentialBackoff(baseDelay, 10*time.Second, 2.0, true)

	for attempt := 0; attempt < 5; attempt++ {
		delay := backoff.NextDelay(attempt)

		expectedBase := float64(baseDelay) * float64(uint(1)<<uint(attempt))
		minExpected := time.Duration(expectedBase * 0.5)
		maxExpected := time.Duration(expectedBase * 1.5)

		if delay < minExpected || delay > maxExpected {
			t.Errorf("Attempt %d: delay %v outside expected range [%v, %v]",
				attempt, delay, minExpected, maxExpected)
		}
	}
}

func TestBackoffFromConfig(t *testing.T) {
	tests := []struct {
		name        string
		backoffType string
		baseMs      int
		maxMs       int
		attempt     int
		checkFunc   func(time.Duration) bool
	}{
		{
			name:        "Constant backoff",
			backoffType: "constant",
			baseMs:      100,
			maxMs:       1000,
			attempt:     5,
			checkFunc:   func(d time.Duration) bool { return d == 100*time.Millisecond },
		},
		{
			name:        "Linear backoff",
			backoffType: "linear",
			baseMs:      100,
			maxMs:       1000,
			attempt:     2,
			checkFunc:   func(d time.Duration) bool { return d == 300*time.Millisecond },
		},
		{
			name:        "Exponential backoff with jitter",
			backoffType: "exponential",
			baseMs:      100,
			maxMs:       10000,
			attempt:     0,
			checkFunc: func(d time.Duration) bool {
				return d >= 50*time.Millisecond && d <= 150*time.Millisecond
			},
		},
		{
			name:        "Unknown type defaults to exponential",
			backoffType: "unknown",
			baseMs:      100,
			maxMs:       10000,
			attempt:     0,
			checkFunc: func(d time.Duration) bool {
				return d >= 50*time.Millisecond && d <= 150*time.Millisecond
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backoff := BackoffFromConfig(tt.backoffType, tt.baseMs, tt.maxMs)
			if backoff == nil {
				t.Fatal("BackoffFromConfig returned nil")
			}

			if delay := backoff.NextDelay(tt.attempt); !tt.checkFunc(delay) {
				t.Errorf("Delay %v failed check function", delay)
			}
		})
	}
}
