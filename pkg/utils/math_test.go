package utils

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		value, min, max, expected int
	}{
		{5, 0, 10, 5},
		{-5, 0, 10, 0},
		{15, 0, 10, 10},
		{0, 0, 10, 0},
		{10, 0, 10, 10},
	}

	for _, tt := range tests {
		result := Clamp(tt.value, tt.min, tt.max)
		if result != tt.expected {
			t.Errorf("Clamp(%d, %d, %d) = %d, expected %d", tt.value, tt.min, tt.max, result, tt.expected)
		}
	}
}

func TestClampFloat64(t *testing.T) {
	tests := []struct {
		value, min, max, expected float64
	}{
		{5.5, 0.0, 10.0, 5.5},
		{-0.3, 0.0, 10.0, 0.0},
		{12.8, 0.0, 10.0, 10.0},
		{0.0, 0.0, 10.0, 0.0},
	}

	for _, tt := range tests {
		result := ClampFloat64(tt.value, tt.min, tt.max)
		if result != tt.expected {
			t.Errorf("ClampFloat64(%f, %f, %f) = %f, expected %f", tt.value, tt.min, tt.max, result, tt.expected)
		}
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		value, expected float64
	}{
		{0.5, 0.5},
		{-0.1, 0.0},
		{1.2, 1.0},
		{0.0, 0.0},
		{1.0, 1.0},
	}

	for _, tt := range tests {
		result := Clamp01(tt.value)
		if result != tt.expected {
			t.Errorf("Clamp01(%f) = %f, expected %f", tt.value, result, tt.expected)
		}
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		value    float64
		decimals int
		expected float64
	}{
		{3.14159, 2, 3.14},
		{3.14159, 4, 3.1416},
		{2.5, 0, 3.0},
		{-1.005, 2, -1.0},
		{100.0, 2, 100.0},
	}

	for _, tt := range tests {
		result := Round(tt.value, tt.decimals)
		if math.Abs(result-tt.expected) > 1e-9 {
			t.Errorf("Round(%f, %d) = %f, expected %f", tt.value, tt.decimals, result, tt.expected)
		}
	}
}
