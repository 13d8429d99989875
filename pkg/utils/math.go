package utils

import "math"

// Clamp clamps an integer value between min and max.
func Clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ClampFloat64 clamps a float64 value between min and max.
func ClampFloat64(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Clamp01 clamps a value into [0, 1]. Fill fractions and control-curve
// thresholds live on this interval.
func Clamp01(value float64) float64 {
	return ClampFloat64(value, 0, 1)
}

// Round rounds a float64 to the specified number of decimal places.
func Round(value float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(value*multiplier) / multiplier
}
