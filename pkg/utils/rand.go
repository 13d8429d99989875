package utils

import (
	"math/rand"
	"time"
)

// RandSource is a seeded random number generator. A zero seed picks the
// current time, everything else is reproducible.
type RandSource struct {
	rng *rand.Rand
}

// NewRandSource creates a new random source with the given seed.
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Float64 returns a random float64 in [0.0, 1.0).
func (r *RandSource) Float64() float64 {
	return r.rng.Float64()
}

// Intn returns a random int in [0, n).
func (r *RandSource) Intn(n int) int {
	return r.rng.Intn(n)
}

// NormFloat64 returns a normally distributed random number with mean and stddev.
func (r *RandSource) NormFloat64(mean, stddev float64) float64 {
	return r.rng.NormFloat64()*stddev + mean
}

// UniformFloat64 returns a uniformly distributed random number in [min, max).
func (r *RandSource) UniformFloat64(min, max float64) float64 {
	return min + r.rng.Float64()*(max-min)
}

// Global default random source
var defaultRand = NewRandSource(0)

// SetSeed sets the seed for the default random source.
func SetSeed(seed int64) {
	defaultRand = NewRandSource(seed)
}

// Float64 returns a random float64 from the default source.
func Float64() float64 {
	return defaultRand.Float64()
}

// Intn returns a random int from the default source.
func Intn(n int) int {
	return defaultRand.Intn(n)
}
