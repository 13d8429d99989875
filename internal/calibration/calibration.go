// Package calibration searches for variable parameter values that optimize
// a recorder objective over repeated model runs.
package calibration

import (
	"errors"
	"fmt"

	"github.com/hydronet-sim/reservoir-core/internal/engine"
)

// ErrNoVariables is returned when a model declares no variable parameters.
var ErrNoVariables = errors.New("no variable parameters")

// Variable is the calibration surface of a parameter: a flat coordinate
// vector with optional per-coordinate bounds. Value-mode control curves and
// bounded constants implement it.
type Variable interface {
	IsVariable() bool
	ParamValues() []float64
	Update(values []float64) error
	LowerBounds() []float64
	UpperBounds() []float64
}

// Variables collects the model's variable parameters in load order. Only
// named parameters can be variables; inline definitions have no handle to
// update between runs.
func Variables(m *engine.Model) []Variable {
	var vars []Variable
	for _, p := range m.Parameters() {
		v, ok := p.(Variable)
		if !ok || !v.IsVariable() {
			continue
		}
		vars = append(vars, v)
	}
	return vars
}

// snapshot copies the current coordinate vectors of every variable.
func snapshot(vars []Variable) [][]float64 {
	out := make([][]float64, len(vars))
	for i, v := range vars {
		out[i] = v.ParamValues()
	}
	return out
}

// apply writes coordinate vectors back onto the variables.
func apply(vars []Variable, values [][]float64) error {
	for i, v := range vars {
		if err := v.Update(values[i]); err != nil {
			return fmt.Errorf("updating variable %d: %w", i, err)
		}
	}
	return nil
}

// cloneValues deep-copies a set of coordinate vectors.
func cloneValues(values [][]float64) [][]float64 {
	out := make([][]float64, len(values))
	for i, row := range values {
		out[i] = make([]float64, len(row))
		copy(out[i], row)
	}
	return out
}
