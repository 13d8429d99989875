package parameters

import (
	"fmt"

	"github.com/hydronet-sim/reservoir-core/internal/network"
	"github.com/hydronet-sim/reservoir-core/internal/scenario"
)

func init() {
	Register("constant", loadConstant)
}

// Constant is a fixed scalar, the same for every timestep and scenario. With
// bounds set it doubles as a single-coordinate calibration variable.
type Constant struct {
	value    float64
	lower    []float64
	upper    []float64
	variable bool
}

// NewConstant creates a constant parameter.
func NewConstant(value float64) *Constant {
	return &Constant{value: value}
}

// Value returns the constant.
func (p *Constant) Value(ts scenario.Timestep, si scenario.Index) float64 {
	return p.value
}

// SetBounds configures the calibration range and marks the constant variable.
func (p *Constant) SetBounds(lower, upper float64) error {
	if lower > upper {
		return fmt.Errorf("%w: lower bound %g above upper bound %g", ErrConfiguration, lower, upper)
	}
	p.lower = []float64{lower}
	p.upper = []float64{upper}
	p.variable = true
	return nil
}

// IsVariable reports whether the constant takes part in calibration.
func (p *Constant) IsVariable() bool {
	return p.variable
}

// ParamValues returns the current value as a one-element coordinate vector.
func (p *Constant) ParamValues() []float64 {
	return []float64{p.value}
}

// Update replaces the value from a one-element coordinate vector.
func (p *Constant) Update(values []float64) error {
	if len(values) != 1 {
		return fmt.Errorf("%w: constant takes exactly 1 value, got %d", ErrConfiguration, len(values))
	}
	p.value = values[0]
	return nil
}

// LowerBounds returns the calibration lower bounds, nil when unbounded.
func (p *Constant) LowerBounds() []float64 {
	return p.lower
}

// UpperBounds returns the calibration upper bounds, nil when unbounded.
func (p *Constant) UpperBounds() []float64 {
	return p.upper
}

func loadConstant(r Resolver, def map[string]any) (network.Parameter, error) {
	value, err := requiredFloat(def, "value")
	if err != nil {
		return nil, err
	}
	p := NewConstant(value)

	lower, err := optionalFloats(def, "lower_bounds")
	if err != nil {
		return nil, err
	}
	upper, err := optionalFloats(def, "upper_bounds")
	if err != nil {
		return nil, err
	}
	if (lower == nil) != (upper == nil) {
		return nil, fmt.Errorf("%w: lower_bounds and upper_bounds must be set together", ErrConfiguration)
	}
	if lower != nil {
		if len(lower) != 1 || len(upper) != 1 {
			return nil, fmt.Errorf("%w: constant bounds take exactly 1 value", ErrConfiguration)
		}
		if err := p.SetBounds(lower[0], upper[0]); err != nil {
			return nil, err
		}
	}

	variable, err := optionalBool(def, "is_variable")
	if err != nil {
		return nil, err
	}
	if variable {
		if p.lower == nil {
			return nil, fmt.Errorf("%w: is_variable requires bounds", ErrConfiguration)
		}
		p.variable = true
	}
	return p, nil
}
