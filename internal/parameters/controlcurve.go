package parameters

import (
	"fmt"

	"github.com/hydronet-sim/reservoir-core/internal/network"
	"github.com/hydronet-sim/reservoir-core/internal/scenario"
)

func init() {
	Register("controlcurve", loadControlCurve)
}

// controlCurveBase carries what every control-curve parameter shares: the
// descending curve thresholds, themselves parameters, and the storage node
// whose fill fraction is compared against them. The storage node is either
// set explicitly or resolved from the owning node at Bind time.
type controlCurveBase struct {
	curves []network.Parameter
	node   *network.Storage
}

func newControlCurveBase(curves []network.Parameter, storage *network.Storage) (controlCurveBase, error) {
	if len(curves) == 0 {
		return controlCurveBase{}, fmt.Errorf("%w: at least one control curve required", ErrConfiguration)
	}
	return controlCurveBase{curves: curves, node: storage}, nil
}

// Bind resolves the storage node from the owner when none was set
// explicitly. The owner must then be a storage node.
func (b *controlCurveBase) Bind(owner network.Node) error {
	if err := bindChildren(owner, b.curves...); err != nil {
		return err
	}
	if b.node != nil {
		return nil
	}
	storage, ok := owner.(*network.Storage)
	if !ok {
		return fmt.Errorf("%w: control curve on node %q needs a storage_node reference, the node is not a storage",
			ErrConfiguration, owner.Name())
	}
	b.node = storage
	return nil
}

// fraction returns the fill fraction the curves are compared against.
// Evaluating before Bind is a programming error.
func (b *controlCurveBase) fraction(si scenario.Index) float64 {
	if b.node == nil {
		panic("control curve: no storage node bound; call Bind or set storage_node")
	}
	return b.node.CurrentFraction(si)
}

// ControlCurve is the banded control-curve parameter. N descending curves
// partition the fill fraction axis into N+1 bands; the band the current fill
// falls in selects the output. Outputs are either fixed values or nested
// parameters, never both. In value mode the bands double as a calibration
// variable.
type ControlCurve struct {
	controlCurveBase
	values   []float64
	params   []network.Parameter
	lower    []float64
	upper    []float64
	variable bool
}

// ControlCurveConfig collects the construction arguments of a ControlCurve.
type ControlCurveConfig struct {
	// Curves are the descending thresholds, at least one.
	Curves []network.Parameter
	// StorageNode optionally fixes the node to watch; otherwise Bind
	// resolves it from the owner.
	StorageNode *network.Storage
	// Values are the per-band outputs, length len(Curves)+1. Mutually
	// exclusive with Parameters. With neither set the band index is the
	// output: 0, 1, ..., N.
	Values []float64
	// Parameters are per-band nested parameters, length len(Curves)+1.
	Parameters []network.Parameter
	// LowerBounds and UpperBounds optionally bound each band value for
	// calibration. Only valid in value mode, length len(Curves)+1.
	LowerBounds []float64
	UpperBounds []float64
	// Variable marks the parameter as a calibration variable.
	Variable bool
}

// NewControlCurve creates a banded control-curve parameter.
func NewControlCurve(cfg ControlCurveConfig) (*ControlCurve, error) {
	base, err := newControlCurveBase(cfg.Curves, cfg.StorageNode)
	if err != nil {
		return nil, err
	}
	nbands := len(cfg.Curves) + 1

	p := &ControlCurve{controlCurveBase: base, variable: cfg.Variable}

	switch {
	case cfg.Values != nil && cfg.Parameters != nil:
		return nil, fmt.Errorf("%w: values and parameters are mutually exclusive", ErrConfiguration)
	case cfg.Values != nil:
		if len(cfg.Values) != nbands {
			return nil, fmt.Errorf("%w: %d control curves need %d values, got %d",
				ErrConfiguration, len(cfg.Curves), nbands, len(cfg.Values))
		}
		p.values = make([]float64, nbands)
		copy(p.values, cfg.Values)
	case cfg.Parameters != nil:
		if len(cfg.Parameters) != nbands {
			return nil, fmt.Errorf("%w: %d control curves need %d parameters, got %d",
				ErrConfiguration, len(cfg.Curves), nbands, len(cfg.Parameters))
		}
		p.params = cfg.Parameters
	default:
		// Band index as output.
		p.values = make([]float64, nbands)
		for i := range p.values {
			p.values[i] = float64(i)
		}
	}

	for _, bounds := range []struct {
		name   string
		values []float64
	}{
		{"lower_bounds", cfg.LowerBounds},
		{"upper_bounds", cfg.UpperBounds},
	} {
		if bounds.values == nil {
			continue
		}
		if p.params != nil {
			return nil, fmt.Errorf("%w: %s require values, not nested parameters",
				ErrConfiguration, bounds.name)
		}
		if len(bounds.values) != nbands {
			return nil, fmt.Errorf("%w: %s needs %d values, got %d",
				ErrConfiguration, bounds.name, nbands, len(bounds.values))
		}
	}
	if cfg.LowerBounds != nil {
		p.lower = make([]float64, nbands)
		copy(p.lower, cfg.LowerBounds)
	}
	if cfg.UpperBounds != nil {
		p.upper = make([]float64, nbands)
		copy(p.upper, cfg.UpperBounds)
	}

	return p, nil
}

// Bind resolves the storage node and propagates to nested band parameters.
func (p *ControlCurve) Bind(owner network.Node) error {
	if err := p.controlCurveBase.Bind(owner); err != nil {
		return err
	}
	return bindChildren(owner, p.params...)
}

// Value selects the band the current fill fraction falls in. Curves are
// scanned in order; the first curve at or below the fill selects its band,
// and a fill below every curve lands in the last band.
func (p *ControlCurve) Value(ts scenario.Timestep, si scenario.Index) float64 {
	f := p.fraction(si)
	for j, curve := range p.curves {
		if f >= curve.Value(ts, si) {
			return p.output(j, ts, si)
		}
	}
	return p.output(len(p.curves), ts, si)
}

func (p *ControlCurve) output(band int, ts scenario.Timestep, si scenario.Index) float64 {
	if p.params != nil {
		return p.params[band].Value(ts, si)
	}
	return p.values[band]
}

// IsVariable reports whether the parameter takes part in calibration.
func (p *ControlCurve) IsVariable() bool {
	return p.variable
}

// ParamValues returns a copy of the band values. Nested-mode parameters have
// no value vector and return nil.
func (p *ControlCurve) ParamValues() []float64 {
	if p.values == nil {
		return nil
	}
	out := make([]float64, len(p.values))
	copy(out, p.values)
	return out
}

// Update replaces the band values. Only value-mode parameters can update.
func (p *ControlCurve) Update(values []float64) error {
	if p.values == nil {
		return fmt.Errorf("%w: control curve outputs nested parameters", ErrNotVariable)
	}
	if len(values) != len(p.values) {
		return fmt.Errorf("%w: update needs %d values, got %d",
			ErrConfiguration, len(p.values), len(values))
	}
	copy(p.values, values)
	return nil
}

// LowerBounds returns the per-band calibration lower bounds, nil when unset.
func (p *ControlCurve) LowerBounds() []float64 {
	return p.lower
}

// UpperBounds returns the per-band calibration upper bounds, nil when unset.
func (p *ControlCurve) UpperBounds() []float64 {
	return p.upper
}

// loadControlCurveBase reads the fields shared by the control-curve family:
// a single curve under control_curve or a list under control_curves, and an
// optional storage_node reference.
func loadControlCurveBase(r Resolver, def map[string]any) ([]network.Parameter, *network.Storage, error) {
	var rawCurves []any
	if raw, ok := def["control_curves"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return nil, nil, fmt.Errorf("%w: control_curves must be a list", ErrConfiguration)
		}
		rawCurves = list
	} else if raw, ok := def["control_curve"]; ok {
		rawCurves = []any{raw}
	} else {
		return nil, nil, fmt.Errorf("%w: control_curve or control_curves required", ErrConfiguration)
	}

	curves := make([]network.Parameter, 0, len(rawCurves))
	for i, rawCurve := range rawCurves {
		curve, err := LoadValue(r, rawCurve)
		if err != nil {
			return nil, nil, fmt.Errorf("control curve %d: %w", i, err)
		}
		curves = append(curves, curve)
	}

	var storage *network.Storage
	name, err := optionalString(def, "storage_node")
	if err != nil {
		return nil, nil, err
	}
	if name != "" {
		storage, err = r.StorageByName(name)
		if err != nil {
			return nil, nil, err
		}
	}
	return curves, storage, nil
}

func loadControlCurve(r Resolver, def map[string]any) (network.Parameter, error) {
	curves, storage, err := loadControlCurveBase(r, def)
	if err != nil {
		return nil, err
	}

	cfg := ControlCurveConfig{Curves: curves, StorageNode: storage}

	if cfg.Values, err = optionalFloats(def, "values"); err != nil {
		return nil, err
	}
	if raw, ok := def["parameters"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: field %q must be a list", ErrConfiguration, "parameters")
		}
		for i, childDef := range list {
			child, err := LoadValue(r, childDef)
			if err != nil {
				return nil, fmt.Errorf("band parameter %d: %w", i, err)
			}
			cfg.Parameters = append(cfg.Parameters, child)
		}
	}

	if cfg.LowerBounds, err = optionalFloats(def, "lower_bounds"); err != nil {
		return nil, err
	}
	if cfg.UpperBounds, err = optionalFloats(def, "upper_bounds"); err != nil {
		return nil, err
	}
	if cfg.Variable, err = optionalBool(def, "is_variable"); err != nil {
		return nil, err
	}

	return NewControlCurve(cfg)
}
