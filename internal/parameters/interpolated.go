package parameters

import (
	"fmt"

	"github.com/hydronet-sim/reservoir-core/internal/network"
	"github.com/hydronet-sim/reservoir-core/internal/scenario"
	"github.com/hydronet-sim/reservoir-core/pkg/utils"
)

func init() {
	Register("controlcurveinterpolated", loadControlCurveInterpolated)
}

// ControlCurveInterpolated interpolates linearly between values pinned to
// fill-fraction breakpoints. N curves define N+2 breakpoints: full (1.0), the
// curves in descending order, empty (0.0). A curve sitting exactly on its
// neighbor collapses that segment to the lower value.
//
// Unlike the banded ControlCurve this parameter is not a calibration
// variable.
type ControlCurveInterpolated struct {
	controlCurveBase
	values []float64
}

// NewControlCurveInterpolated creates an interpolated control-curve
// parameter. values must hold len(curves)+2 entries, one per breakpoint from
// full to empty.
func NewControlCurveInterpolated(curves []network.Parameter, values []float64, storage *network.Storage) (*ControlCurveInterpolated, error) {
	base, err := newControlCurveBase(curves, storage)
	if err != nil {
		return nil, err
	}
	if len(values) != len(curves)+2 {
		return nil, fmt.Errorf("%w: %d control curves need %d values, got %d",
			ErrConfiguration, len(curves), len(curves)+2, len(values))
	}
	p := &ControlCurveInterpolated{controlCurveBase: base}
	p.values = make([]float64, len(values))
	copy(p.values, values)
	return p, nil
}

// Value interpolates the current fill fraction over the breakpoints. The
// fill is clamped into [0, 1] first so the result always lies within the
// configured values.
func (p *ControlCurveInterpolated) Value(ts scenario.Timestep, si scenario.Index) float64 {
	f := utils.Clamp01(p.fraction(si))

	ccPrev := 1.0
	for j, curve := range p.curves {
		cc := curve.Value(ts, si)
		if f >= cc {
			if ccPrev == cc {
				return p.values[j+1]
			}
			weight := (f - cc) / (ccPrev - cc)
			return p.values[j]*weight + p.values[j+1]*(1-weight)
		}
		ccPrev = cc
	}

	// Below every curve: interpolate towards empty.
	n := len(p.values)
	if ccPrev == 0 {
		return p.values[n-1]
	}
	weight := f / ccPrev
	return p.values[n-2]*weight + p.values[n-1]*(1-weight)
}

func loadControlCurveInterpolated(r Resolver, def map[string]any) (network.Parameter, error) {
	curves, storage, err := loadControlCurveBase(r, def)
	if err != nil {
		return nil, err
	}
	values, err := optionalFloats(def, "values")
	if err != nil {
		return nil, err
	}
	if values == nil {
		return nil, fmt.Errorf("%w: missing field %q", ErrConfiguration, "values")
	}
	return NewControlCurveInterpolated(curves, values, storage)
}
