package parameters

import (
	"fmt"
	"math"

	"github.com/hydronet-sim/reservoir-core/internal/network"
	"github.com/hydronet-sim/reservoir-core/internal/scenario"
)

func init() {
	Register("aggregated", loadAggregated)
}

// aggFunc combines child parameter values into one.
type aggFunc func(values []float64) float64

var aggFuncs = map[string]aggFunc{
	"sum": func(values []float64) float64 {
		total := 0.0
		for _, v := range values {
			total += v
		}
		return total
	},
	"product": func(values []float64) float64 {
		total := 1.0
		for _, v := range values {
			total *= v
		}
		return total
	},
	"min": func(values []float64) float64 {
		lowest := math.Inf(1)
		for _, v := range values {
			lowest = math.Min(lowest, v)
		}
		return lowest
	},
	"max": func(values []float64) float64 {
		highest := math.Inf(-1)
		for _, v := range values {
			highest = math.Max(highest, v)
		}
		return highest
	},
	"mean": func(values []float64) float64 {
		total := 0.0
		for _, v := range values {
			total += v
		}
		return total / float64(len(values))
	},
}

// Aggregated combines the values of child parameters with an aggregation
// function. Children may be any parameter kind, control curves included.
type Aggregated struct {
	params []network.Parameter
	agg    aggFunc
	aggKey string
}

// NewAggregated creates an aggregated parameter. Supported functions are
// sum, product, min, max and mean.
func NewAggregated(aggKey string, params []network.Parameter) (*Aggregated, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: aggregated parameter needs at least one child", ErrConfiguration)
	}
	fn, ok := aggFuncs[aggKey]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported agg_func %q", ErrConfiguration, aggKey)
	}
	return &Aggregated{params: params, agg: fn, aggKey: aggKey}, nil
}

// Value evaluates every child and aggregates.
func (p *Aggregated) Value(ts scenario.Timestep, si scenario.Index) float64 {
	values := make([]float64, len(p.params))
	for i, child := range p.params {
		values[i] = child.Value(ts, si)
	}
	return p.agg(values)
}

// Bind propagates the owner node to children that need one.
func (p *Aggregated) Bind(owner network.Node) error {
	return bindChildren(owner, p.params...)
}

// Setup forwards per-run allocation to stateful children.
func (p *Aggregated) Setup(n int) {
	for _, child := range p.params {
		if sp, ok := child.(Stateful); ok {
			sp.Setup(n)
		}
	}
}

// Reset forwards state clearing to stateful children.
func (p *Aggregated) Reset() {
	for _, child := range p.params {
		if sp, ok := child.(Stateful); ok {
			sp.Reset()
		}
	}
}

func loadAggregated(r Resolver, def map[string]any) (network.Parameter, error) {
	aggKey, err := optionalString(def, "agg_func")
	if err != nil {
		return nil, err
	}
	if aggKey == "" {
		aggKey = "sum"
	}

	raw, ok := def["parameters"]
	if !ok {
		return nil, fmt.Errorf("%w: missing field %q", ErrConfiguration, "parameters")
	}
	children, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: field %q must be a list", ErrConfiguration, "parameters")
	}

	params := make([]network.Parameter, 0, len(children))
	for i, childDef := range children {
		child, err := LoadValue(r, childDef)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		params = append(params, child)
	}
	return NewAggregated(aggKey, params)
}
