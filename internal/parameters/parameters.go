// Package parameters implements the parameter types evaluated by a model run:
// constants, calendar profiles, stochastic inflow series, aggregations and the
// control-curve family driven by reservoir fill fractions.
//
// Parameters are built either directly through their constructors or from
// declarative definitions dispatched through the type registry. Construction
// and loading validate structure and return errors; evaluation never fails.
// Misuse that can only arise from a programming error, such as evaluating a
// control curve that was never bound to a storage node, panics.
package parameters

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hydronet-sim/reservoir-core/internal/network"
)

var (
	// ErrConfiguration is returned when a parameter definition is
	// structurally invalid: wrong lengths, mutually exclusive fields both
	// set, bounds without values.
	ErrConfiguration = errors.New("invalid parameter configuration")

	// ErrUnknownType is returned when a definition names a type key that
	// was never registered.
	ErrUnknownType = errors.New("unknown parameter type")

	// ErrNotVariable is returned when Update or bounds are requested from a
	// parameter that does not expose a calibration surface.
	ErrNotVariable = errors.New("parameter is not a variable")
)

// Resolver supplies the model context loaders need: storage nodes referenced
// by name and named parameter definitions resolved elsewhere in the document.
type Resolver interface {
	// StorageByName resolves a storage node reference.
	StorageByName(name string) (*network.Storage, error)
	// NamedParameter resolves a reference to a parameter defined under its
	// own name in the model document, loading it on first use.
	NamedParameter(name string) (network.Parameter, error)
}

// Binder is implemented by parameters that resolve their storage node during
// model assembly. Bind receives the node the parameter is attached to and is
// called exactly once, after construction and before the first evaluation.
type Binder interface {
	Bind(owner network.Node) error
}

// Stateful is implemented by parameters carrying per-scenario state. Setup is
// called once with the ensemble size before a run, Reset before every run.
type Stateful interface {
	Setup(n int)
	Reset()
}

// LoadFunc builds a parameter from a raw definition.
type LoadFunc func(r Resolver, def map[string]any) (network.Parameter, error)

var registry = make(map[string]LoadFunc)

// Register makes a parameter type loadable under the given key. The key is
// matched case-insensitively. Registering the same key twice panics; types
// register from init so a duplicate is always a programming error.
func Register(typeKey string, fn LoadFunc) {
	key := strings.ToLower(typeKey)
	if _, dup := registry[key]; dup {
		panic(fmt.Sprintf("parameters: Register called twice for type %q", key))
	}
	if fn == nil {
		panic(fmt.Sprintf("parameters: Register called with nil loader for type %q", key))
	}
	registry[key] = fn
}

// Load dispatches a definition to the loader registered for its type key.
func Load(r Resolver, def map[string]any) (network.Parameter, error) {
	rawType, ok := def["type"]
	if !ok {
		return nil, fmt.Errorf("%w: definition has no type", ErrConfiguration)
	}
	typeKey, ok := rawType.(string)
	if !ok || typeKey == "" {
		return nil, fmt.Errorf("%w: type must be a non-empty string", ErrConfiguration)
	}

	fn, ok := registry[strings.ToLower(typeKey)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeKey)
	}
	p, err := fn(r, def)
	if err != nil {
		return nil, fmt.Errorf("loading %q parameter: %w", strings.ToLower(typeKey), err)
	}
	return p, nil
}

// LoadValue builds a parameter from any of the value forms a definition
// accepts: a bare number becomes a constant, a string resolves a named
// parameter, and a map dispatches through Load.
func LoadValue(r Resolver, v any) (network.Parameter, error) {
	switch value := v.(type) {
	case string:
		return r.NamedParameter(value)
	case map[string]any:
		return Load(r, value)
	default:
		f, ok := floatValue(v)
		if !ok {
			return nil, fmt.Errorf("%w: cannot build a parameter from %T", ErrConfiguration, v)
		}
		return NewConstant(f), nil
	}
}

// bindChildren propagates Bind to nested parameters so composites resolve
// their storage references no matter how deeply they sit.
func bindChildren(owner network.Node, children ...network.Parameter) error {
	for _, child := range children {
		if child == nil {
			continue
		}
		if b, ok := child.(Binder); ok {
			if err := b.Bind(owner); err != nil {
				return err
			}
		}
	}
	return nil
}
