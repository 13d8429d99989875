package parameters

import "fmt"

// floatValue coerces the numeric types a YAML or JSON document can produce.
func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// floatSlice coerces a list of numbers.
func floatSlice(v any) ([]float64, error) {
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list of numbers, got %T", ErrConfiguration, v)
	}
	out := make([]float64, len(raw))
	for i, item := range raw {
		f, ok := floatValue(item)
		if !ok {
			return nil, fmt.Errorf("%w: list element %d is %T, not a number", ErrConfiguration, i, item)
		}
		out[i] = f
	}
	return out, nil
}

// optionalFloats reads an optional list-of-numbers field.
func optionalFloats(def map[string]any, field string) ([]float64, error) {
	raw, ok := def[field]
	if !ok {
		return nil, nil
	}
	values, err := floatSlice(raw)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	return values, nil
}

// requiredFloat reads a required scalar field.
func requiredFloat(def map[string]any, field string) (float64, error) {
	raw, ok := def[field]
	if !ok {
		return 0, fmt.Errorf("%w: missing field %q", ErrConfiguration, field)
	}
	f, ok := floatValue(raw)
	if !ok {
		return 0, fmt.Errorf("%w: field %q is %T, not a number", ErrConfiguration, field, raw)
	}
	return f, nil
}

// optionalFloat reads an optional scalar field, returning the default when
// the field is absent.
func optionalFloat(def map[string]any, field string, def0 float64) (float64, error) {
	raw, ok := def[field]
	if !ok {
		return def0, nil
	}
	f, ok := floatValue(raw)
	if !ok {
		return 0, fmt.Errorf("%w: field %q is %T, not a number", ErrConfiguration, field, raw)
	}
	return f, nil
}

// optionalString reads an optional string field.
func optionalString(def map[string]any, field string) (string, error) {
	raw, ok := def[field]
	if !ok {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q is %T, not a string", ErrConfiguration, field, raw)
	}
	return s, nil
}

// optionalBool reads an optional bool field.
func optionalBool(def map[string]any, field string) (bool, error) {
	raw, ok := def[field]
	if !ok {
		return false, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("%w: field %q is %T, not a bool", ErrConfiguration, field, raw)
	}
	return b, nil
}
