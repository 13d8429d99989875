package config

import (
	"fmt"
	"os"
)

// LoadModelFile loads and parses a model document from disk
func LoadModelFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file %s: %w", path, err)
	}
	m, err := ParseModelYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model file %s: %w", path, err)
	}
	return m, nil
}

// validateModelConfig performs structural validation on the model document.
// Parameter definitions are only checked shallowly here; full dispatch
// happens when the model is built.
func validateModelConfig(m *Model) error {
	if err := validateTimestepper(&m.Timestepper); err != nil {
		return fmt.Errorf("timestepper validation failed: %w", err)
	}

	if err := validateScenarios(m.Scenarios); err != nil {
		return fmt.Errorf("scenarios validation failed: %w", err)
	}

	nodeNames, err := validateNodes(m.Nodes)
	if err != nil {
		return fmt.Errorf("nodes validation failed: %w", err)
	}

	if err := validateEdges(m.Edges, nodeNames); err != nil {
		return fmt.Errorf("edges validation failed: %w", err)
	}

	if err := validateParameters(m.Parameters); err != nil {
		return fmt.Errorf("parameters validation failed: %w", err)
	}

	if err := validateRecorders(m.Recorders, nodeNames, m.Parameters); err != nil {
		return fmt.Errorf("recorders validation failed: %w", err)
	}

	return nil
}

// validateTimestepper validates the simulation horizon
func validateTimestepper(t *Timestepper) error {
	start, err := t.GetStart()
	if err != nil {
		return fmt.Errorf("invalid start date %q (must be %s): %w", t.Start, DateLayout, err)
	}
	end, err := t.GetEnd()
	if err != nil {
		return fmt.Errorf("invalid end date %q (must be %s): %w", t.End, DateLayout, err)
	}
	if end.Before(start) {
		return fmt.Errorf("end date %s is before start date %s", t.End, t.Start)
	}
	if t.Days < 1 {
		return fmt.Errorf("days must be positive, got %d", t.Days)
	}
	return nil
}

// validateScenarios validates the scenario dimensions
func validateScenarios(scenarios []Scenario) error {
	names := make(map[string]bool)
	for _, s := range scenarios {
		if s.Name == "" {
			return fmt.Errorf("scenario name cannot be empty")
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate scenario name: %s", s.Name)
		}
		names[s.Name] = true
		if s.Size < 1 {
			return fmt.Errorf("scenario %s: size must be positive, got %d", s.Name, s.Size)
		}
	}
	return nil
}

// validateNodes validates the node declarations and returns the set of names
func validateNodes(nodes []Node) (map[string]bool, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("at least one node must be defined")
	}

	validTypes := map[string]bool{
		"catchment": true,
		"storage":   true,
		"demand":    true,
		"link":      true,
	}

	names := make(map[string]bool)
	for _, n := range nodes {
		if n.Name == "" {
			return nil, fmt.Errorf("node name cannot be empty")
		}
		if names[n.Name] {
			return nil, fmt.Errorf("duplicate node name: %s", n.Name)
		}
		names[n.Name] = true

		if !validTypes[n.Type] {
			return nil, fmt.Errorf("node %s: invalid type %s (must be catchment, storage, demand, or link)", n.Name, n.Type)
		}

		switch n.Type {
		case "catchment":
			if n.Inflow == nil {
				return nil, fmt.Errorf("node %s: catchment requires an inflow", n.Name)
			}
		case "storage":
			if n.MaxVolume <= 0 {
				return nil, fmt.Errorf("node %s: max_volume must be positive, got %f", n.Name, n.MaxVolume)
			}
			if n.InitialVolume < 0 || n.InitialVolume > n.MaxVolume {
				return nil, fmt.Errorf("node %s: initial_volume %f outside [0, %f]", n.Name, n.InitialVolume, n.MaxVolume)
			}
		case "demand":
			if n.MaxFlow == nil {
				return nil, fmt.Errorf("node %s: demand requires a max_flow", n.Name)
			}
		}
	}

	return names, nil
}

// validateEdges validates the edge list against the declared nodes
func validateEdges(edges []Edge, nodeNames map[string]bool) error {
	for i, e := range edges {
		if !nodeNames[e.From] {
			return fmt.Errorf("edge %d: 'from' node %s does not exist", i, e.From)
		}
		if !nodeNames[e.To] {
			return fmt.Errorf("edge %d: 'to' node %s does not exist", i, e.To)
		}
		if e.From == e.To {
			return fmt.Errorf("edge %d: node %s cannot connect to itself", i, e.From)
		}
	}
	return nil
}

// validateParameters checks that every shared parameter definition is a
// mapping with a type key; the parameter registry resolves the rest.
func validateParameters(params map[string]map[string]any) error {
	for name, def := range params {
		if name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if def == nil {
			return fmt.Errorf("parameter %s: definition cannot be empty", name)
		}
		rawType, ok := def["type"]
		if !ok {
			return fmt.Errorf("parameter %s: missing type", name)
		}
		if s, ok := rawType.(string); !ok || s == "" {
			return fmt.Errorf("parameter %s: type must be a non-empty string", name)
		}
	}
	return nil
}

// validateRecorders validates recorder declarations and their references
func validateRecorders(recorders []Recorder, nodeNames map[string]bool, params map[string]map[string]any) error {
	validAggregates := map[string]bool{
		"":       true,
		"mean":   true,
		"min":    true,
		"max":    true,
		"total":  true,
		"median": true,
		"p95":    true,
	}

	names := make(map[string]bool)
	for _, r := range recorders {
		if r.Name == "" {
			return fmt.Errorf("recorder name cannot be empty")
		}
		if names[r.Name] {
			return fmt.Errorf("duplicate recorder name: %s", r.Name)
		}
		names[r.Name] = true

		if r.Type == "" {
			return fmt.Errorf("recorder %s: type cannot be empty", r.Name)
		}
		if r.Node == "" && r.Parameter == "" {
			return fmt.Errorf("recorder %s: requires a node or parameter reference", r.Name)
		}
		if r.Node != "" && !nodeNames[r.Node] {
			return fmt.Errorf("recorder %s: node %s does not exist", r.Name, r.Node)
		}
		if r.Parameter != "" {
			if _, ok := params[r.Parameter]; !ok {
				return fmt.Errorf("recorder %s: parameter %s does not exist", r.Name, r.Parameter)
			}
		}
		if !validAggregates[r.Aggregate] {
			return fmt.Errorf("recorder %s: invalid aggregate %s (must be mean, min, max, total, median, or p95)", r.Name, r.Aggregate)
		}
	}
	return nil
}
