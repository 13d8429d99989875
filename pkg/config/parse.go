package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseModelYAML parses a Model from YAML bytes and validates it.
// This is used for APIs where the model is provided as payload (not via filesystem).
func ParseModelYAML(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model yaml: %w", err)
	}

	applyDefaults(&m)

	if err := validateModelConfig(&m); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}

	return &m, nil
}

// ParseModelYAMLString parses a Model from a YAML string and validates it.
func ParseModelYAMLString(yamlText string) (*Model, error) {
	return ParseModelYAML([]byte(yamlText))
}

// applyDefaults fills in omitted fields and normalizes type keys so
// the rest of the system can match on lowercase names.
func applyDefaults(m *Model) {
	if m.Timestepper.Days == 0 {
		m.Timestepper.Days = 1
	}
	for i := range m.Nodes {
		m.Nodes[i].Type = strings.ToLower(m.Nodes[i].Type)
	}
	for i := range m.Recorders {
		m.Recorders[i].Type = strings.ToLower(m.Recorders[i].Type)
		m.Recorders[i].Aggregate = strings.ToLower(m.Recorders[i].Aggregate)
	}
}
