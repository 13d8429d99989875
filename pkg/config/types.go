package config

import "time"

// DateLayout is the calendar date format used in model documents.
const DateLayout = "2006-01-02"

// Model represents a complete simulation model document
type Model struct {
	Metadata    Metadata                  `yaml:"metadata,omitempty"`
	Timestepper Timestepper               `yaml:"timestepper"`
	Scenarios   []Scenario                `yaml:"scenarios,omitempty"`
	Nodes       []Node                    `yaml:"nodes"`
	Edges       []Edge                    `yaml:"edges,omitempty"`
	Parameters  map[string]map[string]any `yaml:"parameters,omitempty"`
	Recorders   []Recorder                `yaml:"recorders,omitempty"`
}

// Metadata carries descriptive fields that do not affect the run
type Metadata struct {
	Title       string `yaml:"title,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Timestepper defines the simulation horizon as calendar dates
type Timestepper struct {
	Start string `yaml:"start"` // e.g. 2020-01-01
	End   string `yaml:"end"`
	Days  int    `yaml:"days,omitempty"` // timestep length, defaults to 1
}

// Scenario declares one scenario dimension; the run covers the
// cross product of all declared dimensions.
type Scenario struct {
	Name string `yaml:"name"`
	Size int    `yaml:"size"`
}

// Node declares a network node. Inflow, MaxFlow and Cost accept a
// plain number, the name of a shared parameter, or an inline parameter
// definition; they are resolved when the model is built.
type Node struct {
	Name          string  `yaml:"name"`
	Type          string  `yaml:"type"` // catchment, storage, demand, link
	Inflow        any     `yaml:"inflow,omitempty"`
	MaxFlow       any     `yaml:"max_flow,omitempty"`
	Cost          any     `yaml:"cost,omitempty"`
	MaxVolume     float64 `yaml:"max_volume,omitempty"`
	InitialVolume float64 `yaml:"initial_volume,omitempty"`
}

// Edge represents a directed connection between two nodes
type Edge struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Recorder declares an observation of a node or parameter
type Recorder struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`                // storage_volume, storage_fraction, node_flow, deficit, parameter_value
	Node      string `yaml:"node,omitempty"`      // referenced network node
	Parameter string `yaml:"parameter,omitempty"` // referenced shared parameter
	Aggregate string `yaml:"aggregate,omitempty"` // mean, min, max, total, median, p95
}

// GetStart parses the start date
func (t *Timestepper) GetStart() (time.Time, error) {
	return time.Parse(DateLayout, t.Start)
}

// GetEnd parses the end date
func (t *Timestepper) GetEnd() (time.Time, error) {
	return time.Parse(DateLayout, t.End)
}
