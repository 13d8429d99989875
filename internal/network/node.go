// Package network models the water network: nodes, directed edges and the
// per-scenario state carried by storage nodes. It owns the Parameter
// interface so node behavior can be driven by values that change with the
// timestep and scenario.
package network

import (
	"fmt"

	"github.com/hydronet-sim/reservoir-core/internal/scenario"
)

// Parameter is anything evaluated once per timestep and scenario index.
// Constants, profiles and control curves all satisfy it.
type Parameter interface {
	Value(ts scenario.Timestep, si scenario.Index) float64
}

// Node is the common surface of all network nodes. Per-scenario flow state is
// allocated by Setup and cleared by Reset before each run.
type Node interface {
	Name() string
	Setup(n int)
	Reset()
	Flow(si scenario.Index) float64
	SetFlow(si scenario.Index, flow float64)
}

// baseNode carries the name and the per-scenario flow of the current
// timestep. All node kinds embed it.
type baseNode struct {
	name string
	flow []float64
}

// Name returns the node name.
func (b *baseNode) Name() string {
	return b.name
}

// Setup allocates per-scenario flow state for n ensemble members.
func (b *baseNode) Setup(n int) {
	b.flow = make([]float64, n)
}

// Reset clears the flow state.
func (b *baseNode) Reset() {
	for i := range b.flow {
		b.flow[i] = 0
	}
}

// Flow returns the flow routed through the node at the current timestep.
func (b *baseNode) Flow(si scenario.Index) float64 {
	return b.flow[si.GlobalID]
}

// SetFlow records the flow routed through the node at the current timestep.
func (b *baseNode) SetFlow(si scenario.Index, flow float64) {
	b.flow[si.GlobalID] = flow
}

// Catchment is a source node: it injects its inflow into the network each
// timestep. Inflow is evaluated per scenario, so stochastic or profiled
// series plug in directly.
type Catchment struct {
	baseNode
	Inflow Parameter
}

// NewCatchment creates a catchment node.
func NewCatchment(name string) *Catchment {
	return &Catchment{baseNode: baseNode{name: name}}
}

// Demand is a sink node drawing water from upstream. MaxFlow is the demand
// rate; Cost is an optional penalty weight recorded alongside deliveries.
type Demand struct {
	baseNode
	MaxFlow   Parameter
	Cost      Parameter
	requested []float64
}

// NewDemand creates a demand node.
func NewDemand(name string) *Demand {
	return &Demand{baseNode: baseNode{name: name}}
}

// Setup allocates per-scenario flow and request state.
func (d *Demand) Setup(n int) {
	d.baseNode.Setup(n)
	d.requested = make([]float64, n)
}

// Reset clears the flow and request state.
func (d *Demand) Reset() {
	d.baseNode.Reset()
	for i := range d.requested {
		d.requested[i] = 0
	}
}

// Requested returns the demand rate evaluated for the current timestep.
func (d *Demand) Requested(si scenario.Index) float64 {
	return d.requested[si.GlobalID]
}

// SetRequested records the demand rate evaluated for the current timestep.
func (d *Demand) SetRequested(si scenario.Index, rate float64) {
	d.requested[si.GlobalID] = rate
}

// Link is a conveyance node. A nil MaxFlow means unconstrained capacity.
type Link struct {
	baseNode
	MaxFlow Parameter
}

// NewLink creates a link node.
func NewLink(name string) *Link {
	return &Link{baseNode: baseNode{name: name}}
}

// Storage is a reservoir node with per-scenario volume state. Cost is
// optional and typically driven by a control curve; it does not affect
// routing but is evaluated and recordable.
type Storage struct {
	baseNode
	MaxVolume     float64
	InitialVolume float64
	Cost          Parameter
	volume        []float64
}

// NewStorage creates a storage node and validates its static bounds.
func NewStorage(name string, maxVolume, initialVolume float64) (*Storage, error) {
	if maxVolume <= 0 {
		return nil, fmt.Errorf("storage %q: max_volume must be positive, got %g", name, maxVolume)
	}
	if initialVolume < 0 || initialVolume > maxVolume {
		return nil, fmt.Errorf("storage %q: initial_volume %g outside [0, %g]",
			name, initialVolume, maxVolume)
	}
	return &Storage{
		baseNode:      baseNode{name: name},
		MaxVolume:     maxVolume,
		InitialVolume: initialVolume,
	}, nil
}

// Setup allocates per-scenario flow and volume state.
func (s *Storage) Setup(n int) {
	s.baseNode.Setup(n)
	s.volume = make([]float64, n)
	for i := range s.volume {
		s.volume[i] = s.InitialVolume
	}
}

// Reset restores the initial volume in every scenario.
func (s *Storage) Reset() {
	s.baseNode.Reset()
	for i := range s.volume {
		s.volume[i] = s.InitialVolume
	}
}

// Volume returns the stored volume for the scenario.
func (s *Storage) Volume(si scenario.Index) float64 {
	return s.volume[si.GlobalID]
}

// CurrentFraction returns the fill fraction, volume divided by capacity.
// Control curves compare against this value.
func (s *Storage) CurrentFraction(si scenario.Index) float64 {
	return s.volume[si.GlobalID] / s.MaxVolume
}

// Commit applies a net volume delta for the scenario, clamping into
// [0, MaxVolume], and returns the spilled volume when the delta overflows
// capacity.
func (s *Storage) Commit(si scenario.Index, delta float64) float64 {
	v := s.volume[si.GlobalID] + delta
	spill := 0.0
	if v > s.MaxVolume {
		spill = v - s.MaxVolume
		v = s.MaxVolume
	}
	if v < 0 {
		v = 0
	}
	s.volume[si.GlobalID] = v
	return spill
}
