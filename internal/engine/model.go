// Package engine assembles a model from its document form and executes
// simulation runs over the scenario ensemble.
package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/hydronet-sim/reservoir-core/internal/network"
	"github.com/hydronet-sim/reservoir-core/internal/parameters"
	"github.com/hydronet-sim/reservoir-core/internal/recorders"
	"github.com/hydronet-sim/reservoir-core/internal/scenario"
	"github.com/hydronet-sim/reservoir-core/pkg/config"
	"github.com/hydronet-sim/reservoir-core/pkg/logger"
)

// Model is a fully assembled simulation: the network, the scenario
// ensemble, the time axis, shared parameters and recorders. A model is
// built once and can be run repeatedly; each run starts from the
// initial state. A model must not be used from multiple goroutines.
type Model struct {
	network     *network.Network
	scenarios   *scenario.Collection
	timestepper *scenario.Timestepper
	recorders   []recorders.Recorder
	logger      *slog.Logger

	params     map[string]network.Parameter
	paramOrder []string

	// rawParams and building drive lazy named-parameter resolution
	// while the model is assembled.
	rawParams map[string]map[string]any
	building  map[string]bool

	// route is the topological routing order; storageDemands maps each
	// storage to the demand nodes it releases for.
	route          []network.Node
	storageDemands map[string][]*network.Demand
}

// Build assembles a model from a validated document
func Build(cfg *config.Model) (*Model, error) {
	m := &Model{
		network:   network.New(),
		logger:    logger.Default,
		params:    make(map[string]network.Parameter),
		rawParams: cfg.Parameters,
		building:  make(map[string]bool),
	}

	coll := scenario.NewCollection()
	for _, sc := range cfg.Scenarios {
		if err := coll.Add(sc.Name, sc.Size); err != nil {
			return nil, fmt.Errorf("building scenarios: %w", err)
		}
	}
	m.scenarios = coll

	start, err := cfg.Timestepper.GetStart()
	if err != nil {
		return nil, fmt.Errorf("building timestepper: %w", err)
	}
	end, err := cfg.Timestepper.GetEnd()
	if err != nil {
		return nil, fmt.Errorf("building timestepper: %w", err)
	}
	stepper, err := scenario.NewTimestepper(start, end, cfg.Timestepper.Days)
	if err != nil {
		return nil, fmt.Errorf("building timestepper: %w", err)
	}
	m.timestepper = stepper

	// Nodes are registered before any parameter is resolved so that
	// storage_node references work regardless of declaration order.
	for _, nc := range cfg.Nodes {
		node, err := newNode(nc)
		if err != nil {
			return nil, err
		}
		if err := m.network.AddNode(node); err != nil {
			return nil, fmt.Errorf("building nodes: %w", err)
		}
	}
	for _, nc := range cfg.Nodes {
		if err := m.resolveNodeParameters(nc); err != nil {
			return nil, fmt.Errorf("node %q: %w", nc.Name, err)
		}
	}

	for _, ec := range cfg.Edges {
		if err := m.network.AddEdge(ec.From, ec.To); err != nil {
			return nil, fmt.Errorf("building edges: %w", err)
		}
	}
	if err := m.network.Validate(); err != nil {
		return nil, err
	}

	// Shared parameters not referenced by any node still load, so
	// recorders and calibration can reach them. Sorted for determinism.
	names := make([]string, 0, len(cfg.Parameters))
	for name := range cfg.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := m.NamedParameter(name); err != nil {
			return nil, err
		}
	}

	if err := m.bind(); err != nil {
		return nil, err
	}

	order, err := m.network.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	m.route = make([]network.Node, len(order))
	for i, name := range order {
		m.route[i], _ = m.network.NodeByName(name)
	}

	m.storageDemands = make(map[string][]*network.Demand)
	for _, s := range m.network.Storages() {
		m.storageDemands[s.Name()] = m.findDownstreamDemands(s)
	}

	for _, rc := range cfg.Recorders {
		rec, err := recorders.Load(m, rc)
		if err != nil {
			return nil, err
		}
		m.recorders = append(m.recorders, rec)
	}

	return m, nil
}

// SetLogger sets the model's logger
func (m *Model) SetLogger(l *slog.Logger) {
	m.logger = l
}

// Network returns the assembled node graph
func (m *Model) Network() *network.Network {
	return m.network
}

// Scenarios returns the scenario collection
func (m *Model) Scenarios() *scenario.Collection {
	return m.scenarios
}

// Timestepper returns the run's time axis
func (m *Model) Timestepper() *scenario.Timestepper {
	return m.timestepper
}

// Recorders returns the model's recorders in declaration order
func (m *Model) Recorders() []recorders.Recorder {
	return m.recorders
}

// RecorderByName returns the named recorder
func (m *Model) RecorderByName(name string) (recorders.Recorder, error) {
	for _, r := range m.recorders {
		if r.Name() == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("unknown recorder %q", name)
}

// Parameters returns the shared parameters in load order
func (m *Model) Parameters() []network.Parameter {
	out := make([]network.Parameter, len(m.paramOrder))
	for i, name := range m.paramOrder {
		out[i] = m.params[name]
	}
	return out
}

// NamedParameter resolves a shared parameter, loading it from its raw
// definition on first use. Cyclic references fail instead of recursing.
func (m *Model) NamedParameter(name string) (network.Parameter, error) {
	if p, ok := m.params[name]; ok {
		return p, nil
	}
	def, ok := m.rawParams[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown parameter %q", parameters.ErrConfiguration, name)
	}
	if m.building[name] {
		return nil, fmt.Errorf("%w: circular reference through parameter %q", parameters.ErrConfiguration, name)
	}
	m.building[name] = true
	defer delete(m.building, name)

	p, err := parameters.Load(m, def)
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", name, err)
	}
	m.params[name] = p
	m.paramOrder = append(m.paramOrder, name)
	return p, nil
}

// StorageByName resolves a storage node reference
func (m *Model) StorageByName(name string) (*network.Storage, error) {
	return m.network.StorageByName(name)
}

// NodeByName resolves a node reference
func (m *Model) NodeByName(name string) (network.Node, error) {
	return m.network.NodeByName(name)
}

// newNode creates the typed node a declaration describes
func newNode(nc config.Node) (network.Node, error) {
	switch nc.Type {
	case "catchment":
		return network.NewCatchment(nc.Name), nil
	case "demand":
		return network.NewDemand(nc.Name), nil
	case "link":
		return network.NewLink(nc.Name), nil
	case "storage":
		return network.NewStorage(nc.Name, nc.MaxVolume, nc.InitialVolume)
	default:
		return nil, fmt.Errorf("node %q: unknown type %q", nc.Name, nc.Type)
	}
}

// resolveNodeParameters attaches the parameter fields of one node
// declaration, dispatching numbers, references and inline definitions.
func (m *Model) resolveNodeParameters(nc config.Node) error {
	node, err := m.network.NodeByName(nc.Name)
	if err != nil {
		return err
	}

	switch n := node.(type) {
	case *network.Catchment:
		if n.Inflow, err = parameters.LoadValue(m, nc.Inflow); err != nil {
			return fmt.Errorf("inflow: %w", err)
		}
	case *network.Demand:
		if n.MaxFlow, err = parameters.LoadValue(m, nc.MaxFlow); err != nil {
			return fmt.Errorf("max_flow: %w", err)
		}
		if nc.Cost != nil {
			if n.Cost, err = parameters.LoadValue(m, nc.Cost); err != nil {
				return fmt.Errorf("cost: %w", err)
			}
		}
	case *network.Link:
		if nc.MaxFlow != nil {
			if n.MaxFlow, err = parameters.LoadValue(m, nc.MaxFlow); err != nil {
				return fmt.Errorf("max_flow: %w", err)
			}
		}
	case *network.Storage:
		if nc.Cost != nil {
			if n.Cost, err = parameters.LoadValue(m, nc.Cost); err != nil {
				return fmt.Errorf("cost: %w", err)
			}
		}
	}
	return nil
}

// bind resolves storage references on every node-attached parameter.
// Parameters attached to a storage node bind to it implicitly; anywhere
// else a control curve needs an explicit storage_node.
func (m *Model) bind() error {
	for _, node := range m.network.Nodes() {
		for _, p := range nodeParameters(node) {
			if p == nil {
				continue
			}
			if b, ok := p.(parameters.Binder); ok {
				if err := b.Bind(node); err != nil {
					return fmt.Errorf("node %q: %w", node.Name(), err)
				}
			}
		}
	}
	return nil
}

// nodeParameters lists the parameters attached to a node
func nodeParameters(node network.Node) []network.Parameter {
	switch n := node.(type) {
	case *network.Catchment:
		return []network.Parameter{n.Inflow}
	case *network.Demand:
		return []network.Parameter{n.MaxFlow, n.Cost}
	case *network.Link:
		return []network.Parameter{n.MaxFlow}
	case *network.Storage:
		return []network.Parameter{n.Cost}
	}
	return nil
}

// findDownstreamDemands walks the graph below a storage node and
// collects the demands it releases for. The walk stops at other storage
// nodes: water beyond them is served from their own volume.
func (m *Model) findDownstreamDemands(s *network.Storage) []*network.Demand {
	var demands []*network.Demand
	seen := map[string]bool{s.Name(): true}
	queue := m.network.Downstream(s.Name())

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true

		node, err := m.network.NodeByName(name)
		if err != nil {
			continue
		}
		switch node.(type) {
		case *network.Demand:
			demands = append(demands, node.(*network.Demand))
		case *network.Storage:
			continue
		}
		queue = append(queue, m.network.Downstream(name)...)
	}
	return demands
}
