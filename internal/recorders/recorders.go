// Package recorders observes nodes and parameters during a simulation
// run and reduces the recorded series to per-scenario values.
package recorders

import (
	"fmt"

	"github.com/hydronet-sim/reservoir-core/internal/network"
	"github.com/hydronet-sim/reservoir-core/internal/scenario"
	"github.com/hydronet-sim/reservoir-core/pkg/config"
	"github.com/hydronet-sim/reservoir-core/pkg/models"
)

// Recorder captures one value per timestep per scenario during a run
type Recorder interface {
	// Name returns the recorder's unique name within the model.
	Name() string
	// Setup allocates state for the given run dimensions.
	Setup(timesteps, scenarios int)
	// Reset clears recorded data so the model can be run again.
	Reset()
	// Record captures the current value for one scenario. It is called
	// after all flows and storage volumes for the timestep are final.
	Record(ts scenario.Timestep, si scenario.Index)
	// Result aggregates the recorded series.
	Result() *models.RecorderResult
	// Series returns a copy of the raw per-scenario series.
	Series() [][]float64
}

// Resolver supplies the node and parameter lookups recorder loading needs
type Resolver interface {
	NodeByName(name string) (network.Node, error)
	StorageByName(name string) (*network.Storage, error)
	NamedParameter(name string) (network.Parameter, error)
}

// LoadFunc constructs a recorder from its declaration
type LoadFunc func(r Resolver, cfg config.Recorder) (Recorder, error)

var loaders = map[string]LoadFunc{
	"storage_volume":   loadStorageVolume,
	"storage_fraction": loadStorageFraction,
	"node_flow":        loadNodeFlow,
	"deficit":          loadDeficit,
	"parameter_value":  loadParameterValue,
}

// Load constructs the recorder declared by cfg, resolving its node or
// parameter reference through r.
func Load(r Resolver, cfg config.Recorder) (Recorder, error) {
	loader, ok := loaders[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown recorder type %q", cfg.Type)
	}
	rec, err := loader(r, cfg)
	if err != nil {
		return nil, fmt.Errorf("loading recorder %q: %w", cfg.Name, err)
	}
	return rec, nil
}

func normalizeAggregate(agg string) string {
	if agg == "" {
		return AggregateMean
	}
	return agg
}

// StorageVolume records the absolute volume of a storage node
type StorageVolume struct {
	seriesStore
	name string
	agg  string
	node *network.Storage
}

// NewStorageVolume creates a storage volume recorder
func NewStorageVolume(name string, node *network.Storage, agg string) *StorageVolume {
	return &StorageVolume{name: name, agg: normalizeAggregate(agg), node: node}
}

func (r *StorageVolume) Name() string { return r.name }

func (r *StorageVolume) Record(ts scenario.Timestep, si scenario.Index) {
	r.append(si.GlobalID, r.node.Volume(si))
}

func (r *StorageVolume) Result() *models.RecorderResult {
	return r.result(r.name, r.agg)
}

// StorageFraction records the fill fraction of a storage node
type StorageFraction struct {
	seriesStore
	name string
	agg  string
	node *network.Storage
}

// NewStorageFraction creates a storage fraction recorder
func NewStorageFraction(name string, node *network.Storage, agg string) *StorageFraction {
	return &StorageFraction{name: name, agg: normalizeAggregate(agg), node: node}
}

func (r *StorageFraction) Name() string { return r.name }

func (r *StorageFraction) Record(ts scenario.Timestep, si scenario.Index) {
	r.append(si.GlobalID, r.node.CurrentFraction(si))
}

func (r *StorageFraction) Result() *models.RecorderResult {
	return r.result(r.name, r.agg)
}

// NodeFlow records the flow routed through a node
type NodeFlow struct {
	seriesStore
	name string
	agg  string
	node network.Node
}

// NewNodeFlow creates a node flow recorder
func NewNodeFlow(name string, node network.Node, agg string) *NodeFlow {
	return &NodeFlow{name: name, agg: normalizeAggregate(agg), node: node}
}

func (r *NodeFlow) Name() string { return r.name }

func (r *NodeFlow) Record(ts scenario.Timestep, si scenario.Index) {
	r.append(si.GlobalID, r.node.Flow(si))
}

func (r *NodeFlow) Result() *models.RecorderResult {
	return r.result(r.name, r.agg)
}

// Deficit records the unmet portion of a demand node's request
type Deficit struct {
	seriesStore
	name string
	agg  string
	node *network.Demand
}

// NewDeficit creates a deficit recorder
func NewDeficit(name string, node *network.Demand, agg string) *Deficit {
	return &Deficit{name: name, agg: normalizeAggregate(agg), node: node}
}

func (r *Deficit) Name() string { return r.name }

func (r *Deficit) Record(ts scenario.Timestep, si scenario.Index) {
	shortfall := r.node.Requested(si) - r.node.Flow(si)
	if shortfall < 0 {
		shortfall = 0
	}
	r.append(si.GlobalID, shortfall)
}

func (r *Deficit) Result() *models.RecorderResult {
	return r.result(r.name, r.agg)
}

// ParameterValue records the evaluated value of a parameter
type ParameterValue struct {
	seriesStore
	name  string
	agg   string
	param network.Parameter
}

// NewParameterValue creates a parameter value recorder
func NewParameterValue(name string, param network.Parameter, agg string) *ParameterValue {
	return &ParameterValue{name: name, agg: normalizeAggregate(agg), param: param}
}

func (r *ParameterValue) Name() string { return r.name }

func (r *ParameterValue) Record(ts scenario.Timestep, si scenario.Index) {
	r.append(si.GlobalID, r.param.Value(ts, si))
}

func (r *ParameterValue) Result() *models.RecorderResult {
	return r.result(r.name, r.agg)
}

func loadStorageVolume(r Resolver, cfg config.Recorder) (Recorder, error) {
	node, err := r.StorageByName(cfg.Node)
	if err != nil {
		return nil, err
	}
	return NewStorageVolume(cfg.Name, node, cfg.Aggregate), nil
}

func loadStorageFraction(r Resolver, cfg config.Recorder) (Recorder, error) {
	node, err := r.StorageByName(cfg.Node)
	if err != nil {
		return nil, err
	}
	return NewStorageFraction(cfg.Name, node, cfg.Aggregate), nil
}

func loadNodeFlow(r Resolver, cfg config.Recorder) (Recorder, error) {
	node, err := r.NodeByName(cfg.Node)
	if err != nil {
		return nil, err
	}
	return NewNodeFlow(cfg.Name, node, cfg.Aggregate), nil
}

func loadDeficit(r Resolver, cfg config.Recorder) (Recorder, error) {
	node, err := r.NodeByName(cfg.Node)
	if err != nil {
		return nil, err
	}
	demand, ok := node.(*network.Demand)
	if !ok {
		return nil, fmt.Errorf("node %q is not a demand node", cfg.Node)
	}
	return NewDeficit(cfg.Name, demand, cfg.Aggregate), nil
}

func loadParameterValue(r Resolver, cfg config.Recorder) (Recorder, error) {
	if cfg.Parameter == "" {
		return nil, fmt.Errorf("parameter_value recorder requires a parameter reference")
	}
	param, err := r.NamedParameter(cfg.Parameter)
	if err != nil {
		return nil, err
	}
	return NewParameterValue(cfg.Name, param, cfg.Aggregate), nil
}
