package engine

import (
	"context"
	"math"

	"github.com/hydronet-sim/reservoir-core/internal/network"
	"github.com/hydronet-sim/reservoir-core/internal/parameters"
	"github.com/hydronet-sim/reservoir-core/internal/scenario"
	"github.com/hydronet-sim/reservoir-core/pkg/models"
)

// setup allocates fresh per-run state on every node, stateful parameter and
// recorder, so each Run starts from initial volumes.
func (m *Model) setup() {
	n := m.scenarios.Size()
	steps := m.timestepper.Count()

	for _, node := range m.network.Nodes() {
		node.Setup(n)
		for _, p := range nodeParameters(node) {
			if sp, ok := p.(parameters.Stateful); ok {
				sp.Setup(n)
			}
		}
	}
	for _, name := range m.paramOrder {
		if sp, ok := m.params[name].(parameters.Stateful); ok {
			sp.Setup(n)
		}
	}
	for _, rec := range m.recorders {
		rec.Setup(steps, n)
	}
}

// Run executes the simulation over every timestep and ensemble member and
// returns the aggregated recorder results. The context is checked between
// timesteps, so cancellation takes effect promptly even for long runs.
func (m *Model) Run(ctx context.Context) (*models.RunResults, error) {
	m.setup()

	steps := m.timestepper.Timesteps()
	indices := m.scenarios.Indices()

	m.logger.Info("starting run",
		"timesteps", len(steps),
		"scenarios", len(indices),
		"nodes", len(m.route),
		"recorders", len(m.recorders))

	for _, ts := range steps {
		select {
		case <-ctx.Done():
			m.logger.Warn("run canceled",
				"timestep", ts.Index,
				"date", ts.Date.Format("2006-01-02"))
			return nil, ctx.Err()
		default:
		}

		for _, si := range indices {
			m.step(ts, si)
		}
		for _, rec := range m.recorders {
			for _, si := range indices {
				rec.Record(ts, si)
			}
		}
	}

	m.logger.Info("run complete", "timesteps", len(steps), "scenarios", len(indices))
	return m.Results(false), nil
}

// step routes one timestep for one ensemble member. Demand rates and
// catchment inflows are evaluated first, then water moves through the
// network in topological order.
func (m *Model) step(ts scenario.Timestep, si scenario.Index) {
	inflow := make(map[string]float64)
	for _, node := range m.route {
		switch n := node.(type) {
		case *network.Demand:
			n.SetRequested(si, math.Max(0, n.MaxFlow.Value(ts, si)))
		case *network.Catchment:
			inflow[n.Name()] = math.Max(0, n.Inflow.Value(ts, si))
		}
	}

	avail := make(map[string]float64, len(m.route))
	for _, node := range m.route {
		in := avail[node.Name()]
		var out float64

		switch n := node.(type) {
		case *network.Catchment:
			out = inflow[n.Name()]
		case *network.Link:
			out = in
			if n.MaxFlow != nil {
				out = math.Min(out, math.Max(0, n.MaxFlow.Value(ts, si)))
			}
		case *network.Demand:
			n.SetFlow(si, math.Min(in, n.Requested(si)))
			continue
		case *network.Storage:
			// Flows are rates; volume moves by rate times step length.
			want := 0.0
			for _, d := range m.storageDemands[n.Name()] {
				want += d.Requested(si)
			}
			release := math.Min(want, n.Volume(si)/ts.Days+in)
			spill := n.Commit(si, (in-release)*ts.Days) / ts.Days
			out = release + spill
		}

		node.SetFlow(si, out)
		m.distribute(node.Name(), out, avail)
	}
}

// distribute splits a node's outflow equally across its downstream edges.
func (m *Model) distribute(name string, out float64, avail map[string]float64) {
	downstream := m.network.Downstream(name)
	if len(downstream) == 0 {
		return
	}
	share := out / float64(len(downstream))
	for _, next := range downstream {
		avail[next] += share
	}
}

// Results collects every recorder's aggregated result. Per-timestep series
// are large, so they are attached only on request.
func (m *Model) Results(includeSeries bool) *models.RunResults {
	results := &models.RunResults{
		Timesteps: m.timestepper.Count(),
		Scenarios: m.scenarios.Size(),
		Recorders: make(map[string]*models.RecorderResult, len(m.recorders)),
	}
	for _, rec := range m.recorders {
		res := rec.Result()
		if includeSeries {
			res.Series = rec.Series()
		}
		results.Recorders[rec.Name()] = res
	}
	return results
}
