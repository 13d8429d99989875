package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hydronet-sim/reservoir-core/pkg/config"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func runModel(t *testing.T, cfg *config.Model) map[string]float64 {
	t.Helper()
	m, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build() returned error: %v", err)
	}
	results, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	out := make(map[string]float64, len(results.Recorders))
	for name, res := range results.Recorders {
		out[name] = res.AggregatedValue
	}
	return out
}

func TestRunPassthrough(t *testing.T) {
	cfg := &config.Model{
		Timestepper: config.Timestepper{Start: "2020-01-01", End: "2020-01-03", Days: 1},
		Scenarios:   []config.Scenario{{Name: "base", Size: 1}},
		Nodes: []config.Node{
			{Name: "river", Type: "catchment", Inflow: 5.0},
			{Name: "city", Type: "demand", MaxFlow: 3.0},
		},
		Edges: []config.Edge{{From: "river", To: "city"}},
		Recorders: []config.Recorder{
			{Name: "delivered", Type: "node_flow", Node: "city", Aggregate: "total"},
			{Name: "shortfall", Type: "deficit", Node: "city", Aggregate: "total"},
		},
	}

	got := runModel(t, cfg)
	if !almostEqual(got["delivered"], 9) {
		t.Errorf("Expected 9 delivered over 3 days, got %g", got["delivered"])
	}
	if !almostEqual(got["shortfall"], 0) {
		t.Errorf("Expected no deficit, got %g", got["shortfall"])
	}
}

func TestRunStorageDrawdown(t *testing.T) {
	cfg := &config.Model{
		Timestepper: config.Timestepper{Start: "2020-01-01", End: "2020-01-06", Days: 1},
		Scenarios:   []config.Scenario{{Name: "base", Size: 1}},
		Nodes: []config.Node{
			{Name: "drought", Type: "catchment", Inflow: 0.0},
			{Name: "reservoir", Type: "storage", MaxVolume: 100, InitialVolume: 50},
			{Name: "city", Type: "demand", MaxFlow: 10.0},
		},
		Edges: []config.Edge{
			{From: "drought", To: "reservoir"},
			{From: "reservoir", To: "city"},
		},
		Recorders: []config.Recorder{
			{Name: "volume", Type: "storage_volume", Node: "reservoir", Aggregate: "min"},
			{Name: "delivered", Type: "node_flow", Node: "city", Aggregate: "total"},
			{Name: "shortfall", Type: "deficit", Node: "city", Aggregate: "total"},
		},
	}

	// Five days empty the reservoir; the sixth day runs dry.
	got := runModel(t, cfg)
	if !almostEqual(got["volume"], 0) {
		t.Errorf("Expected reservoir to empty, got %g", got["volume"])
	}
	if !almostEqual(got["delivered"], 50) {
		t.Errorf("Expected 50 delivered, got %g", got["delivered"])
	}
	if !almostEqual(got["shortfall"], 10) {
		t.Errorf("Expected deficit of 10 on the dry day, got %g", got["shortfall"])
	}
}

func TestRunStorageSpill(t *testing.T) {
	cfg := &config.Model{
		Timestepper: config.Timestepper{Start: "2020-01-01", End: "2020-01-02", Days: 1},
		Scenarios:   []config.Scenario{{Name: "base", Size: 1}},
		Nodes: []config.Node{
			{Name: "flood", Type: "catchment", Inflow: 20.0},
			{Name: "reservoir", Type: "storage", MaxVolume: 100, InitialVolume: 95},
			{Name: "city", Type: "demand", MaxFlow: 5.0},
		},
		Edges: []config.Edge{
			{From: "flood", To: "reservoir"},
			{From: "reservoir", To: "city"},
		},
		Recorders: []config.Recorder{
			{Name: "volume", Type: "storage_volume", Node: "reservoir", Aggregate: "max"},
			{Name: "outflow", Type: "node_flow", Node: "reservoir", Aggregate: "total"},
			{Name: "delivered", Type: "node_flow", Node: "city", Aggregate: "total"},
		},
	}

	// Day one fills the reservoir and spills 10; day two spills the full
	// surplus of 15. The demand stays satisfied throughout.
	got := runModel(t, cfg)
	if !almostEqual(got["volume"], 100) {
		t.Errorf("Expected the reservoir capped at 100, got %g", got["volume"])
	}
	if !almostEqual(got["outflow"], 35) {
		t.Errorf("Expected 35 released, got %g", got["outflow"])
	}
	if !almostEqual(got["delivered"], 10) {
		t.Errorf("Expected 10 delivered, got %g", got["delivered"])
	}
}

func TestRunControlCurveRestriction(t *testing.T) {
	cfg := &config.Model{
		Timestepper: config.Timestepper{Start: "2020-01-01", End: "2020-01-06", Days: 1},
		Scenarios:   []config.Scenario{{Name: "base", Size: 1}},
		Nodes: []config.Node{
			{Name: "drought", Type: "catchment", Inflow: 0.0},
			{Name: "reservoir", Type: "storage", MaxVolume: 100, InitialVolume: 80},
			{Name: "city", Type: "demand", MaxFlow: map[string]any{
				"type":           "controlcurve",
				"storage_node":   "reservoir",
				"control_curves": []any{0.5},
				"values":         []any{10.0, 4.0},
			}},
		},
		Edges: []config.Edge{
			{From: "drought", To: "reservoir"},
			{From: "reservoir", To: "city"},
		},
		Recorders: []config.Recorder{
			{Name: "volume", Type: "storage_volume", Node: "reservoir", Aggregate: "min"},
			{Name: "delivered", Type: "node_flow", Node: "city", Aggregate: "total"},
		},
	}

	// Above the half-full curve the city draws 10 a day, below it 4. The
	// fill crosses the curve after four days: 10+10+10+10+4+4.
	got := runModel(t, cfg)
	if !almostEqual(got["delivered"], 48) {
		t.Errorf("Expected 48 delivered under restriction, got %g", got["delivered"])
	}
	if !almostEqual(got["volume"], 32) {
		t.Errorf("Expected final volume 32, got %g", got["volume"])
	}
}

func TestRunEqualSplit(t *testing.T) {
	cfg := &config.Model{
		Timestepper: config.Timestepper{Start: "2020-01-01", End: "2020-01-02", Days: 1},
		Scenarios:   []config.Scenario{{Name: "base", Size: 1}},
		Nodes: []config.Node{
			{Name: "river", Type: "catchment", Inflow: 10.0},
			{Name: "town", Type: "demand", MaxFlow: 6.0},
			{Name: "farm", Type: "demand", MaxFlow: 6.0},
		},
		Edges: []config.Edge{
			{From: "river", To: "town"},
			{From: "river", To: "farm"},
		},
		Recorders: []config.Recorder{
			{Name: "town_flow", Type: "node_flow", Node: "town", Aggregate: "total"},
			{Name: "farm_flow", Type: "node_flow", Node: "farm", Aggregate: "total"},
			{Name: "town_deficit", Type: "deficit", Node: "town", Aggregate: "total"},
		},
	}

	got := runModel(t, cfg)
	if !almostEqual(got["town_flow"], 10) {
		t.Errorf("Expected the town to receive half the river, got %g", got["town_flow"])
	}
	if !almostEqual(got["farm_flow"], 10) {
		t.Errorf("Expected the farm to receive half the river, got %g", got["farm_flow"])
	}
	if !almostEqual(got["town_deficit"], 2) {
		t.Errorf("Expected a deficit of 1 a day, got %g", got["town_deficit"])
	}
}

func TestRunLinkCapacity(t *testing.T) {
	cfg := &config.Model{
		Timestepper: config.Timestepper{Start: "2020-01-01", End: "2020-01-02", Days: 1},
		Scenarios:   []config.Scenario{{Name: "base", Size: 1}},
		Nodes: []config.Node{
			{Name: "river", Type: "catchment", Inflow: 10.0},
			{Name: "canal", Type: "link", MaxFlow: 4.0},
			{Name: "city", Type: "demand", MaxFlow: 10.0},
		},
		Edges: []config.Edge{
			{From: "river", To: "canal"},
			{From: "canal", To: "city"},
		},
		Recorders: []config.Recorder{
			{Name: "delivered", Type: "node_flow", Node: "city", Aggregate: "total"},
			{Name: "shortfall", Type: "deficit", Node: "city", Aggregate: "total"},
		},
	}

	got := runModel(t, cfg)
	if !almostEqual(got["delivered"], 8) {
		t.Errorf("Expected the canal to cap delivery at 4 a day, got %g", got["delivered"])
	}
	if !almostEqual(got["shortfall"], 12) {
		t.Errorf("Expected a deficit of 6 a day, got %g", got["shortfall"])
	}
}

func TestRunMonthlyProfileInflow(t *testing.T) {
	cfg := &config.Model{
		Timestepper: config.Timestepper{Start: "2020-01-30", End: "2020-02-02", Days: 1},
		Scenarios:   []config.Scenario{{Name: "base", Size: 1}},
		Nodes: []config.Node{
			{Name: "river", Type: "catchment", Inflow: map[string]any{
				"type":   "monthlyprofile",
				"values": []any{1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0, 9.0, 10.0, 11.0, 12.0},
			}},
			{Name: "city", Type: "demand", MaxFlow: 100.0},
		},
		Edges: []config.Edge{{From: "river", To: "city"}},
		Recorders: []config.Recorder{
			{Name: "delivered", Type: "node_flow", Node: "city", Aggregate: "total"},
		},
	}

	// Two January days at 1 and two February days at 2.
	got := runModel(t, cfg)
	if !almostEqual(got["delivered"], 6) {
		t.Errorf("Expected 6 delivered across the month boundary, got %g", got["delivered"])
	}
}

func TestRunMultiScenario(t *testing.T) {
	cfg := &config.Model{
		Timestepper: config.Timestepper{Start: "2020-01-01", End: "2020-01-02", Days: 1},
		Scenarios:   []config.Scenario{{Name: "hydrology", Size: 2}},
		Nodes: []config.Node{
			{Name: "river", Type: "catchment", Inflow: map[string]any{
				"type": "inflowseries",
				"mean": 3.0,
				"cv":   0.0,
			}},
			{Name: "city", Type: "demand", MaxFlow: 5.0},
		},
		Edges: []config.Edge{{From: "river", To: "city"}},
		Recorders: []config.Recorder{
			{Name: "shortfall", Type: "deficit", Node: "city", Aggregate: "total"},
		},
	}

	m, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build() returned error: %v", err)
	}
	results, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if results.Scenarios != 2 {
		t.Fatalf("Expected 2 ensemble members, got %d", results.Scenarios)
	}
	res := results.Recorders["shortfall"]
	if len(res.Values) != 2 {
		t.Fatalf("Expected one value per member, got %d", len(res.Values))
	}
	// cv 0 makes the series deterministic, so both members match.
	for gid, v := range res.Values {
		if !almostEqual(v, 4) {
			t.Errorf("Member %d: expected deficit 4, got %g", gid, v)
		}
	}
	if !almostEqual(res.AggregatedValue, 4) {
		t.Errorf("Expected cross-member mean 4, got %g", res.AggregatedValue)
	}
}

func TestRunRepeatable(t *testing.T) {
	cfg := &config.Model{
		Timestepper: config.Timestepper{Start: "2020-01-01", End: "2020-01-03", Days: 1},
		Scenarios:   []config.Scenario{{Name: "base", Size: 1}},
		Nodes: []config.Node{
			{Name: "drought", Type: "catchment", Inflow: 0.0},
			{Name: "reservoir", Type: "storage", MaxVolume: 100, InitialVolume: 60},
			{Name: "city", Type: "demand", MaxFlow: 10.0},
		},
		Edges: []config.Edge{
			{From: "drought", To: "reservoir"},
			{From: "reservoir", To: "city"},
		},
		Recorders: []config.Recorder{
			{Name: "volume", Type: "storage_volume", Node: "reservoir", Aggregate: "min"},
		},
	}

	m, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build() returned error: %v", err)
	}

	first, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("First Run() returned error: %v", err)
	}
	second, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Second Run() returned error: %v", err)
	}

	a := first.Recorders["volume"].AggregatedValue
	b := second.Recorders["volume"].AggregatedValue
	if !almostEqual(a, b) {
		t.Errorf("Expected identical results across runs, got %g then %g", a, b)
	}
	if !almostEqual(a, 30) {
		t.Errorf("Expected minimum volume 30, got %g", a)
	}
}

func TestRunCanceled(t *testing.T) {
	cfg := riverConfig()
	m, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build() returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := m.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if results != nil {
		t.Error("Expected no results from a canceled run")
	}
}

func TestResultsSeries(t *testing.T) {
	cfg := &config.Model{
		Timestepper: config.Timestepper{Start: "2020-01-01", End: "2020-01-03", Days: 1},
		Scenarios:   []config.Scenario{{Name: "base", Size: 1}},
		Nodes: []config.Node{
			{Name: "drought", Type: "catchment", Inflow: 0.0},
			{Name: "reservoir", Type: "storage", MaxVolume: 100, InitialVolume: 50},
			{Name: "city", Type: "demand", MaxFlow: 10.0},
		},
		Edges: []config.Edge{
			{From: "drought", To: "reservoir"},
			{From: "reservoir", To: "city"},
		},
		Recorders: []config.Recorder{
			{Name: "volume", Type: "storage_volume", Node: "reservoir"},
		},
	}

	m, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build() returned error: %v", err)
	}
	results, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if results.Recorders["volume"].Series != nil {
		t.Error("Expected no series in the default results")
	}

	withSeries := m.Results(true)
	series := withSeries.Recorders["volume"].Series
	if len(series) != 1 {
		t.Fatalf("Expected one series per member, got %d", len(series))
	}
	want := []float64{40, 30, 20}
	if len(series[0]) != len(want) {
		t.Fatalf("Expected %d recorded steps, got %d", len(want), len(series[0]))
	}
	for i, v := range want {
		if !almostEqual(series[0][i], v) {
			t.Errorf("Step %d: expected volume %g, got %g", i, v, series[0][i])
		}
	}
}
