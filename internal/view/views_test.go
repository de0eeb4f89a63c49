package view

import (
	"testing"

	"simscope.ai/internal/metrics"
)

func TestNetworkView_FilterAndDanglingEdges(t *testing.T) {
	d := &metrics.NetworkData{
		Nodes: metrics.Ok([]metrics.NetworkNode{
			{ID: "a1", Centrality: 0.9, Community: 0},
			{ID: "a2", Centrality: 0.2, Community: 0},
			{ID: "a3", Centrality: 0.8, Community: 1},
		}),
		Edges: metrics.Ok([]metrics.NetworkEdge{
			{Source: "a1", Target: "a2", Weight: 0.5},
			{Source: "a1", Target: "a3", Weight: 0.4},
			{Source: "a1", Target: "ghost", Weight: 0.9}, // dangling, never rendered
		}),
	}

	v := NewNetworkView()
	f, err := v.Build(d, false)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(f.Nodes) != 3 || len(f.Edges) != 2 {
		t.Fatalf("unfiltered: %d nodes %d edges, want 3 and 2", len(f.Nodes), len(f.Edges))
	}

	v.MinCentrality = 0.5
	f, err = v.Build(d, false)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(f.Nodes) != 2 {
		t.Fatalf("centrality filter: got %d nodes want 2", len(f.Nodes))
	}
	if len(f.Edges) != 1 || f.Edges[0].Target != "a3" {
		t.Fatalf("edges must drop filtered endpoints: %+v", f.Edges)
	}

	v.Community = 0
	f, _ = v.Build(d, false)
	if len(f.Nodes) != 1 || f.Nodes[0].ID != "a1" {
		t.Fatalf("community filter: %+v", f.Nodes)
	}
}

func TestNetworkView_Connections(t *testing.T) {
	d := &metrics.NetworkData{
		Nodes: metrics.Ok([]metrics.NetworkNode{{ID: "a1"}, {ID: "a2"}}),
		Edges: metrics.Ok([]metrics.NetworkEdge{
			{Source: "a1", Target: "a2", Weight: 0.7},
			{Source: "a2", Target: "ghost", Weight: 0.1},
		}),
	}
	conns := NewNetworkView().Connections(d, "a2")
	if len(conns) != 1 || conns[0].PeerID != "a1" || conns[0].Weight != 0.7 {
		t.Fatalf("got %+v", conns)
	}
}

func TestTimelineView_DenseAxisZeroFill(t *testing.T) {
	d := &metrics.TimelineData{
		Behaviors: metrics.Ok(map[string][]metrics.CountSample{
			"A": {{Timestamp: 1, Count: 5}},
			"B": {{Timestamp: 2, Count: 3}},
		}),
	}
	f, err := NewTimelineView().Build(d, false)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(f.Rows) != 2 {
		t.Fatalf("rows: got %d want 2", len(f.Rows))
	}
	if f.Behaviors[0] != "A" || f.Behaviors[1] != "B" {
		t.Fatalf("behaviors: %v", f.Behaviors)
	}
	r0, r1 := f.Rows[0], f.Rows[1]
	if r0.Timestamp != 1 || r0.Counts[0] != 5 || r0.Counts[1] != 0 {
		t.Fatalf("row t=1: %+v", r0)
	}
	if r1.Timestamp != 2 || r1.Counts[0] != 0 || r1.Counts[1] != 3 {
		t.Fatalf("row t=2: %+v", r1)
	}
}

func TestTimelineView_UnsortedInputSorted(t *testing.T) {
	d := &metrics.TimelineData{
		Behaviors: metrics.Ok(map[string][]metrics.CountSample{
			"A": {{Timestamp: 9, Count: 1}, {Timestamp: 2, Count: 4}, {Timestamp: 5, Count: 2}},
		}),
	}
	f, _ := NewTimelineView().Build(d, false)
	for i := 1; i < len(f.Rows); i++ {
		if f.Rows[i].Timestamp <= f.Rows[i-1].Timestamp {
			t.Fatalf("axis not sorted: %+v", f.Rows)
		}
	}
}

func TestTimelineView_Scrubber(t *testing.T) {
	d := &metrics.TimelineData{
		Behaviors: metrics.Ok(map[string][]metrics.CountSample{
			"A": {{Timestamp: 1, Count: 1}, {Timestamp: 2, Count: 2}, {Timestamp: 3, Count: 3}},
		}),
		Innovations: []metrics.Innovation{
			{Timestamp: 1, Behavior: "A", AgentID: "x"},
			{Timestamp: 3, Behavior: "A", AgentID: "y"},
		},
	}
	v := NewTimelineView()
	v.Scrub = 1
	f, _ := v.Build(d, false)
	if len(f.Rows) != 2 {
		t.Fatalf("scrubbed rows: got %d want 2", len(f.Rows))
	}
	if len(f.Markers) != 1 || f.Markers[0].AgentID != "x" {
		t.Fatalf("markers must be at or before the scrubbed time: %+v", f.Markers)
	}
}

func TestSpatialView_TogglesKeepData(t *testing.T) {
	d := &metrics.SpatialData{
		Density: metrics.Ok([]metrics.DensityPoint{{X: 1, Y: 1, Value: 0.5}}),
		Trails:  []metrics.Trail{{AgentID: "a1", Path: []metrics.TrailPoint{{X: 0, Y: 0, Timestamp: 1}}}},
	}
	v := NewSpatialView()
	v.ShowTrails = false
	f, err := v.Build(d, false)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if f.ShowTrails {
		t.Fatalf("trail layer should be suppressed")
	}
	if len(f.Trails) != 1 {
		t.Fatalf("toggling a layer off must not discard its data")
	}
}

func TestInequalityView_SyntheticEndpoints(t *testing.T) {
	d := &metrics.InequalityData{
		LorenzCurve: metrics.Ok([]metrics.LorenzPoint{{Population: 0.5, Wealth: 0.3}}),
	}
	f, err := NewInequalityView().Build(d, false)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(f.Lorenz) != 3 {
		t.Fatalf("lorenz length: got %d want 3", len(f.Lorenz))
	}
	if f.Lorenz[0] != (metrics.LorenzPoint{}) {
		t.Fatalf("first point must be (0,0): %+v", f.Lorenz[0])
	}
	if f.Lorenz[2] != (metrics.LorenzPoint{Population: 1, Wealth: 1}) {
		t.Fatalf("last point must be (1,1): %+v", f.Lorenz[2])
	}
}

func TestInequalityView_RaggedMatrixHardError(t *testing.T) {
	d := &metrics.InequalityData{
		LorenzCurve:    metrics.Ok([]metrics.LorenzPoint{{Population: 0.5, Wealth: 0.3}}),
		MobilityMatrix: [][]float64{{1, 0}, {0, 1, 0}},
	}
	if _, err := NewInequalityView().Build(d, false); err == nil {
		t.Fatalf("ragged mobility matrix must fail before rendering")
	}
}

func TestInequalityView_GiniComparison(t *testing.T) {
	d := &metrics.InequalityData{
		LorenzCurve: metrics.Ok([]metrics.LorenzPoint{}),
		GiniTrend: []metrics.GiniSample{
			{Timestamp: 10, Gini: 0.30},
			{Timestamp: 20, Gini: 0.45},
			{Timestamp: 30, Gini: 0.40},
		},
	}
	v := NewInequalityView()
	v.Compare = true
	v.CompareA = 11 // nearest: t=10
	v.CompareB = 28 // nearest: t=30
	f, err := v.Build(d, false)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !f.HasDelta {
		t.Fatalf("expected a delta")
	}
	if got, want := f.GiniDelta, 0.40-0.30; got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("delta: got %v want %v", got, want)
	}
}

func TestCulturalView_SkipsUnresolvableLinks(t *testing.T) {
	d := &metrics.CulturalData{
		SankeyData: metrics.Ok(metrics.Sankey{
			Nodes: []metrics.SankeyNode{{ID: "a1", Name: "one"}, {ID: "a2", Name: "two"}},
			Links: []metrics.SankeyLink{
				{Source: "a1", Target: "a2", Value: 3, Behavior: "forage"},
				{Source: "a1", Target: "missing", Value: 9},
			},
		}),
	}
	f, err := NewCulturalView().Build(d, false)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(f.Flows) != 1 || f.SkippedLinks != 1 {
		t.Fatalf("flows=%d skipped=%d, want 1 and 1", len(f.Flows), f.SkippedLinks)
	}
	if f.Flows[0].Target.Name != "two" {
		t.Fatalf("flow target: %+v", f.Flows[0])
	}
}

func TestCulturalView_CascadeCollapseIsCosmetic(t *testing.T) {
	d := &metrics.CulturalData{
		SankeyData: metrics.Ok(metrics.Sankey{}),
		CascadeTrees: []metrics.CascadeNode{{
			AgentID: "root", Behavior: "forage", Timestamp: 1,
			Children: []metrics.CascadeNode{
				{AgentID: "kid", Behavior: "forage", Timestamp: 2},
			},
		}},
	}
	v := NewCulturalView()
	f, _ := v.Build(d, false)
	if len(f.Cascades) != 2 {
		t.Fatalf("collapsed cascade must still emit every node: %d rows", len(f.Cascades))
	}
	kid := f.Cascades[1]
	if kid.Indent != 0 || !kid.Dimmed || kid.Timestamp != 2 {
		t.Fatalf("collapsed child: %+v", kid)
	}

	v.ToggleCascade("root")
	f, _ = v.Build(d, false)
	kid = f.Cascades[1]
	if kid.Indent != 1 || kid.Dimmed {
		t.Fatalf("expanded child: %+v", kid)
	}
}

func TestCulturalView_AdoptionVelocity(t *testing.T) {
	d := &metrics.CulturalData{
		SankeyData:     metrics.Ok(metrics.Sankey{}),
		AdoptionCurves: map[string][]int{"forage": {1, 4, 9}, "flat": {5}},
	}
	f, _ := NewCulturalView().Build(d, false)
	if got := f.AdoptionVelocity["forage"]; got != 4 {
		t.Fatalf("velocity: got %v want 4", got)
	}
	if got := f.AdoptionVelocity["flat"]; got != 0 {
		t.Fatalf("single-sample velocity: got %v want 0", got)
	}
}

func TestTimeSeriesView_ToggleAndCorrelationFilter(t *testing.T) {
	d := &metrics.TimeSeriesData{
		Metrics: metrics.Ok(map[string][]metrics.SeriesSample{
			"population": {{Timestamp: 0, Value: 10}},
			"avg_wealth": {{Timestamp: 0, Value: 3}},
		}),
		AvailableMetrics: []string{"population", "avg_wealth", "gini"},
		Correlations: []metrics.Correlation{
			{MetricA: "population", MetricB: "avg_wealth", Coefficient: -0.2},
		},
	}
	v := NewTimeSeriesView()
	f, err := v.Build(d, false)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(f.Names) != 2 || len(f.Correlations) != 1 {
		t.Fatalf("default selection: names=%v corr=%d", f.Names, len(f.Correlations))
	}
	if len(f.Available) != 3 {
		t.Fatalf("catalog may exceed present metrics: %v", f.Available)
	}

	v.Toggle("avg_wealth")
	f, _ = v.Build(d, false)
	if len(f.Names) != 1 || f.Names[0] != "population" {
		t.Fatalf("after toggle: %v", f.Names)
	}
	if len(f.Correlations) != 0 {
		t.Fatalf("correlation pairs must require both ends selected: %+v", f.Correlations)
	}

	v.Toggle("avg_wealth")
	f, _ = v.Build(d, false)
	if len(f.Correlations) != 1 {
		t.Fatalf("re-toggle should restore the pair")
	}
}
