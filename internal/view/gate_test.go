package view

import (
	"errors"
	"strings"
	"testing"

	"simscope.ai/internal/metrics"
)

// buildCase drives one domain's Build through the gate stages: mode selects
// the input shape, the returned triple is what the shared assertions check.
type buildCase func(loading bool, mode string) (Status, string, error)

const (
	modeNil       = "nil"
	modeAbsent    = "absent"
	modeMalformed = "malformed"
	modeOK        = "ok"
)

func gateCases() map[string]struct {
	field string
	build buildCase
} {
	return map[string]struct {
		field string
		build buildCase
	}{
		"network": {"nodes", func(loading bool, mode string) (Status, string, error) {
			var d *metrics.NetworkData
			switch mode {
			case modeAbsent:
				d = &metrics.NetworkData{Edges: metrics.Ok([]metrics.NetworkEdge{})}
			case modeMalformed:
				d = &metrics.NetworkData{Nodes: metrics.Broken[[]metrics.NetworkNode](), Edges: metrics.Ok([]metrics.NetworkEdge{})}
			case modeOK:
				d = &metrics.NetworkData{Nodes: metrics.Ok([]metrics.NetworkNode{}), Edges: metrics.Ok([]metrics.NetworkEdge{})}
			}
			f, err := NewNetworkView().Build(d, loading)
			return f.Status, f.Message, err
		}},
		"timeline": {"behaviors", func(loading bool, mode string) (Status, string, error) {
			var d *metrics.TimelineData
			switch mode {
			case modeAbsent:
				d = &metrics.TimelineData{}
			case modeMalformed:
				d = &metrics.TimelineData{Behaviors: metrics.Broken[map[string][]metrics.CountSample]()}
			case modeOK:
				d = &metrics.TimelineData{Behaviors: metrics.Ok(map[string][]metrics.CountSample{})}
			}
			f, err := NewTimelineView().Build(d, loading)
			return f.Status, f.Message, err
		}},
		"spatial": {"density", func(loading bool, mode string) (Status, string, error) {
			var d *metrics.SpatialData
			switch mode {
			case modeAbsent:
				d = &metrics.SpatialData{}
			case modeMalformed:
				d = &metrics.SpatialData{Density: metrics.Broken[[]metrics.DensityPoint]()}
			case modeOK:
				d = &metrics.SpatialData{Density: metrics.Ok([]metrics.DensityPoint{})}
			}
			f, err := NewSpatialView().Build(d, loading)
			return f.Status, f.Message, err
		}},
		"inequality": {"lorenzCurve", func(loading bool, mode string) (Status, string, error) {
			var d *metrics.InequalityData
			switch mode {
			case modeAbsent:
				d = &metrics.InequalityData{}
			case modeMalformed:
				d = &metrics.InequalityData{LorenzCurve: metrics.Broken[[]metrics.LorenzPoint]()}
			case modeOK:
				d = &metrics.InequalityData{LorenzCurve: metrics.Ok([]metrics.LorenzPoint{})}
			}
			f, err := NewInequalityView().Build(d, loading)
			return f.Status, f.Message, err
		}},
		"cultural": {"sankeyData", func(loading bool, mode string) (Status, string, error) {
			var d *metrics.CulturalData
			switch mode {
			case modeAbsent:
				d = &metrics.CulturalData{}
			case modeMalformed:
				d = &metrics.CulturalData{SankeyData: metrics.Broken[metrics.Sankey]()}
			case modeOK:
				d = &metrics.CulturalData{SankeyData: metrics.Ok(metrics.Sankey{})}
			}
			f, err := NewCulturalView().Build(d, loading)
			return f.Status, f.Message, err
		}},
		"timeseries": {"metrics", func(loading bool, mode string) (Status, string, error) {
			var d *metrics.TimeSeriesData
			switch mode {
			case modeAbsent:
				d = &metrics.TimeSeriesData{}
			case modeMalformed:
				d = &metrics.TimeSeriesData{Metrics: metrics.Broken[map[string][]metrics.SeriesSample]()}
			case modeOK:
				d = &metrics.TimeSeriesData{Metrics: metrics.Ok(map[string][]metrics.SeriesSample{})}
			}
			f, err := NewTimeSeriesView().Build(d, loading)
			return f.Status, f.Message, err
		}},
	}
}

func TestGate_LoadingWinsOverEverything(t *testing.T) {
	for domain, tc := range gateCases() {
		for _, mode := range []string{modeNil, modeAbsent, modeMalformed, modeOK} {
			st, _, err := tc.build(true, mode)
			if err != nil {
				t.Fatalf("%s/%s: loading must short-circuit, got error %v", domain, mode, err)
			}
			if st != StatusLoading {
				t.Fatalf("%s/%s: got %v want loading", domain, mode, st)
			}
		}
	}
}

func TestGate_NilDataRendersPlaceholder(t *testing.T) {
	for domain, tc := range gateCases() {
		st, msg, err := tc.build(false, modeNil)
		if err != nil {
			t.Fatalf("%s: %v", domain, err)
		}
		if st != StatusNoData || msg != "no data available" {
			t.Fatalf("%s: got status=%v msg=%q", domain, st, msg)
		}
	}
}

func TestGate_AbsentMandatoryFieldPropagates(t *testing.T) {
	for domain, tc := range gateCases() {
		_, _, err := tc.build(false, modeAbsent)
		var ce *ContractError
		if !errors.As(err, &ce) {
			t.Fatalf("%s: got %v, want *ContractError", domain, err)
		}
		if ce.Domain != domain || ce.Field != tc.field {
			t.Fatalf("%s: got %+v, want field %q", domain, ce, tc.field)
		}
	}
}

func TestGate_MalformedFieldDegradesInline(t *testing.T) {
	for domain, tc := range gateCases() {
		st, msg, err := tc.build(false, modeMalformed)
		if err != nil {
			t.Fatalf("%s: malformed-but-present must not throw: %v", domain, err)
		}
		if st != StatusDegraded {
			t.Fatalf("%s: got %v want degraded", domain, st)
		}
		if !strings.Contains(msg, tc.field) {
			t.Fatalf("%s: inline message %q must name the expected field %q", domain, msg, tc.field)
		}
	}
}

func TestGate_WellFormedReachesReady(t *testing.T) {
	for domain, tc := range gateCases() {
		st, _, err := tc.build(false, modeOK)
		if err != nil {
			t.Fatalf("%s: %v", domain, err)
		}
		if st != StatusReady {
			t.Fatalf("%s: got %v want ready", domain, st)
		}
	}
}
