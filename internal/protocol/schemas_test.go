package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"simscope.ai/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, raw string) {
		t.Helper()
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			t.Fatalf("unmarshal sample: %v", err)
		}
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	validate(compile("metrics_update.schema.json"), `{
	  "type":"metrics_update",
	  "version":"1.0",
	  "seq":17,
	  "data":{
	    "network":{"nodes":[],"edges":[]},
	    "inequality":{"lorenzCurve":[]}
	  }
	}`)

	validate(compile("network.schema.json"), `{
	  "nodes":[{"id":"a1","name":"agent-1","centrality":0.82,"community":0}],
	  "edges":[{"source":"a1","target":"a2","weight":0.4}],
	  "communities":[{"id":0,"size":12,"density":0.3}]
	}`)

	validate(compile("timeline.schema.json"), `{
	  "behaviors":{"forage":[{"timestamp":3,"count":5},{"timestamp":1,"count":2}]},
	  "innovations":[{"timestamp":3,"behavior":"forage","agentId":"a1"}],
	  "adoptionCurves":{"forage":[1,2,5]}
	}`)

	validate(compile("spatial.schema.json"), `{
	  "density":[{"x":1,"y":2,"value":0.7}],
	  "trails":[{"agentId":"a1","path":[{"x":1,"y":2,"timestamp":10}]}],
	  "territories":[{"communityId":0,"boundary":[{"x":0,"y":0},{"x":4,"y":0},{"x":2,"y":3}]}],
	  "hotspots":[{"x":2,"y":3,"activity":9,"radius":1.5}]
	}`)

	validate(compile("inequality.schema.json"), `{
	  "lorenzCurve":[{"population":0.5,"wealth":0.3}],
	  "giniTrend":[{"timestamp":10,"gini":0.41}],
	  "quartiles":[{"label":"Q1","wealth":3.2,"count":25}],
	  "mobilityMatrix":[[0.9,0.1],[0.2,0.8]]
	}`)

	validate(compile("cultural.schema.json"), `{
	  "sankeyData":{
	    "nodes":[{"id":"a1","name":"agent-1"},{"id":"a2","name":"agent-2"}],
	    "links":[{"source":"a1","target":"a2","value":3,"behavior":"forage"}]
	  },
	  "cascadeTrees":[{"agentId":"a1","behavior":"forage","timestamp":1,
	    "children":[{"agentId":"a2","behavior":"forage","timestamp":4}]}],
	  "transmissionRates":{"forage":0.35}
	}`)

	validate(compile("timeseries.schema.json"), `{
	  "metrics":{"population":[{"timestamp":0,"value":100},{"timestamp":10,"value":104}]},
	  "availableMetrics":["population","avg_wealth"],
	  "correlations":[{"metricA":"population","metricB":"avg_wealth","coefficient":-0.2}]
	}`)
}

func TestMetricsUpdate_EnvelopeVersion(t *testing.T) {
	b, err := json.Marshal(protocol.MetricsUpdateMsg{
		Type:    protocol.TypeMetricsUpdate,
		Version: protocol.Version,
		Data:    map[string]json.RawMessage{},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	m, err := protocol.DecodeMetricsUpdate(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Version != protocol.Version {
		t.Fatalf("version: got %q want %q", m.Version, protocol.Version)
	}

	// Unversioned producers stay valid; the field is advisory.
	m, err = protocol.DecodeMetricsUpdate([]byte(`{"type":"metrics_update","data":{}}`))
	if err != nil {
		t.Fatalf("decode unversioned: %v", err)
	}
	if m.Version != "" {
		t.Fatalf("version: got %q want empty", m.Version)
	}
}

func TestDecodeMetricsUpdate_SubsetKeys(t *testing.T) {
	raw := `{"type":"metrics_update","seq":3,"data":{"network":{"nodes":[],"edges":[]}}}`
	m, err := protocol.DecodeMetricsUpdate([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Seq != 3 {
		t.Fatalf("seq: got %d want 3", m.Seq)
	}
	if _, ok := m.Data["network"]; !ok {
		t.Fatalf("network key missing")
	}
	if _, ok := m.Data["timeline"]; ok {
		t.Fatalf("timeline key should be absent")
	}
}
