// Package transform validates raw producer payloads at the process boundary.
//
// Two entry points exist per domain. The Decode functions are lenient: they
// fail only on JSON that does not parse at all, and record a mandatory field's
// absence or wrong kind inside the typed value so the view gates can act on
// it. The strict functions (Network, Timeline, ...) additionally reject any
// payload whose mandatory field is absent or of the wrong fundamental kind;
// the REST client runs the strict path so a bad snapshot never reaches the
// store.
package transform

import (
	"encoding/json"
	"fmt"

	"simscope.ai/internal/metrics"
)

// FormatError reports a mandatory top-level field that is absent or of the
// wrong fundamental kind in one domain's payload.
type FormatError struct {
	Domain string
	Field  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: invalid %q: %s", e.Domain, e.Field, e.Reason)
}

func fieldErr[T any](domain, field string, f metrics.Field[T]) error {
	if !f.Present {
		return &FormatError{Domain: domain, Field: field, Reason: "missing"}
	}
	if !f.Valid {
		return &FormatError{Domain: domain, Field: field, Reason: "wrong kind"}
	}
	return nil
}

func decode[T any](domain string, raw []byte, out *T) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode: %w", domain, err)
	}
	return nil
}

func DecodeNetwork(raw []byte) (*metrics.NetworkData, error) {
	var d metrics.NetworkData
	if err := decode(metrics.DomainNetwork, raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func Network(raw []byte) (*metrics.NetworkData, error) {
	d, err := DecodeNetwork(raw)
	if err != nil {
		return nil, err
	}
	if err := fieldErr(metrics.DomainNetwork, "nodes", d.Nodes); err != nil {
		return nil, err
	}
	if err := fieldErr(metrics.DomainNetwork, "edges", d.Edges); err != nil {
		return nil, err
	}
	return d, nil
}

func DecodeTimeline(raw []byte) (*metrics.TimelineData, error) {
	var d metrics.TimelineData
	if err := decode(metrics.DomainTimeline, raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func Timeline(raw []byte) (*metrics.TimelineData, error) {
	d, err := DecodeTimeline(raw)
	if err != nil {
		return nil, err
	}
	if err := fieldErr(metrics.DomainTimeline, "behaviors", d.Behaviors); err != nil {
		return nil, err
	}
	return d, nil
}

func DecodeSpatial(raw []byte) (*metrics.SpatialData, error) {
	var d metrics.SpatialData
	if err := decode(metrics.DomainSpatial, raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func Spatial(raw []byte) (*metrics.SpatialData, error) {
	d, err := DecodeSpatial(raw)
	if err != nil {
		return nil, err
	}
	if err := fieldErr(metrics.DomainSpatial, "density", d.Density); err != nil {
		return nil, err
	}
	return d, nil
}

func DecodeInequality(raw []byte) (*metrics.InequalityData, error) {
	var d metrics.InequalityData
	if err := decode(metrics.DomainInequality, raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func Inequality(raw []byte) (*metrics.InequalityData, error) {
	d, err := DecodeInequality(raw)
	if err != nil {
		return nil, err
	}
	if err := fieldErr(metrics.DomainInequality, "lorenzCurve", d.LorenzCurve); err != nil {
		return nil, err
	}
	if err := SquareMatrix(d.MobilityMatrix); err != nil {
		return nil, err
	}
	return d, nil
}

func DecodeCultural(raw []byte) (*metrics.CulturalData, error) {
	var d metrics.CulturalData
	if err := decode(metrics.DomainCultural, raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func Cultural(raw []byte) (*metrics.CulturalData, error) {
	d, err := DecodeCultural(raw)
	if err != nil {
		return nil, err
	}
	if err := fieldErr(metrics.DomainCultural, "sankeyData", d.SankeyData); err != nil {
		return nil, err
	}
	return d, nil
}

func DecodeTimeSeries(raw []byte) (*metrics.TimeSeriesData, error) {
	var d metrics.TimeSeriesData
	if err := decode(metrics.DomainTimeSeries, raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func TimeSeries(raw []byte) (*metrics.TimeSeriesData, error) {
	d, err := DecodeTimeSeries(raw)
	if err != nil {
		return nil, err
	}
	if err := fieldErr(metrics.DomainTimeSeries, "metrics", d.Metrics); err != nil {
		return nil, err
	}
	return d, nil
}

func AgentDetails(raw []byte) (*metrics.AgentDetails, error) {
	var d metrics.AgentDetails
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("agent details: decode: %w", err)
	}
	if d.ID == "" {
		return nil, &FormatError{Domain: "agent", Field: "id", Reason: "missing"}
	}
	return &d, nil
}

// SquareMatrix checks that every row's length equals the row count. A ragged
// mobility matrix has no positional from/to interpretation, so this is a hard
// precondition before any rendering. A nil matrix passes (the layer is simply
// absent).
func SquareMatrix(m [][]float64) error {
	if m == nil {
		return nil
	}
	n := len(m)
	for i, row := range m {
		if len(row) != n {
			return &FormatError{
				Domain: metrics.DomainInequality,
				Field:  "mobilityMatrix",
				Reason: fmt.Sprintf("not a square matrix: row %d has %d columns, want %d", i, len(row), n),
			}
		}
	}
	return nil
}
