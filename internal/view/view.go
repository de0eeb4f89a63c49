// Package view holds the six structurally-parallel view models. Each Build
// walks the same four-stage gate before deriving its chart-ready frame:
// loading, absence, shape, render. The stage-3 split is deliberate: a
// mandatory field that is entirely absent is a producer contract violation
// and propagates as an error (loud in development and tests), while a field
// that is present but of the wrong kind degrades to an inline message the
// renderer can display without crashing.
package view

import (
	"fmt"

	"simscope.ai/internal/metrics"
)

type Status int

const (
	StatusLoading Status = iota
	StatusNoData
	StatusDegraded
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusNoData:
		return "no-data"
	case StatusDegraded:
		return "degraded"
	case StatusReady:
		return "ready"
	}
	return "unknown"
}

const msgNoData = "no data available"

// ContractError reports a documented mandatory field entirely absent from an
// otherwise-present aggregate. It is expected never to occur against a
// conformant producer.
type ContractError struct {
	Domain string
	Field  string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: contract violation: mandatory field %q absent", e.Domain, e.Field)
}

// gateField resolves the shape stage for one mandatory field. A nil error
// with StatusReady means the field cleared the gate; StatusDegraded carries
// the inline message naming domain and expected field.
func gateField[T any](domain, field string, f metrics.Field[T]) (Status, string, error) {
	if !f.Present {
		return 0, "", &ContractError{Domain: domain, Field: field}
	}
	if !f.Valid {
		return StatusDegraded, fmt.Sprintf("%s data malformed: expected %q", domain, field), nil
	}
	return StatusReady, "", nil
}
