package view

import (
	"math"

	"simscope.ai/internal/metrics"
	"simscope.ai/internal/transform"
)

// InequalityView renders the Lorenz curve with the two synthetic endpoints
// (0,0) and (1,1) appended for the equality reference line, and supports a
// two-period comparison over the Gini trend.
type InequalityView struct {
	Compare  bool
	CompareA float64 // timestamps; the nearest Gini sample to each is used
	CompareB float64
}

func NewInequalityView() *InequalityView {
	return &InequalityView{}
}

type InequalityFrame struct {
	Status  Status
	Message string

	Lorenz    []metrics.LorenzPoint // supplied points plus the two endpoints
	GiniTrend []metrics.GiniSample
	Quartiles []metrics.Quartile
	Mobility  [][]float64

	GiniDelta float64
	HasDelta  bool
}

func (v *InequalityView) Build(d *metrics.InequalityData, loading bool) (InequalityFrame, error) {
	if loading {
		return InequalityFrame{Status: StatusLoading, Message: "loading inequality metrics"}, nil
	}
	if d == nil {
		return InequalityFrame{Status: StatusNoData, Message: msgNoData}, nil
	}
	st, msg, err := gateField(metrics.DomainInequality, "lorenzCurve", d.LorenzCurve)
	if err != nil {
		return InequalityFrame{}, err
	}
	if st == StatusDegraded {
		return InequalityFrame{Status: StatusDegraded, Message: msg}, nil
	}
	// A ragged mobility matrix has no positional interpretation and would
	// silently mis-render; hard stop before any drawing.
	if err := transform.SquareMatrix(d.MobilityMatrix); err != nil {
		return InequalityFrame{}, err
	}

	lorenz := make([]metrics.LorenzPoint, 0, len(d.LorenzCurve.Value)+2)
	lorenz = append(lorenz, metrics.LorenzPoint{Population: 0, Wealth: 0})
	lorenz = append(lorenz, d.LorenzCurve.Value...)
	lorenz = append(lorenz, metrics.LorenzPoint{Population: 1, Wealth: 1})

	f := InequalityFrame{
		Status:    StatusReady,
		Lorenz:    lorenz,
		GiniTrend: d.GiniTrend,
		Quartiles: d.Quartiles,
		Mobility:  d.MobilityMatrix,
	}
	if v.Compare {
		if a, okA := nearestGini(d.GiniTrend, v.CompareA); okA {
			if b, okB := nearestGini(d.GiniTrend, v.CompareB); okB {
				f.GiniDelta = b - a
				f.HasDelta = true
			}
		}
	}
	return f, nil
}

func nearestGini(trend []metrics.GiniSample, ts float64) (float64, bool) {
	if len(trend) == 0 {
		return 0, false
	}
	best := trend[0]
	for _, s := range trend[1:] {
		if math.Abs(s.Timestamp-ts) < math.Abs(best.Timestamp-ts) {
			best = s
		}
	}
	return best.Gini, true
}
