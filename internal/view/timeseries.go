package view

import (
	"sort"

	"simscope.ai/internal/metrics"
)

// TimeSeriesView lets the user toggle which named metrics are charted. Every
// metric starts selected; overrides record explicit toggles so newly-arriving
// metrics default to on.
type TimeSeriesView struct {
	overrides map[string]bool
}

func NewTimeSeriesView() *TimeSeriesView {
	return &TimeSeriesView{overrides: make(map[string]bool)}
}

func (v *TimeSeriesView) IsSelected(name string) bool {
	if sel, ok := v.overrides[name]; ok {
		return sel
	}
	return true
}

func (v *TimeSeriesView) Toggle(name string) {
	if v.overrides == nil {
		v.overrides = make(map[string]bool)
	}
	v.overrides[name] = !v.IsSelected(name)
}

type TimeSeriesFrame struct {
	Status  Status
	Message string

	Names        []string // selected metric names, sorted
	Series       map[string][]metrics.SeriesSample
	Available    []string // full selectable catalog, may exceed Series
	Correlations []metrics.Correlation
}

func (v *TimeSeriesView) Build(d *metrics.TimeSeriesData, loading bool) (TimeSeriesFrame, error) {
	if loading {
		return TimeSeriesFrame{Status: StatusLoading, Message: "loading time-series metrics"}, nil
	}
	if d == nil {
		return TimeSeriesFrame{Status: StatusNoData, Message: msgNoData}, nil
	}
	st, msg, err := gateField(metrics.DomainTimeSeries, "metrics", d.Metrics)
	if err != nil {
		return TimeSeriesFrame{}, err
	}
	if st == StatusDegraded {
		return TimeSeriesFrame{Status: StatusDegraded, Message: msg}, nil
	}

	names := make([]string, 0, len(d.Metrics.Value))
	series := make(map[string][]metrics.SeriesSample, len(d.Metrics.Value))
	for name, samples := range d.Metrics.Value {
		if !v.IsSelected(name) {
			continue
		}
		names = append(names, name)
		series[name] = samples
	}
	sort.Strings(names)

	// The correlation sub-table keeps only pairs with both ends selected.
	var corr []metrics.Correlation
	for _, c := range d.Correlations {
		if v.IsSelected(c.MetricA) && v.IsSelected(c.MetricB) {
			corr = append(corr, c)
		}
	}

	available := d.AvailableMetrics
	if available == nil {
		available = names
	}

	return TimeSeriesFrame{
		Status:       StatusReady,
		Names:        names,
		Series:       series,
		Available:    available,
		Correlations: corr,
	}, nil
}
