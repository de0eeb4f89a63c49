package view

import (
	"sort"

	"simscope.ai/internal/metrics"
)

// TimelineView unions all per-behavior timestamps into one sorted axis and
// builds one dense row per timestamp, zero-filling behaviors with no sample
// there. The scrubber truncates the visible rows and event markers.
type TimelineView struct {
	Scrub int // row index to scrub to; -1 shows everything
}

func NewTimelineView() *TimelineView {
	return &TimelineView{Scrub: -1}
}

type TimelineRow struct {
	Timestamp float64
	Counts    []int // aligned with TimelineFrame.Behaviors
}

type TimelineFrame struct {
	Status  Status
	Message string

	Behaviors []string // sorted
	Rows      []TimelineRow
	Markers   []metrics.Innovation
	Adoption  map[string][]int
}

func (v *TimelineView) Build(d *metrics.TimelineData, loading bool) (TimelineFrame, error) {
	if loading {
		return TimelineFrame{Status: StatusLoading, Message: "loading timeline metrics"}, nil
	}
	if d == nil {
		return TimelineFrame{Status: StatusNoData, Message: msgNoData}, nil
	}
	st, msg, err := gateField(metrics.DomainTimeline, "behaviors", d.Behaviors)
	if err != nil {
		return TimelineFrame{}, err
	}
	if st == StatusDegraded {
		return TimelineFrame{Status: StatusDegraded, Message: msg}, nil
	}

	behaviors := make([]string, 0, len(d.Behaviors.Value))
	for name := range d.Behaviors.Value {
		behaviors = append(behaviors, name)
	}
	sort.Strings(behaviors)

	// Producers do not guarantee sorted timestamps; the union axis sorts.
	tsSet := make(map[float64]struct{})
	for _, samples := range d.Behaviors.Value {
		for _, s := range samples {
			tsSet[s.Timestamp] = struct{}{}
		}
	}
	axis := make([]float64, 0, len(tsSet))
	for ts := range tsSet {
		axis = append(axis, ts)
	}
	sort.Float64s(axis)

	byTS := make(map[float64][]int, len(axis))
	for _, ts := range axis {
		byTS[ts] = make([]int, len(behaviors))
	}
	for bi, name := range behaviors {
		for _, s := range d.Behaviors.Value[name] {
			byTS[s.Timestamp][bi] = s.Count
		}
	}
	rows := make([]TimelineRow, 0, len(axis))
	for _, ts := range axis {
		rows = append(rows, TimelineRow{Timestamp: ts, Counts: byTS[ts]})
	}

	markers := d.Innovations
	if v.Scrub >= 0 && v.Scrub < len(rows)-1 {
		rows = rows[:v.Scrub+1]
		cutoff := rows[len(rows)-1].Timestamp
		markers = nil
		for _, m := range d.Innovations {
			if m.Timestamp <= cutoff {
				markers = append(markers, m)
			}
		}
	}

	return TimelineFrame{
		Status:    StatusReady,
		Behaviors: behaviors,
		Rows:      rows,
		Markers:   markers,
		Adoption:  d.AdoptionCurves,
	}, nil
}
