package view

import (
	"simscope.ai/internal/metrics"
)

// CulturalView renders the behavior-diffusion flow diagram, adoption curves
// and the cascade trees. Cascade "collapse" is cosmetic: collapsed subtrees
// lose indentation and highlight but every node and timestamp stays visible.
type CulturalView struct {
	Expanded map[string]bool // agentId -> subtree expanded
}

func NewCulturalView() *CulturalView {
	return &CulturalView{Expanded: make(map[string]bool)}
}

func (v *CulturalView) ToggleCascade(agentID string) {
	if v.Expanded == nil {
		v.Expanded = make(map[string]bool)
	}
	v.Expanded[agentID] = !v.Expanded[agentID]
}

// Flow is one resolved sankey link.
type Flow struct {
	Source   metrics.SankeyNode
	Target   metrics.SankeyNode
	Value    float64
	Behavior string
}

// CascadeRow is one flattened cascade-tree node. Every node is always
// emitted; Indent carries the cosmetic depth (frozen at the nearest collapsed
// ancestor) and Dimmed marks rows under a collapsed subtree.
type CascadeRow struct {
	AgentID   string
	Behavior  string
	Timestamp float64
	Depth     int
	Indent    int
	Dimmed    bool
	HasKids   bool
	Expanded  bool
}

type CulturalFrame struct {
	Status  Status
	Message string

	Flows             []Flow
	SkippedLinks      int // links whose endpoints did not resolve
	Cascades          []CascadeRow
	AdoptionVelocity  map[string]float64
	Influencers       []metrics.Influencer
	TransmissionRates map[string]float64
}

func (v *CulturalView) Build(d *metrics.CulturalData, loading bool) (CulturalFrame, error) {
	if loading {
		return CulturalFrame{Status: StatusLoading, Message: "loading cultural metrics"}, nil
	}
	if d == nil {
		return CulturalFrame{Status: StatusNoData, Message: msgNoData}, nil
	}
	st, msg, err := gateField(metrics.DomainCultural, "sankeyData", d.SankeyData)
	if err != nil {
		return CulturalFrame{}, err
	}
	if st == StatusDegraded {
		return CulturalFrame{Status: StatusDegraded, Message: msg}, nil
	}

	byID := make(map[string]metrics.SankeyNode, len(d.SankeyData.Value.Nodes))
	for _, n := range d.SankeyData.Value.Nodes {
		byID[n.ID] = n
	}
	var flows []Flow
	skipped := 0
	for _, l := range d.SankeyData.Value.Links {
		src, okS := byID[l.Source]
		dst, okT := byID[l.Target]
		if !okS || !okT {
			skipped++
			continue
		}
		flows = append(flows, Flow{Source: src, Target: dst, Value: l.Value, Behavior: l.Behavior})
	}

	var cascades []CascadeRow
	for _, root := range d.CascadeTrees {
		cascades = flatten(cascades, root, 0, 0, false, v.Expanded)
	}

	return CulturalFrame{
		Status:            StatusReady,
		Flows:             flows,
		SkippedLinks:      skipped,
		Cascades:          cascades,
		AdoptionVelocity:  adoptionVelocity(d.AdoptionCurves),
		Influencers:       d.Influencers,
		TransmissionRates: d.TransmissionRates,
	}, nil
}

func flatten(rows []CascadeRow, n metrics.CascadeNode, depth, indent int, dimmed bool, expanded map[string]bool) []CascadeRow {
	exp := expanded[n.AgentID]
	rows = append(rows, CascadeRow{
		AgentID:   n.AgentID,
		Behavior:  n.Behavior,
		Timestamp: n.Timestamp,
		Depth:     depth,
		Indent:    indent,
		Dimmed:    dimmed,
		HasKids:   len(n.Children) > 0,
		Expanded:  exp,
	})
	childIndent := indent
	childDimmed := dimmed
	if exp {
		childIndent++
	} else {
		childDimmed = true
	}
	for _, c := range n.Children {
		rows = flatten(rows, c, depth+1, childIndent, childDimmed, expanded)
	}
	return rows
}

// adoptionVelocity is the finite difference over the first and last sample of
// each behavior's adopter-count series.
func adoptionVelocity(curves map[string][]int) map[string]float64 {
	if len(curves) == 0 {
		return nil
	}
	out := make(map[string]float64, len(curves))
	for name, series := range curves {
		if len(series) < 2 {
			out[name] = 0
			continue
		}
		out[name] = float64(series[len(series)-1]-series[0]) / float64(len(series)-1)
	}
	return out
}
