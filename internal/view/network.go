package view

import (
	"simscope.ai/internal/metrics"
)

// NetworkView filters the social graph by community and minimum centrality
// before building the render graph.
type NetworkView struct {
	Community     int // -1 selects every community
	MinCentrality float64
}

func NewNetworkView() *NetworkView {
	return &NetworkView{Community: -1}
}

type NetworkFrame struct {
	Status  Status
	Message string

	Nodes       []metrics.NetworkNode
	Edges       []metrics.NetworkEdge
	Communities []metrics.Community
}

func (v *NetworkView) Build(d *metrics.NetworkData, loading bool) (NetworkFrame, error) {
	if loading {
		return NetworkFrame{Status: StatusLoading, Message: "loading network metrics"}, nil
	}
	if d == nil {
		return NetworkFrame{Status: StatusNoData, Message: msgNoData}, nil
	}
	for _, gate := range []struct {
		st  Status
		msg string
		err error
	}{
		wrap(gateField(metrics.DomainNetwork, "nodes", d.Nodes)),
		wrap(gateField(metrics.DomainNetwork, "edges", d.Edges)),
	} {
		if gate.err != nil {
			return NetworkFrame{}, gate.err
		}
		if gate.st == StatusDegraded {
			return NetworkFrame{Status: StatusDegraded, Message: gate.msg}, nil
		}
	}

	kept := make(map[string]bool, len(d.Nodes.Value))
	nodes := make([]metrics.NetworkNode, 0, len(d.Nodes.Value))
	for _, n := range d.Nodes.Value {
		if v.Community >= 0 && n.Community != v.Community {
			continue
		}
		if n.Centrality < v.MinCentrality {
			continue
		}
		nodes = append(nodes, n)
		kept[n.ID] = true
	}

	// Dangling edges (an endpoint missing from nodes) are tolerated by not
	// rendering them, same as edges filtered out with their endpoints.
	edges := make([]metrics.NetworkEdge, 0, len(d.Edges.Value))
	for _, e := range d.Edges.Value {
		if kept[e.Source] && kept[e.Target] {
			edges = append(edges, e)
		}
	}

	return NetworkFrame{
		Status:      StatusReady,
		Nodes:       nodes,
		Edges:       edges,
		Communities: d.Communities,
	}, nil
}

type gateResult struct {
	st  Status
	msg string
	err error
}

func wrap(st Status, msg string, err error) gateResult {
	return gateResult{st: st, msg: msg, err: err}
}

// Connection is one neighbor of a selected node.
type Connection struct {
	PeerID string
	Weight float64
}

// Connections reports the neighbors of one node from the unfiltered edge set,
// skipping dangling edges. Used when a node is clicked, alongside (or instead
// of) a detail fetch.
func (v *NetworkView) Connections(d *metrics.NetworkData, id string) []Connection {
	if d == nil || !d.Nodes.Valid || !d.Edges.Valid {
		return nil
	}
	known := make(map[string]bool, len(d.Nodes.Value))
	for _, n := range d.Nodes.Value {
		known[n.ID] = true
	}
	var out []Connection
	for _, e := range d.Edges.Value {
		if !known[e.Source] || !known[e.Target] {
			continue
		}
		switch id {
		case e.Source:
			out = append(out, Connection{PeerID: e.Target, Weight: e.Weight})
		case e.Target:
			out = append(out, Connection{PeerID: e.Source, Weight: e.Weight})
		}
	}
	return out
}
