// Package metrics defines the typed aggregates for the six telemetry domains
// produced by the simulation engine. Aggregates are decoded whole at the
// boundary and replaced whole on every update; nothing in this package is
// mutated in place after decode.
package metrics

// Domain names as they appear on the wire (REST paths and realtime payload keys).
const (
	DomainNetwork    = "network"
	DomainTimeline   = "timeline"
	DomainSpatial    = "spatial"
	DomainInequality = "inequality"
	DomainCultural   = "cultural"
	DomainTimeSeries = "timeseries"
)

// Domains lists all six domain names in canonical order.
var Domains = []string{
	DomainNetwork,
	DomainTimeline,
	DomainSpatial,
	DomainInequality,
	DomainCultural,
	DomainTimeSeries,
}

// NetworkData is the social-network domain aggregate.
type NetworkData struct {
	Nodes       Field[[]NetworkNode] `json:"nodes"`
	Edges       Field[[]NetworkEdge] `json:"edges"`
	Communities []Community          `json:"communities,omitempty"`
}

type NetworkNode struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Centrality float64 `json:"centrality"`
	Community  int     `json:"community"`
}

// NetworkEdge is an undirected weighted relation. Edges whose endpoints do not
// resolve against Nodes are tolerated and simply not rendered; they are never
// repaired.
type NetworkEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

type Community struct {
	ID      int     `json:"id"`
	Size    int     `json:"size"`
	Density float64 `json:"density"`
}

// TimelineData is the behavior-timeline domain aggregate. Per-behavior sample
// timestamps are NOT guaranteed sorted by the producer; consumers sort.
type TimelineData struct {
	Behaviors      Field[map[string][]CountSample] `json:"behaviors"`
	Innovations    []Innovation                    `json:"innovations,omitempty"`
	AdoptionCurves map[string][]int                `json:"adoptionCurves,omitempty"`
}

type CountSample struct {
	Timestamp float64 `json:"timestamp"`
	Count     int     `json:"count"`
}

type Innovation struct {
	Timestamp float64 `json:"timestamp"`
	Behavior  string  `json:"behavior"`
	AgentID   string  `json:"agentId"`
}

// SpatialData is the spatial domain aggregate. Every layer beyond density is
// independently optional for rendering purposes.
type SpatialData struct {
	Density     Field[[]DensityPoint] `json:"density"`
	Trails      []Trail               `json:"trails,omitempty"`
	Territories []Territory           `json:"territories,omitempty"`
	Hotspots    []Hotspot             `json:"hotspots,omitempty"`
}

type DensityPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Value float64 `json:"value"`
}

type Trail struct {
	AgentID string       `json:"agentId"`
	Path    []TrailPoint `json:"path"`
}

type TrailPoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp float64 `json:"timestamp"`
}

type Territory struct {
	CommunityID int     `json:"communityId"`
	Boundary    []Point `json:"boundary"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Hotspot struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Activity float64 `json:"activity"`
	Radius   float64 `json:"radius"`
}

// InequalityData is the wealth-inequality domain aggregate. MobilityMatrix,
// when present, must be square; that is a hard precondition checked before any
// rendering because a ragged matrix has no positional from/to interpretation.
type InequalityData struct {
	LorenzCurve    Field[[]LorenzPoint] `json:"lorenzCurve"`
	GiniTrend      []GiniSample         `json:"giniTrend,omitempty"`
	Quartiles      []Quartile           `json:"quartiles,omitempty"`
	MobilityMatrix [][]float64          `json:"mobilityMatrix,omitempty"`
}

type LorenzPoint struct {
	Population float64 `json:"population"`
	Wealth     float64 `json:"wealth"`
}

type GiniSample struct {
	Timestamp float64 `json:"timestamp"`
	Gini      float64 `json:"gini"`
}

type Quartile struct {
	Label  string  `json:"label"`
	Wealth float64 `json:"wealth"`
	Count  int     `json:"count"`
}

// CulturalData is the cultural-diffusion domain aggregate. Sankey links whose
// endpoints do not resolve against SankeyData.Nodes are skipped at render time.
type CulturalData struct {
	SankeyData        Field[Sankey]      `json:"sankeyData"`
	CascadeTrees      []CascadeNode      `json:"cascadeTrees,omitempty"`
	AdoptionCurves    map[string][]int   `json:"adoptionCurves,omitempty"`
	Influencers       []Influencer       `json:"influencers,omitempty"`
	TransmissionRates map[string]float64 `json:"transmissionRates,omitempty"`
}

type Sankey struct {
	Nodes []SankeyNode `json:"nodes"`
	Links []SankeyLink `json:"links"`
}

type SankeyNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SankeyLink struct {
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Value    float64 `json:"value"`
	Behavior string  `json:"behavior"`
}

type CascadeNode struct {
	AgentID   string        `json:"agentId"`
	Behavior  string        `json:"behavior"`
	Timestamp float64       `json:"timestamp"`
	Children  []CascadeNode `json:"children,omitempty"`
}

type Influencer struct {
	AgentID   string  `json:"agentId"`
	Name      string  `json:"name"`
	Influence float64 `json:"influence"`
}

// TimeSeriesData is the generic time-series domain aggregate.
// AvailableMetrics is the selectable catalog and may name series not (yet)
// present in Metrics.
type TimeSeriesData struct {
	Metrics          Field[map[string][]SeriesSample] `json:"metrics"`
	AvailableMetrics []string                         `json:"availableMetrics,omitempty"`
	Correlations     []Correlation                    `json:"correlations,omitempty"`
}

type SeriesSample struct {
	Timestamp float64 `json:"timestamp"`
	Value     float64 `json:"value"`
}

type Correlation struct {
	MetricA     string  `json:"metricA"`
	MetricB     string  `json:"metricB"`
	Coefficient float64 `json:"coefficient"`
}

// AgentDetails is the on-demand snapshot of one selected agent. It is fetched
// by explicit selection only, never delivered by the realtime feed.
type AgentDetails struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Centrality  float64  `json:"centrality"`
	Community   int      `json:"community"`
	Connections []string `json:"connections,omitempty"`
	Behaviors   []string `json:"behaviors,omitempty"`
	Wealth      float64  `json:"wealth"`
	Position    Point    `json:"position"`
	Innovations int      `json:"innovations"`
}
