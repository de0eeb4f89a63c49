// Package feedsim is a synthetic telemetry producer standing in for the game
// engine during development and tests. It evolves a small agent population
// and serves the same REST and websocket surface the real engine exposes, so
// the dashboard can be developed and exercised without a running simulation.
package feedsim

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"simscope.ai/internal/metrics"
)

const (
	historyCap = 240
	trailCap   = 24
)

var behaviorNames = []string{"forage", "trade", "build", "teach", "explore"}

type agent struct {
	id         string
	name       string
	x, y       float64
	wealth     float64
	community  int
	centrality float64
	behaviors  map[string]bool
	adoptedAt  map[string]uint64
	taughtBy   map[string]string // behavior -> teacher agent id
}

// Generator evolves a seeded agent population one tick at a time and projects
// it into the six domain aggregates. Safe for concurrent use: Step and the
// snapshot methods share one mutex.
type Generator struct {
	mu   sync.Mutex
	rng  *rand.Rand
	tick uint64

	agents []*agent

	// per-behavior active-count history, one sample per tick
	counts      map[string][]metrics.CountSample
	adoption    map[string][]int
	innovations []metrics.Innovation
	trails      map[string][]metrics.TrailPoint
	giniTrend   []metrics.GiniSample
	series      map[string][]metrics.SeriesSample

	// Degrade, when set, makes every degradePeriod-th snapshot of a domain
	// carry a present-but-null mandatory field, to exercise consumer gates.
	Degrade       bool
	degradePeriod uint64
}

func NewGenerator(seed int64, n int) *Generator {
	if n <= 0 {
		n = 24
	}
	g := &Generator{
		rng:           rand.New(rand.NewSource(seed)),
		counts:        make(map[string][]metrics.CountSample),
		adoption:      make(map[string][]int),
		trails:        make(map[string][]metrics.TrailPoint),
		series:        make(map[string][]metrics.SeriesSample),
		degradePeriod: 10,
	}
	for i := 0; i < n; i++ {
		a := &agent{
			id:         fmt.Sprintf("a%d", i+1),
			name:       fmt.Sprintf("agent-%d", i+1),
			x:          g.rng.Float64() * 100,
			y:          g.rng.Float64() * 100,
			wealth:     5 + g.rng.Float64()*20,
			community:  i % 4,
			centrality: g.rng.Float64(),
			behaviors:  make(map[string]bool),
			adoptedAt:  make(map[string]uint64),
			taughtBy:   make(map[string]string),
		}
		if i == 0 {
			a.behaviors[behaviorNames[0]] = true
		}
		g.agents = append(g.agents, a)
	}
	return g
}

// Step advances the population one tick: random-walk positions, wealth drift,
// and behavior transmission between community members.
func (g *Generator) Step() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tick++

	for _, a := range g.agents {
		a.x = clamp(a.x+g.rng.Float64()*4-2, 0, 100)
		a.y = clamp(a.y+g.rng.Float64()*4-2, 0, 100)
		a.wealth = math.Max(0, a.wealth*(1+(g.rng.Float64()-0.48)*0.05))
		g.trails[a.id] = appendCapped(g.trails[a.id], metrics.TrailPoint{
			X: a.x, Y: a.y, Timestamp: float64(g.tick),
		}, trailCap)
	}

	// Transmission: an agent with a behavior occasionally teaches a
	// community member without it. Invention happens rarely.
	for _, a := range g.agents {
		for _, b := range behaviorNames {
			if !a.behaviors[b] || g.rng.Float64() > 0.15 {
				continue
			}
			peer := g.agents[g.rng.Intn(len(g.agents))]
			if peer == a || peer.community != a.community || peer.behaviors[b] {
				continue
			}
			peer.behaviors[b] = true
			peer.adoptedAt[b] = g.tick
			peer.taughtBy[b] = a.id
		}
	}
	if g.rng.Float64() < 0.05 {
		inventor := g.agents[g.rng.Intn(len(g.agents))]
		b := behaviorNames[g.rng.Intn(len(behaviorNames))]
		if !inventor.behaviors[b] {
			inventor.behaviors[b] = true
			inventor.adoptedAt[b] = g.tick
			g.innovations = append(g.innovations, metrics.Innovation{
				Timestamp: float64(g.tick), Behavior: b, AgentID: inventor.id,
			})
		}
	}

	for _, b := range behaviorNames {
		n := 0
		for _, a := range g.agents {
			if a.behaviors[b] {
				n++
			}
		}
		g.counts[b] = appendCapped(g.counts[b], metrics.CountSample{
			Timestamp: float64(g.tick), Count: n,
		}, historyCap)
		g.adoption[b] = appendCapped(g.adoption[b], n, historyCap)
	}

	gini := g.giniLocked()
	g.giniTrend = appendCapped(g.giniTrend, metrics.GiniSample{
		Timestamp: float64(g.tick), Gini: gini,
	}, historyCap)

	totalWealth := 0.0
	for _, a := range g.agents {
		totalWealth += a.wealth
	}
	g.pushSeries("population", float64(len(g.agents)))
	g.pushSeries("avg_wealth", totalWealth/float64(len(g.agents)))
	g.pushSeries("gini", gini)
	g.pushSeries("behaviors_active", float64(len(g.activeBehaviorsLocked())))
}

func (g *Generator) pushSeries(name string, v float64) {
	g.series[name] = appendCapped(g.series[name], metrics.SeriesSample{
		Timestamp: float64(g.tick), Value: v,
	}, historyCap)
}

func (g *Generator) Tick() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tick
}

func (g *Generator) degradeNow(offset uint64) bool {
	return g.Degrade && g.degradePeriod > 0 && (g.tick+offset)%g.degradePeriod == 0
}

func (g *Generator) Network() *metrics.NetworkData {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.degradeNow(0) {
		return &metrics.NetworkData{
			Nodes: metrics.Broken[[]metrics.NetworkNode](),
			Edges: metrics.Ok([]metrics.NetworkEdge{}),
		}
	}

	nodes := make([]metrics.NetworkNode, 0, len(g.agents))
	for _, a := range g.agents {
		nodes = append(nodes, metrics.NetworkNode{
			ID: a.id, Name: a.name, Centrality: a.centrality, Community: a.community,
		})
	}
	var edges []metrics.NetworkEdge
	for _, a := range g.agents {
		for _, teacher := range a.taughtBy {
			edges = append(edges, metrics.NetworkEdge{
				Source: teacher, Target: a.id, Weight: clamp(0.2+g.rng.Float64()*0.8, 0, 1),
			})
		}
	}
	comms := make([]metrics.Community, 0, 4)
	for c := 0; c < 4; c++ {
		size := 0
		for _, a := range g.agents {
			if a.community == c {
				size++
			}
		}
		comms = append(comms, metrics.Community{ID: c, Size: size, Density: clamp(float64(len(edges))/float64(len(g.agents)*4), 0, 1)})
	}
	return &metrics.NetworkData{
		Nodes:       metrics.Ok(nodes),
		Edges:       metrics.Ok(edges),
		Communities: comms,
	}
}

func (g *Generator) Timeline() *metrics.TimelineData {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.degradeNow(1) {
		return &metrics.TimelineData{Behaviors: metrics.Broken[map[string][]metrics.CountSample]()}
	}
	behaviors := make(map[string][]metrics.CountSample, len(g.counts))
	for name, samples := range g.counts {
		behaviors[name] = append([]metrics.CountSample(nil), samples...)
	}
	return &metrics.TimelineData{
		Behaviors:      metrics.Ok(behaviors),
		Innovations:    append([]metrics.Innovation(nil), g.innovations...),
		AdoptionCurves: copyAdoption(g.adoption),
	}
}

func (g *Generator) Spatial() *metrics.SpatialData {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.degradeNow(2) {
		return &metrics.SpatialData{Density: metrics.Broken[[]metrics.DensityPoint]()}
	}

	// 10x10 occupancy grid over the 100x100 field.
	var grid [10][10]int
	maxCell := 1
	for _, a := range g.agents {
		cx, cy := int(a.x/10), int(a.y/10)
		if cx > 9 {
			cx = 9
		}
		if cy > 9 {
			cy = 9
		}
		grid[cx][cy]++
		if grid[cx][cy] > maxCell {
			maxCell = grid[cx][cy]
		}
	}
	var density []metrics.DensityPoint
	var hotspots []metrics.Hotspot
	for cx := 0; cx < 10; cx++ {
		for cy := 0; cy < 10; cy++ {
			if grid[cx][cy] == 0 {
				continue
			}
			v := float64(grid[cx][cy]) / float64(maxCell)
			density = append(density, metrics.DensityPoint{
				X: float64(cx)*10 + 5, Y: float64(cy)*10 + 5, Value: v,
			})
			if grid[cx][cy] >= 3 {
				hotspots = append(hotspots, metrics.Hotspot{
					X: float64(cx)*10 + 5, Y: float64(cy)*10 + 5,
					Activity: float64(grid[cx][cy]), Radius: 8,
				})
			}
		}
	}

	var trails []metrics.Trail
	for _, a := range g.agents {
		if pts := g.trails[a.id]; len(pts) > 1 {
			trails = append(trails, metrics.Trail{AgentID: a.id, Path: append([]metrics.TrailPoint(nil), pts...)})
		}
	}

	var territories []metrics.Territory
	for c := 0; c < 4; c++ {
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		any := false
		for _, a := range g.agents {
			if a.community != c {
				continue
			}
			any = true
			minX, maxX = math.Min(minX, a.x), math.Max(maxX, a.x)
			minY, maxY = math.Min(minY, a.y), math.Max(maxY, a.y)
		}
		if !any {
			continue
		}
		territories = append(territories, metrics.Territory{
			CommunityID: c,
			Boundary: []metrics.Point{
				{X: minX, Y: minY}, {X: maxX, Y: minY},
				{X: maxX, Y: maxY}, {X: minX, Y: maxY},
			},
		})
	}

	return &metrics.SpatialData{
		Density:     metrics.Ok(density),
		Trails:      trails,
		Territories: territories,
		Hotspots:    hotspots,
	}
}

func (g *Generator) Inequality() *metrics.InequalityData {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.degradeNow(3) {
		return &metrics.InequalityData{LorenzCurve: metrics.Broken[[]metrics.LorenzPoint]()}
	}

	wealth := make([]float64, 0, len(g.agents))
	total := 0.0
	for _, a := range g.agents {
		wealth = append(wealth, a.wealth)
		total += a.wealth
	}
	sort.Float64s(wealth)

	var lorenz []metrics.LorenzPoint
	cum := 0.0
	for i, w := range wealth {
		cum += w
		lorenz = append(lorenz, metrics.LorenzPoint{
			Population: float64(i+1) / float64(len(wealth)),
			Wealth:     cum / total,
		})
	}

	q := len(wealth) / 4
	quartiles := make([]metrics.Quartile, 0, 4)
	for i := 0; i < 4; i++ {
		lo, hi := i*q, (i+1)*q
		if i == 3 {
			hi = len(wealth)
		}
		sum := 0.0
		for _, w := range wealth[lo:hi] {
			sum += w
		}
		quartiles = append(quartiles, metrics.Quartile{
			Label: fmt.Sprintf("Q%d", i+1), Wealth: sum, Count: hi - lo,
		})
	}

	// Row-stochastic 4x4 mobility matrix biased toward staying put.
	mobility := make([][]float64, 4)
	for i := range mobility {
		row := make([]float64, 4)
		rowSum := 0.0
		for j := range row {
			v := g.rng.Float64() * 0.2
			if i == j {
				v += 1
			}
			row[j] = v
			rowSum += v
		}
		for j := range row {
			row[j] /= rowSum
		}
		mobility[i] = row
	}

	return &metrics.InequalityData{
		LorenzCurve:    metrics.Ok(lorenz),
		GiniTrend:      append([]metrics.GiniSample(nil), g.giniTrend...),
		Quartiles:      quartiles,
		MobilityMatrix: mobility,
	}
}

func (g *Generator) Cultural() *metrics.CulturalData {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.degradeNow(4) {
		return &metrics.CulturalData{SankeyData: metrics.Broken[metrics.Sankey]()}
	}

	var nodes []metrics.SankeyNode
	seen := make(map[string]bool)
	var links []metrics.SankeyLink
	for _, a := range g.agents {
		for b, teacher := range a.taughtBy {
			for _, id := range []string{teacher, a.id} {
				if !seen[id] {
					seen[id] = true
					nodes = append(nodes, metrics.SankeyNode{ID: id, Name: g.nameOfLocked(id)})
				}
			}
			links = append(links, metrics.SankeyLink{Source: teacher, Target: a.id, Value: 1, Behavior: b})
		}
	}

	trees := g.cascadeTreesLocked()

	rates := make(map[string]float64, len(behaviorNames))
	for _, b := range behaviorNames {
		n := 0
		for _, a := range g.agents {
			if a.behaviors[b] {
				n++
			}
		}
		rates[b] = float64(n) / float64(len(g.agents))
	}

	influence := make(map[string]int)
	for _, a := range g.agents {
		for _, teacher := range a.taughtBy {
			influence[teacher]++
		}
	}
	var influencers []metrics.Influencer
	for id, n := range influence {
		influencers = append(influencers, metrics.Influencer{
			AgentID: id, Name: g.nameOfLocked(id), Influence: float64(n),
		})
	}
	sort.Slice(influencers, func(i, j int) bool {
		if influencers[i].Influence != influencers[j].Influence {
			return influencers[i].Influence > influencers[j].Influence
		}
		return influencers[i].AgentID < influencers[j].AgentID
	})

	return &metrics.CulturalData{
		SankeyData:        metrics.Ok(metrics.Sankey{Nodes: nodes, Links: links}),
		CascadeTrees:      trees,
		AdoptionCurves:    copyAdoption(g.adoption),
		Influencers:       influencers,
		TransmissionRates: rates,
	}
}

// cascadeTreesLocked rebuilds propagation trees from the taught-by records:
// one root per innovation, children are the agents each node taught.
func (g *Generator) cascadeTreesLocked() []metrics.CascadeNode {
	students := make(map[string][]*agent) // teacher id + behavior -> students
	for _, a := range g.agents {
		for b, teacher := range a.taughtBy {
			students[teacher+"/"+b] = append(students[teacher+"/"+b], a)
		}
	}
	var build func(id, behavior string, ts float64, depth int) metrics.CascadeNode
	build = func(id, behavior string, ts float64, depth int) metrics.CascadeNode {
		n := metrics.CascadeNode{AgentID: id, Behavior: behavior, Timestamp: ts}
		if depth >= 6 {
			return n
		}
		for _, s := range students[id+"/"+behavior] {
			n.Children = append(n.Children, build(s.id, behavior, float64(s.adoptedAt[behavior]), depth+1))
		}
		return n
	}
	var trees []metrics.CascadeNode
	for _, inv := range g.innovations {
		trees = append(trees, build(inv.AgentID, inv.Behavior, inv.Timestamp, 0))
	}
	return trees
}

func (g *Generator) TimeSeries() *metrics.TimeSeriesData {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.degradeNow(5) {
		return &metrics.TimeSeriesData{Metrics: metrics.Broken[map[string][]metrics.SeriesSample]()}
	}

	series := make(map[string][]metrics.SeriesSample, len(g.series))
	names := make([]string, 0, len(g.series))
	for name, samples := range g.series {
		series[name] = append([]metrics.SeriesSample(nil), samples...)
		names = append(names, name)
	}
	sort.Strings(names)

	var corrs []metrics.Correlation
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if c, ok := pearson(series[names[i]], series[names[j]]); ok {
				corrs = append(corrs, metrics.Correlation{
					MetricA: names[i], MetricB: names[j], Coefficient: c,
				})
			}
		}
	}

	return &metrics.TimeSeriesData{
		Metrics:          metrics.Ok(series),
		AvailableMetrics: names,
		Correlations:     corrs,
	}
}

func (g *Generator) AgentDetails(id string) (*metrics.AgentDetails, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, a := range g.agents {
		if a.id != id {
			continue
		}
		var behaviors []string
		for b := range a.behaviors {
			behaviors = append(behaviors, b)
		}
		sort.Strings(behaviors)
		connections := make(map[string]bool)
		for _, teacher := range a.taughtBy {
			connections[teacher] = true
		}
		for _, other := range g.agents {
			for _, teacher := range other.taughtBy {
				if teacher == a.id {
					connections[other.id] = true
				}
			}
		}
		conns := make([]string, 0, len(connections))
		for cid := range connections {
			conns = append(conns, cid)
		}
		sort.Strings(conns)
		innovations := 0
		for _, inv := range g.innovations {
			if inv.AgentID == a.id {
				innovations++
			}
		}
		return &metrics.AgentDetails{
			ID: a.id, Name: a.name,
			Centrality: a.centrality, Community: a.community,
			Connections: conns, Behaviors: behaviors,
			Wealth:      a.wealth,
			Position:    metrics.Point{X: a.x, Y: a.y},
			Innovations: innovations,
		}, true
	}
	return nil, false
}

func (g *Generator) giniLocked() float64 {
	n := len(g.agents)
	if n == 0 {
		return 0
	}
	wealth := make([]float64, 0, n)
	total := 0.0
	for _, a := range g.agents {
		wealth = append(wealth, a.wealth)
		total += a.wealth
	}
	if total == 0 {
		return 0
	}
	sort.Float64s(wealth)
	weighted := 0.0
	for i, w := range wealth {
		weighted += float64(i+1) * w
	}
	return (2*weighted)/(float64(n)*total) - float64(n+1)/float64(n)
}

func (g *Generator) activeBehaviorsLocked() []string {
	var out []string
	for _, b := range behaviorNames {
		for _, a := range g.agents {
			if a.behaviors[b] {
				out = append(out, b)
				break
			}
		}
	}
	return out
}

func (g *Generator) nameOfLocked(id string) string {
	for _, a := range g.agents {
		if a.id == id {
			return a.name
		}
	}
	return id
}

func pearson(a, b []metrics.SeriesSample) (float64, bool) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return 0, false
	}
	a, b = a[len(a)-n:], b[len(b)-n:]
	var sumA, sumB float64
	for i := 0; i < n; i++ {
		sumA += a[i].Value
		sumB += b[i].Value
	}
	meanA, meanB := sumA/float64(n), sumB/float64(n)
	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da, db := a[i].Value-meanA, b[i].Value-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0, false
	}
	return cov / math.Sqrt(varA*varB), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func appendCapped[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if len(s) > limit {
		s = s[len(s)-limit:]
	}
	return s
}

func copyAdoption(m map[string][]int) map[string][]int {
	out := make(map[string][]int, len(m))
	for k, v := range m {
		out[k] = append([]int(nil), v...)
	}
	return out
}
