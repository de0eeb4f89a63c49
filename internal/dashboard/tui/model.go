// Package tui renders the six metric views in the terminal. It consumes
// view frames only; all data flow stays in the controller and store.
package tui

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"simscope.ai/internal/dashboard"
	"simscope.ai/internal/store"
	"simscope.ai/internal/view"
)

// StoreChangedMsg wakes the UI after a store slice changed. The model reads
// the store directly; the message carries only which slice moved.
type StoreChangedMsg struct {
	Slice store.Slice
}

type tabID int

const (
	tabNetwork tabID = iota
	tabTimeline
	tabSpatial
	tabInequality
	tabCultural
	tabTimeSeries
	tabCount
)

func (t tabID) String() string {
	switch t {
	case tabNetwork:
		return "Network"
	case tabTimeline:
		return "Timeline"
	case tabSpatial:
		return "Spatial"
	case tabInequality:
		return "Inequality"
	case tabCultural:
		return "Cultural"
	case tabTimeSeries:
		return "Time Series"
	}
	return "?"
}

type keyMap struct {
	Quit  key.Binding
	Tab   key.Binding
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Esc   key.Binding
	Left  key.Binding
	Right key.Binding
}

var keys = keyMap{
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Tab:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
	Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/up", "up")),
	Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/down", "down")),
	Enter: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "select/toggle")),
	Esc:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear selection")),
	Left:  key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "scrub back")),
	Right: key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "scrub forward")),
}

// tabKeys maps the number row to tabs.
var tabKeys = map[string]tabID{
	"1": tabNetwork,
	"2": tabTimeline,
	"3": tabSpatial,
	"4": tabInequality,
	"5": tabCultural,
	"6": tabTimeSeries,
}

type Model struct {
	ctrl *dashboard.Controller
	st   *store.Store

	network    *view.NetworkView
	timeline   *view.TimelineView
	spatial    *view.SpatialView
	inequality *view.InequalityView
	cultural   *view.CulturalView
	timeseries *view.TimeSeriesView

	tab    tabID
	cursor int // row cursor; meaning depends on the active tab
	width  int
	height int

	spin spinner.Model
}

func New(ctrl *dashboard.Controller) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctrl:       ctrl,
		st:         ctrl.Store(),
		network:    view.NewNetworkView(),
		timeline:   view.NewTimelineView(),
		spatial:    view.NewSpatialView(),
		inequality: view.NewInequalityView(),
		cultural:   view.NewCulturalView(),
		timeseries: view.NewTimeSeriesView(),
		spin:       sp,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case StoreChangedMsg:
		m.cursor = clamp(m.cursor, 0, maxInt(0, m.cursorMax()))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if t, ok := tabKeys[msg.String()]; ok {
		m.tab = t
		m.cursor = 0
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Tab):
		m.tab = (m.tab + 1) % tabCount
		m.cursor = 0
		return m, nil

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, keys.Down):
		if m.cursor < m.cursorMax() {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, keys.Enter):
		return m.activate()

	case key.Matches(msg, keys.Esc):
		m.ctrl.ClearSelection()
		return m, nil

	case key.Matches(msg, keys.Left), key.Matches(msg, keys.Right):
		if m.tab == tabTimeline {
			m.scrub(key.Matches(msg, keys.Right))
		}
		return m, nil
	}

	switch m.tab {
	case tabNetwork:
		switch msg.String() {
		case "+", "=":
			m.network.MinCentrality = clampFloat(m.network.MinCentrality+0.05, 0, 1)
		case "-":
			m.network.MinCentrality = clampFloat(m.network.MinCentrality-0.05, 0, 1)
		case "c":
			m.network.Community = m.nextCommunity()
			m.cursor = 0
		}
	case tabSpatial:
		switch msg.String() {
		case "d":
			m.spatial.ShowDensity = !m.spatial.ShowDensity
		case "t":
			m.spatial.ShowTrails = !m.spatial.ShowTrails
		case "e":
			m.spatial.ShowTerritories = !m.spatial.ShowTerritories
		case "h":
			m.spatial.ShowHotspots = !m.spatial.ShowHotspots
		}
	case tabInequality:
		if msg.String() == "c" {
			m.inequality.Compare = !m.inequality.Compare
			if m.inequality.Compare {
				m.defaultComparePeriods()
			}
		}
	}
	return m, nil
}

// activate handles enter/space on the row the cursor sits on.
func (m Model) activate() (tea.Model, tea.Cmd) {
	switch m.tab {
	case tabNetwork:
		fr, err := m.network.Build(m.st.Network(), m.st.Loading())
		if err != nil || m.cursor >= len(fr.Nodes) {
			return m, nil
		}
		id := fr.Nodes[m.cursor].ID
		ctrl := m.ctrl
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = ctrl.SelectAgent(ctx, id)
			return StoreChangedMsg{Slice: store.SliceSelectedAgent}
		}

	case tabCultural:
		fr, err := m.cultural.Build(m.st.Cultural(), m.st.Loading())
		if err != nil || m.cursor >= len(fr.Cascades) {
			return m, nil
		}
		m.cultural.ToggleCascade(fr.Cascades[m.cursor].AgentID)

	case tabTimeSeries:
		names := m.timeseriesCatalog()
		if m.cursor < len(names) {
			m.timeseries.Toggle(names[m.cursor])
		}
	}
	return m, nil
}

// scrub moves the timeline scrubber. -1 means the full range.
func (m Model) scrub(forward bool) {
	fr, err := m.timeline.Build(m.st.Timeline(), m.st.Loading())
	if err != nil || fr.Status != view.StatusReady {
		return
	}
	full := m.fullTimelineRows()
	if full == 0 {
		return
	}
	cur := m.timeline.Scrub
	if forward {
		switch {
		case cur == -1:
			// already at the full range
		case cur >= full-1:
			m.timeline.Scrub = -1
		default:
			m.timeline.Scrub = cur + 1
		}
	} else {
		if cur == -1 {
			m.timeline.Scrub = full - 1
		} else if cur > 0 {
			m.timeline.Scrub = cur - 1
		}
	}
}

// fullTimelineRows counts rows with the scrubber released.
func (m Model) fullTimelineRows() int {
	saved := m.timeline.Scrub
	m.timeline.Scrub = -1
	fr, err := m.timeline.Build(m.st.Timeline(), m.st.Loading())
	m.timeline.Scrub = saved
	if err != nil {
		return 0
	}
	return len(fr.Rows)
}

// nextCommunity cycles -1 (all) through every community id present.
func (m Model) nextCommunity() int {
	d := m.st.Network()
	if d == nil || !d.Nodes.Valid {
		return -1
	}
	seen := map[int]bool{}
	var ids []int
	for _, n := range d.Nodes.Value {
		if !seen[n.Community] {
			seen[n.Community] = true
			ids = append(ids, n.Community)
		}
	}
	if len(ids) == 0 {
		return -1
	}
	sort.Ints(ids)
	cur := m.network.Community
	for i, id := range ids {
		if id == cur {
			if i+1 < len(ids) {
				return ids[i+1]
			}
			return -1
		}
	}
	return ids[0]
}

func (m Model) defaultComparePeriods() {
	d := m.st.Inequality()
	if d == nil || len(d.GiniTrend) < 2 {
		m.inequality.Compare = false
		return
	}
	m.inequality.CompareA = d.GiniTrend[0].Timestamp
	m.inequality.CompareB = d.GiniTrend[len(d.GiniTrend)-1].Timestamp
}

func (m Model) timeseriesCatalog() []string {
	fr, err := m.timeseries.Build(m.st.TimeSeries(), m.st.Loading())
	if err != nil {
		return nil
	}
	return fr.Available
}

// cursorMax is the last selectable row index on the active tab.
func (m Model) cursorMax() int {
	switch m.tab {
	case tabNetwork:
		if fr, err := m.network.Build(m.st.Network(), m.st.Loading()); err == nil {
			return len(fr.Nodes) - 1
		}
	case tabCultural:
		if fr, err := m.cultural.Build(m.st.Cultural(), m.st.Loading()); err == nil {
			return len(fr.Cascades) - 1
		}
	case tabTimeSeries:
		return len(m.timeseriesCatalog()) - 1
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
