package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"simscope.ai/internal/metrics"
	"simscope.ai/internal/view"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#A6E3A1")).
			Padding(0, 1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1E1E2E")).
			Background(lipgloss.Color("#A6E3A1")).
			Padding(0, 1)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6C7086")).
				Padding(0, 1)

	errorBannerStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#1E1E2E")).
				Background(lipgloss.Color("#F38BA8")).
				Padding(0, 1)

	reconnectStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAB387"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#89B4FA"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F9E2AF"))

	degradedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAB387"))
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// sparkline renders values as a fixed-width run of block characters.
func sparkline(vals []float64, width int) string {
	if len(vals) == 0 || width <= 0 {
		return ""
	}
	if len(vals) > width {
		vals = vals[len(vals)-width:]
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	var b strings.Builder
	for _, v := range vals {
		idx := 0
		if span > 0 {
			idx = int((v - lo) / span * float64(len(sparkRunes)-1))
		}
		b.WriteRune(sparkRunes[idx])
	}
	return b.String()
}

func (m Model) View() string {
	if m.width == 0 {
		return "starting…"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("simscope"))
	if !m.st.Connected() {
		b.WriteString("  ")
		b.WriteString(reconnectStyle.Render("Reconnecting…"))
	}
	b.WriteString("\n")

	for t := tabID(0); t < tabCount; t++ {
		label := fmt.Sprintf("%d %s", int(t)+1, t)
		if t == m.tab {
			b.WriteString(tabActiveStyle.Render(label))
		} else {
			b.WriteString(tabInactiveStyle.Render(label))
		}
	}
	b.WriteString("\n")

	if err := m.st.Err(); err != nil {
		b.WriteString(errorBannerStyle.Render("error: " + err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.tab {
	case tabNetwork:
		b.WriteString(m.renderNetwork())
	case tabTimeline:
		b.WriteString(m.renderTimeline())
	case tabSpatial:
		b.WriteString(m.renderSpatial())
	case tabInequality:
		b.WriteString(m.renderInequality())
	case tabCultural:
		b.WriteString(m.renderCultural())
	case tabTimeSeries:
		b.WriteString(m.renderTimeSeries())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpLine()))
	return b.String()
}

func (m Model) helpLine() string {
	common := "1-6: views | tab: next | j/k: move | q: quit"
	switch m.tab {
	case tabNetwork:
		return "+/-: centrality filter | c: community | enter: agent details | esc: clear | " + common
	case tabTimeline:
		return "←/→: scrub | " + common
	case tabSpatial:
		return "d/t/e/h: toggle layers | " + common
	case tabInequality:
		return "c: compare periods | " + common
	case tabCultural:
		return "enter: expand/collapse cascade | " + common
	case tabTimeSeries:
		return "enter: toggle metric | " + common
	}
	return common
}

// gatePrefix renders the shared non-ready statuses; ok reports whether the
// caller should render the frame body.
func (m Model) gatePrefix(st view.Status, msg string) (string, bool) {
	switch st {
	case view.StatusLoading:
		return m.spin.View() + " " + msg + "\n", false
	case view.StatusNoData:
		return dimStyle.Render(msg) + "\n", false
	case view.StatusDegraded:
		return degradedStyle.Render(msg) + "\n", false
	}
	return "", true
}

func (m Model) renderNetwork() string {
	fr, err := m.network.Build(m.st.Network(), m.st.Loading())
	if err != nil {
		return errorBannerStyle.Render(err.Error()) + "\n"
	}
	if s, ok := m.gatePrefix(fr.Status, fr.Message); !ok {
		return s
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("nodes=%d edges=%d", len(fr.Nodes), len(fr.Edges))))
	if m.network.Community >= 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  community=%d", m.network.Community)))
	}
	if m.network.MinCentrality > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  centrality≥%.2f", m.network.MinCentrality)))
	}
	b.WriteString("\n")

	for i, n := range fr.Nodes {
		line := fmt.Sprintf("%-12s %-16s c=%.2f community=%d", n.ID, n.Name, n.Centrality, n.Community)
		if i == m.cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if sel := m.st.SelectedAgent(); sel != nil {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("agent " + sel.ID))
		b.WriteString(fmt.Sprintf("\n  name=%s wealth=%.1f centrality=%.2f community=%d innovations=%d\n",
			sel.Name, sel.Wealth, sel.Centrality, sel.Community, sel.Innovations))
		if len(sel.Behaviors) > 0 {
			b.WriteString("  behaviors: " + strings.Join(sel.Behaviors, ", ") + "\n")
		}
		if len(sel.Connections) > 0 {
			b.WriteString("  connections: " + strings.Join(sel.Connections, ", ") + "\n")
		}
	}
	return b.String()
}

func (m Model) renderTimeline() string {
	fr, err := m.timeline.Build(m.st.Timeline(), m.st.Loading())
	if err != nil {
		return errorBannerStyle.Render(err.Error()) + "\n"
	}
	if s, ok := m.gatePrefix(fr.Status, fr.Message); !ok {
		return s
	}

	var b strings.Builder
	scrub := "full range"
	if m.timeline.Scrub >= 0 {
		scrub = fmt.Sprintf("row %d/%d", m.timeline.Scrub+1, m.fullTimelineRows())
	}
	b.WriteString(headerStyle.Render("behaviors over time") + dimStyle.Render("  ["+scrub+"]") + "\n")

	width := maxInt(10, m.width-24)
	for i, name := range fr.Behaviors {
		vals := make([]float64, len(fr.Rows))
		for r, row := range fr.Rows {
			vals[r] = float64(row.Counts[i])
		}
		b.WriteString(fmt.Sprintf("%-14s %s\n", name, sparkline(vals, width)))
	}

	if len(fr.Markers) > 0 {
		b.WriteString(headerStyle.Render("innovations") + "\n")
		for _, ev := range fr.Markers {
			b.WriteString(fmt.Sprintf("  t=%.0f %s by %s\n", ev.Timestamp, ev.Behavior, ev.AgentID))
		}
	}
	return b.String()
}

func (m Model) renderSpatial() string {
	fr, err := m.spatial.Build(m.st.Spatial(), m.st.Loading())
	if err != nil {
		return errorBannerStyle.Render(err.Error()) + "\n"
	}
	if s, ok := m.gatePrefix(fr.Status, fr.Message); !ok {
		return s
	}

	onOff := func(on bool) string {
		if on {
			return "on"
		}
		return "off"
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("layers") + "\n")
	b.WriteString(fmt.Sprintf("  [d] density     %-3s  %d points\n", onOff(fr.ShowDensity), len(fr.Density)))
	b.WriteString(fmt.Sprintf("  [t] trails      %-3s  %d agents\n", onOff(fr.ShowTrails), len(fr.Trails)))
	b.WriteString(fmt.Sprintf("  [e] territories %-3s  %d communities\n", onOff(fr.ShowTerritories), len(fr.Territories)))
	b.WriteString(fmt.Sprintf("  [h] hotspots    %-3s  %d\n", onOff(fr.ShowHotspots), len(fr.Hotspots)))

	if fr.ShowDensity && len(fr.Density) > 0 {
		b.WriteString("\n")
		b.WriteString(m.renderDensityGrid(fr.Density))
	}
	if fr.ShowHotspots {
		for _, h := range fr.Hotspots {
			b.WriteString(fmt.Sprintf("  hotspot (%.0f,%.0f) activity=%.2f r=%.1f\n", h.X, h.Y, h.Activity, h.Radius))
		}
	}
	return b.String()
}

// renderDensityGrid bins density points into a coarse character raster.
func (m Model) renderDensityGrid(pts []metrics.DensityPoint) string {
	const w, h = 40, 12
	var maxX, maxY float64 = 1, 1
	for _, p := range pts {
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	grid := make([]float64, w*h)
	for _, p := range pts {
		// Points outside the scaled field (negative or runaway coordinates)
		// land on the nearest edge cell.
		cx := clamp(int(p.X/maxX*(w-1)), 0, w-1)
		cy := clamp(int(p.Y/maxY*(h-1)), 0, h-1)
		cell := cy*w + cx
		if grid[cell] < p.Value {
			grid[cell] = p.Value
		}
	}
	shades := []rune(" ░▒▓█")
	var b strings.Builder
	for y := 0; y < h; y++ {
		b.WriteString("  ")
		for x := 0; x < w; x++ {
			v := clampFloat(grid[y*w+x], 0, 1)
			b.WriteRune(shades[int(v*float64(len(shades)-1))])
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderInequality() string {
	fr, err := m.inequality.Build(m.st.Inequality(), m.st.Loading())
	if err != nil {
		return errorBannerStyle.Render(err.Error()) + "\n"
	}
	if s, ok := m.gatePrefix(fr.Status, fr.Message); !ok {
		return s
	}

	var b strings.Builder
	if len(fr.GiniTrend) > 0 {
		vals := make([]float64, len(fr.GiniTrend))
		for i, g := range fr.GiniTrend {
			vals[i] = g.Gini
		}
		cur := fr.GiniTrend[len(fr.GiniTrend)-1].Gini
		b.WriteString(headerStyle.Render(fmt.Sprintf("gini %.3f  ", cur)))
		b.WriteString(sparkline(vals, maxInt(10, m.width-20)))
		b.WriteString("\n")
	}
	if fr.HasDelta {
		b.WriteString(fmt.Sprintf("  compare Δgini=%+.3f\n", fr.GiniDelta))
	}

	if len(fr.Quartiles) > 0 {
		b.WriteString(headerStyle.Render("quartiles") + "\n")
		for _, q := range fr.Quartiles {
			b.WriteString(fmt.Sprintf("  %-4s wealth=%10.1f agents=%d\n", q.Label, q.Wealth, q.Count))
		}
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("lorenz curve (%d points)", len(fr.Lorenz))) + "\n")
	if len(fr.Mobility) > 0 {
		b.WriteString(headerStyle.Render("mobility") + "\n")
		for _, row := range fr.Mobility {
			b.WriteString("  ")
			for _, v := range row {
				b.WriteString(fmt.Sprintf("%5.2f", v))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderCultural() string {
	fr, err := m.cultural.Build(m.st.Cultural(), m.st.Loading())
	if err != nil {
		return errorBannerStyle.Render(err.Error()) + "\n"
	}
	if s, ok := m.gatePrefix(fr.Status, fr.Message); !ok {
		return s
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("flows=%d", len(fr.Flows))))
	if fr.SkippedLinks > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  (%d unresolved links skipped)", fr.SkippedLinks)))
	}
	b.WriteString("\n")
	for _, f := range fr.Flows {
		b.WriteString(fmt.Sprintf("  %s → %s  %.1f (%s)\n", f.Source.Name, f.Target.Name, f.Value, f.Behavior))
	}

	if len(fr.Cascades) > 0 {
		b.WriteString(headerStyle.Render("cascades") + "\n")
		for i, row := range fr.Cascades {
			marker := "  "
			if row.HasKids {
				if row.Expanded {
					marker = "▼ "
				} else {
					marker = "▶ "
				}
			}
			line := strings.Repeat("  ", row.Indent) + marker +
				fmt.Sprintf("%s %s t=%.0f", row.AgentID, row.Behavior, row.Timestamp)
			switch {
			case i == m.cursor:
				line = selectedStyle.Render("> " + line)
			case row.Dimmed:
				line = dimStyle.Render("  " + line)
			default:
				line = "  " + line
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if len(fr.TransmissionRates) > 0 {
		b.WriteString(headerStyle.Render("transmission") + "\n")
		names := make([]string, 0, len(fr.TransmissionRates))
		for name := range fr.TransmissionRates {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b.WriteString(fmt.Sprintf("  %-14s %.2f", name, fr.TransmissionRates[name]))
			if v, ok := fr.AdoptionVelocity[name]; ok {
				b.WriteString(dimStyle.Render(fmt.Sprintf("  velocity=%.1f/step", v)))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderTimeSeries() string {
	fr, err := m.timeseries.Build(m.st.TimeSeries(), m.st.Loading())
	if err != nil {
		return errorBannerStyle.Render(err.Error()) + "\n"
	}
	if s, ok := m.gatePrefix(fr.Status, fr.Message); !ok {
		return s
	}

	var b strings.Builder
	width := maxInt(10, m.width-28)
	for i, name := range fr.Available {
		mark := "[x]"
		if !m.timeseries.IsSelected(name) {
			mark = "[ ]"
		}
		line := fmt.Sprintf("%s %-16s", mark, name)
		if samples, ok := fr.Series[name]; ok {
			vals := make([]float64, len(samples))
			for j, s := range samples {
				vals[j] = s.Value
			}
			line += " " + sparkline(vals, width)
		}
		if i == m.cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(fr.Correlations) > 0 {
		b.WriteString(headerStyle.Render("correlations") + "\n")
		for _, c := range fr.Correlations {
			b.WriteString(fmt.Sprintf("  %s ~ %s  %+.2f\n", c.MetricA, c.MetricB, c.Coefficient))
		}
	}
	return b.String()
}
