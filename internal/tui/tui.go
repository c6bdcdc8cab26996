// Package tui provides a Bubble Tea browser for stored tab sessions.
package tui

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/tabdock/internal/session"
)

// ── Styles ────────────

var (
	// Title bar at the very top
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	pinStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	// Group badges cycle through these.
	groupColors = []lipgloss.Color{"82", "214", "39", "170", "203", "45", "226"}
)

// Model is the root Bubble Tea model for the session browser. Tab 0 is the
// overview; tab i shows stored session i-1.
type Model struct {
	sessions  []session.Snapshot
	config    session.Config
	activeTab int
	viewports []viewport.Model
	width     int
	height    int
	ready     bool
	byGroup   bool
}

// New creates a model over sessions, newest first.
func New(sessions []session.Snapshot, cfg session.Config) Model {
	return Model{sessions: sessions, config: cfg}
}

func (m Model) tabCount() int { return len(m.sessions) + 1 }

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % m.tabCount()
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + m.tabCount()) % m.tabCount()
		case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
			if i := int(msg.String()[0] - '0'); i < m.tabCount() {
				m.activeTab = i
			}
		case "g":
			if m.activeTab > 0 {
				m.byGroup = !m.byGroup
				m.rebuildSessionViewports()
			}
		}
		if !m.ready {
			return m, nil
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render(fmt.Sprintf("  tabdock  %d of %d sessions kept", len(m.sessions), m.config.MaxSessions))

	var tabParts []string
	for i := 0; i < m.tabCount(); i++ {
		label := fmt.Sprintf(" %d %s ", i, m.tabName(i))
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < m.tabCount()-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	hint := "  ←/→ session  ↑/↓ scroll  0-9 jump  q quit"
	if m.activeTab > 0 {
		mode := "by window"
		if m.byGroup {
			mode = "by group"
		}
		hint += "  g layout (" + mode + ")"
	}
	pct := fmt.Sprintf("%3.0f%%", m.viewports[m.activeTab].ScrollPercent()*100)
	pad := m.width - lipgloss.Width(hint) - len(pct) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(hint + strings.Repeat(" ", pad) + pct)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

func (m Model) tabName(i int) string {
	if i == 0 {
		return "Overview"
	}
	if i == 1 {
		return "Current"
	}
	return fmt.Sprintf("Previous %d", i-1)
}

// ── Viewport management ───────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewports = make([]viewport.Model, m.tabCount())
	for i := range m.viewports {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

func (m *Model) rebuildSessionViewports() {
	if !m.ready {
		return
	}
	for i := 1; i < m.tabCount(); i++ {
		m.viewports[i].SetContent(m.renderTab(i))
		m.viewports[i].GotoTop()
	}
}

func (m *Model) renderTab(i int) string {
	if i == 0 {
		return renderOverview(m.sessions)
	}
	s := m.sessions[i-1]
	if m.byGroup {
		return renderByGroup(s)
	}
	return renderByWindow(s)
}

// ── Renderers ───────────────

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func stamp(ms int64) string {
	if ms == 0 {
		return "never"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}

func renderOverview(sessions []session.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Stored Sessions (%d)", len(sessions))))
	if len(sessions) == 0 {
		sb.WriteString(dimStyle.Render("  (none saved yet)") + "\n")
		return sb.String()
	}
	for i, s := range sessions {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %d.", i+1)) + "  " + s.ID + "\n")
		sb.WriteString(fmt.Sprintf("      %s  %d tabs in %d windows, %d groups\n\n",
			timeStyle.Render(stamp(s.Timestamp)), s.TotalTabs, s.WindowCount, len(s.GroupNames)))
	}
	return sb.String()
}

func renderByWindow(s session.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("%s  saved %s", s.ID, stamp(s.Timestamp))))
	for wi, w := range s.Windows {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  Window %d", wi+1)) + dimStyle.Render(fmt.Sprintf("  (%d tabs)", len(w.Tabs))) + "\n")
		for _, t := range w.Tabs {
			sb.WriteString(tabLine(t, groupName(s, w, t.GroupID)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderByGroup(s session.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("%s  grouped", s.ID)))

	groups := map[string][]session.TabSnapshot{}
	names := map[string]string{}
	for _, w := range s.Windows {
		for _, t := range w.Tabs {
			groups[t.GroupID] = append(groups[t.GroupID], t)
			names[t.GroupID] = groupName(s, w, t.GroupID)
		}
	}
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	// Named groups first, ungrouped tabs last.
	sort.Slice(ids, func(i, j int) bool {
		if (ids[i] == "ungrouped") != (ids[j] == "ungrouped") {
			return ids[j] == "ungrouped"
		}
		return names[ids[i]] < names[ids[j]]
	})

	for _, id := range ids {
		title := names[id]
		if title == "" {
			title = "Ungrouped"
		}
		sb.WriteString(badge(id, title) + dimStyle.Render(fmt.Sprintf("  (%d tabs)", len(groups[id]))) + "\n")
		for _, t := range groups[id] {
			sb.WriteString(tabLine(t, ""))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func tabLine(t session.TabSnapshot, group string) string {
	pin := "  "
	if t.Pinned {
		pin = pinStyle.Render("📌")
	}
	title := t.Title
	if title == "" {
		title = t.URL
	}
	line := fmt.Sprintf("    %s %s", pin, title)
	if group != "" {
		line += "  " + badge(t.GroupID, group)
	}
	return line + "\n" + dimStyle.Render("         "+t.URL) + "\n"
}

// groupName resolves a group id through the window names, then the
// session-wide names. Ungrouped tabs have no name.
func groupName(s session.Snapshot, w session.WindowSnapshot, id string) string {
	if id == "" || id == "ungrouped" {
		return ""
	}
	if n, ok := w.GroupNames[id]; ok {
		return n
	}
	if n, ok := s.GroupNames[id]; ok {
		return n
	}
	return id
}

func badge(id, name string) string {
	h := fnv.New32a()
	h.Write([]byte(id))
	c := groupColors[int(h.Sum32())%len(groupColors)]
	return lipgloss.NewStyle().Foreground(c).Bold(true).Render("[" + name + "]")
}

// Plain renders every session as plain text for non-terminal output.
func Plain(sessions []session.Snapshot, cfg session.Config) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d of %d sessions kept\n", len(sessions), cfg.MaxSessions)
	for i, s := range sessions {
		fmt.Fprintf(&sb, "\n%d. %s  %s  %d tabs, %d windows\n", i+1, s.ID, stamp(s.Timestamp), s.TotalTabs, s.WindowCount)
		for wi, w := range s.Windows {
			fmt.Fprintf(&sb, "   window %d\n", wi+1)
			for _, t := range w.Tabs {
				flag := " "
				if t.Pinned {
					flag = "*"
				}
				group := groupName(s, w, t.GroupID)
				if group != "" {
					group = " [" + group + "]"
				}
				fmt.Fprintf(&sb, "     %s %s%s\n", flag, t.URL, group)
			}
		}
	}
	return sb.String()
}

// Run starts the session browser.
func Run(sessions []session.Snapshot, cfg session.Config) error {
	p := tea.NewProgram(New(sessions, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
