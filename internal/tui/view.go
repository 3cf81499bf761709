package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func (m *model) View() string {
	switch m.stage {
	case stagePicker:
		return m.viewPicker()
	default:
		return m.viewChat()
	}
}

func (m *model) viewChat() string {
	m.refreshViewportIfDirty()
	parts := []string{
		m.heroView(),
		lipgloss.JoinVertical(lipgloss.Left, sectionHeaderStyle.Render("Conversation"), m.viewport.View()),
	}
	if lastErr := m.config.Conversation.LastError(); lastErr != "" {
		parts = append(parts, errorStyle.Render("Error: "+lastErr))
	}
	if m.infoMessage != "" {
		message := m.infoMessage
		if m.config.Conversation.Busy() {
			message = fmt.Sprintf("%s %s", m.spinner.View(), message)
		}
		parts = append(parts, helperStyle.Render(message))
	}
	if m.helpVisible {
		parts = append(parts, m.keyLegendView())
	}
	parts = append(parts, m.composerPanel(), m.statusBarView())
	return joinNonEmpty(parts)
}

func (m *model) viewPicker() string {
	parts := []string{m.heroView(), m.pickerView()}
	if m.infoMessage != "" {
		parts = append(parts, helperStyle.Render(m.infoMessage))
	}
	if m.helpVisible {
		parts = append(parts, m.keyLegendView())
	}
	parts = append(parts, m.statusBarView())
	return joinNonEmpty(parts)
}

func (m *model) heroView() string {
	scope := m.config.Conversation.Scope()
	target := "no document selected"
	if scope != "" {
		target = scope
	}
	title := lipgloss.JoinHorizontal(lipgloss.Top,
		heroTitleStyle.Render("docchat"),
		heroTargetStyle.Render("  ▸ "+target),
	)
	return lipgloss.JoinVertical(lipgloss.Left, title, taglineStyle.Render(heroTagline))
}

func (m *model) composerPanel() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		sectionHeaderStyle.Render("Composer"),
		m.composer.View(),
		helperStyle.Render(m.composerHelpText()),
	)
}

func (m *model) composerHelpText() string {
	if m.config.Conversation.Busy() {
		return "Waiting for results… • Esc: clear • Ctrl+C: quit"
	}
	return "Enter: ask • Esc: clear • Ctrl+O: documents • ?: keys"
}

func (m *model) statusBarView() string {
	state := m.config.Conversation.Snapshot()
	scope := state.Scope
	if scope == "" {
		scope = "none"
	}
	stats := []string{
		"Doc " + scope,
		fmt.Sprintf("Entries %d", len(state.Entries)),
	}
	if state.Busy {
		stats = append(stats, "Busy")
	} else {
		stats = append(stats, "Idle")
	}
	stats = append(stats, m.jobStatusBadges()...)
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

func (m *model) jobStatusBadges() []string {
	var badges []string
	ids := make([]string, 0, len(m.activeJobs))
	for id := range m.activeJobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		badges = append(badges, fmt.Sprintf("%s running", id))
	}
	if m.lastJob.ID != "" {
		badge := fmt.Sprintf("Last %s %s", m.lastJob.ID, m.lastJob.Status)
		if m.lastJob.Duration > 0 {
			badge += fmt.Sprintf(" (%s)", m.lastJob.Duration.Round(time.Millisecond))
		}
		badges = append(badges, badge)
	}
	return badges
}

type keyHint struct {
	Key         string
	Description string
}

func (m *model) keyLegendView() string {
	var hints []keyHint
	if m.stage == stagePicker {
		hints = []keyHint{
			{"↑/↓", "Move"},
			{"Enter", "Chat with document"},
			{"x", "Delete index"},
			{"r", "Refresh"},
			{"Esc", "Back"},
			{"Ctrl+C", "Quit"},
		}
	} else {
		hints = []keyHint{
			{"Enter", "Ask"},
			{"Esc", "Clear composer"},
			{"Ctrl+O", "Pick document"},
			{"↑/↓", "Scroll"},
			{"PgUp/PgDn", "Page"},
			{"?", "Toggle cheatsheet"},
			{"Ctrl+C", "Quit"},
		}
	}
	rows := []string{sectionHeaderStyle.Render("Key Cheatsheet")}
	const columns = 3
	for i := 0; i < len(hints); i += columns {
		end := i + columns
		if end > len(hints) {
			end = len(hints)
		}
		var cells []string
		for _, hint := range hints[i:end] {
			key := keyStyle.Render(hint.Key)
			desc := keyDescStyle.Render(" " + hint.Description + "  ")
			cells = append(cells, lipgloss.JoinHorizontal(lipgloss.Top, key, desc))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return legendBoxStyle.Render(strings.Join(rows, "\n"))
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}
