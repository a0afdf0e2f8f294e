package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/loomworks/agentpool/internal/util"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.statsView(), " ", m.agentsView()))
	b.WriteString("\n")
	b.WriteString(m.eventsView())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q: quit"))
	return b.String()
}

func (m Model) headerView() string {
	return fmt.Sprintf("%s %s  %s",
		m.spinner.View(),
		titleStyle.Render("agentpool"),
		subtitleStyle.Render(fmt.Sprintf("up %s", m.stats.Uptime.Round(refreshInterval))),
	)
}

func (m Model) statsView() string {
	s := m.stats
	rows := []struct {
		label string
		value string
	}{
		{"agents", fmt.Sprintf("%d", s.Total)},
		{"idle", fmt.Sprintf("%d", s.Idle)},
		{"busy", fmt.Sprintf("%d", s.Busy)},
		{"error", fmt.Sprintf("%d", s.Error)},
		{"avg health", fmt.Sprintf("%.0f", s.AvgHealth)},
		{"pending", fmt.Sprintf("%d", s.Pending)},
		{"running", fmt.Sprintf("%d", s.Running)},
		{"completed", fmt.Sprintf("%d", s.Completed)},
		{"failed", fmt.Sprintf("%d", s.Failed)},
	}

	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%s %s",
			labelStyle.Width(11).Render(r.label),
			valueStyle.Render(r.value)))
	}
	return panelStyle.Render(b.String())
}

func (m Model) agentsView() string {
	if len(m.agents) == 0 {
		return panelStyle.Render(subtitleStyle.Render("no agents"))
	}

	agents := make([]agentRow, 0, len(m.agents))
	for _, a := range m.agents {
		agents = append(agents, agentRow{
			id:     a.ID,
			status: a.Status.String(),
			health: a.Health,
			task:   a.CurrentTaskID,
		})
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].id < agents[j].id })

	var b strings.Builder
	for i, a := range agents {
		if i > 0 {
			b.WriteString("\n")
		}
		line := fmt.Sprintf("%s %s  %3d", a.id, statusStyle(a.status).Render(fmt.Sprintf("%-13s", a.status)), a.health)
		if a.task != "" {
			line += "  " + subtitleStyle.Render(a.task)
		}
		b.WriteString(fmt.Sprintf("%s %s", statusStyle(a.status).Render("●"), line))
	}
	return panelStyle.Render(b.String())
}

type agentRow struct {
	id     string
	status string
	health int
	task   string
}

func (m Model) eventsView() string {
	if len(m.events) == 0 {
		return panelStyle.Render(subtitleStyle.Render("no events yet"))
	}

	lines := m.events
	if m.width > 8 {
		lines = make([]string, len(m.events))
		for i, line := range m.events {
			lines[i] = util.TruncateANSI(line, m.width-4)
		}
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}
