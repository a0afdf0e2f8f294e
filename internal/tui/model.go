package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/loomworks/agentpool/internal/agent"
	"github.com/loomworks/agentpool/internal/event"
	"github.com/loomworks/agentpool/internal/pool"
)

const (
	refreshInterval = 500 * time.Millisecond
	maxEventLines   = 8
)

// Model is the dashboard state: a periodic stats snapshot plus a rolling
// window of bus events.
type Model struct {
	pool *pool.Pool

	spinner spinner.Model
	stats   pool.Stats
	agents  []agent.Agent
	events  []string

	eventCh chan event.Event
	subID   string

	width    int
	height   int
	quitting bool
}

// refreshMsg triggers a stats snapshot.
type refreshMsg time.Time

// busEventMsg carries one event from the pool's bus.
type busEventMsg struct{ e event.Event }

// NewModel creates a dashboard model for a started pool.
func NewModel(p *pool.Pool) Model {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(primaryColor)),
	)

	m := Model{
		pool:    p,
		spinner: sp,
		stats:   p.Stats(),
		agents:  p.Agents(),
		eventCh: make(chan event.Event, 64),
	}
	m.subID = p.Bus().SubscribeAll(func(e event.Event) {
		select {
		case m.eventCh <- e:
		default:
			// Dashboard lagging; dropping display events is fine.
		}
	})
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refreshTick(), waitForEvent(m.eventCh))
}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func waitForEvent(ch chan event.Event) tea.Cmd {
	return func() tea.Msg {
		return busEventMsg{e: <-ch}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.pool.Bus().Unsubscribe(m.subID)
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case refreshMsg:
		m.stats = m.pool.Stats()
		m.agents = m.pool.Agents()
		return m, refreshTick()

	case busEventMsg:
		m.events = append(m.events, formatEvent(msg.e))
		if len(m.events) > maxEventLines {
			m.events = m.events[len(m.events)-maxEventLines:]
		}
		return m, waitForEvent(m.eventCh)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// formatEvent renders one bus event as a dashboard line.
func formatEvent(e event.Event) string {
	ts := e.Timestamp().Format("15:04:05")
	var body string

	switch ev := e.(type) {
	case event.AgentAddedEvent:
		body = fmt.Sprintf("agent %s added (%d total)", ev.AgentID, ev.Total)
	case event.AgentRemovedEvent:
		verb := "removed"
		if ev.Forced {
			verb = "force-removed"
		}
		body = fmt.Sprintf("agent %s %s: %s", ev.AgentID, verb, ev.Reason)
	case event.AgentHealthChangedEvent:
		body = fmt.Sprintf("agent %s health %d -> %d (%s)",
			ev.AgentID, ev.OldHealth, ev.NewHealth, ev.Status)
	case event.TaskSubmittedEvent:
		where := "dispatched"
		if ev.Queued {
			where = "queued"
		}
		body = fmt.Sprintf("task %s submitted p%d, %s", ev.TaskID, ev.Priority, where)
	case event.TaskDispatchedEvent:
		body = fmt.Sprintf("task %s -> agent %s", ev.TaskID, ev.AgentID)
	case event.TaskCompletedEvent:
		if ev.Success {
			body = fmt.Sprintf("task %s completed by %s", ev.TaskID, ev.AgentID)
		} else {
			body = fmt.Sprintf("task %s failed: %s", ev.TaskID, ev.Reason)
		}
	case event.QueueDepthChangedEvent:
		body = fmt.Sprintf("queue: %d pending, %d running", ev.Pending, ev.Running)
	case event.ScalingDecisionEvent:
		body = fmt.Sprintf("%s (%+d): %s", ev.Action, ev.Delta, ev.Reason)
	case event.ShutdownStartedEvent:
		body = fmt.Sprintf("shutdown started, %d busy", ev.Busy)
	case event.ShutdownCompletedEvent:
		body = fmt.Sprintf("shutdown complete, graceful=%t", ev.Graceful)
	default:
		body = e.EventType()
	}

	return fmt.Sprintf("%s  %s", subtitleStyle.Render(ts), body)
}
