package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/stagehand/internal/events"
)

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	apiURL string

	width  int
	height int

	// State reconstructed from /healthz and the event stream
	health   HealthState
	commands *commandTracker
	host     *HostPanel
	eventLog []events.Event

	// Live indicators
	pulse   spinner.Model
	spinner Spinner

	// UI state
	theme           Theme
	selectedCommand int

	// Communication
	hubEvents chan events.Event

	// Error display
	lastError string
}

// New creates a watch model attached to a stagehand API endpoint.
func New(apiURL string) *Model {
	theme := NewDefaultTheme()
	return &Model{
		apiURL:    strings.TrimSuffix(apiURL, "/"),
		commands:  newCommandTracker(),
		host:      newHostPanel(),
		eventLog:  make([]events.Event, 0),
		hubEvents: make(chan events.Event, 100),
		pulse:     spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(theme.Highlight)),
		spinner:   NewSpinner(),
		theme:     theme,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		subscribeToEvents(m.apiURL, m.hubEvents),
		receiveNextEvent(m.hubEvents),
		func() tea.Msg { return fetchHealth(m.apiURL) },
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
		m.pulse.Tick,
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.selectedCommand > 0 {
				m.selectedCommand--
			}
		case "down", "j":
			if m.selectedCommand < m.commands.len()-1 {
				m.selectedCommand++
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.spinner.Decay()
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.pulse, cmd = m.pulse.Update(msg)
		return m, cmd

	case eventMsg:
		e := events.Event(msg)

		// Event log is newest first.
		m.eventLog = append([]events.Event{e}, m.eventLog...)
		if len(m.eventLog) > 50 {
			m.eventLog = m.eventLog[:50]
		}

		m.spinner.OnEvent()
		m.commands.observe(e)
		m.host.observe(e)

		m.health.Connected = true
		m.lastError = ""

		return m, receiveNextEvent(m.hubEvents)

	case healthMsg:
		m.health.Status = msg.Status
		m.health.UptimeSeconds = msg.UptimeSeconds
		m.health.Project = msg.Project
		m.health.Playing = msg.Playing
		m.health.PendingCommands = msg.PendingCommands
		m.health.Commands = msg.Commands
		m.health.Connected = true
		m.health.LastCheck = time.Now()
		m.lastError = ""

		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return fetchHealth(m.apiURL)
		})

	case sseDisconnectedMsg:
		m.health.Connected = false
		m.lastError = "event stream disconnected, reconnecting..."
		// Reconnect after a short delay; the existing receiveNextEvent
		// goroutine is still waiting on the channel and will pick up
		// events from the new subscription.
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return reconnectMsg{}
		})

	case reconnectMsg:
		return m, subscribeToEvents(m.apiURL, m.hubEvents)

	case errMsg:
		m.lastError = msg.Error()
		// Retry health in 5s
		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return fetchHealth(m.apiURL)
		})
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Connecting to stagehand..."
	}

	header := renderHeader(m.health, m.pulse.View(), m.spinner, m.theme, m.width)
	commands := renderCommands(m.commands, m.selectedCommand, m.theme, m.width)
	host := renderHost(m.host, m.theme, m.width)
	eventStream := renderEventStream(m.eventLog, m.theme, m.width)

	var errBar string
	if m.lastError != "" {
		errBar = m.theme.StatusFailed.Render(fmt.Sprintf(" ⚠ %s", m.lastError))
	}

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render(" [q] Quit • [↑/↓] Select Command")

	parts := []string{header, commands, host, eventStream}
	if errBar != "" {
		parts = append(parts, errBar)
	}
	parts = append(parts, help)

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}
