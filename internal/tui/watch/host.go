package watch

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/stagehand/internal/events"
)

// HostPanel tracks what the hosted editor is doing, reconstructed from the
// event stream: play mode, connected clients, and recent console output.
type HostPanel struct {
	Playing   bool
	Paused    bool
	PlayKnown bool

	// remote addr -> transport name
	Clients map[string]string

	Console []consoleLine
}

type consoleLine struct {
	At      time.Time
	Level   string
	Message string
}

func newHostPanel() *HostPanel {
	return &HostPanel{Clients: make(map[string]string)}
}

func (h *HostPanel) observe(e events.Event) {
	switch e.Type {
	case events.TypePlayModeChanged:
		var mode struct {
			Playing bool `json:"playing"`
			Paused  bool `json:"paused"`
		}
		if json.Unmarshal(e.Data, &mode) == nil {
			h.Playing = mode.Playing
			h.Paused = mode.Paused
			h.PlayKnown = true
		}

	case events.TypeClientConnected, events.TypeClientClosed:
		var c struct {
			Transport string `json:"transport"`
			Remote    string `json:"remote"`
		}
		if json.Unmarshal(e.Data, &c) != nil || c.Remote == "" {
			return
		}
		if e.Type == events.TypeClientConnected {
			h.Clients[c.Remote] = c.Transport
		} else {
			delete(h.Clients, c.Remote)
		}

	case events.TypeConsoleEntry:
		var entry struct {
			At      time.Time `json:"at"`
			Level   string    `json:"level"`
			Message string    `json:"message"`
		}
		if json.Unmarshal(e.Data, &entry) != nil {
			return
		}
		h.Console = append([]consoleLine{{At: entry.At, Level: entry.Level, Message: entry.Message}}, h.Console...)
		if len(h.Console) > 5 {
			h.Console = h.Console[:5]
		}
	}
}

func renderHost(h *HostPanel, theme Theme, width int) string {
	innerWidth := width - 4

	mode := theme.Dim.Render("■ unknown (no play mode event yet)")
	if h.PlayKnown {
		switch {
		case h.Playing && h.Paused:
			mode = theme.StatusPending.Render("⏸ paused")
		case h.Playing:
			mode = theme.StatusOK.Render("▶ playing")
		default:
			mode = theme.Dim.Render("■ stopped")
		}
	}

	clients := theme.Dim.Render("none")
	if len(h.Clients) > 0 {
		remotes := make([]string, 0, len(h.Clients))
		for remote, transport := range h.Clients {
			remotes = append(remotes, fmt.Sprintf("%s (%s)", remote, transport))
		}
		sort.Strings(remotes)
		clients = theme.Highlight.Render(fmt.Sprintf("%d", len(remotes))) + " " +
			theme.Dim.Render(joinMax(remotes, 3))
	}

	lines := []string{
		" Play mode: " + mode,
		" Clients:   " + clients,
	}

	if len(h.Console) > 0 {
		lines = append(lines, theme.Dim.Render(" Console:"))
		for _, c := range h.Console {
			var levelStyle lipgloss.Style
			switch c.Level {
			case "error":
				levelStyle = theme.StatusFailed
			case "warning":
				levelStyle = theme.StatusPending
			default:
				levelStyle = theme.Dim
			}
			msg := c.Message
			if len(msg) > 70 {
				msg = msg[:70] + "..."
			}
			lines = append(lines, fmt.Sprintf("   %s %s %s",
				theme.Dim.Render(c.At.Local().Format("15:04:05")),
				levelStyle.Render(fmt.Sprintf("%-7s", c.Level)),
				msg,
			))
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{theme.Title.Render("HOST")}, lines...)...,
	)
	return theme.Border.Width(innerWidth).Render(content)
}

func joinMax(items []string, max int) string {
	if len(items) <= max {
		out := ""
		for i, it := range items {
			if i > 0 {
				out += ", "
			}
			out += it
		}
		return out
	}
	out := joinMax(items[:max], max)
	return fmt.Sprintf("%s, +%d more", out, len(items)-max)
}
