package watch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/stagehand/internal/events"
)

func renderEventStream(eventLog []events.Event, theme Theme, width int) string {
	innerWidth := width - 4

	if len(eventLog) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("EVENT STREAM"),
			theme.Dim.Render("  Waiting for events..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	var lines []string
	for i, e := range eventLog {
		if i >= 8 {
			break
		}
		lines = append(lines, formatEvent(e, theme))
	}

	eventsText := lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("EVENT STREAM"),
		eventsText,
	)

	return theme.Border.Width(innerWidth).Render(content)
}

func formatEvent(e events.Event, theme Theme) string {
	ts := theme.Dim.Render(e.At.Format("15:04:05"))

	var typeStyle lipgloss.Style
	switch {
	case e.Type == events.TypeCommandCompleted:
		typeStyle = theme.StatusOK
	case e.Type == events.TypeCommandFailed:
		typeStyle = theme.StatusFailed
	case e.Type == events.TypeCommandCancelled:
		typeStyle = theme.StatusCancelled
	case e.Type == events.TypeCommandSubmitted:
		typeStyle = theme.StatusPending
	case strings.HasPrefix(e.Type, "host."):
		typeStyle = theme.Highlight
	case strings.HasPrefix(e.Type, "client."):
		typeStyle = theme.Header
	default:
		typeStyle = theme.Dim
	}

	typeName := typeStyle.Render(fmt.Sprintf("%-19s", e.Type))
	return fmt.Sprintf("%s %s %s", ts, typeName, extractEventDesc(e))
}

// extractEventDesc pulls the most useful fields out of an event payload for
// the one-line stream view.
func extractEventDesc(e events.Event) string {
	data := make(map[string]any)
	_ = json.Unmarshal(e.Data, &data)

	var parts []string

	if id, ok := data["request_id"].(string); ok && id != "" {
		if len(id) > 8 {
			id = id[:8]
		}
		parts = append(parts, fmt.Sprintf("[%s]", id))
	}
	if command, ok := data["command"].(string); ok && command != "" {
		parts = append(parts, command)
	}
	if status, ok := data["status"].(string); ok && status != "" {
		parts = append(parts, status)
	}
	if source, ok := data["source"].(string); ok && source != "" {
		parts = append(parts, "via "+source)
	}
	if remote, ok := data["remote"].(string); ok && remote != "" {
		parts = append(parts, remote)
	}
	if msg, ok := data["message"].(string); ok && msg != "" {
		if len(msg) > 48 {
			msg = msg[:48] + "..."
		}
		parts = append(parts, msg)
	}

	if len(parts) == 0 {
		raw := string(e.Data)
		if len(raw) > 60 {
			raw = raw[:60] + "..."
		}
		return raw
	}

	return strings.Join(parts, " ")
}
