package watch

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/stagehand/internal/events"
)

// maxTrackedCommands bounds the commands panel; older finished commands
// fall off the bottom.
const maxTrackedCommands = 20

// CommandState tracks one submitted command discovered from the event
// stream, from submission through its terminal status.
type CommandState struct {
	RequestID  string
	Command    string
	Source     string
	Status     string // pending | success | error | cancelled
	Error      string
	DurationMs int64
	StartTime  time.Time
	EndTime    time.Time
}

// commandTracker keeps commands in arrival order, newest first.
type commandTracker struct {
	byID  map[string]*CommandState
	order []string
}

func newCommandTracker() *commandTracker {
	return &commandTracker{byID: make(map[string]*CommandState)}
}

func (t *commandTracker) observe(e events.Event) {
	var rec events.CommandRecord
	if err := json.Unmarshal(e.Data, &rec); err != nil || rec.RequestID == "" {
		return
	}

	switch e.Type {
	case events.TypeCommandSubmitted:
		if _, ok := t.byID[rec.RequestID]; ok {
			return
		}
		t.byID[rec.RequestID] = &CommandState{
			RequestID: rec.RequestID,
			Command:   rec.Command,
			Source:    rec.Source,
			Status:    "pending",
			StartTime: time.Now(),
		}
		t.order = append([]string{rec.RequestID}, t.order...)
		t.trim()

	case events.TypeCommandCompleted, events.TypeCommandFailed, events.TypeCommandCancelled:
		cs, ok := t.byID[rec.RequestID]
		if !ok {
			// Watcher attached mid-flight; synthesize the entry.
			cs = &CommandState{RequestID: rec.RequestID, StartTime: time.Now()}
			t.byID[rec.RequestID] = cs
			t.order = append([]string{rec.RequestID}, t.order...)
			t.trim()
		}
		if rec.Command != "" {
			cs.Command = rec.Command
		}
		if rec.Source != "" {
			cs.Source = rec.Source
		}
		cs.Status = rec.Status
		cs.Error = rec.Error
		cs.DurationMs = rec.DurationMs
		cs.EndTime = time.Now()
	}
}

func (t *commandTracker) trim() {
	if len(t.order) <= maxTrackedCommands {
		return
	}
	for _, id := range t.order[maxTrackedCommands:] {
		delete(t.byID, id)
	}
	t.order = t.order[:maxTrackedCommands]
}

func (t *commandTracker) len() int { return len(t.order) }

// pendingCount reports commands still waiting on the host loop.
func (t *commandTracker) pendingCount() int {
	n := 0
	for _, cs := range t.byID {
		if cs.Status == "pending" {
			n++
		}
	}
	return n
}

func renderCommands(t *commandTracker, selected int, theme Theme, width int) string {
	innerWidth := width - 4

	if t.len() == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("COMMANDS"),
			theme.Dim.Render("  No commands dispatched yet..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	var lines []string
	for i, id := range t.order {
		if i >= 10 {
			break
		}
		lines = append(lines, renderCommandRow(t.byID[id], i == selected, theme))
	}

	title := fmt.Sprintf("COMMANDS (%d pending)", t.pendingCount())
	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{theme.Title.Render(title)}, lines...)...,
	)
	return theme.Border.Width(innerWidth).Render(content)
}

func renderCommandRow(cs *CommandState, isSelected bool, theme Theme) string {
	shortID := cs.RequestID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	name := cs.Command
	if name == "" {
		name = "?"
	}
	nameStyle := lipgloss.NewStyle()
	if isSelected {
		nameStyle = nameStyle.Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))
	}

	var status, timing string
	switch cs.Status {
	case "pending":
		status = theme.StatusPending.Render("[pending]")
		timing = theme.Dim.Render(time.Since(cs.StartTime).Round(time.Millisecond).String())
	case "success":
		status = theme.StatusOK.Render("[success]")
		timing = theme.Dim.Render(fmt.Sprintf("%dms", cs.DurationMs))
	case "cancelled":
		status = theme.StatusCancelled.Render("[cancelled]")
	default:
		status = theme.StatusFailed.Render("[" + cs.Status + "]")
		timing = theme.Dim.Render(fmt.Sprintf("%dms", cs.DurationMs))
	}

	var line strings.Builder
	fmt.Fprintf(&line, " %s %s %s %s %s",
		theme.Highlight.Render(shortID),
		nameStyle.Render(fmt.Sprintf("%-24s", name)),
		fmt.Sprintf("%-6s", cs.Source),
		status,
		timing,
	)

	if isSelected && cs.Error != "" {
		errText := cs.Error
		if len(errText) > 70 {
			errText = errText[:70] + "..."
		}
		line.WriteString("\n    └─ " + theme.StatusFailed.Render(errText))
	}

	return line.String()
}
