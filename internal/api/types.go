package api

import (
	"github.com/mattjoyce/stagehand/internal/bridge"
	"github.com/mattjoyce/stagehand/internal/host"
	"github.com/mattjoyce/stagehand/internal/journal"
	"github.com/mattjoyce/stagehand/internal/registry"
)

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status          string `json:"status"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	Project         string `json:"project"`
	Playing         bool   `json:"playing"`
	PendingCommands int    `json:"pending_commands"`
	Commands        int    `json:"commands_registered"`
}

// StatusResponse is returned by GET /api/v1/status.
type StatusResponse struct {
	Service       string           `json:"service"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Project       host.State       `json:"project"`
	Scheduler     bridge.Stats     `json:"scheduler"`
	CommandCounts map[string]int64 `json:"command_counts,omitempty"`
}

// CommandListResponse is returned by GET /api/v1/commands.
type CommandListResponse struct {
	Commands []registry.Info `json:"commands"`
	Count    int             `json:"count"`
}

// JournalResponse is returned by GET /api/v1/journal/recent.
type JournalResponse struct {
	Entries []journal.CommandEntry `json:"entries"`
	Count   int                    `json:"count"`
}

// ErrorResponse is the JSON error body for non-2xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}
