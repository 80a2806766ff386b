package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mattjoyce/stagehand/internal/journal"
)

// maxExecuteBody bounds POST /api/v1/execute payloads. Oversized commands
// belong on the TCP transport, which has its own frame limit.
const maxExecuteBody = 1 << 20

// handleHealthz handles GET /healthz.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	stats := s.dispatcher.Stats()
	state := s.project.Snapshot()

	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:          "ok",
		UptimeSeconds:   int64(time.Since(s.startedAt).Seconds()),
		Project:         state.ProjectName,
		Playing:         state.Playing,
		PendingCommands: stats.Pending,
		Commands:        len(s.commands.List()),
	})
}

// handleStatus handles GET /api/v1/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Service:       "stagehand",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Project:       s.project.Snapshot(),
		Scheduler:     s.dispatcher.Stats(),
	}

	if s.journal != nil {
		counts, err := s.journal.CommandCounts(r.Context())
		if err != nil {
			s.logger.Error("failed to read command counts", "error", err)
		} else {
			resp.CommandCounts = counts
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleCommands handles GET /api/v1/commands.
func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	if !s.commands.Initialized() {
		s.writeError(w, http.StatusServiceUnavailable, "command registry not initialized")
		return
	}
	list := s.commands.List()
	respondJSON(w, http.StatusOK, CommandListResponse{Commands: list, Count: len(list)})
}

// handleJournalRecent handles GET /api/v1/journal/recent?limit=N.
func (s *Server) handleJournalRecent(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusNotFound, "journal not enabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.journal.RecentCommands(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to read journal", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}
	if entries == nil {
		entries = []journal.CommandEntry{}
	}
	respondJSON(w, http.StatusOK, JournalResponse{Entries: entries, Count: len(entries)})
}

// handleExecute handles POST /api/v1/execute. The body is raw command text
// handed to the pipeline unparsed, so HTTP clients get the same envelope
// semantics as socket clients, malformed input included.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxExecuteBody))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	out, err := s.dispatcher.ExecuteCommand(r.Context(), string(body))
	if err != nil {
		// Cancelled client or stopped scheduler; there is no envelope to
		// return.
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, out)
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
