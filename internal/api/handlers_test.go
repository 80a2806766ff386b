package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/stagehand/internal/api/mocks"
	"github.com/mattjoyce/stagehand/internal/bridge"
	"github.com/mattjoyce/stagehand/internal/events"
	"github.com/mattjoyce/stagehand/internal/host"
	"github.com/mattjoyce/stagehand/internal/journal"
	"github.com/mattjoyce/stagehand/internal/log"
	"github.com/mattjoyce/stagehand/internal/registry"
)

func TestMain(m *testing.M) {
	log.Setup("ERROR")
	os.Exit(m.Run())
}

type testServer struct {
	server     *Server
	hub        *events.Hub
	dispatcher *mocks.MockDispatcher
	commands   *mocks.MockCommandLister
	journal    *mocks.MockJournalReader
	project    *mocks.MockProjectViewer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctrl := gomock.NewController(t)
	ts := &testServer{
		hub:        events.NewHub(16),
		dispatcher: mocks.NewMockDispatcher(ctrl),
		commands:   mocks.NewMockCommandLister(ctrl),
		journal:    mocks.NewMockJournalReader(ctrl),
		project:    mocks.NewMockProjectViewer(ctrl),
	}
	ts.server = New(Config{Listen: "127.0.0.1:0"},
		ts.dispatcher, ts.commands, ts.journal, ts.project, ts.hub, log.Get())
	return ts
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	ts.server.setupRoutes().ServeHTTP(rr, req)
	return rr
}

func TestHandleHealthz(t *testing.T) {
	ts := newTestServer(t)
	ts.dispatcher.EXPECT().Stats().Return(bridge.Stats{Pending: 2})
	ts.project.EXPECT().Snapshot().Return(host.State{ProjectName: "Demo", Playing: true})
	ts.commands.EXPECT().List().Return([]registry.Info{{Name: "manage_editor"}})

	rr := ts.do(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthzResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Demo", resp.Project)
	assert.True(t, resp.Playing)
	assert.Equal(t, 2, resp.PendingCommands)
	assert.Equal(t, 1, resp.Commands)
	assert.GreaterOrEqual(t, resp.UptimeSeconds, int64(0))
}

func TestHandleStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.dispatcher.EXPECT().Stats().Return(bridge.Stats{Submitted: 7, Completed: 5})
	ts.project.EXPECT().Snapshot().Return(host.State{ProjectName: "Demo", ActiveScene: "Main"})
	ts.journal.EXPECT().CommandCounts(gomock.Any()).Return(map[string]int64{"success": 5, "error": 2}, nil)

	rr := ts.do(http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "stagehand", resp.Service)
	assert.Equal(t, "Main", resp.Project.ActiveScene)
	assert.Equal(t, int64(7), resp.Scheduler.Submitted)
	assert.Equal(t, int64(5), resp.CommandCounts["success"])
}

func TestHandleStatusToleratesJournalError(t *testing.T) {
	ts := newTestServer(t)
	ts.dispatcher.EXPECT().Stats().Return(bridge.Stats{})
	ts.project.EXPECT().Snapshot().Return(host.State{})
	ts.journal.EXPECT().CommandCounts(gomock.Any()).Return(nil, errors.New("db locked"))

	rr := ts.do(http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Nil(t, resp.CommandCounts)
}

func TestHandleCommands(t *testing.T) {
	ts := newTestServer(t)
	ts.commands.EXPECT().Initialized().Return(true)
	ts.commands.EXPECT().List().Return([]registry.Info{
		{Name: "manage_editor", Unit: "ManageEditor"},
		{Name: "manage_scene", Unit: "ManageScene"},
	})

	rr := ts.do(http.MethodGet, "/api/v1/commands", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp CommandListResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "manage_editor", resp.Commands[0].Name)
}

func TestHandleCommandsBeforeInitialize(t *testing.T) {
	ts := newTestServer(t)
	ts.commands.EXPECT().Initialized().Return(false)

	rr := ts.do(http.MethodGet, "/api/v1/commands", "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Contains(t, resp.Error, "not initialized")
}

func TestHandleJournalRecent(t *testing.T) {
	ts := newTestServer(t)
	ts.journal.EXPECT().RecentCommands(gomock.Any(), 5).Return([]journal.CommandEntry{
		{ID: "a", Command: "manage_scene", Status: "success", RecordedAt: time.Now()},
	}, nil)

	rr := ts.do(http.MethodGet, "/api/v1/journal/recent?limit=5", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp JournalResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "manage_scene", resp.Entries[0].Command)
}

func TestHandleJournalRecentRejectsBadLimit(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodGet, "/api/v1/journal/recent?limit=nope", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleJournalRecentWithoutJournal(t *testing.T) {
	ts := newTestServer(t)
	ts.server.journal = nil

	rr := ts.do(http.MethodGet, "/api/v1/journal/recent", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleExecutePassesRawBody(t *testing.T) {
	ts := newTestServer(t)
	envelope := `{"status":"success","result":{"playing":true}}`
	ts.dispatcher.EXPECT().
		ExecuteCommand(gomock.Any(), `{"type":"manage_editor","params":{"action":"play"}}`).
		Return(envelope, nil)

	rr := ts.do(http.MethodPost, "/api/v1/execute", `{"type":"manage_editor","params":{"action":"play"}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, envelope, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestHandleExecuteMalformedStillGetsEnvelope(t *testing.T) {
	ts := newTestServer(t)
	envelope := `{"status":"error","error":"Invalid JSON format","receivedText":"not json"}`
	ts.dispatcher.EXPECT().ExecuteCommand(gomock.Any(), "not json").Return(envelope, nil)

	rr := ts.do(http.MethodPost, "/api/v1/execute", "not json")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, envelope, rr.Body.String())
}

func TestHandleExecuteSchedulerStopped(t *testing.T) {
	ts := newTestServer(t)
	ts.dispatcher.EXPECT().
		ExecuteCommand(gomock.Any(), gomock.Any()).
		Return("", errors.New("dispatch scheduler is stopped"))

	rr := ts.do(http.MethodPost, "/api/v1/execute", `{"type":"ping"}`)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "dispatch scheduler is stopped", resp.Error)
}
