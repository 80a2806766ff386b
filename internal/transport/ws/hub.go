// Package ws implements the WebSocket hub listener. Clients hold one
// persistent connection, send command requests correlated by id, and receive
// command_result replies as each command resolves. Liveness runs both ways:
// the hub pings on an interval and drops clients that stay silent past the
// server timeout it advertised in the welcome message.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mattjoyce/stagehand/internal/bridge"
	"github.com/mattjoyce/stagehand/internal/command"
	"github.com/mattjoyce/stagehand/internal/events"
)

const (
	// serverTimeout is how long a client may stay silent before the hub
	// considers it gone. Advertised in the welcome message.
	serverTimeout = 30 * time.Second

	// keepAliveInterval is the ping cadence. Must be shorter than
	// serverTimeout or healthy clients would get dropped.
	keepAliveInterval = 15 * time.Second

	writeWait       = 10 * time.Second
	maxMessageBytes = 1 << 20
)

// Message type literals exchanged with clients.
const (
	typeWelcome       = "welcome"
	typeCommand       = "command"
	typeCommandResult = "command_result"
	typePing          = "ping"
	typePong          = "pong"
)

// message is the single frame shape for both directions. Unused fields stay
// empty and are omitted on the wire.
type message struct {
	Type   string          `json:"type"`
	ID     string          `json:"id,omitempty"`
	Name   string          `json:"name,omitempty"`
	Params command.Params  `json:"params,omitempty"`
	Text   string          `json:"text,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`

	ServerTimeout     int `json:"serverTimeout,omitempty"`
	KeepAliveInterval int `json:"keepAliveInterval,omitempty"`
}

// Executor runs raw command text through the dispatch pipeline.
// *bridge.Scheduler satisfies it.
type Executor interface {
	ExecuteCommand(ctx context.Context, raw string) (string, error)
}

// Config holds the hub listener settings.
type Config struct {
	Listen string
	Path   string
}

// Server upgrades HTTP requests on the configured path and speaks the hub
// protocol with each client.
type Server struct {
	config   Config
	exec     Executor
	hub      *events.Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
	listener net.Listener
	httpSrv  *http.Server
	wg       sync.WaitGroup
}

// New creates a hub server.
func New(config Config, exec Executor, hub *events.Hub, logger *slog.Logger) *Server {
	if config.Path == "" {
		config.Path = "/plugin"
	}
	if hub == nil {
		hub = events.NewHub(16)
	}
	return &Server{
		config: config,
		exec:   exec,
		hub:    hub,
		logger: logger.With("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The hub serves local tooling, not browsers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.config.Listen, err)
	}
	s.listener = ln
	s.logger.Info("websocket hub bound", "addr", ln.Addr().String(), "path", s.config.Path)
	return nil
}

// Addr returns the bound address, or "" before Listen.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve runs the hub until ctx is cancelled. Upgraded connections survive an
// http.Server shutdown, so each one watches ctx and closes itself.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, func(w http.ResponseWriter, r *http.Request) {
		s.handleUpgrade(ctx, w, r)
	})
	s.httpSrv = &http.Server{Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("websocket hub shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpSrv.Shutdown(shutdownCtx)
		s.wg.Wait()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		s.wg.Wait()
		return err
	}
}

func (s *Server) handleUpgrade(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	s.wg.Add(1)
	go s.handleConn(ctx, conn)
}

// handleConn owns one client session. Reads happen here; all writes funnel
// through the single writer goroutine so frames never interleave.
func (s *Server) handleConn(ctx context.Context, conn *websocket.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	logger := s.logger.With("remote", remote)
	logger.Info("client connected")
	s.hub.Publish(events.TypeClientConnected, map[string]string{
		"transport": "ws", "remote": remote,
	})
	defer s.hub.Publish(events.TypeClientClosed, map[string]string{
		"transport": "ws", "remote": remote,
	})

	connCtx, cancel := context.WithCancel(bridge.WithSource(ctx, "ws"))
	defer cancel()
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	send := make(chan message, 16)
	go s.writePump(connCtx, conn, send, logger)

	send <- message{
		Type:              typeWelcome,
		ServerTimeout:     int(serverTimeout.Seconds()),
		KeepAliveInterval: int(keepAliveInterval.Seconds()),
	}

	s.readPump(connCtx, conn, send, logger)
}

func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, send chan<- message, logger *slog.Logger) {
	conn.SetReadLimit(maxMessageBytes)
	conn.SetReadDeadline(time.Now().Add(serverTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(serverTimeout))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("client read failed", "error", err)
			} else {
				logger.Info("client disconnected")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(serverTimeout))

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn("ignoring unparsable message", "error", err)
			continue
		}

		switch msg.Type {
		case typeCommand:
			go s.execute(ctx, msg, send, logger)
		case typePing:
			select {
			case send <- message{Type: typePong, ID: msg.ID}:
			case <-ctx.Done():
				return
			}
		case typePong:
			// Already extended the read deadline above.
		default:
			logger.Debug("ignoring message", "type", msg.Type)
		}
	}
}

func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, send <-chan message, logger *slog.Logger) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warn("write failed", "error", err)
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
			return
		}
	}
}

// execute runs one request through the pipeline and queues the correlated
// reply. Requests on the same connection run concurrently; the id is the
// client's correlation handle.
func (s *Server) execute(ctx context.Context, msg message, send chan<- message, logger *slog.Logger) {
	raw := msg.Text
	if raw == "" {
		b, err := json.Marshal(command.Request{Type: msg.Name, Params: msg.Params})
		if err != nil {
			logger.Warn("unmarshalable execute request", "id", msg.ID, "error", err)
			return
		}
		raw = string(b)
	}

	out, err := s.exec.ExecuteCommand(ctx, raw)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		out, _ = command.Encode(command.Failure(err.Error()))
	}

	select {
	case send <- message{Type: typeCommandResult, ID: msg.ID, Result: json.RawMessage(out)}:
	case <-ctx.Done():
	}
}
