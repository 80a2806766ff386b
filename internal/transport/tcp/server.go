// Package tcp implements the framed TCP listener that command clients
// connect to. The wire protocol is a one-line handshake followed by
// length-prefixed frames: an 8-byte big-endian payload size, then that many
// bytes of UTF-8 JSON. Zero-length frames are heartbeats, echoed back and
// tolerated only in bounded runs. Frames on one connection are processed
// strictly in order.
package tcp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/mattjoyce/stagehand/internal/bridge"
	"github.com/mattjoyce/stagehand/internal/command"
	"github.com/mattjoyce/stagehand/internal/events"
)

// Handshake is sent verbatim the moment a connection is accepted. Clients
// use it to confirm they reached a framing-capable endpoint before sending
// anything.
const Handshake = "WELCOME STAGEHAND 1 FRAMING=1\n"

const (
	headerSize = 8

	// DefaultMaxFrameBytes bounds a single payload. Anything larger is a
	// protocol violation and drops the connection.
	DefaultMaxFrameBytes = 64 << 20

	// heartbeatRunLimit caps consecutive zero-length frames. A client
	// sending nothing but heartbeats past this is broken and gets dropped.
	heartbeatRunLimit = 16
)

// pongFrame is precomputed so liveness probes answer even while the host
// loop is busy with a long drain.
var pongFrame = func() []byte {
	out, _ := command.Encode(command.Pong())
	return []byte(out)
}()

// Executor runs raw command text through the dispatch pipeline.
// *bridge.Scheduler satisfies it.
type Executor interface {
	ExecuteCommand(ctx context.Context, raw string) (string, error)
}

// Config holds the TCP listener settings.
type Config struct {
	Listen        string
	MaxFrameBytes int64
	IdleTimeout   time.Duration
}

// Server accepts framed TCP connections and feeds their commands to the
// dispatch pipeline.
type Server struct {
	config   Config
	exec     Executor
	hub      *events.Hub
	logger   *slog.Logger
	listener net.Listener
	wg       sync.WaitGroup
}

// New creates a TCP server. Listen must be called before Serve when the
// caller needs the bound address, otherwise Serve binds on its own.
func New(config Config, exec Executor, hub *events.Hub, logger *slog.Logger) *Server {
	if config.MaxFrameBytes <= 0 {
		config.MaxFrameBytes = DefaultMaxFrameBytes
	}
	if hub == nil {
		hub = events.NewHub(16)
	}
	return &Server{
		config: config,
		exec:   exec,
		hub:    hub,
		logger: logger.With("component", "tcp"),
	}
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.config.Listen, err)
	}
	s.listener = ln
	s.logger.Info("tcp listener bound", "addr", ln.Addr().String())
	return nil
}

// Port returns the bound TCP port, or 0 before Listen.
func (s *Server) Port() int {
	if s.listener == nil {
		return 0
	}
	if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Serve accepts connections until ctx is cancelled, then closes the listener
// and waits for per-connection goroutines to drain.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.acceptLoop(ctx)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("tcp listener shutting down")
		s.listener.Close()
		<-errCh
		s.wg.Wait()
		return ctx.Err()
	case err := <-errCh:
		s.wg.Wait()
		return err
	}
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		s.wg.Add(1)
		go s.handleConn(ctx, conn)
	}
}

// handleConn owns one client for its whole life. A reader goroutine pulls
// frames off the wire while this goroutine executes them one at a time, so a
// dropped connection cancels the in-flight command instead of waiting for it.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	logger := s.logger.With("remote", remote)
	logger.Info("client connected")
	s.hub.Publish(events.TypeClientConnected, map[string]string{
		"transport": "tcp", "remote": remote,
	})
	defer s.hub.Publish(events.TypeClientClosed, map[string]string{
		"transport": "tcp", "remote": remote,
	})

	connCtx, cancel := context.WithCancel(bridge.WithSource(ctx, "tcp"))
	defer cancel()
	go func() {
		// Unblocks pending reads on shutdown or executor exit.
		<-connCtx.Done()
		conn.Close()
	}()

	if err := s.writeFrameRaw(conn, []byte(Handshake)); err != nil {
		logger.Warn("handshake write failed", "error", err)
		return
	}

	frames := make(chan []byte)
	go func() {
		err := s.readLoop(connCtx, conn, frames)
		if err != nil && connCtx.Err() == nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				logger.Info("client disconnected")
			} else {
				logger.Warn("client read failed", "error", err)
			}
		}
		// A dead client abandons whatever command is in flight.
		cancel()
	}()

	heartbeats := 0
	for {
		select {
		case <-connCtx.Done():
			return

		case payload := <-frames:
			if len(payload) == 0 {
				// Heartbeat: echo an empty frame so the client knows the
				// endpoint is alive.
				heartbeats++
				if heartbeats > heartbeatRunLimit {
					logger.Warn("heartbeat run exceeded limit, closing",
						"limit", heartbeatRunLimit)
					return
				}
				if err := s.writeFrame(conn, nil); err != nil {
					logger.Warn("heartbeat write failed", "error", err)
					return
				}
				continue
			}
			heartbeats = 0

			raw := string(payload)
			if command.IsPing(strings.TrimSpace(raw)) {
				if err := s.writeFrame(conn, pongFrame); err != nil {
					logger.Warn("pong write failed", "error", err)
					return
				}
				continue
			}

			out, err := s.exec.ExecuteCommand(connCtx, raw)
			if err != nil {
				if connCtx.Err() != nil {
					return
				}
				// Scheduler-level refusal still answers with an envelope.
				out, _ = command.Encode(command.Failure(err.Error()))
			}
			if err := s.writeFrame(conn, []byte(out)); err != nil {
				logger.Warn("response write failed", "error", err)
				return
			}
		}
	}
}

// readLoop decodes frames off the wire until the connection dies or ctx is
// cancelled. A zero-length payload is delivered as an empty slice; any
// protocol violation ends the connection.
func (s *Server) readLoop(ctx context.Context, conn net.Conn, frames chan<- []byte) error {
	header := make([]byte, headerSize)
	for {
		if s.config.IdleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout))
		}
		if _, err := io.ReadFull(conn, header); err != nil {
			return err
		}

		n := binary.BigEndian.Uint64(header)
		if n > uint64(s.config.MaxFrameBytes) {
			return fmt.Errorf("frame of %d bytes exceeds limit of %d", n, s.config.MaxFrameBytes)
		}
		payload := make([]byte, n)
		if n > 0 {
			if _, err := io.ReadFull(conn, payload); err != nil {
				return err
			}
		}

		select {
		case frames <- payload:
		case <-ctx.Done():
			return nil
		}
	}
}

// writeFrame sends one length-prefixed payload in a single write.
func (s *Server) writeFrame(conn net.Conn, payload []byte) error {
	buf := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint64(buf[:headerSize], uint64(len(payload)))
	copy(buf[headerSize:], payload)
	return s.writeFrameRaw(conn, buf)
}

func (s *Server) writeFrameRaw(conn net.Conn, buf []byte) error {
	if s.config.IdleTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.config.IdleTimeout))
	}
	_, err := conn.Write(buf)
	return err
}
