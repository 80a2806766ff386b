package tcp

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/stagehand/internal/command"
	"github.com/mattjoyce/stagehand/internal/events"
	"github.com/mattjoyce/stagehand/internal/log"
)

func TestMain(m *testing.M) {
	log.Setup("ERROR")
	os.Exit(m.Run())
}

type execFunc func(ctx context.Context, raw string) (string, error)

func (f execFunc) ExecuteCommand(ctx context.Context, raw string) (string, error) {
	return f(ctx, raw)
}

// echoExec wraps the raw text in a success envelope so tests can see exactly
// what reached the pipeline.
func echoExec() Executor {
	return execFunc(func(ctx context.Context, raw string) (string, error) {
		return command.Encode(command.Success(map[string]string{"echo": raw}))
	})
}

func startServer(t *testing.T, cfg Config, exec Executor) (addr string, cancel context.CancelFunc, served chan error) {
	t.Helper()
	if cfg.Listen == "" {
		cfg.Listen = "127.0.0.1:0"
	}
	srv := New(cfg, exec, events.NewHub(16), log.Get())
	require.NoError(t, srv.Listen())

	ctx, cancelCtx := context.WithCancel(context.Background())
	served = make(chan error, 1)
	go func() { served <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancelCtx()
		select {
		case <-served:
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})
	return srv.listener.Addr().String(), cancelCtx, served
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	// Consume the handshake line.
	buf := make([]byte, len(Handshake))
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	require.Equal(t, Handshake, string(buf))
	return conn
}

func writeFrame(t *testing.T, conn net.Conn, payload []byte) {
	t.Helper()
	buf := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint64(buf[:headerSize], uint64(len(payload)))
	copy(buf[headerSize:], payload)
	_, err := conn.Write(buf)
	require.NoError(t, err)
}

func readFrame(t *testing.T, conn net.Conn) []byte {
	t.Helper()
	header := make([]byte, headerSize)
	_, err := io.ReadFull(conn, header)
	require.NoError(t, err)
	n := binary.BigEndian.Uint64(header)
	payload := make([]byte, n)
	if n > 0 {
		_, err = io.ReadFull(conn, payload)
		require.NoError(t, err)
	}
	return payload
}

func TestHandshakeOnConnect(t *testing.T) {
	addr, _, _ := startServer(t, Config{}, echoExec())
	dial(t, addr) // dial asserts the handshake bytes
}

func TestCommandRoundTrip(t *testing.T) {
	addr, _, _ := startServer(t, Config{}, echoExec())
	conn := dial(t, addr)

	writeFrame(t, conn, []byte(`{"type":"manage_editor","params":{}}`))
	payload := readFrame(t, conn)

	var resp command.Response
	require.NoError(t, json.Unmarshal(payload, &resp))
	assert.Equal(t, command.StatusSuccess, resp.Status)
	result := resp.Result.(map[string]any)
	assert.Equal(t, `{"type":"manage_editor","params":{}}`, result["echo"])
}

func TestBarePingSkipsPipeline(t *testing.T) {
	var calls atomic.Int64
	exec := execFunc(func(ctx context.Context, raw string) (string, error) {
		calls.Add(1)
		return command.Encode(command.Success(nil))
	})
	addr, _, _ := startServer(t, Config{}, exec)
	conn := dial(t, addr)

	for _, probe := range []string{"ping", "PING", "  Ping  "} {
		writeFrame(t, conn, []byte(probe))
		payload := readFrame(t, conn)
		assert.Equal(t, `{"status":"success","result":{"message":"pong"}}`, string(payload))
	}
	assert.Equal(t, int64(0), calls.Load())
}

func TestHeartbeatEchoed(t *testing.T) {
	addr, _, _ := startServer(t, Config{}, echoExec())
	conn := dial(t, addr)

	writeFrame(t, conn, nil)
	payload := readFrame(t, conn)
	assert.Empty(t, payload)

	// The connection stays usable afterward.
	writeFrame(t, conn, []byte("ping"))
	assert.Contains(t, string(readFrame(t, conn)), "pong")
}

func TestHeartbeatFloodDropsConnection(t *testing.T) {
	addr, _, _ := startServer(t, Config{}, echoExec())
	conn := dial(t, addr)

	for i := 0; i < heartbeatRunLimit; i++ {
		writeFrame(t, conn, nil)
		assert.Empty(t, readFrame(t, conn))
	}
	writeFrame(t, conn, nil)

	buf := make([]byte, 1)
	_, err := conn.Read(buf)
	require.Error(t, err)
}

func TestDisconnectCancelsInflightCommand(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})
	exec := execFunc(func(ctx context.Context, raw string) (string, error) {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return "", ctx.Err()
	})
	addr, _, _ := startServer(t, Config{}, exec)
	conn := dial(t, addr)

	writeFrame(t, conn, []byte(`{"type":"slow"}`))
	<-started
	conn.Close()

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight command kept running after disconnect")
	}
}

func TestOversizedFrameDropsConnection(t *testing.T) {
	addr, _, _ := startServer(t, Config{MaxFrameBytes: 16}, echoExec())
	conn := dial(t, addr)

	header := make([]byte, headerSize)
	binary.BigEndian.PutUint64(header, 1024)
	_, err := conn.Write(header)
	require.NoError(t, err)

	// The server drops the connection without answering.
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	require.Error(t, err)
}

func TestSequentialCommandsStayOrdered(t *testing.T) {
	addr, _, _ := startServer(t, Config{}, echoExec())
	conn := dial(t, addr)

	for i := 0; i < 5; i++ {
		writeFrame(t, conn, []byte(fmt.Sprintf(`{"type":"cmd_%d"}`, i)))
	}
	for i := 0; i < 5; i++ {
		var resp command.Response
		require.NoError(t, json.Unmarshal(readFrame(t, conn), &resp))
		result := resp.Result.(map[string]any)
		assert.Contains(t, result["echo"], fmt.Sprintf("cmd_%d", i))
	}
}

func TestExecutorRefusalBecomesErrorEnvelope(t *testing.T) {
	exec := execFunc(func(ctx context.Context, raw string) (string, error) {
		return "", errors.New("dispatch scheduler is stopped")
	})
	addr, _, _ := startServer(t, Config{}, exec)
	conn := dial(t, addr)

	writeFrame(t, conn, []byte(`{"type":"anything"}`))
	var resp command.Response
	require.NoError(t, json.Unmarshal(readFrame(t, conn), &resp))
	assert.Equal(t, command.StatusError, resp.Status)
	assert.Equal(t, "dispatch scheduler is stopped", resp.Error)
}

func TestShutdownClosesClients(t *testing.T) {
	addr, cancel, served := startServer(t, Config{}, echoExec())
	conn := dial(t, addr)

	cancel()
	select {
	case err := <-served:
		assert.ErrorIs(t, err, context.Canceled)
		served <- err // keep the cleanup drain working
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}

	buf := make([]byte, 1)
	_, err := conn.Read(buf)
	require.Error(t, err)
}
