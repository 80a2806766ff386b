package doctor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattjoyce/stagehand/internal/config"
	"github.com/mattjoyce/stagehand/internal/status"
)

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Service.DataDir = t.TempDir()
	cfg.Project.Path = t.TempDir()
	cfg.Tools.Enabled = false
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()
	r := New(validConfig(t)).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
}

func TestValidate_MissingDataDir(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Service.DataDir = ""
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "service", "data_dir")
}

func TestValidate_BadTickInterval(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Service.TickInterval = 0
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "service", "tick_interval")
}

func TestValidate_BadLogLevel(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Service.LogLevel = "verbose"
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "service", "log level")
}

func TestValidate_NoTransports(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.TCP.Enabled = false
	cfg.WebSocket.Enabled = false
	cfg.API.Enabled = false
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "transport", "no transport enabled")
}

func TestValidate_MissingTCPListen(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.TCP.Listen = ""
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "transport", "tcp.listen is required")
}

func TestValidate_ListenConflict(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.WebSocket.Enabled = true
	cfg.WebSocket.Listen = cfg.TCP.Listen
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "transport", "already used by tcp")
}

func TestValidate_NegativeFrameCap(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.TCP.MaxFrameBytes = -1
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "transport", "max_frame_bytes")
}

func TestValidate_SmallFrameCapWarns(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.TCP.MaxFrameBytes = 1024
	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got: %v", r.Errors)
	}
	assertHasWarning(t, r, "transport", "below 1MiB")
}

func TestValidate_TCPDisabledWarns(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.TCP.Enabled = false
	cfg.API.Enabled = true
	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got: %v", r.Errors)
	}
	assertHasWarning(t, r, "transport", "bridge clients cannot connect")
}

func TestValidate_BadWebSocketPath(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.WebSocket.Enabled = true
	cfg.WebSocket.Path = "plugin"
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "transport", "websocket path")
}

func TestValidate_NegativeRetention(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Journal.Retention = -1
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "journal", "retention")
}

func TestValidate_DataDirIsFile(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg.Service.DataDir = file
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "data_dir", "not a directory")
}

func TestValidate_MissingToolsDirWarns(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Tools.Enabled = true
	cfg.Tools.Dir = filepath.Join(t.TempDir(), "nope")
	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got: %v", r.Errors)
	}
	assertHasWarning(t, r, "tools", "does not exist")
}

func TestValidate_BrokenToolScriptWarns(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.lua"), []byte("this is not lua ==="), 0644); err != nil {
		t.Fatal(err)
	}
	cfg.Tools.Enabled = true
	cfg.Tools.Dir = dir
	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got: %v", r.Errors)
	}
	assertHasWarning(t, r, "tools", "bad.lua")
}

func TestValidate_StaleStatusFile(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	projectPath, err := cfg.ResolvedProjectPath()
	if err != nil {
		t.Fatal(err)
	}
	writeStatusFile(t, cfg.Service.DataDir, projectPath, 999999999)

	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got: %v", r.Errors)
	}
	assertHasWarning(t, r, "instances", "stale status file")
}

func TestValidate_LiveInstanceWarns(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	projectPath, err := cfg.ResolvedProjectPath()
	if err != nil {
		t.Fatal(err)
	}
	writeStatusFile(t, cfg.Service.DataDir, projectPath, os.Getpid())

	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got: %v", r.Errors)
	}
	assertHasWarning(t, r, "instances", "already serving")
}

func TestFormatJSON(t *testing.T) {
	t.Parallel()
	r := &Result{
		Valid:  false,
		Errors: []Issue{{Category: "test", Message: "bad thing"}},
	}
	out, err := FormatJSON(r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "bad thing") {
		t.Fatalf("expected JSON to contain error message, got: %s", out)
	}
}

func TestFormatHuman_Valid(t *testing.T) {
	t.Parallel()
	r := &Result{Valid: true}
	out := FormatHuman(r)
	if !strings.Contains(out, "valid") {
		t.Fatalf("expected 'valid' in output, got: %s", out)
	}
}

func TestFormatHuman_Errors(t *testing.T) {
	t.Parallel()
	r := &Result{
		Valid:  false,
		Errors: []Issue{{Category: "test", Field: "x.y", Message: "broken"}},
	}
	out := FormatHuman(r)
	if !strings.Contains(out, "ERROR") || !strings.Contains(out, "broken") {
		t.Fatalf("expected error in output, got: %s", out)
	}
}

// --- helpers ---

func writeStatusFile(t *testing.T, dataDir, projectPath string, pid int) {
	t.Helper()
	payload := fmt.Sprintf(
		`{"schema":1,"pid":%d,"tcp_port":6400,"project_path":%q,"project_name":"Demo","started_at":"2026-01-01T00:00:00Z","reloading":false}`,
		pid, projectPath)
	if err := os.WriteFile(status.FilePath(dataDir, projectPath), []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}
}

func assertHasError(t *testing.T, r *Result, category, substring string) {
	t.Helper()
	for _, e := range r.Errors {
		if e.Category == category && strings.Contains(e.Message, substring) {
			return
		}
	}
	t.Fatalf("expected error with category=%q containing %q, got: %v", category, substring, r.Errors)
}

func assertHasWarning(t *testing.T, r *Result, category, substring string) {
	t.Helper()
	for _, w := range r.Warnings {
		if w.Category == category && strings.Contains(w.Message, substring) {
			return
		}
	}
	t.Fatalf("expected warning with category=%q containing %q, got: %v", category, substring, r.Warnings)
}
