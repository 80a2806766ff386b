package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "config.yaml"), "project:\n  name: test\n")
	writeTestFile(t, filepath.Join(dir, "tools.d", "zeta.lua"), "-- tool\n")
	writeTestFile(t, filepath.Join(dir, "tools.d", "alpha.lua"), "-- tool\n")
	writeTestFile(t, filepath.Join(dir, "tools.d", "README.md"), "not a tool\n")

	files, err := DiscoverFiles(dir)
	if err != nil {
		t.Fatalf("DiscoverFiles() error = %v", err)
	}

	if files.Config != filepath.Join(dir, "config.yaml") {
		t.Errorf("config path = %q", files.Config)
	}
	if len(files.Tools) != 2 {
		t.Fatalf("expected 2 tool scripts, got %d", len(files.Tools))
	}
	// Sorted
	if filepath.Base(files.Tools[0]) != "alpha.lua" || filepath.Base(files.Tools[1]) != "zeta.lua" {
		t.Errorf("tool scripts not sorted: %v", files.Tools)
	}

	if got := len(files.AllFiles()); got != 3 {
		t.Errorf("AllFiles() returned %d entries, want 3", got)
	}
}

func TestDiscoverFilesMissingConfig(t *testing.T) {
	_, err := DiscoverFiles(t.TempDir())
	if err == nil {
		t.Fatal("expected error when config.yaml is missing")
	}
}

func TestDiscoverFilesNoToolsDir(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "config.yaml"), "project:\n  name: test\n")

	files, err := DiscoverFiles(dir)
	if err != nil {
		t.Fatalf("DiscoverFiles() error = %v", err)
	}
	if files.Tools != nil {
		t.Errorf("expected nil tools, got %v", files.Tools)
	}
}

func TestFileTier(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "config.yaml"), "project:\n  name: test\n")
	writeTestFile(t, filepath.Join(dir, "tools.d", "spawn.lua"), "-- tool\n")

	files, err := DiscoverFiles(dir)
	if err != nil {
		t.Fatal(err)
	}

	if files.FileTier(files.Config) != TierOperational {
		t.Error("config.yaml should be operational tier")
	}
	if files.FileTier(files.Tools[0]) != TierHighSecurity {
		t.Error("lua scripts should be high-security tier")
	}
	if got := files.HighSecurityFiles(); len(got) != 1 {
		t.Errorf("HighSecurityFiles() = %v", got)
	}
}

func TestRelPath(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "config.yaml"), "project:\n  name: test\n")
	writeTestFile(t, filepath.Join(dir, "tools.d", "spawn.lua"), "-- tool\n")

	files, err := DiscoverFiles(dir)
	if err != nil {
		t.Fatal(err)
	}

	if got := files.RelPath(files.Config); got != "config.yaml" {
		t.Errorf("RelPath(config) = %q", got)
	}
	if got := files.RelPath(files.Tools[0]); got != "tools.d/spawn.lua" {
		t.Errorf("RelPath(tool) = %q", got)
	}
}
