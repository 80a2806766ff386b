package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestComputeBlake3Hash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeTestFile(t, path, "project:\n  name: test\n")

	hash, err := ComputeBlake3Hash(path)
	if err != nil {
		t.Fatalf("ComputeBlake3Hash() error = %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(hash))
	}

	// Same content hashes identically.
	again, err := ComputeBlake3Hash(path)
	if err != nil {
		t.Fatal(err)
	}
	if hash != again {
		t.Error("hash not stable for unchanged file")
	}

	if err := VerifyFileHash(path, hash); err != nil {
		t.Errorf("VerifyFileHash() unexpected error: %v", err)
	}
	if err := VerifyFileHash(path, "deadbeef"); err == nil {
		t.Error("VerifyFileHash() should reject wrong hash")
	}
}

func TestGenerateAndLoadChecksums(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "config.yaml"), "project:\n  name: test\n")
	writeTestFile(t, filepath.Join(dir, "tools.d", "spawn.lua"), "-- tool\n")

	report, err := GenerateChecksumsWithReport(dir, []string{"config.yaml", "tools.d/spawn.lua", "tools.d/gone.lua"}, false)
	if err != nil {
		t.Fatalf("GenerateChecksumsWithReport() error = %v", err)
	}
	if !report.Written {
		t.Error("report should mark manifest as written")
	}
	if len(report.Files) != 3 {
		t.Fatalf("expected 3 file results, got %d", len(report.Files))
	}
	for _, f := range report.Files {
		if f.Filename == "tools.d/gone.lua" {
			if f.Exists {
				t.Error("missing file reported as existing")
			}
		} else if !f.Exists || f.Hash == "" {
			t.Errorf("file %s should be hashed", f.Filename)
		}
	}

	manifest, err := LoadChecksums(dir)
	if err != nil {
		t.Fatalf("LoadChecksums() error = %v", err)
	}
	if manifest.Version != 1 {
		t.Errorf("manifest version = %d", manifest.Version)
	}
	if len(manifest.Hashes) != 2 {
		t.Errorf("manifest should only hold existing files, got %d entries", len(manifest.Hashes))
	}
	if _, ok := manifest.Hashes["tools.d/spawn.lua"]; !ok {
		t.Error("manifest missing tool script entry")
	}
}

func TestGenerateChecksumsDryRun(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "config.yaml"), "project:\n  name: test\n")

	report, err := GenerateChecksumsWithReport(dir, []string{"config.yaml"}, true)
	if err != nil {
		t.Fatal(err)
	}
	if report.Written {
		t.Error("dry run must not write the manifest")
	}
	if _, err := os.Stat(filepath.Join(dir, ".checksums")); !os.IsNotExist(err) {
		t.Error("dry run left a .checksums file behind")
	}
}

func TestLoadChecksumsMissing(t *testing.T) {
	_, err := LoadChecksums(t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing manifest")
	}
}
