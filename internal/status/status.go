// Package status maintains the per-instance discovery file that external
// clients read to locate a running stagehand service. Each project gets its
// own file keyed by a short hash of the project path, so several instances
// can share one data directory without clobbering each other.
package status

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/mattjoyce/stagehand/internal/log"
)

// Schema identifies the status file layout version.
const Schema = 1

// Info is the payload written to the status file.
type Info struct {
	Schema      int    `json:"schema"`
	PID         int    `json:"pid"`
	TCPPort     int    `json:"tcp_port"`
	ProjectPath string `json:"project_path"`
	ProjectName string `json:"project_name"`
	StartedAt   string `json:"started_at"`
	Reloading   bool   `json:"reloading"`
}

// File manages the lifecycle of one instance's status file.
type File struct {
	mu   sync.Mutex
	path string
	info Info
}

// InstanceHash returns the first 8 hex characters of the BLAKE3 hash of the
// project path. It is what distinguishes one instance's status file from
// another's.
func InstanceHash(projectPath string) string {
	sum := blake3.Sum256([]byte(projectPath))
	return hex.EncodeToString(sum[:])[:8]
}

// FilePath returns the status file path for a project inside dataDir.
func FilePath(dataDir, projectPath string) string {
	name := fmt.Sprintf("stagehand-status-%s.json", InstanceHash(projectPath))
	return filepath.Join(dataDir, name)
}

// Write creates or replaces the status file for this instance and returns a
// handle for later updates and removal.
func Write(dataDir, projectPath, projectName string, tcpPort int) (*File, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	f := &File{
		path: FilePath(dataDir, projectPath),
		info: Info{
			Schema:      Schema,
			PID:         os.Getpid(),
			TCPPort:     tcpPort,
			ProjectPath: projectPath,
			ProjectName: projectName,
			StartedAt:   time.Now().UTC().Format(time.RFC3339),
		},
	}

	if err := f.flush(); err != nil {
		return nil, err
	}

	log.Debug("status file written", "path", f.path, "tcp_port", tcpPort)
	return f, nil
}

// Path returns the location of the status file.
func (f *File) Path() string {
	return f.path
}

// SetReloading records whether the instance is mid-reload. Clients treat a
// reloading instance as temporarily unavailable rather than gone.
func (f *File) SetReloading(reloading bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.info.Reloading == reloading {
		return nil
	}
	f.info.Reloading = reloading
	return f.flushLocked()
}

// SetTCPPort updates the advertised TCP port, for setups where the listener
// binds an ephemeral port after the file is first written.
func (f *File) SetTCPPort(port int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.info.TCPPort == port {
		return nil
	}
	f.info.TCPPort = port
	return f.flushLocked()
}

// Remove deletes the status file. Safe to call more than once.
func (f *File) Remove() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove status file: %w", err)
	}
	return nil
}

func (f *File) flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushLocked()
}

// flushLocked writes via a temp file and rename so readers never observe a
// partially written document.
func (f *File) flushLocked() error {
	data, err := json.MarshalIndent(f.info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace status file: %w", err)
	}
	return nil
}

// Read loads a status file from disk. Used by doctor and watch to inspect a
// running instance.
func Read(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse status file: %w", err)
	}
	if info.Schema != Schema {
		return nil, fmt.Errorf("unsupported status schema: %d", info.Schema)
	}
	return &info, nil
}

// Discover lists all status files present in dataDir, skipping entries that
// fail to parse.
func Discover(dataDir string) ([]*Info, error) {
	matches, err := filepath.Glob(filepath.Join(dataDir, "stagehand-status-*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan data directory: %w", err)
	}

	infos := make([]*Info, 0, len(matches))
	for _, path := range matches {
		info, err := Read(path)
		if err != nil {
			log.Warn("skipping unreadable status file", "path", path, "error", err)
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}
