package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config represents the complete stagehand configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Project   ProjectConfig   `yaml:"project"`
	TCP       TCPConfig       `yaml:"tcp"`
	WebSocket WebSocketConfig `yaml:"websocket,omitempty"`
	API       APIConfig       `yaml:"api,omitempty"`
	Journal   JournalConfig   `yaml:"journal"`
	Tools     ToolsConfig     `yaml:"tools"`

	// ConfigDir is the directory the config was loaded from. Relative paths
	// in the file resolve against it.
	ConfigDir string `yaml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name         string        `yaml:"name"`
	TickInterval time.Duration `yaml:"tick_interval"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
	DataDir      string        `yaml:"data_dir"`
}

// ProjectConfig identifies the hosted project. The path feeds the status
// file hash, so two checkouts of the same project get distinct status files.
type ProjectConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// TCPConfig defines the framed TCP bridge listener.
type TCPConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Listen        string        `yaml:"listen"`
	MaxFrameBytes int64         `yaml:"max_frame_bytes"`
	IdleTimeout   time.Duration `yaml:"idle_timeout,omitempty"`
}

// WebSocketConfig defines the plugin hub listener.
type WebSocketConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

// APIConfig defines the HTTP API server settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// JournalConfig defines command journal storage settings.
type JournalConfig struct {
	// Path defaults to <data_dir>/journal.db when empty.
	Path      string        `yaml:"path,omitempty"`
	Retention time.Duration `yaml:"retention"`
}

// ToolsConfig defines scripted tool loading.
type ToolsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Dir holds *.lua tool scripts, resolved against the config directory
	// when relative.
	Dir string `yaml:"dir"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:         "stagehand",
			TickInterval: 10 * time.Millisecond,
			LogLevel:     "info",
			LogFormat:    "json",
			DataDir:      "~/.stagehand",
		},
		Project: ProjectConfig{
			Name: "Sandbox",
			Path: ".",
		},
		TCP: TCPConfig{
			Enabled:       true,
			Listen:        "127.0.0.1:6400",
			MaxFrameBytes: 64 << 20,
		},
		WebSocket: WebSocketConfig{
			Enabled: false,
			Listen:  "127.0.0.1:6401",
			Path:    "/plugin",
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:6500",
		},
		Journal: JournalConfig{
			Retention: 30 * 24 * time.Hour,
		},
		Tools: ToolsConfig{
			Enabled: true,
			Dir:     "tools.d",
		},
	}
}

// ResolvedDataDir expands the configured data directory to an absolute path.
func (c *Config) ResolvedDataDir() (string, error) {
	dir, err := expandHome(c.Service.DataDir)
	if err != nil {
		return "", fmt.Errorf("resolve data_dir: %w", err)
	}
	return dir, nil
}

// ResolvedJournalPath returns the journal database path, deriving it from the
// data directory when not set explicitly.
func (c *Config) ResolvedJournalPath() (string, error) {
	if c.Journal.Path != "" {
		return expandHome(c.Journal.Path)
	}
	dataDir, err := c.ResolvedDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "journal.db"), nil
}

// ResolvedToolsDir returns the tool script directory as an absolute path.
func (c *Config) ResolvedToolsDir() string {
	if filepath.IsAbs(c.Tools.Dir) {
		return c.Tools.Dir
	}
	return filepath.Join(c.ConfigDir, c.Tools.Dir)
}

// ResolvedProjectPath returns the project path as an absolute path.
func (c *Config) ResolvedProjectPath() (string, error) {
	p, err := expandHome(c.Project.Path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(p)
}

// expandHome resolves a leading ~ against the user's home directory.
func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
