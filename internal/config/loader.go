package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file or directory. A directory
// must contain config.yaml. Environment overrides (STAGEHAND_*) are applied
// after parsing, then defaults, integrity verification, and validation.
// The returned strings are integrity warnings the caller should log.
func Load(configPath string) (*Config, []string, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	var configDir string
	if info.IsDir() {
		configDir = absPath
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	} else {
		configDir = filepath.Dir(absPath)
	}

	cfg, err := loadConfigFile(absPath)
	if err != nil {
		return nil, nil, err
	}
	cfg.ConfigDir = configDir

	cfg = applyConfigDefaults(cfg)

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, nil, err
	}

	// Verify everything under the config directory against .checksums.
	files, err := DiscoverFiles(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("config discovery: %w", err)
	}
	intResult, err := VerifyIntegrity(configDir, files)
	if err != nil {
		return nil, nil, fmt.Errorf("integrity check: %w", err)
	}
	if !intResult.Passed {
		return nil, nil, fmt.Errorf("integrity verification failed:\n  %s\n"+
			"Run 'stagehand config lock' to authorize the current state",
			strings.Join(intResult.Errors, "\n  "))
	}

	if err := validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, intResult.Warnings, nil
}

// DiscoverConfigDir finds the config location by checking standard places.
// Priority order: $STAGEHAND_CONFIG_DIR, ~/.config/stagehand, ~/.stagehand,
// ./config.yaml (legacy).
func DiscoverConfigDir() (string, error) {
	if dir := os.Getenv("STAGEHAND_CONFIG_DIR"); dir != "" {
		if _, err := os.Stat(dir); err == nil {
			return dir, nil
		}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfigDir := filepath.Join(homeDir, ".config", "stagehand")
		if _, err := os.Stat(filepath.Join(userConfigDir, "config.yaml")); err == nil {
			return userConfigDir, nil
		}

		dataDir := filepath.Join(homeDir, ".stagehand")
		if _, err := os.Stat(filepath.Join(dataDir, "config.yaml")); err == nil {
			return dataDir, nil
		}
	}

	legacyConfigPath := "./config.yaml"
	if _, err := os.Stat(legacyConfigPath); err == nil {
		return legacyConfigPath, nil
	}

	return "", fmt.Errorf("no config found (checked: $STAGEHAND_CONFIG_DIR, ~/.config/stagehand, ~/.stagehand, ./config.yaml)")
}

// loadConfigFile loads and parses a single config file.
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	interpolated := interpolateEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &cfg, nil
}

// applyConfigDefaults merges default values into config where not explicitly set.
func applyConfigDefaults(cfg *Config) *Config {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.TickInterval == 0 {
		cfg.Service.TickInterval = defaults.Service.TickInterval
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}
	if cfg.Service.DataDir == "" {
		cfg.Service.DataDir = defaults.Service.DataDir
	}

	if cfg.Project.Name == "" {
		cfg.Project.Name = defaults.Project.Name
	}
	if cfg.Project.Path == "" {
		cfg.Project.Path = defaults.Project.Path
	}

	if !cfg.TCP.Enabled && cfg.TCP.Listen == "" {
		cfg.TCP.Enabled = defaults.TCP.Enabled
	}
	if cfg.TCP.Listen == "" {
		cfg.TCP.Listen = defaults.TCP.Listen
	}
	if cfg.TCP.MaxFrameBytes == 0 {
		cfg.TCP.MaxFrameBytes = defaults.TCP.MaxFrameBytes
	}

	if cfg.WebSocket.Listen == "" {
		cfg.WebSocket.Listen = defaults.WebSocket.Listen
	}
	if cfg.WebSocket.Path == "" {
		cfg.WebSocket.Path = defaults.WebSocket.Path
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}

	if cfg.Journal.Retention == 0 {
		cfg.Journal.Retention = defaults.Journal.Retention
	}

	if cfg.Tools.Dir == "" {
		cfg.Tools.Enabled = defaults.Tools.Enabled
		cfg.Tools.Dir = defaults.Tools.Dir
	}

	return cfg
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}

		// If not found, leave the placeholder (will fail validation).
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	if cfg.Service.TickInterval <= 0 {
		return fmt.Errorf("service.tick_interval must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	if cfg.Service.LogFormat != "json" && cfg.Service.LogFormat != "text" {
		return fmt.Errorf("service.log_format must be json or text (got %q)", cfg.Service.LogFormat)
	}

	if cfg.Project.Name == "" {
		return fmt.Errorf("project.name is required")
	}

	if cfg.TCP.Enabled {
		if cfg.TCP.Listen == "" {
			return fmt.Errorf("tcp.listen is required when tcp is enabled")
		}
		if cfg.TCP.MaxFrameBytes <= 0 {
			return fmt.Errorf("tcp.max_frame_bytes must be positive")
		}
	}

	if cfg.WebSocket.Enabled {
		if cfg.WebSocket.Listen == "" {
			return fmt.Errorf("websocket.listen is required when websocket is enabled")
		}
		if !strings.HasPrefix(cfg.WebSocket.Path, "/") {
			return fmt.Errorf("websocket.path must start with / (got %q)", cfg.WebSocket.Path)
		}
	}

	if cfg.API.Enabled && cfg.API.Listen == "" {
		return fmt.Errorf("api.listen is required when api is enabled")
	}

	if cfg.Journal.Retention < 0 {
		return fmt.Errorf("journal.retention must not be negative")
	}

	// Unresolved ${VAR} placeholders in operational fields are a deployment
	// mistake; fail loudly instead of dialing a literal placeholder.
	for field, value := range map[string]string{
		"tcp.listen":       cfg.TCP.Listen,
		"websocket.listen": cfg.WebSocket.Listen,
		"api.listen":       cfg.API.Listen,
		"journal.path":     cfg.Journal.Path,
		"tools.dir":        cfg.Tools.Dir,
		"service.data_dir": cfg.Service.DataDir,
		"project.path":     cfg.Project.Path,
	} {
		if matches := envVarPattern.FindStringSubmatch(value); len(matches) > 1 {
			return fmt.Errorf("%s: environment variable ${%s} is not set", field, matches[1])
		}
	}

	return nil
}
