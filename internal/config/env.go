package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// envOverrides is the operational subset of settings that may be overridden
// from the environment (STAGEHAND_ prefix). Everything else belongs in the
// config file.
type envOverrides struct {
	LogLevel    string `envconfig:"LOG_LEVEL"`
	LogFormat   string `envconfig:"LOG_FORMAT"`
	DataDir     string `envconfig:"DATA_DIR"`
	TCPListen   string `envconfig:"TCP_LISTEN"`
	WSListen    string `envconfig:"WS_LISTEN"`
	APIListen   string `envconfig:"API_LISTEN"`
	ProjectName string `envconfig:"PROJECT_NAME"`
	ProjectPath string `envconfig:"PROJECT_PATH"`
}

// applyEnvOverrides layers STAGEHAND_* environment variables over file values.
func applyEnvOverrides(cfg *Config) error {
	var o envOverrides
	if err := envconfig.Process("stagehand", &o); err != nil {
		return fmt.Errorf("process environment overrides: %w", err)
	}

	if o.LogLevel != "" {
		cfg.Service.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Service.LogFormat = o.LogFormat
	}
	if o.DataDir != "" {
		cfg.Service.DataDir = o.DataDir
	}
	if o.TCPListen != "" {
		cfg.TCP.Listen = o.TCPListen
	}
	if o.WSListen != "" {
		cfg.WebSocket.Listen = o.WSListen
	}
	if o.APIListen != "" {
		cfg.API.Listen = o.APIListen
	}
	if o.ProjectName != "" {
		cfg.Project.Name = o.ProjectName
	}
	if o.ProjectPath != "" {
		cfg.Project.Path = o.ProjectPath
	}

	return nil
}
