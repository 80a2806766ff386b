package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// GetPath retrieves a value from the configuration using a dot-notation path,
// e.g. "tcp.listen" or "service.tick_interval".
func (c *Config) GetPath(path string) (any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return getValue(m, path)
}

func getValue(m map[string]any, path string) (any, error) {
	parts := strings.Split(path, ".")
	var current any = m

	for _, part := range parts {
		if part == "" {
			continue
		}

		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path %q breaks at %q (not a map)", path, part)
		}

		val, exists := m[part]
		if !exists {
			return nil, fmt.Errorf("path %q: key %q not found", path, part)
		}
		current = val
	}

	return current, nil
}

// SetPath modifies a configuration value at the specified path in the
// underlying config.yaml. When persist is true the change is written to disk
// and validated by reloading; a failed validation rolls the file back.
func (c *Config) SetPath(path, value string, persist bool) error {
	if c.ConfigDir == "" {
		return fmt.Errorf("no configuration source to modify")
	}
	targetFile := filepath.Join(c.ConfigDir, "config.yaml")

	data, err := os.ReadFile(targetFile)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var rootNode yaml.Node
	if err := yaml.Unmarshal(data, &rootNode); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if rootNode.Kind == 0 || len(rootNode.Content) == 0 {
		rootNode = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	}

	target, err := findNode(rootNode.Content[0], path, true)
	if err != nil {
		return fmt.Errorf("failed to navigate/create path %q: %w", path, err)
	}

	target.Kind = yaml.ScalarNode
	target.Value = value
	target.Tag = guessTag(value)
	target.Content = nil

	if !persist {
		return nil
	}

	candidate, err := yaml.Marshal(&rootNode)
	if err != nil {
		return err
	}

	return persistWithValidation(targetFile, candidate)
}

func findNode(node *yaml.Node, path string, create bool) (*yaml.Node, error) {
	parts := strings.Split(path, ".")
	current := node

	for _, part := range parts {
		if current.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("not a mapping node")
		}

		found := false
		for i := 0; i < len(current.Content); i += 2 {
			keyNode := current.Content[i]
			if keyNode.Value == part {
				current = current.Content[i+1]
				found = true
				break
			}
		}

		if !found {
			if !create {
				return nil, fmt.Errorf("key %q not found", part)
			}
			keyNode := &yaml.Node{
				Kind:  yaml.ScalarNode,
				Tag:   "!!str",
				Value: part,
			}
			valueNode := &yaml.Node{
				Kind: yaml.MappingNode,
				Tag:  "!!map",
			}
			current.Content = append(current.Content, keyNode, valueNode)
			current = valueNode
		}
	}

	return current, nil
}

func guessTag(v string) string {
	if v == "true" || v == "false" {
		return "!!bool"
	}
	isDigit := true
	for i, c := range v {
		if i == 0 && c == '-' {
			continue
		}
		if c < '0' || c > '9' {
			isDigit = false
			break
		}
	}
	if isDigit && v != "" && v != "-" {
		return "!!int"
	}
	return "!!str"
}

func persistWithValidation(targetFile string, candidate []byte) error {
	original, err := os.ReadFile(targetFile)
	if err != nil {
		return fmt.Errorf("failed to read original config file: %w", err)
	}

	mode := os.FileMode(0644)
	if info, statErr := os.Stat(targetFile); statErr == nil {
		mode = info.Mode().Perm()
	}

	if err := os.WriteFile(targetFile, candidate, mode); err != nil {
		return fmt.Errorf("failed to persist config change: %w", err)
	}

	if _, _, err := Load(targetFile); err != nil {
		restoreErr := os.WriteFile(targetFile, original, mode)
		if restoreErr != nil {
			return fmt.Errorf("validation failed (%v) and rollback failed (%v)", err, restoreErr)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}
