package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Tier classifies a config file for integrity verification. Tool scripts
// execute inside the service, so tampering with them is a hard failure;
// the YAML itself only triggers a warning.
type Tier int

const (
	TierOperational Tier = iota
	TierHighSecurity
)

// ConfigFiles is the manifest of files discovered in a config directory.
type ConfigFiles struct {
	Root   string
	Config string   // config.yaml (mandatory)
	Tools  []string // tools.d/*.lua, sorted
}

// AllFiles returns every discovered file as an absolute path.
func (f *ConfigFiles) AllFiles() []string {
	out := make([]string, 0, 1+len(f.Tools))
	out = append(out, f.Config)
	out = append(out, f.Tools...)
	return out
}

// FileTier returns the integrity tier for a discovered file.
func (f *ConfigFiles) FileTier(path string) Tier {
	if strings.HasSuffix(path, ".lua") {
		return TierHighSecurity
	}
	return TierOperational
}

// HighSecurityFiles returns the discovered files in the high-security tier.
func (f *ConfigFiles) HighSecurityFiles() []string {
	var out []string
	for _, path := range f.AllFiles() {
		if f.FileTier(path) == TierHighSecurity {
			out = append(out, path)
		}
	}
	return out
}

// RelPath converts an absolute discovered path to its manifest key, which is
// relative to the config directory.
func (f *ConfigFiles) RelPath(path string) string {
	rel, err := filepath.Rel(f.Root, path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

// DiscoverFiles walks a config directory and returns the manifest of
// discovered files. Returns an error if config.yaml is missing.
func DiscoverFiles(configDir string) (*ConfigFiles, error) {
	absDir, err := filepath.Abs(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config dir %q: %w", configDir, err)
	}

	cf := &ConfigFiles{Root: absDir}

	configPath := filepath.Join(absDir, "config.yaml")
	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("config.yaml not found in %s: %w", absDir, err)
	}
	cf.Config = configPath

	cf.Tools, err = walkDirWithExt(filepath.Join(absDir, "tools.d"), ".lua")
	if err != nil {
		return nil, fmt.Errorf("failed to walk tools.d/: %w", err)
	}

	return cf, nil
}

// walkDirWithExt returns sorted absolute paths of files with the given
// extension in dir. Returns nil (not error) if the directory doesn't exist.
func walkDirWithExt(dir, ext string) ([]string, error) {
	if !dirExists(dir) {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ext) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
